package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/dataset"
	"github.com/vela-data/granular/shard"
	"github.com/vela-data/granular/specfile"
)

var log = logging.Logger("granular/cli")

func newCmd_Inspect() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the spec, record count, and on-disk size of a Dataset or Sharded Dataset",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "sharded",
				Usage: "treat <dir> as a Sharded Dataset root instead of a single Dataset",
			},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if dir == "" {
				return fmt.Errorf("missing <dir> argument")
			}
			runID := uuid.NewString()
			reg := codec.New()

			if c.Bool("sharded") {
				r, err := shard.Open(dir, reg)
				if err != nil {
					return err
				}
				defer r.Close()
				log.Infow("inspected sharded dataset", "run_id", runID, "dir", dir, "shards", r.Shards())
				fmt.Printf("%s\n", filepath.Clean(dir))
				fmt.Printf("  shards: %d\n", r.Shards())
				fmt.Printf("  records: %d\n", r.Len())
				fmt.Printf("  size: %s\n", humanize.Bytes(uint64(r.Size())))
				printSpec(r.Spec())
				return nil
			}

			r, err := dataset.Open(dir, reg, true, false)
			if err != nil {
				return err
			}
			defer r.Close()
			log.Infow("inspected dataset", "run_id", runID, "dir", dir, "records", r.Len())
			fmt.Printf("%s\n", filepath.Clean(dir))
			fmt.Printf("  records: %d\n", r.Len())
			fmt.Printf("  size: %s\n", humanize.Bytes(uint64(r.Size())))
			printSpec(r.Spec())
			return nil
		},
	}
}

func printSpec(spec specfile.Spec) {
	fmt.Println("  fields:")
	for _, name := range spec.Fields() {
		fmt.Printf("    %s: %s\n", name, spec[name])
	}
}
