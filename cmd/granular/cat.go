package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"github.com/vela-data/granular/codec"
	"github.com/vela-data/granular/dataset"
	"github.com/vela-data/granular/shard"
)

func newCmd_Cat() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "print one record, or a half-open range of records, from a Dataset or Sharded Dataset",
		ArgsUsage: "<dir> <index|start:end>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "sharded",
				Usage: "treat <dir> as a Sharded Dataset root instead of a single Dataset",
			},
			&cli.StringSliceFlag{
				Name:  "field",
				Usage: "print only this field (repeatable); default prints every field",
			},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().Get(0)
			rangeArg := c.Args().Get(1)
			if dir == "" || rangeArg == "" {
				return fmt.Errorf("usage: granular cat [--sharded] <dir> <index|start:end>")
			}
			start, end, err := parseRangeArg(rangeArg)
			if err != nil {
				return err
			}

			selection := selectionFromFields(c.StringSlice("field"))
			runID := uuid.NewString()
			reg := codec.New()

			reader, closeFn, err := openReader(dir, c.Bool("sharded"), reg)
			if err != nil {
				return err
			}
			defer closeFn()
			log.Infow("cat", "run_id", runID, "dir", dir, "start", start, "end", end)

			showBar := end-start > 1
			var bar *mpb.Bar
			var prog *mpb.Progress
			if showBar {
				prog = mpb.New()
				bar = prog.AddBar(int64(end-start),
					mpb.PrependDecorators(decor.Name("cat ")),
					mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
				)
			}

			for i := start; i < end; i++ {
				rec, err := readRecord(reader, i, selection)
				if err != nil {
					return err
				}
				fmt.Printf("[%d] %s\n", i, spew.Sdump(rec))
				if bar != nil {
					bar.Increment()
				}
			}
			if prog != nil {
				prog.Wait()
			}
			return nil
		},
	}
}

type recordReader interface {
	At(index int) (dataset.Record, error)
	ReadSelect(index int, selection map[string]any) (dataset.Record, error)
	Len() int
}

func openReader(dir string, sharded bool, reg *codec.Registry) (recordReader, func() error, error) {
	if sharded {
		r, err := shard.Open(dir, reg)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	}
	r, err := dataset.Open(dir, reg, true, false)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}

func readRecord(r recordReader, index int, selection map[string]any) (dataset.Record, error) {
	if selection == nil {
		return r.At(index)
	}
	return r.ReadSelect(index, selection)
}

func selectionFromFields(fields []string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	sel := make(map[string]any, len(fields))
	for _, f := range fields {
		sel[f] = true
	}
	return sel
}

func parseRangeArg(arg string) (start, end int, err error) {
	if idx := strings.IndexByte(arg, ':'); idx >= 0 {
		start, err = strconv.Atoi(arg[:idx])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q: %w", arg, err)
		}
		end, err = strconv.Atoi(arg[idx+1:])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range end %q: %w", arg, err)
		}
		return start, end, nil
	}
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid index %q: %w", arg, err)
	}
	return i, i + 1, nil
}
