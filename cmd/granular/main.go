package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

var gitCommitSHA = ""

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "granular",
		Version:     gitCommitSHA,
		Description: "CLI to inspect and read Datasets and Sharded Datasets on local or networked filesystems.",
		Commands: []*cli.Command{
			newCmd_Inspect(),
			newCmd_Cat(),
			newCmd_Version(),
		},
	}

	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Fatal(err)
	}
}

func newCmd_Version() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print the granular CLI version",
		Action: func(c *cli.Context) error {
			fmt.Println(gitCommitSHA)
			return nil
		},
	}
}
