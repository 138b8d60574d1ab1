package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sluice/ipc"
	"github.com/justapithecus/sluice/iox"
)

// DecodeCommand returns the decode command. It reassembles a frame stream
// written by render --output frames back into HTML.
func DecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Reassemble a frame stream into HTML",
		ArgsUsage: "<frames-file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "Write HTML to this file (default: stdout)"},
		},
		Action: decodeAction,
	}
}

func decodeAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("frames input required (path or - for stdin)", exitConfigError)
	}

	var in io.Reader = os.Stdin
	if path := c.Args().First(); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot open %s: %v", path, err), exitConfigError)
		}
		defer iox.DiscardClose(f)
		in = f
	}

	var out io.Writer = os.Stdout
	if path := c.String("out"); path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot create %s: %v", path, err), exitConfigError)
		}
		defer iox.DiscardClose(f)
		out = f
	}

	end, err := ipc.Reassemble(in, out)
	if err != nil {
		return cli.Exit(fmt.Sprintf("decode failed: %v", err), exitRenderError)
	}
	if end.Error != "" {
		return cli.Exit(fmt.Sprintf("stream %s ended with error: %s", end.RequestID, end.Error), exitRenderError)
	}
	return nil
}
