// Command wsframedump decodes a captured stream of WebSocket frames (a
// file or stdin) and prints each frame's field summary and, with --bits, its
// bit dump. It
// exists to exercise the codec end to end the way an operator would, not
// as part of the codec's own test suite.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/urfave/cli/v3"

	"wsframe/internal/codec"
	"wsframe/internal/domain"
	"wsframe/internal/wslog"
	"wsframe/pkg/framedump"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "wsframedump",
		Usage:   "decode and print WebSocket frames from a captured byte stream",
		Version: versionOf(bi),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "path to a captured frame stream (default: stdin)"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging (frame rejections are logged at warn level either way)"},
			&cli.BoolFlag{Name: "bits", Usage: "also print the raw bit dump for each frame"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	src, closeFn, err := openInput(cmd.String("input"))
	if err != nil {
		return err
	}
	defer closeFn()

	logger := wslog.New(cmd.Bool("debug"))
	reader := codec.NewReader(codec.WithLogger(logger))

	count := 0
	for {
		frame, err := reader.ReadFrame(ctx, src)
		if err != nil {
			if errors.Is(err, domain.ErrIncompleteHeader) && count > 0 {
				break // clean end of stream after at least one frame
			}
			return fmt.Errorf("frame %d: %w", count, err)
		}

		fmt.Printf("--- frame %d ---\n", count)
		fmt.Print(framedump.Summary(frame))
		if cmd.Bool("bits") {
			if serialized, err := codec.NewWriter(nil).Serialize(frame); err == nil {
				fmt.Println(framedump.BitDump(serialized))
			}
		}
		count++
	}

	fmt.Printf("decoded %d frame(s)\n", count)
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func versionOf(bi *debug.BuildInfo) string {
	if bi == nil {
		return "dev"
	}
	return bi.Main.Version
}
