package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/validator/internal/console"
	"github.com/ShayCichocki/validator/internal/specialist"
	"github.com/ShayCichocki/validator/internal/stream"
)

var replayCmd = &cobra.Command{
	Use:   "replay <events.ndjson>",
	Short: "Render a recorded turn",
	Long: `Run a recorded turn through stream correlation and render it.

Recordings are written per turn to server.record_dir. Use - to read from
stdin. Add --debug for the full agent trace.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return replay(ctx, in, cmd.OutOrStdout(), reg, cfg.Stream.MaxArgumentBytes, debugFlag)
}

func replay(ctx context.Context, in io.Reader, out io.Writer, reg *specialist.Registry, maxArgBytes int, debug bool) error {
	r := console.New(out, console.Options{Labels: reg.Labels(), Debug: debug})
	d := stream.NewDriver(stream.Options{
		Attributor:       reg.Attributor(),
		MaxArgumentBytes: maxArgBytes,
	})

	events, readErr := stream.ReadNDJSON(ctx, in)
	summary, err := d.Run(ctx, events, r.Render)
	if err != nil {
		return err
	}
	if err := readErr(); err != nil {
		return err
	}

	unknown := 0
	for _, res := range summary.Results {
		if res.Attribution.Unknown() {
			unknown++
		}
	}
	fmt.Fprintf(out, "\n%d dispatches, %d results (%d unattributed)\n",
		len(summary.Dispatches), len(summary.Results), unknown)
	return nil
}
