package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/validator/internal/console"
	"github.com/ShayCichocki/validator/internal/tui"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat",
	Long: `Chat with the analyst in the terminal.

Commands inside the chat:
  /new     start a new session
  /debug   toggle the full agent trace
  /quit    exit

Use --plain for a line-oriented prompt instead of the full-screen UI.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Line-oriented prompt instead of the full-screen UI")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close(context.Background())

	backend := tui.NewChatBackend(d.runner, d.sessions)
	if chatPlain {
		return runPlainChat(ctx, backend, cmd.InOrStdin(), cmd.OutOrStdout(), debugFlag, d.tracingHost())
	}

	program, _ := tui.NewChatProgram(backend, tui.ChatOptions{
		Debug:       debugFlag,
		TracingHost: d.tracingHost(),
	})
	_, err = program.Run()
	return err
}

// runPlainChat is the prompt loop used with --plain. Ctrl+C cancels the
// running turn; EOF or /quit exits.
func runPlainChat(ctx context.Context, b tui.Backend, in io.Reader, out io.Writer, debug bool, tracingHost string) error {
	console.PrintBanner(out, console.Banner{
		Title:       "Venture Validator - Multi-Agent Startup Analyzer",
		Subtitle:    "Commands: /new (new session), /debug (toggle debug), /quit (exit)",
		Debug:       debug,
		TracingHost: tracingHost,
	})

	newSession := func() error {
		id, err := b.NewSession(ctx)
		if err != nil {
			return err
		}
		console.PrintSession(out, id)
		return nil
	}
	if err := newSession(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			return scanner.Err()
		}

		cmd, text := tui.ParseCommand(scanner.Text())
		switch cmd {
		case tui.CommandQuit:
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case tui.CommandDebug:
			debug = !debug
			console.PrintToggle(out, debug)
			continue
		case tui.CommandNew:
			if err := newSession(); err != nil {
				return err
			}
			continue
		}
		if text == "" {
			continue
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err := b.Send(turnCtx, text, debug, out)
		stop()
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			fmt.Fprintln(out, "\n(turn cancelled)")
		default:
			fmt.Fprintf(out, "\nError: %v\n", err)
		}
		if debug {
			console.PrintSeparator(out)
		}
	}
}
