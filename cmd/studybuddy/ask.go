package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bowerhall/studybuddy/internal/bot"
	"github.com/bowerhall/studybuddy/internal/config"
	"github.com/bowerhall/studybuddy/internal/dispatch"
)

// cliSession is the session id of the terminal chat.
const cliSession = "cli:local"

func newAskCmd() *cobra.Command {
	var (
		mode    string
		subMode string
		pdfPath string
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask a question from the terminal",
		Long: `Ask answers a single message, or with no message starts an interactive
chat that reads one message per line. Chat commands such as /mode, /quiz and
/summarize work in the interactive chat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sel := dispatch.Selection{
				Mode:    dispatch.ParseMode(mode),
				SubMode: dispatch.ParseSubMode(subMode),
			}
			return runAsk(ctx, a.chat, sel, pdfPath, strings.Join(args, " "), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "explainer", "explainer, summarizer or quizzer")
	cmd.Flags().StringVarP(&subMode, "sub-mode", "s", "generate", "quizzer option: generate, solve or evaluate")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "load a PDF before asking")
	return cmd
}

func runAsk(ctx context.Context, chat *bot.Chat, sel dispatch.Selection, pdfPath, message string, in io.Reader, out io.Writer) error {
	chat.SetSelection(cliSession, sel)

	if pdfPath != "" {
		data, err := os.ReadFile(pdfPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, chat.HandleUpload(ctx, cliSession, filepath.Base(pdfPath), data).Text)
	}

	if message != "" {
		fmt.Fprintln(out, chat.HandleText(ctx, cliSession, message).Text)
		return nil
	}

	return repl(ctx, chat, in, out)
}

func repl(ctx context.Context, chat *bot.Chat, in io.Reader, out io.Writer) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	if interactive {
		fmt.Fprintf(out, "%s. Type /help for commands, Ctrl-D to quit.\n", chat.Selection(cliSession))
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fmt.Fprintln(out, chat.HandleText(ctx, cliSession, line).Text)

		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}
