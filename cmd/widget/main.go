package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/bellhop-widget/internal/config"
	"github.com/zhouzirui/bellhop-widget/internal/logging"
	"github.com/zhouzirui/bellhop-widget/internal/storage"
	"github.com/zhouzirui/bellhop-widget/pkg/widget"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Chat with a support backend from the terminal",
		Long: "Runs the chat widget against a backend. Type a message to send it.\n" +
			"Commands: /open, /close, /toggle, /reset [greeting], /session, /quit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if logLevel != "" {
				if level, err = zerolog.ParseLevel(logLevel); err != nil {
					return errors.Wrapf(err, "invalid --log-level %q", logLevel)
				}
			}
			logging.Setup(level, os.Stderr)

			return run(cmd.Context(), cfg.Widget, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML file layered over the WIDGET_* environment")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func run(ctx context.Context, cfg config.WidgetConfig, in io.Reader, out io.Writer) error {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(cfg.Storage.Kind)).Msg("session storage unavailable, sessions will not persist")
		store = storage.Unavailable{}
	}
	defer store.Close()

	view := newTerminalView(out, isTerminal(out))
	w, err := widget.Init(ctx, cfg.Config, view, widget.WithStore(store))
	if err != nil {
		return err
	}
	return repl(ctx, w, in, out)
}

// repl reads one line at a time until EOF, /quit or cancellation.
func repl(ctx context.Context, w *widget.Widget, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "/") {
			if !w.Visible() {
				w.Open(ctx)
			}
			w.Send(ctx, line)
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/quit", "/exit":
			return nil
		case "/open":
			w.Open(ctx)
		case "/close":
			w.Close()
		case "/toggle":
			w.Toggle(ctx)
		case "/reset":
			if err := w.Reset(ctx, strings.TrimSpace(arg)); err != nil {
				fmt.Fprintln(out, err)
			}
		case "/session":
			fmt.Fprintf(out, "%s (persistent=%t)\n", w.SessionID(), w.Persistent())
		default:
			fmt.Fprintf(out, "unknown command %s\n", command)
		}
	}
	return scanner.Err()
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
