package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cirrusbackup/msgraph-backend/internal/config"
	"github.com/cirrusbackup/msgraph-backend/internal/graph"
)

// cliState holds flags shared by every subcommand.
type cliState struct {
	configPath string
	token      string
	driveID    string
	progress   bool
	logger     *slog.Logger
	cfg        *config.Config
	backend    *backendHandle
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:   "onedrive-adapter",
		Short: "Demonstrate the Microsoft Graph storage backend adapter",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&state.configPath, "config", "", "path to a TOML configuration file")
	flags.StringVar(&state.token, "token", "", "bearer access token (defaults to $MSGRAPH_BACKEND_TOKEN)")
	flags.StringVar(&state.driveID, "drive-id", "", "resolve a specific drive by id instead of /me/drive")

	root.AddCommand(
		newTestCmd(state),
		newListCmd(state),
		newPutCmd(state),
		newGetCmd(state),
		newRmCmd(state),
		newMvCmd(state),
		newMkdirCmd(state),
		newQuotaCmd(state),
	)

	return root
}

// statusf writes a human-facing status line to stderr, but only when stdout
// is a terminal. When stdout is redirected (a pipe, a log file) the line is
// skipped so it doesn't interleave with piped output or clutter a log,
// mirroring how the corpus's CLIs gate terminal-only chatter on isatty.
func (s *cliState) statusf(format string, args ...any) {
	if !s.progress {
		return
	}

	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func (s *cliState) init(_ *cobra.Command) error {
	s.progress = isatty.IsTerminal(os.Stdout.Fd())
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if s.token == "" {
		s.token = os.Getenv("MSGRAPH_BACKEND_TOKEN")
	}

	if s.configPath == "" {
		return nil
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s.cfg = cfg

	var resolver graph.DrivePathResolver = graph.MeDriveResolver{}
	if s.driveID != "" {
		resolver = graph.DriveIDResolver{DriveID: s.driveID}
	}

	s.backend = newBackendHandle(cfg, resolver, s.token, s.logger)

	return nil
}
