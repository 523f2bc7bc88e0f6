package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cirrusbackup/msgraph-backend/backend"
	"github.com/cirrusbackup/msgraph-backend/internal/config"
	"github.com/cirrusbackup/msgraph-backend/internal/graph"
)

// backendHandle wraps the constructed backend.Backend for command use.
type backendHandle struct {
	*backend.Backend
}

func newBackendHandle(cfg *config.Config, resolver graph.DrivePathResolver, token string, logger *slog.Logger) *backendHandle {
	ts := graph.StaticTokenSource(token)

	return &backendHandle{Backend: backend.New(cfg, resolver, ts, nil, logger)}
}

func (s *cliState) requireBackend() (*backendHandle, error) {
	if s.backend == nil {
		return nil, fmt.Errorf("no --config supplied; cannot talk to a drive")
	}

	return s.backend, nil
}

func newTestCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Verify the backup root exists and credentials allow read+write",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			return b.Test(cmd.Context())
		},
	}
}

func newListCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the contents of the backup root",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			for entry, listErr := range b.List(cmd.Context()) {
				if listErr != nil {
					return listErr
				}

				fmt.Printf("%-40s %10d\n", entry.Name, entry.Size)
			}

			return nil
		},
	}
}

func newPutCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-file> <remote-name>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			s.statusf("Uploading %s (%d bytes) as %s...", args[0], info.Size(), args[1])

			_, err = b.Put(cmd.Context(), args[1], f, info.Size())

			return err
		},
	}
}

func newGetCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-name> <local-file>",
		Short: "Download a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			s.statusf("Downloading %s to %s...", args[0], args[1])

			return b.Get(cmd.Context(), args[0], f)
		},
	}
}

func newRmCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <remote-name>",
		Short: "Delete a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			return b.Delete(cmd.Context(), args[0])
		},
	}
}

func newMvCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <remote-name> <new-name>",
		Short: "Rename a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			return b.Rename(cmd.Context(), args[0], args[1])
		},
	}
}

func newMkdirCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir",
		Short: "Create every missing segment of the backup root",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			return b.EnsureRoot(cmd.Context())
		},
	}
}

func newQuotaCmd(s *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Report the drive's storage usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := s.requireBackend()
			if err != nil {
				return err
			}

			q, err := b.Quota(cmd.Context())
			if err != nil {
				return err
			}

			if q.Unknown {
				fmt.Println("quota: unknown")

				return nil
			}

			fmt.Printf("quota: %d / %d bytes remaining\n", q.Remaining, q.Total)

			return nil
		},
	}
}
