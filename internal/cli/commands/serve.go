package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/varlens/internal/config"
	"github.com/leapstack-labs/varlens/internal/rpc"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve variable trees to an editor host",
		Long: `Start the variables server for editor integration.

The server communicates over stdin/stdout using JSON-RPC. The host opens
documents, requests children level by level, and cancels pending fetches;
with --watch, file-backed documents are re-read when they change on disk.`,
		Example: `  # Start the server (usually launched by an editor)
  varlens serve

  # Re-read file documents on change
  varlens serve --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			server := rpc.NewServer(os.Stdin, os.Stdout, rpc.Options{
				PageSize: cfg.PageSize,
				Watch:    cfg.Watch,
				Logger:   config.GetLogger(cmd.Context()),
			})
			return server.Run(cmd.Context())
		},
	}
}
