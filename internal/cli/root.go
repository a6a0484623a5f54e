// Package cli implements the celerix command line client.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-compliance/pkg/sdk"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Addr       string
	DisableTLS bool
	Format     string // "json" | "text"

	connect func(*RootOptions) (sdk.PortalStore, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

func dialStore(opts *RootOptions) (sdk.PortalStore, error) {
	c, err := sdk.Dial(opts.Addr, !opts.DisableTLS)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Addr, err)
	}
	return c, nil
}

// NewRootCommand creates the root command for the celerix CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(dialStore)
}

func newRootCommand(connect func(*RootOptions) (sdk.PortalStore, error)) *cobra.Command {
	opts := &RootOptions{connect: connect}

	addr := os.Getenv("CELERIX_ADDR")
	if addr == "" {
		addr = "localhost:7001"
	}

	cmd := &cobra.Command{
		Use:           "celerix",
		Short:         "Query the Celerix compliance portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", addr, "daemon address (CELERIX_ADDR)")
	cmd.PersistentFlags().BoolVar(&opts.DisableTLS, "no-tls", os.Getenv("CELERIX_DISABLE_TLS") == "true", "connect without TLS (CELERIX_DISABLE_TLS)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newPingCommand(opts))
	cmd.AddCommand(newDatasetsCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))

	return cmd
}

// withStore connects, runs fn and closes the connection.
func withStore(opts *RootOptions, fn func(sdk.PortalStore) error) error {
	s, err := opts.connect(opts)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
