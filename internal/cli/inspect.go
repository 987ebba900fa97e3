package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/entgraph/internal/config"
	"github.com/roach88/entgraph/internal/engine"
	"github.com/roach88/entgraph/internal/ir"
	"github.com/roach88/entgraph/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	DataDir string
}

// InspectResult describes one namespace database.
type InspectResult struct {
	Namespace string         `json:"namespace"`
	Path      string         `json:"path"`
	Version   int            `json:"version"`
	Records   int            `json:"records"`
	Edges     int            `json:"edges"`
	Indexes   []ir.IndexInfo `json:"indexes"`
}

func (r InspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "namespace: %s\n", r.Namespace)
	fmt.Fprintf(&b, "path:      %s\n", r.Path)
	fmt.Fprintf(&b, "version:   %d\n", r.Version)
	fmt.Fprintf(&b, "records:   %d\n", r.Records)
	fmt.Fprintf(&b, "edges:     %d\n", r.Edges)
	fmt.Fprintf(&b, "indexes:   %d", len(r.Indexes))
	for _, idx := range r.Indexes {
		fmt.Fprintf(&b, "\n  %s on %s", idx.Name, idx.Table)
	}
	return b.String()
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect [namespace]",
		Short: "Show schema version, indexes and row counts of a namespace",
		Long: `Open an existing namespace database and report its schema version,
secondary indexes, and record and edge counts. Without an argument the
configured default namespace is inspected.

Example:
  entgraph inspect
  entgraph inspect projects --data-dir ./data --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace := ""
			if len(args) == 1 {
				namespace = args[0]
			}
			return runInspect(cmd, opts, namespace)
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "directory for namespace databases (overrides config)")

	return cmd
}

func runInspect(cmd *cobra.Command, opts *InspectOptions, namespace string) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	dataDir := cfg.DataDir
	if cmd.Flags().Changed("data-dir") {
		dataDir = opts.DataDir
	}
	if namespace == "" {
		namespace = cfg.DefaultNamespace
	}
	if !engine.ValidNamespace(namespace) {
		return WrapExitError(ExitCommandError, "invalid namespace", fmt.Errorf("%q", namespace))
	}

	path := filepath.Join(dataDir, namespace+".db")
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "namespace database not found", err)
	}
	formatter.VerboseLog("opening %s", path)

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := InspectResult{Namespace: namespace, Path: path}
	if result.Version, err = st.Version(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to read version", err)
	}
	if result.Indexes, err = st.Indexes(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to list indexes", err)
	}
	if result.Records, result.Edges, err = st.Counts(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to count rows", err)
	}

	return formatter.Success(result)
}
