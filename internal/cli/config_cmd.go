package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/entgraph/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	return cmd
}

func newConfigValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a config file against the schema",
		Long: `Decode a YAML config file over the defaults and check it against the
embedded schema. Invalid values are reported with their key path.

Example:
  entgraph config validate entgraph.yaml
  entgraph --config entgraph.yaml config validate`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return NewExitError(ExitCommandError, "no config file given")
			}

			formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if _, err := config.Load(path); err != nil {
				_ = formatter.Error(CLIError{Code: "E_CONFIG", Message: err.Error(), Path: path})
				return WrapExitError(ExitFailure, "config invalid", err)
			}
			return formatter.Success("config valid: " + path)
		},
	}
}

func newConfigShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the effective configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if opts.Format == "json" {
				return formatter.Success(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to encode config", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
