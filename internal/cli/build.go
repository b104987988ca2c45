package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gqlgate/internal/compiler"
	"github.com/roach88/gqlgate/internal/querybuilder"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Version   string
	Operation string
	Identity  string
	Output    string
}

// BuildResult is the JSON payload of the build command.
type BuildResult struct {
	Identity  string `json:"identity"`
	Operation string `json:"operation"`
	Version   string `json:"version"`
	Query     string `json:"query"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <template-file>",
		Short: "Compile one template for one server version",
		Long: `Compile a version-gated GraphQL template for a server version and print
the resulting query.

An unparseable --version falls back to the baseline query shape and logs a
warning, exactly as the runtime builder does.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "version", "", "target server version (required)")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name (required)")
	cmd.Flags().StringVar(&opts.Identity, "identity", "cli", "server identity used in logs")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the query to a file instead of stdout")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("operation")

	return cmd
}

func runBuild(opts *BuildOptions, templateFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	template, err := os.ReadFile(templateFile)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("reading template: %v", err), nil)
	}

	b := querybuilder.New(opts.Identity, querybuilder.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())))
	query, err := b.Build(opts.Version, string(template), opts.Operation)
	if err != nil {
		var terr *compiler.TemplateError
		if errors.As(err, &terr) {
			return formatter.fail(ExitFailure, terr.Code, terr.Error(), nil)
		}
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(query), 0o644); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		formatter.VerboseLog("Wrote %s query to %s", opts.Operation, opts.Output)
	}

	if opts.Format == "json" {
		return formatter.Success(BuildResult{
			Identity:  opts.Identity,
			Operation: opts.Operation,
			Version:   opts.Version,
			Query:     query,
		})
	}
	if opts.Output == "" {
		fmt.Fprint(formatter.Writer, query)
	}
	return nil
}
