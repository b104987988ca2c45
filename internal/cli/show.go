package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gqlgate/internal/store"
	"github.com/roach88/gqlgate/internal/version"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	DBPath    string
	Provider  string
	Operation string
	Version   string
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	RunID        string   `json:"run_id"`
	Provider     string   `json:"provider"`
	Identity     string   `json:"identity"`
	Operation    string   `json:"operation"`
	Version      string   `json:"version"`
	TemplateHash string   `json:"template_hash"`
	QueryHash    string   `json:"query_hash"`
	Removed      []string `json:"removed"`
	Query        string   `json:"query"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored query",
		Long: `Print the query stored for a (provider, operation, version) triple by the
most recent compile run that produced it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the query database (required)")
	cmd.Flags().StringVar(&opts.Provider, "provider", "", "provider name (required)")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation name (required)")
	cmd.Flags().StringVar(&opts.Version, "version", "", "server version (required)")
	for _, name := range []string{"db", "provider", "operation", "version"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	v, err := version.Parse(opts.Version)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBadVersion, err.Error(), nil)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	q, err := st.LookupQuery(cmd.Context(), opts.Provider, opts.Operation, v.String())
	if errors.Is(err, store.ErrNotFound) {
		return formatter.fail(ExitFailure, ErrCodeNoQuery, fmt.Sprintf("no stored query for %s/%s@%s", opts.Provider, opts.Operation, v), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(ShowResult{
			RunID:        q.RunID,
			Provider:     q.Provider,
			Identity:     q.Identity,
			Operation:    q.Operation,
			Version:      q.Version,
			TemplateHash: q.TemplateHash,
			QueryHash:    q.QueryHash,
			Removed:      q.Removed,
			Query:        q.Text,
		})
	}

	formatter.VerboseLog("run %s, query %s", q.RunID, q.QueryHash[:12])
	fmt.Fprint(formatter.Writer, q.Text)
	return nil
}
