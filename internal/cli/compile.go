package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/gqlgate/internal/catalog"
	"github.com/roach88/gqlgate/internal/compiler"
	"github.com/roach88/gqlgate/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	DBPath string

	ids store.IDGenerator // nil uses UUIDv7
}

// CompileResult is the JSON payload of the compile command.
type CompileResult struct {
	RunID       string       `json:"run_id"`
	CatalogHash string       `json:"catalog_hash"`
	Stored      int          `json:"stored"`
	Failed      []CheckEntry `json:"failed,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog-dir>",
		Short: "Compile a catalog matrix into a query database",
		Long: `Compile every (provider, operation, version) triple of a CUE catalog and
store the queries in a SQLite database as one run. Failed triples are
reported and not stored; the command then exits 1.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the query database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, errs := catalog.Load(dir, catalog.LoadModeCollectAll)
	if len(errs) > 0 {
		return outputLoadErrors(formatter, errs)
	}

	catalogHash, err := hashCatalog(cat)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("hashing catalog: %v", err), nil)
	}

	var storeOpts []store.Option
	if opts.ids != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.ids))
	}
	st, err := store.Open(opts.DBPath, storeOpts...)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	run, err := st.BeginRun(ctx, catalogHash)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	formatter.VerboseLog("Started run %s (catalog %s)", run.ID, catalogHash[:12])

	result := CompileResult{RunID: run.ID, CatalogHash: catalogHash}
	for _, e := range cat.Matrix() {
		res, err := compiler.Compile(e.Version, e.Operation.Template, e.Operation.Name)
		if err != nil {
			code, message := errorCode(err)
			result.Failed = append(result.Failed, CheckEntry{
				Provider:  e.Provider,
				Operation: e.Operation.Name,
				Version:   e.Version.String(),
				Code:      code,
				Message:   message,
			})
			continue
		}

		err = st.SaveQuery(ctx, store.Query{
			RunID:        run.ID,
			Provider:     e.Provider,
			Identity:     e.Identity,
			Operation:    e.Operation.Name,
			Version:      e.Version.String(),
			TemplateHash: store.TemplateHash(e.Operation.Template),
			Text:         res.Query,
			Removed:      res.Removed,
		})
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		formatter.VerboseLog("Stored %s/%s@%s (%d node(s) removed)", e.Provider, e.Operation.Name, e.Version, len(res.Removed))
		result.Stored++
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, f := range result.Failed {
			fmt.Fprintf(w, "✗ %s/%s@%s\n  %s\n", f.Provider, f.Operation, f.Version, f.Message)
		}
		fmt.Fprintf(w, "Stored %d quer%s in run %s\n", result.Stored, plural(result.Stored, "y", "ies"), result.RunID)
	}

	if len(result.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d template(s) failed to compile", len(result.Failed)))
	}
	return nil
}

// hashCatalog hashes the catalog's CUE sources and template files by
// relative path, in path order.
func hashCatalog(cat *catalog.Catalog) (string, error) {
	files, err := catalog.FindCUEFiles(cat.Dir)
	if err != nil {
		return "", err
	}
	for _, f := range cat.Files() {
		files = append(files, filepath.Join(cat.Dir, f))
	}

	rel := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(cat.Dir, f)
		if err != nil {
			return "", err
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	sort.Strings(rel)

	parts := make([]string, 0, 2*len(rel))
	for _, r := range rel {
		data, err := os.ReadFile(filepath.Join(cat.Dir, filepath.FromSlash(r)))
		if err != nil {
			return "", err
		}
		parts = append(parts, r, string(data))
	}
	return store.CatalogHash(parts...), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
