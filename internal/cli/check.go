package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/gqlgate/internal/catalog"
	"github.com/roach88/gqlgate/internal/metrics"
	"github.com/roach88/gqlgate/internal/querybuilder"
)

const defaultDebounce = 200 * time.Millisecond

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Watch       bool
	MetricsFile string

	debounce time.Duration
}

// CheckEntry is the outcome for one (provider, operation, version) triple.
type CheckEntry struct {
	Provider  string `json:"provider"`
	Operation string `json:"operation"`
	Version   string `json:"version"`
	OK        bool   `json:"ok"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// CheckResult summarizes a catalog check.
type CheckResult struct {
	Entries []CheckEntry `json:"entries"`
	Total   int          `json:"total"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts, debounce: defaultDebounce}

	cmd := &cobra.Command{
		Use:   "check <catalog-dir>",
		Short: "Compile every catalog template for every listed version",
		Long: `Load a CUE provider catalog and compile each operation template for each
server version the provider lists. Exits 1 if any template fails.

With --watch, the catalog directory is watched and re-checked on every
change until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return runWatch(cmd.Context(), opts, args[0], cmd)
			}
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-check on file changes")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write builder metrics in Prometheus text format")

	return cmd
}

func runCheck(opts *CheckOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cat, errs := catalog.Load(dir, catalog.LoadModeCollectAll)
	if len(errs) > 0 {
		return outputLoadErrors(formatter, errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", cat.FileCount, dir)

	reg := prometheus.NewRegistry()
	result := checkCatalog(cat, logger, metrics.NewCollector(reg))

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing metrics file: %v", err), nil)
		}
	}

	if err := outputCheck(formatter, result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d queries failed", result.Failed, result.Total))
	}
	return nil
}

// checkCatalog compiles the catalog matrix with one builder per provider.
func checkCatalog(cat *catalog.Catalog, logger *slog.Logger, obs querybuilder.Observer) CheckResult {
	builders := make(map[string]*querybuilder.Builder)
	result := CheckResult{Entries: []CheckEntry{}}

	for _, e := range cat.Matrix() {
		b, ok := builders[e.Provider]
		if !ok {
			b = querybuilder.New(e.Identity, querybuilder.WithLogger(logger), querybuilder.WithObserver(obs))
			builders[e.Provider] = b
		}

		entry := CheckEntry{
			Provider:  e.Provider,
			Operation: e.Operation.Name,
			Version:   e.Version.String(),
			OK:        true,
		}
		if _, err := b.Build(e.Version.Original(), e.Operation.Template, e.Operation.Name); err != nil {
			entry.OK = false
			entry.Code, entry.Message = errorCode(err)
			result.Failed++
		} else {
			result.Passed++
		}
		result.Entries = append(result.Entries, entry)
		result.Total++
	}
	return result
}

func outputCheck(formatter *OutputFormatter, result CheckResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, e := range result.Entries {
		if e.OK {
			fmt.Fprintf(w, "✓ %s/%s@%s\n", e.Provider, e.Operation, e.Version)
			continue
		}
		fmt.Fprintf(w, "✗ %s/%s@%s\n", e.Provider, e.Operation, e.Version)
		fmt.Fprintf(w, "  %s\n", e.Message)
	}
	fmt.Fprintf(w, "\n%d/%d queries compiled\n", result.Passed, result.Total)
	return nil
}

// outputLoadErrors prints catalog load errors. They are command-level
// errors (exit code 2).
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := errorCode(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Error(cliErrors[0].Code, cliErrors[0].Message, cliErrors); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Catalog failed to load")
		fmt.Fprintln(formatter.Writer)
		for _, err := range errs {
			_, message := errorCode(err)
			fmt.Fprintf(formatter.Writer, "  %s\n", message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("catalog failed to load with %d error(s)", len(errs)))
}

// runWatch checks the catalog, then re-checks after every burst of file
// changes until ctx is done. Check failures are reported, not returned.
func runWatch(ctx context.Context, opts *CheckOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWatch, fmt.Sprintf("creating file watcher: %v", err), nil)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, dir); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeWatch, fmt.Sprintf("watching %s: %v", dir, err), nil)
	}

	check := func() {
		err := runCheck(opts, dir, cmd)
		var exitErr *ExitError
		if err != nil && !errors.As(err, &exitErr) {
			logger.Error("check failed", "error", err)
		}
		if opts.Format != "json" {
			fmt.Fprintln(formatter.Writer, "Watching for changes...")
		}
	}
	check()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			logger.Debug("catalog changed", "path", event.Name, "op", event.Op.String())
			pending = time.After(opts.debounce)

		case <-pending:
			pending = nil
			check()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}

func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
