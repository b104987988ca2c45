package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gqlgate/internal/version"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Catalog is a loaded provider catalog.
type Catalog struct {
	Dir       string
	Providers []Provider // sorted by name
	FileCount int        // number of CUE files found
}

// Provider is one provider entry.
type Provider struct {
	Name       string
	Identity   string
	Versions   []version.Version // in declaration order
	Operations []Operation       // sorted by name
}

// Operation is one operation template.
type Operation struct {
	Name     string
	File     string // path relative to the catalog dir; empty for inline templates
	Template string
	Pos      token.Pos
}

// Entry is one (provider, operation, version) compilation target.
type Entry struct {
	Provider  string
	Identity  string
	Operation *Operation
	Version   version.Version
}

// Matrix enumerates every (provider, operation, version) triple, ordered
// by provider, then operation, then version declaration order.
func (c *Catalog) Matrix() []Entry {
	var entries []Entry
	for _, p := range c.Providers {
		for i := range p.Operations {
			for _, v := range p.Versions {
				entries = append(entries, Entry{
					Provider:  p.Name,
					Identity:  p.Identity,
					Operation: &p.Operations[i],
					Version:   v,
				})
			}
		}
	}
	return entries
}

// Provider returns the named provider.
func (c *Catalog) Provider(name string) (*Provider, bool) {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i], true
		}
	}
	return nil, false
}

// Files returns the template files the catalog references, sorted.
func (c *Catalog) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, p := range c.Providers {
		for _, op := range p.Operations {
			if op.File != "" && !seen[op.File] {
				seen[op.File] = true
				files = append(files, op.File)
			}
		}
	}
	sort.Strings(files)
	return files
}

// Load loads the catalog in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all provider errors.
func Load(dir string, mode LoadMode) (*Catalog, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("catalog directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing catalog directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{cueError(ErrCodeLoadFailed, inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{cueError(ErrCodeBuildFailed, err)}
	}

	cat := &Catalog{Dir: dir, FileCount: len(cueFiles)}
	var errs []error

	providers := value.LookupPath(cue.ParsePath("provider"))
	if !providers.Exists() {
		return cat, []error{&LoadError{Code: ErrCodeGeneric, Message: "no providers found in catalog"}}
	}
	iter, err := providers.Fields()
	if err != nil {
		return cat, []error{cueError(ErrCodeGeneric, err)}
	}
	for iter.Next() {
		p, perrs := decodeProvider(dir, iter.Label(), iter.Value(), mode)
		errs = append(errs, perrs...)
		if len(perrs) > 0 {
			if mode == LoadModeFailFast {
				return cat, errs
			}
			continue
		}
		cat.Providers = append(cat.Providers, *p)
	}

	sort.Slice(cat.Providers, func(i, j int) bool {
		return cat.Providers[i].Name < cat.Providers[j].Name
	})
	return cat, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
