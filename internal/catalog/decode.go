package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/gqlgate/internal/version"
)

func decodeProvider(dir, name string, v cue.Value, mode LoadMode) (*Provider, []error) {
	p := &Provider{Name: name}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	identity, err := v.LookupPath(cue.ParsePath("identity")).String()
	if err != nil || strings.TrimSpace(identity) == "" {
		if fail(&LoadError{Code: ErrCodeIdentity, Message: fmt.Sprintf("provider %s: identity is required", name), Pos: v.Pos()}) {
			return nil, errs
		}
	}
	p.Identity = identity

	versions, verrs := decodeVersions(name, v)
	for _, err := range verrs {
		if fail(err) {
			return nil, errs
		}
	}
	p.Versions = versions

	opsVal := v.LookupPath(cue.ParsePath("operation"))
	if !opsVal.Exists() {
		errs = append(errs, &LoadError{Code: ErrCodeOperations, Message: fmt.Sprintf("provider %s: at least one operation is required", name), Pos: v.Pos()})
		return nil, errs
	}
	iter, err := opsVal.Fields()
	if err != nil {
		errs = append(errs, cueError(ErrCodeOperations, err))
		return nil, errs
	}
	for iter.Next() {
		op, err := decodeOperation(dir, name, iter.Label(), iter.Value())
		if err != nil {
			if fail(err) {
				return nil, errs
			}
			continue
		}
		p.Operations = append(p.Operations, *op)
	}
	if len(p.Operations) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeOperations, Message: fmt.Sprintf("provider %s: at least one operation is required", name), Pos: opsVal.Pos()})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	sort.Slice(p.Operations, func(i, j int) bool {
		return p.Operations[i].Name < p.Operations[j].Name
	})
	return p, nil
}

func decodeVersions(provider string, v cue.Value) ([]version.Version, []error) {
	listVal := v.LookupPath(cue.ParsePath("versions"))
	if !listVal.Exists() {
		return nil, []error{&LoadError{Code: ErrCodeVersions, Message: fmt.Sprintf("provider %s: versions are required", provider), Pos: v.Pos()}}
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, []error{cueError(ErrCodeVersions, err)}
	}

	var (
		versions []version.Version
		errs     []error
		seen     = make(map[string]bool)
	)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			errs = append(errs, cueError(ErrCodeVersion, err))
			continue
		}
		parsed, err := version.Parse(s)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeVersion, Message: fmt.Sprintf("provider %s: %v", provider, err), Pos: iter.Value().Pos()})
			continue
		}
		if seen[parsed.String()] {
			continue
		}
		seen[parsed.String()] = true
		versions = append(versions, parsed)
	}
	if len(versions) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeVersions, Message: fmt.Sprintf("provider %s: versions must not be empty", provider), Pos: listVal.Pos()})
	}
	return versions, errs
}

func decodeOperation(dir, provider, name string, v cue.Value) (*Operation, error) {
	op := &Operation{Name: name, Pos: v.Pos()}

	fileVal := v.LookupPath(cue.ParsePath("file"))
	inlineVal := v.LookupPath(cue.ParsePath("template"))

	switch {
	case fileVal.Exists() && inlineVal.Exists():
		return nil, &LoadError{Code: ErrCodeTemplate, Message: fmt.Sprintf("provider %s: operation %s: file and template are mutually exclusive", provider, name), Pos: v.Pos()}
	case fileVal.Exists():
		file, err := fileVal.String()
		if err != nil {
			return nil, cueError(ErrCodeTemplate, err)
		}
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return nil, &LoadError{Code: ErrCodeTemplate, Message: fmt.Sprintf("provider %s: operation %s: reading template: %v", provider, name, err), Pos: fileVal.Pos()}
		}
		op.File = file
		op.Template = string(data)
	case inlineVal.Exists():
		text, err := inlineVal.String()
		if err != nil {
			return nil, cueError(ErrCodeTemplate, err)
		}
		op.Template = text
	default:
		return nil, &LoadError{Code: ErrCodeTemplate, Message: fmt.Sprintf("provider %s: operation %s: file or template is required", provider, name), Pos: v.Pos()}
	}
	return op, nil
}
