package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/hupe1980/banter/core"
)

// Template file names read by LoadSet.
const (
	SystemFile    = "system.md"
	DeveloperFile = "developer.md"
	UserFile      = "user.md"
)

// LoadSet reads the three prompt templates from fsys. A missing template is
// reported as core.ErrMissingPrompt.
func LoadSet(fsys fs.FS) (core.PromptSet, error) {
	var set core.PromptSet
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{SystemFile, &set.System},
		{DeveloperFile, &set.Developer},
		{UserFile, &set.User},
	} {
		data, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return core.PromptSet{}, fmt.Errorf("%w: %s", core.ErrMissingPrompt, f.name)
			}
			return core.PromptSet{}, fmt.Errorf("read prompt %s: %w", f.name, err)
		}
		*f.dst = string(data)
	}
	return set, nil
}

// LoadSetDir reads the prompt templates from a directory on disk.
func LoadSetDir(dir string) (core.PromptSet, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.PromptSet{}, fmt.Errorf("%w: directory %s", core.ErrMissingPrompt, dir)
		}
		return core.PromptSet{}, err
	}
	if !info.IsDir() {
		return core.PromptSet{}, fmt.Errorf("prompt path %s is not a directory", dir)
	}
	return LoadSet(os.DirFS(dir))
}

// ValidateSet parses every template of set with r and returns the first
// malformed one.
func ValidateSet(r *Renderer, set core.PromptSet) error {
	for _, f := range []struct{ name, tmpl string }{
		{SystemFile, set.System},
		{DeveloperFile, set.Developer},
		{UserFile, set.User},
	} {
		if err := r.Validate(f.tmpl); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}
