package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/itsrobel/qs/internal/apperr"
	"go.yaml.in/yaml/v3"
)

// Parse validates data against the catalog schema and decodes it. Schema
// violations are reported as a single Template error listing every issue.
func Parse(data []byte, name string) (*Catalog, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, apperr.New(apperr.Template, name, err)
	}
	if !result.Valid {
		msgs := make([]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			msgs = append(msgs, issue.String())
		}
		return nil, apperr.Newf(apperr.Template, name, "catalog has %d schema issue(s):\n  %s",
			len(result.Issues), strings.Join(msgs, "\n  "))
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, apperr.New(apperr.Template, name, fmt.Errorf("decoding catalog: %w", err))
	}
	return &c, nil
}

// Load reads the catalog file name from fsys, parses it and checks it.
// Template references resolve relative to the catalog file's directory.
func Load(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, apperr.New(apperr.FileSystem, name, fmt.Errorf("reading catalog: %w", err))
	}

	c, err := Parse(data, name)
	if err != nil {
		return nil, err
	}

	templates := fsys
	if dir := path.Dir(name); dir != "." {
		templates, err = fs.Sub(fsys, dir)
		if err != nil {
			return nil, apperr.New(apperr.FileSystem, dir, err)
		}
	}
	c.Templates = templates

	if err := c.Check(); err != nil {
		return nil, apperr.New(apperr.Template, name, err)
	}
	return c, nil
}

// Check enforces the structural rules the schema cannot express. All
// violations are joined into one error.
func (c *Catalog) Check() error {
	var errs []error

	seen := make(map[string]bool)
	declared := make(map[string]bool)
	for _, v := range c.Variants {
		for _, n := range append([]string{v.Name}, v.Aliases...) {
			if seen[n] {
				errs = append(errs, fmt.Errorf("variant name %q declared twice", n))
			}
			seen[n] = true
		}
		for _, g := range v.Groups {
			declared[g] = true
		}
	}

	used := make(map[string]bool)
	checkGroups := func(where string, groups []string) {
		for _, g := range groups {
			used[g] = true
			if !declared[g] {
				errs = append(errs, fmt.Errorf("%s: group %q is not selected by any variant", where, g))
			}
		}
	}

	for i, d := range c.Directories {
		where := fmt.Sprintf("directories[%d]", i)
		if err := CheckRelPath(d.Path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		checkGroups(where, d.Groups)
	}

	for i, f := range c.Files {
		where := fmt.Sprintf("files[%d]", i)
		if err := CheckRelPath(f.Path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		if _, err := f.FileMode(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		if c.Templates != nil {
			if _, err := fs.Stat(c.Templates, f.Template); err != nil {
				errs = append(errs, fmt.Errorf("%s: template %q: %w", where, f.Template, err))
			}
		}
		checkGroups(where, f.Groups)
	}

	for i, s := range c.Steps {
		where := fmt.Sprintf("steps[%d] %s", i, s.Name)
		if (len(s.Argv) == 0) == (len(s.Install) == 0) {
			errs = append(errs, fmt.Errorf("%s: exactly one of argv or install must be set", where))
		}
		if s.Dir != "" {
			if err := CheckRelPath(s.Dir); err != nil {
				errs = append(errs, fmt.Errorf("%s: dir: %w", where, err))
			}
		}
		if !slices.Contains([]string{WhenAlways, WhenVCS, WhenNoVCS}, s.When) {
			errs = append(errs, fmt.Errorf("%s: unknown condition %q", where, s.When))
		}
		checkGroups(where, s.Groups)
	}

	for i, n := range c.NextSteps {
		checkGroups(fmt.Sprintf("next_steps[%d]", i), n.Groups)
	}

	for _, v := range c.Variants {
		for _, g := range v.Groups {
			if !used[g] {
				errs = append(errs, fmt.Errorf("variant %s: group %q has no entries", v.Name, g))
			}
		}
	}

	return errors.Join(errs...)
}

// FileMode parses Mode, falling back to DefaultFileMode.
func (f File) FileMode() (fs.FileMode, error) {
	if f.Mode == "" {
		return DefaultFileMode, nil
	}
	m, err := strconv.ParseUint(f.Mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", f.Mode, err)
	}
	return fs.FileMode(m).Perm(), nil
}

// CheckRelPath reports whether p is a slash-separated path that stays
// inside the project root.
func CheckRelPath(p string) error {
	if p == "" {
		return errors.New("empty path")
	}
	if strings.Contains(p, `\`) {
		return fmt.Errorf("path %q must use forward slashes", p)
	}
	if path.IsAbs(p) {
		return fmt.Errorf("path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean == "." {
		return fmt.Errorf("path %q names the project root itself", p)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q escapes the project root", p)
	}
	return nil
}

// ReadTemplate returns the body of the template file referenced by a File.
func (c *Catalog) ReadTemplate(name string) (string, error) {
	if c.Templates == nil {
		return "", fmt.Errorf("catalog %s has no template source", c.Name)
	}
	data, err := fs.ReadFile(c.Templates, name)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(data), nil
}
