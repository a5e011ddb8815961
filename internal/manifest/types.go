package manifest

import (
	"io/fs"
	"slices"
)

// Catalog is the root of a scaffold catalog document.
type Catalog struct {
	Name         string        `yaml:"name" json:"name"`
	Version      string        `yaml:"version" json:"version"`
	Description  string        `yaml:"description,omitempty" json:"description,omitempty"`
	Variants     []Variant     `yaml:"variants" json:"variants"`
	Requirements []Requirement `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	Directories  []Directory   `yaml:"directories,omitempty" json:"directories,omitempty"`
	Files        []File        `yaml:"files" json:"files"`
	Steps        []Step        `yaml:"steps,omitempty" json:"steps,omitempty"`
	NextSteps    []Note        `yaml:"next_steps,omitempty" json:"next_steps,omitempty"`

	// Templates resolves File.Template references. It is set by the loader.
	Templates fs.FS `yaml:"-" json:"-"`
}

// Variant selects the groups materialized for one project type.
type Variant struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Groups      []string `yaml:"groups" json:"groups"`
}

// Requirement is an external tool the generated project needs on PATH.
type Requirement struct {
	Name        string   `yaml:"name" json:"name"`
	MinVersion  string   `yaml:"min_version,omitempty" json:"min_version,omitempty"`
	VersionArgs []string `yaml:"version_args,omitempty" json:"version_args,omitempty"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Groups      []string `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// Directory is a directory created before any file is written.
type Directory struct {
	Path   string   `yaml:"path" json:"path"`
	Groups []string `yaml:"groups" json:"groups"`
}

// File is one rendered file. Path and the template body may both contain
// placeholders.
type File struct {
	Path     string   `yaml:"path" json:"path"`
	Template string   `yaml:"template" json:"template"`
	Groups   []string `yaml:"groups" json:"groups"`
	Mode     string   `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Step is one external command run after materialization. Exactly one of
// Argv and Install is set; Install lists tool packages installed
// concurrently.
type Step struct {
	Name              string            `yaml:"name" json:"name"`
	Argv              []string          `yaml:"argv,omitempty" json:"argv,omitempty"`
	Install           []string          `yaml:"install,omitempty" json:"install,omitempty"`
	Dir               string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	Env               map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	When              string            `yaml:"when,omitempty" json:"when,omitempty"`
	ContinueOnFailure bool              `yaml:"continue_on_failure,omitempty" json:"continue_on_failure,omitempty"`
	Groups            []string          `yaml:"groups" json:"groups"`
}

// Note is a line of guidance printed after a successful run.
type Note struct {
	Text   string   `yaml:"text" json:"text"`
	Groups []string `yaml:"groups" json:"groups"`
}

// Step conditions.
const (
	WhenAlways = ""
	WhenVCS    = "vcs"
	WhenNoVCS  = "no-vcs"
)

// DefaultFileMode is applied to files without an explicit mode.
const DefaultFileMode fs.FileMode = 0o644

// Selection is the part of a catalog included by one variant, in
// declaration order.
type Selection struct {
	Variant      Variant
	Requirements []Requirement
	Directories  []Directory
	Files        []File
	Steps        []Step
	NextSteps    []Note
}

// LookupVariant resolves a variant by name or alias.
func (c *Catalog) LookupVariant(name string) (Variant, bool) {
	for _, v := range c.Variants {
		if v.Name == name || slices.Contains(v.Aliases, name) {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantNames returns every accepted variant name and alias in declaration
// order.
func (c *Catalog) VariantNames() []string {
	var names []string
	for _, v := range c.Variants {
		names = append(names, v.Name)
		names = append(names, v.Aliases...)
	}
	return names
}

// Includes reports whether an entry tagged with groups belongs to v.
func (v Variant) Includes(groups []string) bool {
	for _, g := range groups {
		if slices.Contains(v.Groups, g) {
			return true
		}
	}
	return false
}

// Select filters the catalog by v's groups. Requirements without groups
// apply to every variant.
func (c *Catalog) Select(v Variant) *Selection {
	sel := &Selection{Variant: v}
	for _, r := range c.Requirements {
		if len(r.Groups) == 0 || v.Includes(r.Groups) {
			sel.Requirements = append(sel.Requirements, r)
		}
	}
	for _, d := range c.Directories {
		if v.Includes(d.Groups) {
			sel.Directories = append(sel.Directories, d)
		}
	}
	for _, f := range c.Files {
		if v.Includes(f.Groups) {
			sel.Files = append(sel.Files, f)
		}
	}
	for _, s := range c.Steps {
		if v.Includes(s.Groups) {
			sel.Steps = append(sel.Steps, s)
		}
	}
	for _, n := range c.NextSteps {
		if v.Includes(n.Groups) {
			sel.NextSteps = append(sel.NextSteps, n)
		}
	}
	return sel
}
