package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/manifest"
	"github.com/itsrobel/qs/internal/postprocess"
)

const dirMode fs.FileMode = 0o755

// CreatedPath is one directory or file written by Materialize. Path is
// slash-separated and relative to the project root.
type CreatedPath struct {
	Path string
	Dir  bool
	Mode fs.FileMode
}

// MaterializeResult lists everything Materialize created, in creation order.
// Directories that already existed are not listed.
type MaterializeResult struct {
	Root    string
	Created []CreatedPath
}

// Files returns the created file paths in creation order.
func (r *MaterializeResult) Files() []string {
	var files []string
	for _, c := range r.Created {
		if !c.Dir {
			files = append(files, c.Path)
		}
	}
	return files
}

// Dirs returns the created directory paths in creation order.
func (r *MaterializeResult) Dirs() []string {
	var dirs []string
	for _, c := range r.Created {
		if c.Dir {
			dirs = append(dirs, c.Path)
		}
	}
	return dirs
}

// Materializer writes a catalog's selected entries to a filesystem.
type Materializer struct {
	Catalog *manifest.Catalog
	// Fs is the target filesystem. Nil means the OS filesystem.
	Fs afero.Fs
	// Force allows writing into a non-empty target, overwriting files the
	// catalog declares. Other files in the target are left alone.
	Force bool
	// Processors run on every rendered file before it is written.
	Processors *postprocess.Chain
	Logger     *zerolog.Logger
}

// renderedFile is a file ready to be written.
type renderedFile struct {
	path    string
	content []byte
	mode    fs.FileMode
}

// Target returns the project directory spec materializes into.
func Target(spec *ScaffoldSpec, rootDir string) string {
	return filepath.Join(rootDir, spec.ModuleName())
}

// Materialize renders the catalog entries selected by spec's variant and
// writes them under <rootDir>/<moduleName>. A non-empty target fails with
// AlreadyExists unless Force is set. Directories are created parents first;
// rendering failures are Template errors and happen before any write.
// Write failures are FileSystem errors and leave what was already written
// in place; the partial result is returned alongside the error.
func (m *Materializer) Materialize(spec *ScaffoldSpec, rootDir string) (*MaterializeResult, error) {
	fsys := m.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	log := m.logger()

	sel := m.Catalog.Select(spec.Variant())
	files, dirs, err := m.render(spec, sel)
	if err != nil {
		return nil, err
	}

	target := Target(spec, rootDir)
	result := &MaterializeResult{Root: target}
	if err := m.checkTarget(fsys, target); err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(target, dirMode); err != nil {
		return nil, apperr.New(apperr.FileSystem, target, err)
	}

	for _, d := range dirs {
		full := filepath.Join(target, filepath.FromSlash(d))
		info, err := fsys.Stat(full)
		if err == nil {
			if !info.IsDir() {
				return result, apperr.Newf(apperr.FileSystem, d, "exists and is not a directory")
			}
			continue
		}
		// Mkdir rather than MkdirAll: parents are always created first.
		if err := fsys.Mkdir(full, dirMode); err != nil {
			return result, apperr.New(apperr.FileSystem, d, err)
		}
		log.Debug().Str("dir", d).Msg("created directory")
		result.Created = append(result.Created, CreatedPath{Path: d, Dir: true, Mode: dirMode})
	}

	for _, f := range files {
		full := filepath.Join(target, filepath.FromSlash(f.path))
		if err := afero.WriteFile(fsys, full, f.content, f.mode); err != nil {
			return result, apperr.New(apperr.FileSystem, f.path, err)
		}
		// WriteFile honours the umask and leaves existing modes alone.
		if err := fsys.Chmod(full, f.mode); err != nil {
			return result, apperr.New(apperr.FileSystem, f.path, err)
		}
		log.Debug().Str("file", f.path).Str("mode", fmt.Sprintf("%#o", f.mode)).Msg("wrote file")
		result.Created = append(result.Created, CreatedPath{Path: f.path, Mode: f.mode})
	}

	log.Info().Str("root", target).Int("dirs", len(result.Dirs())).Int("files", len(result.Files())).Msg("materialized project")
	return result, nil
}

// render resolves every selected path and body, and computes the ordered
// directory set: declared directories plus every ancestor of every entry.
func (m *Materializer) render(spec *ScaffoldSpec, sel *manifest.Selection) ([]renderedFile, []string, error) {
	dirSet := map[string]bool{}
	addParents := func(p string) {
		for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
			dirSet[dir] = true
		}
	}

	for _, d := range sel.Directories {
		p, err := renderPath(spec, d.Path)
		if err != nil {
			return nil, nil, err
		}
		dirSet[p] = true
		addParents(p)
	}

	files := make([]renderedFile, 0, len(sel.Files))
	seen := map[string]bool{}
	for _, f := range sel.Files {
		p, err := renderPath(spec, f.Path)
		if err != nil {
			return nil, nil, err
		}
		if seen[p] {
			return nil, nil, apperr.Newf(apperr.Template, p, "declared by more than one catalog entry")
		}
		seen[p] = true

		body, err := m.Catalog.ReadTemplate(f.Template)
		if err != nil {
			return nil, nil, apperr.New(apperr.Template, f.Template, err)
		}
		rendered, err := spec.Render(f.Template, body)
		if err != nil {
			return nil, nil, err
		}
		content, err := m.Processors.Process(p, []byte(rendered))
		if err != nil {
			return nil, nil, apperr.New(apperr.Template, p, err)
		}
		mode, err := f.FileMode()
		if err != nil {
			return nil, nil, apperr.New(apperr.Template, p, err)
		}

		files = append(files, renderedFile{path: p, content: content, mode: mode})
		addParents(p)
	}

	for p := range seen {
		if dirSet[p] {
			return nil, nil, apperr.Newf(apperr.Template, p, "declared as both a file and a directory")
		}
	}

	return files, sortDirs(dirSet), nil
}

// renderPath renders a catalog path and checks the result stays inside the
// project root.
func renderPath(spec *ScaffoldSpec, raw string) (string, error) {
	p, err := spec.Render(raw, raw)
	if err != nil {
		return "", err
	}
	if err := manifest.CheckRelPath(p); err != nil {
		return "", apperr.New(apperr.Template, raw, err)
	}
	return path.Clean(p), nil
}

// sortDirs orders directories by depth, then lexicographically, so every
// parent precedes its children.
func sortDirs(set map[string]bool) []string {
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}

// checkTarget refuses a target that is a file, or a non-empty directory
// when Force is not set.
func (m *Materializer) checkTarget(fsys afero.Fs, target string) error {
	info, err := fsys.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperr.New(apperr.FileSystem, target, err)
	}
	if !info.IsDir() {
		return apperr.Newf(apperr.AlreadyExists, target, "a file is in the way")
	}
	empty, err := afero.IsEmpty(fsys, target)
	if err != nil {
		return apperr.New(apperr.FileSystem, target, err)
	}
	if !empty && !m.Force {
		return apperr.Newf(apperr.AlreadyExists, target, "directory is not empty; use --force to write into it")
	}
	return nil
}

func (m *Materializer) logger() *zerolog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
