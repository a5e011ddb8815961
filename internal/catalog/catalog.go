package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/itsrobel/qs/internal/manifest"
)

// BuiltinName is the name of the embedded catalog.
const BuiltinName = "connect-templ"

const catalogFile = "catalog.yaml"

//go:embed all:connect-templ
var builtinFS embed.FS

// Builtin loads the embedded catalog.
func Builtin() (*manifest.Catalog, error) {
	sub, err := fs.Sub(builtinFS, BuiltinName)
	if err != nil {
		return nil, fmt.Errorf("opening built-in catalog: %w", err)
	}
	return manifest.Load(sub, catalogFile)
}

// Open loads a catalog file from disk. Its templates resolve relative to
// the directory containing the file.
func Open(path string) (*manifest.Catalog, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving catalog path %s: %w", path, err)
	}
	return manifest.Load(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
}

// Resolve returns the catalog at path, or the built-in catalog when path
// is empty.
func Resolve(path string) (*manifest.Catalog, error) {
	if path == "" {
		return Builtin()
	}
	return Open(path)
}
