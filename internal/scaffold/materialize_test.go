package scaffold

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/catalog"
	"github.com/itsrobel/qs/internal/postprocess"
)

func TestMaterialize_PathSetPerVariant(t *testing.T) {
	cat := loadTestCatalog(t, nil)

	tests := []struct {
		variant   string
		wantDirs  []string
		wantFiles []string
	}{
		{
			variant:   "backend",
			wantDirs:  []string{"bin", "cmd", "internal", "protos", "cmd/server", "internal/handlers", "protos/apiv1"},
			wantFiles: []string{"README.md", "cmd/server/main.go", "bin/run.sh"},
		},
		{
			variant:   "frontend",
			wantDirs:  []string{"assets", "bin", "protos", "assets/css", "protos/apiv1"},
			wantFiles: []string{"README.md", "assets/css/app.css", "bin/run.sh"},
		},
		{
			variant: "fullstack",
			wantDirs: []string{"assets", "bin", "cmd", "internal", "protos",
				"assets/css", "cmd/server", "internal/handlers", "protos/apiv1"},
			wantFiles: []string{"README.md", "cmd/server/main.go", "assets/css/app.css", "bin/run.sh"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: tt.variant})
			m := &Materializer{Catalog: cat, Fs: afero.NewMemMapFs()}

			result, err := m.Materialize(spec, "/work")
			if err != nil {
				t.Fatalf("Materialize() error: %v", err)
			}
			if result.Root != filepath.Join("/work", "demo") {
				t.Errorf("Root = %q", result.Root)
			}
			assertStrings(t, "dirs", result.Dirs(), tt.wantDirs)
			assertStrings(t, "files", result.Files(), tt.wantFiles)
		})
	}
}

func TestMaterialize_ParentsFirst(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "fullstack"})
	m := &Materializer{Catalog: cat, Fs: afero.NewMemMapFs()}

	result, err := m.Materialize(spec, "/work")
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	created := map[string]bool{}
	for _, c := range result.Created {
		if parent := filepath.ToSlash(filepath.Dir(c.Path)); parent != "." && !created[parent] {
			t.Errorf("%s created before its parent %s", c.Path, parent)
		}
		created[c.Path] = true
	}
}

func TestMaterialize_RefusesSecondRun(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})
	memFs := afero.NewMemMapFs()
	m := &Materializer{Catalog: cat, Fs: memFs}

	if _, err := m.Materialize(spec, "/work"); err != nil {
		t.Fatalf("first Materialize() error: %v", err)
	}
	if err := afero.WriteFile(memFs, "/work/demo/README.md", []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := m.Materialize(spec, "/work")
	if !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("second Materialize() error = %v, want AlreadyExists", err)
	}
	data, _ := afero.ReadFile(memFs, "/work/demo/README.md")
	if string(data) != "edited" {
		t.Error("refused run still overwrote README.md")
	}
}

func TestMaterialize_Force(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})
	memFs := afero.NewMemMapFs()

	if _, err := (&Materializer{Catalog: cat, Fs: memFs}).Materialize(spec, "/work"); err != nil {
		t.Fatalf("first Materialize() error: %v", err)
	}
	if err := afero.WriteFile(memFs, "/work/demo/NOTES.txt", []byte("mine"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := (&Materializer{Catalog: cat, Fs: memFs, Force: true}).Materialize(spec, "/work")
	if err != nil {
		t.Fatalf("forced Materialize() error: %v", err)
	}
	if len(result.Dirs()) != 0 {
		t.Errorf("existing directories reported as created: %v", result.Dirs())
	}
	if len(result.Files()) != 3 {
		t.Errorf("files = %v, want 3 rewritten", result.Files())
	}
	if data, _ := afero.ReadFile(memFs, "/work/demo/NOTES.txt"); string(data) != "mine" {
		t.Error("force removed a file the catalog does not declare")
	}
}

func TestMaterialize_FileInTheWay(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})
	memFs := afero.NewMemMapFs()
	if err := afero.WriteFile(memFs, "/work/demo", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := (&Materializer{Catalog: cat, Fs: memFs, Force: true}).Materialize(spec, "/work")
	if !apperr.Is(err, apperr.AlreadyExists) {
		t.Fatalf("error = %v, want AlreadyExists", err)
	}
}

func TestMaterialize_EmptyTargetAllowed(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})
	memFs := afero.NewMemMapFs()
	if err := memFs.MkdirAll("/work/demo", 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := (&Materializer{Catalog: cat, Fs: memFs}).Materialize(spec, "/work"); err != nil {
		t.Fatalf("Materialize() into empty dir error: %v", err)
	}
}

func TestMaterialize_Deterministic(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "My App", Variant: "fullstack", UseVersionControl: true, Owner: "acme"})

	render := func() (afero.Fs, *MaterializeResult) {
		memFs := afero.NewMemMapFs()
		m := &Materializer{Catalog: cat, Fs: memFs, Processors: postprocess.Default()}
		result, err := m.Materialize(spec, "/work")
		if err != nil {
			t.Fatalf("Materialize() error: %v", err)
		}
		return memFs, result
	}

	fs1, r1 := render()
	fs2, r2 := render()
	assertStrings(t, "created", paths(r2), paths(r1))
	for _, f := range r1.Files() {
		a, _ := afero.ReadFile(fs1, filepath.Join(r1.Root, f))
		b, _ := afero.ReadFile(fs2, filepath.Join(r2.Root, f))
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs", f)
		}
	}
}

func TestMaterialize_RenderedContent(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "My App", Variant: "backend"})
	memFs := afero.NewMemMapFs()
	m := &Materializer{Catalog: cat, Fs: memFs, Processors: postprocess.Default()}

	if _, err := m.Materialize(spec, "/work"); err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	readme := readMem(t, memFs, "/work/my-app/README.md")
	want := "# My App\n\nmodule my-app (backend)\nserver included\n"
	if readme != want {
		t.Errorf("README.md =\n%q\nwant\n%q", readme, want)
	}

	server := readMem(t, memFs, "/work/my-app/cmd/server/main.go")
	assertContains(t, server, "import (\n\t\"fmt\"\n\t\"os\"\n)")
	assertContains(t, server, "\tfmt.Println(\"my-app\", os.Args)")
}

func TestMaterialize_FileModes(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})
	root := t.TempDir()

	result, err := (&Materializer{Catalog: cat}).Materialize(spec, root)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	modes := map[string]fs.FileMode{"bin/run.sh": 0o755, "README.md": 0o644}
	for rel, want := range modes {
		info, err := os.Stat(filepath.Join(result.Root, rel))
		if err != nil {
			t.Fatalf("stat %s: %v", rel, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s mode = %#o, want %#o", rel, got, want)
		}
	}
}

func TestMaterialize_TemplateErrorWritesNothing(t *testing.T) {
	cat := loadTestCatalog(t, map[string]string{"t/app.tmpl": "{{.colour}}"})
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "fullstack"})
	memFs := afero.NewMemMapFs()

	_, err := (&Materializer{Catalog: cat, Fs: memFs}).Materialize(spec, "/work")
	if !apperr.Is(err, apperr.Template) {
		t.Fatalf("error = %v, want Template", err)
	}
	if exists, _ := afero.Exists(memFs, "/work/demo"); exists {
		t.Error("project directory created despite a template error")
	}
}

func TestMaterialize_PathEscapingRoot(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	cat.Files[0].Path = "{{.moduleName}}/../../escape.txt"
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})

	_, err := (&Materializer{Catalog: cat, Fs: afero.NewMemMapFs()}).Materialize(spec, "/work")
	if !apperr.Is(err, apperr.Template) {
		t.Fatalf("error = %v, want Template", err)
	}
}

func TestMaterialize_FileSystemError(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "demo", Variant: "backend"})
	roFs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, err := (&Materializer{Catalog: cat, Fs: roFs}).Materialize(spec, "/work")
	if !apperr.Is(err, apperr.FileSystem) {
		t.Fatalf("error = %v, want FileSystem", err)
	}
	if !apperr.Retryable(err) {
		t.Error("filesystem errors should be retryable")
	}
}

// TestMaterialize_BuiltinBackend runs the built-in catalog end to end on
// disk for "My App" as a backend project.
func TestMaterialize_BuiltinBackend(t *testing.T) {
	cat, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("Builtin() error: %v", err)
	}
	spec := mustLoad(t, cat, Args{ProjectName: "My App", Variant: "backend", UseVersionControl: true, Owner: "acme"})
	if spec.ModuleName() != "my-app" {
		t.Fatalf("ModuleName = %q, want my-app", spec.ModuleName())
	}

	root := t.TempDir()
	m := &Materializer{Catalog: cat, Processors: postprocess.Default()}
	result, err := m.Materialize(spec, root)
	if err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	for _, dir := range []string{"protos/apiv1", "internal/handlers", "cmd/server", "bin"} {
		info, err := os.Stat(filepath.Join(result.Root, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}

	wantFiles := []string{
		"README.md", ".gitignore", "protos/apiv1/service.proto", "buf.yaml", "buf.gen.yaml",
		"taskfile.yaml", "cmd/deps/main.go", "cmd/server/main.go",
		"internal/handlers/greet_server.go", "air-server.toml",
	}
	assertStrings(t, "files", result.Files(), wantFiles)

	err = filepath.WalkDir(result.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(result.Root, p)
		rel = filepath.ToSlash(rel)
		if strings.HasSuffix(rel, ".templ") || strings.HasPrefix(rel, "cmd/client") ||
			strings.HasPrefix(rel, "assets/") || rel == "tailwind.config.js" {
			t.Errorf("frontend file %s present in backend project", rel)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if bytes.Contains(data, []byte("{{")) || bytes.Contains(data, []byte("}}")) {
			t.Errorf("%s contains a residual placeholder", rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking project: %v", err)
	}

	server, err := os.ReadFile(filepath.Join(result.Root, "cmd/server/main.go"))
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(server), `"github.com/acme/my-app/internal/handlers"`)
}

func TestMaterialize_BuiltinVariantsRender(t *testing.T) {
	cat, err := catalog.Builtin()
	if err != nil {
		t.Fatalf("Builtin() error: %v", err)
	}
	for _, variant := range []string{"backend", "frontend", "fullstack"} {
		t.Run(variant, func(t *testing.T) {
			spec := mustLoad(t, cat, Args{ProjectName: "Demo", Variant: variant})
			m := &Materializer{Catalog: cat, Fs: afero.NewMemMapFs(), Processors: postprocess.Default()}
			result, err := m.Materialize(spec, "/work")
			if err != nil {
				t.Fatalf("Materialize() error: %v", err)
			}
			want := len(cat.Select(spec.Variant()).Files)
			if got := len(result.Files()); got != want {
				t.Errorf("wrote %d files, want %d", got, want)
			}
		})
	}
}

func TestSortDirs(t *testing.T) {
	set := map[string]bool{"b/c/d": true, "a": true, "b": true, "b/c": true, "a/z": true, "c": true}
	want := []string{"a", "b", "c", "a/z", "b/c", "b/c/d"}
	assertStrings(t, "sortDirs", sortDirs(set), want)
}

func paths(r *MaterializeResult) []string {
	out := make([]string, len(r.Created))
	for i, c := range r.Created {
		out[i] = c.Path
	}
	return out
}

func readMem(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, name)
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func assertStrings(t *testing.T, what string, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("%s =\n  %v\nwant\n  %v", what, got, want)
	}
}

func assertContains(t *testing.T, content, substr string) {
	t.Helper()
	if !strings.Contains(content, substr) {
		t.Errorf("expected content to contain %q, got:\n%s", substr, content)
	}
}
