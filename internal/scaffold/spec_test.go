package scaffold

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/manifest"
)

const testCatalogYAML = `name: test
version: "0.1.0"
variants:
  - name: backend
    groups: [shared, server]
  - name: frontend
    groups: [shared, client]
  - name: fullstack
    aliases: [both]
    groups: [shared, server, client]
directories:
  - path: protos/apiv1
    groups: [shared]
  - path: internal/handlers
    groups: [server]
  - path: assets/css
    groups: [client]
files:
  - path: README.md
    template: t/readme.tmpl
    groups: [shared]
  - path: cmd/server/main.go
    template: t/server.tmpl
    groups: [server]
  - path: assets/css/app.css
    template: t/app.tmpl
    groups: [client]
  - path: bin/run.sh
    template: t/run.tmpl
    groups: [shared]
    mode: "0755"
steps:
  - name: mod-init
    argv: [go, mod, init, "{{.modulePath}}"]
    groups: [shared]
  - name: git-init
    argv: [git, init]
    when: vcs
    groups: [shared]
  - name: install
    install:
      - example.com/tool/a@latest
      - "{{if .hasClient}}example.com/tool/web@latest{{end}}"
    env:
      GOFLAGS: -mod=mod
    groups: [shared]
  - name: bun-init
    argv: [bun, init, -y]
    dir: assets
    continue_on_failure: true
    groups: [client]
next_steps:
  - text: "cd {{.moduleName}}"
    groups: [shared]
  - text: run the server
    groups: [server]
`

var testTemplates = map[string]string{
	"t/readme.tmpl": "# {{.projectName}}\n\nmodule {{.modulePath}} ({{.variant}})\n{{- if .hasServer}}\nserver included\n{{- end}}\n",
	"t/server.tmpl": "package main\n\nimport (\n\"os\"\n\"fmt\"\n)\n\nfunc main() {\nfmt.Println(\"{{.moduleName}}\", os.Args)\n}\n",
	"t/app.tmpl":    "@import \"tailwindcss\";\n",
	"t/run.tmpl":    "#!/bin/sh\n./{{.binDir}}/{{.packageName}}\n",
}

// loadTestCatalog builds the test catalog, with overrides replacing or
// adding template files.
func loadTestCatalog(t *testing.T, overrides map[string]string) *manifest.Catalog {
	t.Helper()
	fsys := fstest.MapFS{"catalog.yaml": {Data: []byte(testCatalogYAML)}}
	for name, body := range testTemplates {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	for name, body := range overrides {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	c, err := manifest.Load(fsys, "catalog.yaml")
	if err != nil {
		t.Fatalf("loading test catalog: %v", err)
	}
	return c
}

func mustLoad(t *testing.T, cat *manifest.Catalog, args Args) *ScaffoldSpec {
	t.Helper()
	spec, err := Load(args, cat)
	if err != nil {
		t.Fatalf("Load(%+v) error: %v", args, err)
	}
	return spec
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My App", "my-app"},
		{"myapp", "myapp"},
		{"Hello Big World", "hello-big-world"},
		{"API", "api"},
	}
	for _, tt := range tests {
		if got := ModuleName(tt.in); got != tt.want {
			t.Errorf("ModuleName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	cat := loadTestCatalog(t, nil)

	tests := []struct {
		name    string
		args    Args
		wantErr string
		variant string
	}{
		{name: "backend", args: Args{ProjectName: "My App", Variant: "backend"}, variant: "backend"},
		{name: "alias", args: Args{ProjectName: "x", Variant: "both"}, variant: "fullstack"},
		{name: "empty name", args: Args{ProjectName: "  ", Variant: "backend"}, wantErr: "must not be empty"},
		{name: "slash", args: Args{ProjectName: "../evil", Variant: "backend"}, wantErr: "path separators"},
		{name: "backslash", args: Args{ProjectName: `a\b`, Variant: "backend"}, wantErr: "path separators"},
		{name: "dot dot", args: Args{ProjectName: "..", Variant: "backend"}, wantErr: "not a valid directory name"},
		{name: "quotes", args: Args{ProjectName: `My "App"`, Variant: "backend"}, wantErr: "does not form a valid module path"},
		{name: "newline", args: Args{ProjectName: "x\ny", Variant: "backend"}, wantErr: "does not form a valid module path"},
		{name: "braces", args: Args{ProjectName: "a{b}", Variant: "backend", UseVersionControl: true, Owner: "o"},
			wantErr: `project name "a{b}" does not form a valid module path`},
		{name: "trailing dot", args: Args{ProjectName: "app.", Variant: "backend"}, wantErr: "does not form a valid module path"},
		{name: "bad owner", args: Args{ProjectName: "x", Variant: "backend", UseVersionControl: true, Owner: "acme corp"},
			wantErr: `owner "acme corp" does not form a valid module path`},
		{name: "unknown variant", args: Args{ProjectName: "x", Variant: "mobile"},
			wantErr: `unknown project type "mobile": must be one of backend, frontend, fullstack, both`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Load(tt.args, cat)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !apperr.Is(err, apperr.InvalidArgument) {
					t.Errorf("kind = %v, want InvalidArgument", apperr.KindOf(err))
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if spec.Variant().Name != tt.variant {
				t.Errorf("variant = %q, want %q", spec.Variant().Name, tt.variant)
			}
		})
	}
}

func TestLoad_ModulePath(t *testing.T) {
	cat := loadTestCatalog(t, nil)

	withVCS := mustLoad(t, cat, Args{ProjectName: "My App", Variant: "backend", UseVersionControl: true, Owner: "acme"})
	if got := withVCS.ModulePath(); got != "github.com/acme/my-app" {
		t.Errorf("ModulePath with VCS = %q", got)
	}

	noVCS := mustLoad(t, cat, Args{ProjectName: "My App", Variant: "backend"})
	if got := noVCS.ModulePath(); got != "my-app" {
		t.Errorf("ModulePath without VCS = %q", got)
	}
	if noVCS.ModuleName() != "my-app" || noVCS.ProjectName() != "My App" {
		t.Errorf("names = %q, %q", noVCS.ProjectName(), noVCS.ModuleName())
	}
}

func TestData_GroupFlags(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "x", Variant: "frontend"})

	data := spec.Data()
	want := map[string]bool{"hasShared": true, "hasClient": true, "hasServer": false}
	for key, v := range want {
		if data[key] != v {
			t.Errorf("%s = %v, want %v", key, data[key], v)
		}
	}

	// Data hands out a copy.
	data["projectName"] = "changed"
	if spec.Data()["projectName"] != "x" {
		t.Error("Data() exposed internal state")
	}
}

func TestRender(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "My App", Variant: "backend"})

	tests := []struct {
		name, in, want string
	}{
		{"plain", "no placeholders", "no placeholders"},
		{"fields", "{{.projectName}}|{{.moduleName}}|{{.binDir}}", "My App|my-app|bin"},
		{"funcs", "{{snake .moduleName}} {{camel .moduleName}} {{upper .variant}}", "my_app MyApp BACKEND"},
		{"package", "{{.packageName}}", "myapp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := spec.Render(tt.name, tt.in)
			if err != nil {
				t.Fatalf("Render error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	cat := loadTestCatalog(t, nil)
	spec := mustLoad(t, cat, Args{ProjectName: "x", Variant: "backend"})

	for _, in := range []string{"{{.nope}}", "{{.projectName"} {
		_, err := spec.Render("bad.tmpl", in)
		if err == nil {
			t.Fatalf("Render(%q) succeeded, want Template error", in)
		}
		if !apperr.Is(err, apperr.Template) {
			t.Errorf("Render(%q) kind = %v, want Template", in, apperr.KindOf(err))
		}
	}
}
