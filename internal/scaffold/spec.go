package scaffold

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/mod/module"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/branding"
	"github.com/itsrobel/qs/internal/manifest"
)

// BinDir is the project-local directory generated tools are installed into.
const BinDir = "bin"

// Args is the raw user input for one scaffold run.
type Args struct {
	ProjectName       string
	Variant           string
	UseVersionControl bool
	// Owner is the repository owner used in the module path when version
	// control is enabled. Empty means the configured default.
	Owner string
}

// ScaffoldSpec is the validated description of one run. It is immutable.
type ScaffoldSpec struct {
	projectName string
	moduleName  string
	modulePath  string
	variant     manifest.Variant
	useVCS      bool
	data        map[string]any
}

// Load validates args against cat and returns the spec. It has no side
// effects; every failure is an InvalidArgument error.
func Load(args Args, cat *manifest.Catalog) (*ScaffoldSpec, error) {
	name := strings.TrimSpace(args.ProjectName)
	if name == "" {
		return nil, apperr.Newf(apperr.InvalidArgument, "", "project name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, apperr.Newf(apperr.InvalidArgument, "", "project name %q must not contain path separators", name)
	}
	moduleName := ModuleName(name)
	if moduleName == "." || moduleName == ".." {
		return nil, apperr.Newf(apperr.InvalidArgument, "", "project name %q is not a valid directory name", name)
	}
	if err := module.CheckImportPath(moduleName); err != nil {
		return nil, apperr.Newf(apperr.InvalidArgument, "", "project name %q does not form a valid module path: %v", name, err)
	}

	variant, ok := cat.LookupVariant(args.Variant)
	if !ok {
		return nil, apperr.Newf(apperr.InvalidArgument, "",
			"unknown project type %q: must be one of %s", args.Variant, strings.Join(cat.VariantNames(), ", "))
	}

	owner := args.Owner
	if owner == "" {
		owner = branding.GitOwner()
	}
	modulePath := moduleName
	if args.UseVersionControl {
		modulePath = fmt.Sprintf("github.com/%s/%s", owner, moduleName)
		if err := module.CheckPath(modulePath); err != nil {
			return nil, apperr.Newf(apperr.InvalidArgument, "", "owner %q does not form a valid module path: %v", owner, err)
		}
	}

	s := &ScaffoldSpec{
		projectName: name,
		moduleName:  moduleName,
		modulePath:  modulePath,
		variant:     variant,
		useVCS:      args.UseVersionControl,
	}
	s.data = s.buildData(catalogGroups(cat))
	return s, nil
}

// ModuleName derives the directory and module name from a project name:
// lowercased, with spaces replaced by "-".
func ModuleName(projectName string) string {
	return strings.ReplaceAll(strings.ToLower(projectName), " ", "-")
}

func (s *ScaffoldSpec) ProjectName() string { return s.projectName }
func (s *ScaffoldSpec) ModuleName() string { return s.moduleName }
func (s *ScaffoldSpec) ModulePath() string { return s.modulePath }
func (s *ScaffoldSpec) Variant() manifest.Variant { return s.variant }
func (s *ScaffoldSpec) UseVersionControl() bool { return s.useVCS }

// PackageName is the module name reduced to a valid Go package identifier.
func (s *ScaffoldSpec) PackageName() string {
	return strings.ToLower(strcase.ToCamel(s.moduleName))
}

// Data returns a copy of the placeholder values available to templates.
func (s *ScaffoldSpec) Data() map[string]any {
	return maps.Clone(s.data)
}

// buildData assembles the placeholder set. Every catalog group gets a
// has<Group> flag so templates can branch on groups the variant lacks.
func (s *ScaffoldSpec) buildData(groups []string) map[string]any {
	data := map[string]any{
		"projectName": s.projectName,
		"moduleName":  s.moduleName,
		"modulePath":  s.modulePath,
		"packageName": s.PackageName(),
		"binDir":      BinDir,
		"variant":     s.variant.Name,
		"vcs":         s.useVCS,
	}
	for _, g := range groups {
		data["has"+strcase.ToCamel(g)] = slices.Contains(s.variant.Groups, g)
	}
	return data
}

// catalogGroups returns every group named by any variant, sorted.
func catalogGroups(cat *manifest.Catalog) []string {
	seen := map[string]bool{}
	for _, v := range cat.Variants {
		for _, g := range v.Groups {
			seen[g] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
