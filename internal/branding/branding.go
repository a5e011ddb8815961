// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package before building; Go's
// //go:embed bakes it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	GitOwner    string `yaml:"git_owner"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "qs",
			DisplayName: "QuickStart",
			Description: "Project scaffolder",
			HomeDir:     ".qs",
			EnvPrefix:   "QS",
			GoModule:    "github.com/itsrobel/qs",
			GitOwner:    "itsrobel",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "qs").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".qs").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "QS").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path of this tool.
func GoModule() string { load(); return defaults.GoModule }

// GitOwner returns the default repository owner used to build module paths
// for version-controlled projects.
func GitOwner() string { load(); return defaults.GitOwner }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "QS_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
