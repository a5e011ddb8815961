//go:build integration

package integration_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir string // HOME, so no user config leaks in
	RootDir string // where projects are generated
}

// setupTestEnv creates isolated temp directories and points HOME at one of
// them. Tools that cache downloads keep working through GOPATH/GOMODCACHE,
// which are left untouched.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir: t.TempDir(),
		RootDir: t.TempDir(),
	}
	if gopath, err := exec.Command("go", "env", "GOPATH").Output(); err == nil {
		t.Setenv("GOPATH", strings.TrimSpace(string(gopath)))
	}
	t.Setenv("HOME", env.HomeDir)
	return env
}

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available, skipping", tool)
		}
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s", path)
	}
}

func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("%s does not contain %q:\n%s", filepath.Base(path), substr, data)
	}
}
