package doctor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/itsrobel/qs/internal/manifest"
)

// Status is the outcome of checking one requirement.
type Status int

const (
	StatusOK Status = iota
	StatusMissing
	StatusOutdated
	// StatusUnknown means the tool was found but its version could not be
	// determined, so a minimum could not be enforced.
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusMissing:
		return "MISS"
	case StatusOutdated:
		return "OLD"
	default:
		return "WARN"
	}
}

// Result is the check outcome for one requirement.
type Result struct {
	Requirement manifest.Requirement
	Status      Status
	Path        string
	Version     string
	Err         error
}

// Blocking reports whether the result should stop a scaffold run.
func (r Result) Blocking() bool {
	return r.Requirement.Required && (r.Status == StatusMissing || r.Status == StatusOutdated)
}

// versionTimeout bounds a single "<tool> --version" probe.
const versionTimeout = 10 * time.Second

// Checker probes tools on the host. The function fields exist for tests;
// nil means the exec package.
type Checker struct {
	LookPath func(file string) (string, error)
	Output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func (c *Checker) lookPath(file string) (string, error) {
	if c.LookPath != nil {
		return c.LookPath(file)
	}
	return exec.LookPath(file)
}

func (c *Checker) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if c.Output != nil {
		return c.Output(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Check probes every requirement in order.
func (c *Checker) Check(ctx context.Context, reqs []manifest.Requirement) []Result {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, c.checkOne(ctx, req))
	}
	return results
}

func (c *Checker) checkOne(ctx context.Context, req manifest.Requirement) Result {
	res := Result{Requirement: req}

	path, err := c.lookPath(req.Name)
	if err != nil {
		res.Status = StatusMissing
		res.Err = err
		return res
	}
	res.Path = path

	if len(req.VersionArgs) == 0 {
		return res
	}

	probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := c.output(probeCtx, path, req.VersionArgs...)
	if err != nil {
		res.Status = StatusUnknown
		res.Err = fmt.Errorf("running %s %s: %w", req.Name, strings.Join(req.VersionArgs, " "), err)
		return res
	}

	v, err := ParseVersion(string(out))
	if err != nil {
		res.Status = StatusUnknown
		res.Err = err
		return res
	}
	res.Version = v.String()

	if req.MinVersion == "" {
		return res
	}
	minimum, err := semver.NewVersion(strings.TrimPrefix(req.MinVersion, "v"))
	if err != nil {
		res.Status = StatusUnknown
		res.Err = fmt.Errorf("parsing minimum version %q: %w", req.MinVersion, err)
		return res
	}
	if v.LessThan(minimum) {
		res.Status = StatusOutdated
	}
	return res
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// ParseVersion extracts the first dotted version number from a tool's
// version output, e.g. "go version go1.22.3 linux/amd64" or "git version
// 2.43.0".
func ParseVersion(output string) (*semver.Version, error) {
	match := versionPattern.FindString(output)
	if match == "" {
		return nil, fmt.Errorf("no version number in %q", strings.TrimSpace(output))
	}
	return semver.NewVersion(match)
}

// Print writes one line per result in the doctor report format and
// returns the number of blocking problems.
func Print(w io.Writer, results []Result) int {
	blocking := 0
	for _, r := range results {
		name := r.Requirement.Name
		switch r.Status {
		case StatusOK:
			detail := r.Path
			if r.Version != "" {
				detail = fmt.Sprintf("%s (%s)", r.Version, r.Path)
			}
			fmt.Fprintf(w, "  [ OK ] %s %s\n", name, detail)
		case StatusMissing:
			fmt.Fprintf(w, "  [MISS] %s not found%s\n", name, requiredSuffix(r))
		case StatusOutdated:
			fmt.Fprintf(w, "  [OLD ] %s %s is older than %s%s\n", name, r.Version, r.Requirement.MinVersion, requiredSuffix(r))
		default:
			fmt.Fprintf(w, "  [WARN] %s: %v\n", name, r.Err)
		}
		if r.Blocking() {
			blocking++
		}
	}
	return blocking
}

func requiredSuffix(r Result) string {
	if r.Requirement.Required {
		return " (required)"
	}
	return ""
}
