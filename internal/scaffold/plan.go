package scaffold

import (
	"path/filepath"
	"strings"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/manifest"
	"github.com/itsrobel/qs/internal/runner"
)

// Plan renders the command steps selected by spec's variant into runner
// steps for the project at projectDir, which should be absolute. Steps
// whose condition does not hold are left out and indices are assigned in
// order from 1. An install step becomes a batch of "go install" commands
// with GOBIN pointing at the project's bin directory; entries that render
// empty are dropped, and a step left with none is skipped.
func Plan(spec *ScaffoldSpec, cat *manifest.Catalog, projectDir string) ([]runner.Step, error) {
	sel := cat.Select(spec.Variant())
	var steps []runner.Step

	for _, s := range sel.Steps {
		if !conditionHolds(s.When, spec.UseVersionControl()) {
			continue
		}

		step := runner.Step{Name: s.Name, ContinueOnFailure: s.ContinueOnFailure}

		if s.Dir != "" {
			dir, err := renderPath(spec, s.Dir)
			if err != nil {
				return nil, err
			}
			step.Dir = dir
		}

		env, err := renderEnv(spec, s)
		if err != nil {
			return nil, err
		}

		if len(s.Install) > 0 {
			for _, pkg := range s.Install {
				rendered, err := spec.Render(s.Name, pkg)
				if err != nil {
					return nil, err
				}
				if rendered = strings.TrimSpace(rendered); rendered != "" {
					step.Batch = append(step.Batch, []string{"go", "install", rendered})
				}
			}
			if len(step.Batch) == 0 {
				continue
			}
			if env == nil {
				env = map[string]string{}
			}
			env["GOBIN"] = filepath.Join(projectDir, BinDir)
		} else {
			for _, arg := range s.Argv {
				rendered, err := spec.Render(s.Name, arg)
				if err != nil {
					return nil, err
				}
				step.Argv = append(step.Argv, rendered)
			}
			if step.Argv[0] == "" {
				return nil, apperr.Newf(apperr.Template, s.Name, "command renders to an empty program name")
			}
		}

		step.Env = env
		step.Index = len(steps) + 1
		steps = append(steps, step)
	}
	return steps, nil
}

// NextSteps renders the guidance notes selected by spec's variant.
func NextSteps(spec *ScaffoldSpec, cat *manifest.Catalog) ([]string, error) {
	sel := cat.Select(spec.Variant())
	notes := make([]string, 0, len(sel.NextSteps))
	for _, n := range sel.NextSteps {
		text, err := spec.Render("next_steps", n.Text)
		if err != nil {
			return nil, err
		}
		notes = append(notes, text)
	}
	return notes, nil
}

func renderEnv(spec *ScaffoldSpec, s manifest.Step) (map[string]string, error) {
	if len(s.Env) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		rendered, err := spec.Render(s.Name, v)
		if err != nil {
			return nil, err
		}
		env[k] = rendered
	}
	return env, nil
}

func conditionHolds(when string, useVCS bool) bool {
	switch when {
	case manifest.WhenVCS:
		return useVCS
	case manifest.WhenNoVCS:
		return !useVCS
	default:
		return true
	}
}
