package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/catalog"
	"github.com/itsrobel/qs/internal/doctor"
	"github.com/itsrobel/qs/internal/manifest"
	"github.com/itsrobel/qs/internal/postprocess"
	"github.com/itsrobel/qs/internal/runner"
	"github.com/itsrobel/qs/internal/scaffold"
)

var (
	newType         string
	newNoGit        bool
	newOwner        string
	newOutputDir    string
	newForce        bool
	newDryRun       bool
	newSkipCommands bool
	newTimeout      time.Duration
	newWorkers      int
)

func init() {
	newCmd.Flags().StringVarP(&newType, "type", "t", "fullstack", "Project type: backend, frontend or fullstack (alias both)")
	newCmd.Flags().BoolVar(&newNoGit, "no-git", false, "Skip git init and use the bare module name as the module path")
	newCmd.Flags().StringVar(&newOwner, "owner", "", "Repository owner for the module path (default: git_owner setting)")
	newCmd.Flags().StringVar(&newOutputDir, "output-dir", "", "Directory to create the project in (default: current directory)")
	newCmd.Flags().BoolVar(&newForce, "force", false, "Write into an existing non-empty project directory")
	newCmd.Flags().BoolVar(&newDryRun, "dry-run", false, "Render in memory and print what would be created and run")
	newCmd.Flags().BoolVar(&newSkipCommands, "skip-commands", false, "Write files only; run no toolchain commands")
	newCmd.Flags().DurationVar(&newTimeout, "timeout", 0, "Per-command timeout (default: command_timeout setting)")
	newCmd.Flags().IntVar(&newWorkers, "workers", 0, "Concurrent tool installs (default: install_workers setting)")
	rootCmd.AddCommand(newCmd)
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold a new project",
	Long: `Create a new project directory named after <name> (lowercased, spaces
replaced by "-"), write the catalog's files for the selected type, then run
its toolchain commands inside it.

Examples:
  qs new "My App" --type backend
  qs new shop --type both --no-git
  qs new demo --dry-run`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNew(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func runNew(ctx context.Context, out io.Writer, name string) error {
	cat, err := catalog.Resolve(catalogPath)
	if err != nil {
		return apperr.WithStage(apperr.StageSpecLoad, err)
	}

	owner := newOwner
	if owner == "" {
		owner = settings.GitOwner
	}
	spec, err := scaffold.Load(scaffold.Args{
		ProjectName:       name,
		Variant:           newType,
		UseVersionControl: !newNoGit,
		Owner:             owner,
	}, cat)
	if err != nil {
		return apperr.WithStage(apperr.StageSpecLoad, err)
	}

	rootDir := newOutputDir
	if rootDir == "" {
		rootDir = "."
	}
	rootDir, err = filepath.Abs(rootDir)
	if err != nil {
		return apperr.WithStage(apperr.StageSpecLoad, apperr.New(apperr.InvalidArgument, newOutputDir, err))
	}

	log := logger.With().Str("project", spec.ModuleName()).Str("variant", spec.Variant().Name).Logger()
	log.Info().Str("catalog", cat.Name).Str("module_path", spec.ModulePath()).Msg("starting scaffold")

	runCommands := !newSkipCommands && !newDryRun
	if runCommands {
		preflight(ctx, &log, cat, spec)
	}

	fsys := afero.NewOsFs()
	if newDryRun {
		// Reads see the real disk so the existing-target check still applies.
		fsys = afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(afero.NewOsFs()), afero.NewMemMapFs())
	}
	m := &scaffold.Materializer{
		Catalog:    cat,
		Fs:         fsys,
		Force:      newForce,
		Processors: postprocess.Default(),
		Logger:     &log,
	}
	result, err := m.Materialize(spec, rootDir)
	if err != nil {
		return apperr.WithStage(apperr.StageMaterialize, err)
	}
	printMaterialized(out, result, newDryRun)

	steps, err := scaffold.Plan(spec, cat, result.Root)
	if err != nil {
		return apperr.WithStage(apperr.StageRunCommands, err)
	}

	if newDryRun {
		printPlan(out, steps)
		return nil
	}

	if runCommands && len(steps) > 0 {
		r := &runner.Runner{
			Timeout: settings.CommandTimeout,
			Workers: settings.InstallWorkers,
			Output:  out,
			Logger:  &log,
		}
		if newTimeout > 0 {
			r.Timeout = newTimeout
		}
		if newWorkers > 0 {
			r.Workers = newWorkers
		}

		fmt.Fprintf(out, "\nRunning %d command(s) in %s\n", len(steps), result.Root)
		runResult, err := r.Run(ctx, steps, result.Root)
		printFailures(out, runResult)
		if err != nil {
			return apperr.WithStage(apperr.StageRunCommands, err)
		}
	}

	notes, err := scaffold.NextSteps(spec, cat)
	if err != nil {
		return apperr.WithStage(apperr.StageRunCommands, err)
	}
	if len(notes) > 0 {
		fmt.Fprintln(out, "\nNext steps:")
		for i, n := range notes {
			fmt.Fprintf(out, "  %d. %s\n", i+1, n)
		}
	}
	return nil
}

// preflight warns about missing or outdated tools. It never stops the run:
// the command that needs the tool reports the real failure.
func preflight(ctx context.Context, log *zerolog.Logger, cat *manifest.Catalog, spec *scaffold.ScaffoldSpec) {
	sel := cat.Select(spec.Variant())
	results := (&doctor.Checker{}).Check(ctx, sel.Requirements)
	for _, r := range results {
		if r.Status == doctor.StatusOK {
			continue
		}
		ev := log.Warn()
		if r.Blocking() {
			ev = log.Error()
		}
		ev.Str("tool", r.Requirement.Name).Str("status", r.Status.String()).
			Str("min_version", r.Requirement.MinVersion).Str("found", r.Version).
			Msgf("preflight check failed; run '%s doctor' for details", rootCmd.Name())
	}
}

func printMaterialized(out io.Writer, result *scaffold.MaterializeResult, dryRun bool) {
	verb := "Created"
	if dryRun {
		verb = "Would create"
	}
	fmt.Fprintf(out, "%s %s/\n", verb, result.Root)
	for _, c := range result.Created {
		if c.Dir {
			fmt.Fprintf(out, "  %s/\n", c.Path)
			continue
		}
		fmt.Fprintf(out, "  %s\n", c.Path)
	}
}

func printPlan(out io.Writer, steps []runner.Step) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(out, "\nWould run:")
	for _, s := range steps {
		line := fmt.Sprintf("  %d. %s", s.Index, s.String())
		if s.Dir != "" {
			line += fmt.Sprintf("  (in %s)", s.Dir)
		}
		if s.ContinueOnFailure {
			line += "  [may fail]"
		}
		fmt.Fprintln(out, line)
	}
}

func printFailures(out io.Writer, result *runner.RunResult) {
	if result == nil {
		return
	}
	failures := result.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(out, "\nFailed commands:")
	for _, f := range failures {
		fmt.Fprintf(out, "  - step %d %s: %v\n", f.Index, f.Name, f.Err)
	}
}
