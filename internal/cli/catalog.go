package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/catalog"
	"github.com/itsrobel/qs/internal/manifest"
)

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate scaffold catalogs",
	Long: `Inspect the catalog "new" generates projects from.

The built-in catalog is embedded in the binary. Pass --catalog <file> to use
a catalog on disk; its template paths resolve relative to the file.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project types a catalog offers",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Resolve(catalogPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", cat.Name, cat.Version)
		if cat.Description != "" {
			fmt.Fprintf(out, "  %s\n", cat.Description)
		}
		fmt.Fprintln(out)
		for _, v := range cat.Variants {
			name := v.Name
			if len(v.Aliases) > 0 {
				name += " (" + strings.Join(v.Aliases, ", ") + ")"
			}
			fmt.Fprintf(out, "  %-24s %s\n", name, v.Description)
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <type>",
	Short: "Show the directories, files and commands of one project type",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Resolve(catalogPath)
		if err != nil {
			return err
		}
		v, ok := cat.LookupVariant(args[0])
		if !ok {
			return apperr.Newf(apperr.InvalidArgument, "", "unknown project type %q: must be one of %s", args[0], strings.Join(cat.VariantNames(), ", "))
		}
		printSelection(cmd.OutOrStdout(), cat.Select(v))
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file against the schema and its templates",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Open(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[ OK ] %s: catalog %s %s, %d type(s), %d file(s), %d step(s)\n",
			args[0], cat.Name, cat.Version, len(cat.Variants), len(cat.Files), len(cat.Steps))
		return nil
	},
}

func printSelection(out io.Writer, sel *manifest.Selection) {
	fmt.Fprintf(out, "Type: %s\n", sel.Variant.Name)
	fmt.Fprintf(out, "Groups: %s\n", strings.Join(sel.Variant.Groups, ", "))

	if len(sel.Requirements) > 0 {
		fmt.Fprintln(out, "\nRequires:")
		for _, r := range sel.Requirements {
			line := "  " + r.Name
			if r.MinVersion != "" {
				line += " >= " + r.MinVersion
			}
			if r.Required {
				line += " (required)"
			}
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintln(out, "\nDirectories:")
	for _, d := range sel.Directories {
		fmt.Fprintf(out, "  %s/\n", d.Path)
	}

	fmt.Fprintln(out, "\nFiles:")
	for _, f := range sel.Files {
		fmt.Fprintf(out, "  %s\n", f.Path)
	}

	if len(sel.Steps) > 0 {
		fmt.Fprintln(out, "\nCommands:")
		for i, s := range sel.Steps {
			cmd := strings.Join(s.Argv, " ")
			if len(s.Install) > 0 {
				cmd = fmt.Sprintf("go install (%d tools, concurrently)", len(s.Install))
			}
			line := fmt.Sprintf("  %d. %-16s %s", i+1, s.Name, cmd)
			if s.When != manifest.WhenAlways {
				line += "  [" + s.When + "]"
			}
			if s.ContinueOnFailure {
				line += "  [may fail]"
			}
			fmt.Fprintln(out, line)
		}
	}
}
