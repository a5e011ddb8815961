package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itsrobel/qs/internal/apperr"
	"github.com/itsrobel/qs/internal/catalog"
	"github.com/itsrobel/qs/internal/doctor"
)

var doctorType string

func init() {
	doctorCmd.Flags().StringVarP(&doctorType, "type", "t", "", "Only check tools needed by this project type")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the toolchain the catalog needs is installed",
	Long: `Look up every tool the catalog declares (go, git, bun, ...) on PATH and
compare its version with the catalog's minimum.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Resolve(catalogPath)
		if err != nil {
			return err
		}

		reqs := cat.Requirements
		if doctorType != "" {
			v, ok := cat.LookupVariant(doctorType)
			if !ok {
				return apperr.Newf(apperr.InvalidArgument, "", "unknown project type %q: must be one of %s",
					doctorType, strings.Join(cat.VariantNames(), ", "))
			}
			reqs = cat.Select(v).Requirements
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Toolchain check:")
		results := (&doctor.Checker{}).Check(cmd.Context(), reqs)
		if blocking := doctor.Print(out, results); blocking > 0 {
			return fmt.Errorf("%d required tool(s) missing or outdated", blocking)
		}
		return nil
	},
}
