package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/clausescan/internal/catalog"
)

var clausesYAML bool

// clausesCmd lists the catalog that scans match against
var clausesCmd = &cobra.Command{
	Use:   "clauses",
	Short: "List the clauses and keywords being scanned for",
	Long: `Clauses prints the active clause catalog: the built-in one, or the file
given with --catalog or catalog.path in the config.

Use --yaml to print a catalog file that can be edited and passed back with
--catalog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		cat, err := catalog.Resolve(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if clausesYAML {
			data, err := catalog.Marshal(cat)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}

		for i, def := range cat {
			fmt.Fprintf(out, "%2d. %s\n", i+1, def.CanonicalName)
			if def.LocalizedName != "" {
				fmt.Fprintf(out, "    localized: %s\n", def.LocalizedName)
			}
			if len(def.Keywords) > 0 {
				fmt.Fprintf(out, "    keywords:  %s\n", strings.Join(def.Keywords, ", "))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clausesCmd)
	clausesCmd.Flags().BoolVar(&clausesYAML, "yaml", false, "print the catalog as YAML")
}
