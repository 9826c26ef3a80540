package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/MeKo-Tech/phonix/internal/catalog"
	"github.com/MeKo-Tech/phonix/internal/filter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Browse the filter preset catalog",
	Long: `List preset categories, or one page of presets of a category.

Preset names are stable; their values are generated per catalog seed.`,
	Args: cobra.NoArgs,
	RunE: runPresets,
}

func init() {
	rootCmd.AddCommand(presetsCmd)

	presetsCmd.Flags().StringP("category", "c", "", "Category to page through")
	presetsCmd.Flags().IntP("page", "p", 0, "Zero-based page")
	presetsCmd.Flags().Int("size", catalog.DefaultPageSize, "Presets per page")
	presetsCmd.Flags().Int64("seed", 0, "Catalog seed (0 generates a fresh catalog)")
	presetsCmd.Flags().Bool("json", false, "Print JSON")

	bindFlags(presetsCmd, "presets", "category", "page", "size", "seed", "json")
}

func runPresets(cmd *cobra.Command, args []string) error {
	cat := loadCatalog(viper.GetInt64("presets.seed"))
	category := viper.GetString("presets.category")
	asJSON := viper.GetBool("presets.json")
	out := cmd.OutOrStdout()

	if category == "" {
		cats := cat.Categories()
		if asJSON {
			return writeJSON(out, cats)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tPRESETS")
		for _, c := range cats {
			fmt.Fprintf(tw, "%s\t%d\n", c.Name, c.Count)
		}
		fmt.Fprintf(tw, "total\t%d\n", cat.Len())
		return tw.Flush()
	}

	page, err := cat.Page(category, viper.GetInt("presets.page"), viper.GetInt("presets.size"))
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, page)
	}

	fmt.Fprintf(out, "%s: page %d of %d (%d presets)\n", page.Category, page.Page+1, page.TotalPages, page.Total)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFILTER")
	for _, p := range page.Presets {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, filter.PreviewCSS(p.Parameters))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
