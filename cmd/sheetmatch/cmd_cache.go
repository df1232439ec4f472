package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/wbrown/sheetmatch"
)

var (
	glyphChars string
	alphabet   string
	tableCSV   string
	tableDump  string
	matchesCSV string

	glyphsCmd = &cobra.Command{
		Use:   "glyphs",
		Short: "Pre-render glyph footprints into the cache",
		RunE:  runGlyphs,
	}

	tableCmd = &cobra.Command{
		Use:   "table",
		Short: "Print the distance of every glyph pair, most similar first",
		RunE:  runTable,
	}

	matchesCmd = &cobra.Command{
		Use:   "matches",
		Short: "Export the match cache as a CSV matrix",
		RunE:  runMatches,
	}

	clearCacheCmd = &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete cached distances, matches and footprints",
		RunE:  runClearCache,
	}
)

func init() {
	glyphsCmd.Flags().StringVar(&glyphChars, "chars", sheetmatch.DefaultAlphabet,
		"Characters to render")
	tableCmd.Flags().StringVar(&alphabet, "alphabet", sheetmatch.DefaultAlphabet,
		"Characters to compare")
	tableCmd.Flags().StringVar(&tableCSV, "csv", "",
		"Write the sorted table as CSV to this path")
	tableCmd.Flags().StringVar(&tableDump, "dump", "",
		"Write the whole pair cache as CSV to this path")
	matchesCmd.Flags().StringVar(&matchesCSV, "csv", "",
		"Output path (stdout when empty)")
}

func runGlyphs(cmd *cobra.Command, _ []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	glyphs := append(sheetmatch.GlyphsOf(glyphChars), sheetmatch.EmptyGlyph)
	if err := engine.Warm(cmd.Context(), glyphs); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d footprints ready, %d rendered\n",
		len(glyphs), engine.Stats().Renders)
	return nil
}

func runTable(cmd *cobra.Command, _ []string) error {
	engine, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	pairs, err := engine.DistanceTable(alphabet)
	if err := tolerate(logger, err); err != nil {
		return err
	}

	if tableCSV != "" {
		if err := writeFile(tableCSV, func(w io.Writer) error {
			return sheetmatch.WriteDistanceTableCSV(w, pairs)
		}); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, p := range pairs {
			fmt.Fprintf(out, "%s_%s: %.4f\n", string(p.A), string(p.B), p.Distance)
		}
	}

	if tableDump != "" {
		table := engine.PairTable()
		return writeFile(tableDump, func(w io.Writer) error {
			return sheetmatch.WritePairCSV(w, table)
		})
	}
	return nil
}

func runMatches(cmd *cobra.Command, _ []string) error {
	engine, _, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	table := engine.MatchTable()
	if matchesCSV == "" {
		return sheetmatch.WriteMatchCSV(cmd.OutOrStdout(), table)
	}
	return writeFile(matchesCSV, func(w io.Writer) error {
		return sheetmatch.WriteMatchCSV(w, table)
	})
}

func runClearCache(_ *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := sheetmatch.ClearCache(cfg); err != nil {
		return err
	}
	logger.Info("cache cleared", "dir", cfg.Cache.Dir)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
