package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wbrown/sheetmatch"
	"github.com/wbrown/sheetmatch/catalog"
	"github.com/wbrown/sheetmatch/recognize"
)

var (
	matchCmd = &cobra.Command{
		Use:   "match [query...]",
		Short: "Match readings against the catalog (reads stdin lines when no query is given)",
		RunE:  runMatch,
	}

	identifyCmd = &cobra.Command{
		Use:   "identify <image>",
		Short: "Read the marking in a photo and find its datasheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runIdentify,
	}
)

func runMatch(cmd *cobra.Command, args []string) error {
	engine, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	dir := catalog.NewDir(engine.Config.Catalog.Dir, engine.Config.Catalog.Ext)
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		for _, q := range args {
			if err := matchOne(engine, dir, logger, out, q); err != nil {
				return err
			}
		}
		return nil
	}

	// A stdin session may run for a while; keep the listing current.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if w, err := catalog.NewWatcher(dir, logger, nil); err != nil {
		logger.Warn("catalog changes will not be noticed", "error", err)
	} else {
		defer w.Close()
		go w.Run(ctx)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if err := matchOne(engine, dir, logger, out, q); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func matchOne(engine *sheetmatch.Engine, dir *catalog.Dir, logger *slog.Logger, out io.Writer, query string) error {
	entries, err := dir.List()
	if err != nil {
		return err
	}
	result, err := engine.Match(query, entries)
	if err := tolerate(logger, err); err != nil {
		return err
	}
	return printResult(out, dir, result)
}

func printResult(out io.Writer, dir *catalog.Dir, result sheetmatch.Result) error {
	path, err := dir.Resolve(result.Entry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\t%s\t%.4f\t%s\n", result.Query, result.Entry, result.Cost, path)
	return err
}

func runIdentify(cmd *cobra.Command, args []string) error {
	engine, logger, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ocr, err := recognize.NewEngine(engine.Config.OCR.Language, engine.Config.OCR.Whitelist)
	if err != nil {
		return err
	}
	defer ocr.Close()

	reading, err := ocr.Recognize(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	logger.Info("recognized marking", "raw", reading.Raw, "processed", reading.Processed)

	dir := catalog.NewDir(engine.Config.Catalog.Dir, engine.Config.Catalog.Ext)
	entries, err := dir.List()
	if err != nil {
		return err
	}
	result, err := engine.MatchBest(reading.Texts(), entries)
	if err := tolerate(logger, err); err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), dir, result)
}
