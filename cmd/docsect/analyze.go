package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/dgallion1/docsect/internal/report"
	"github.com/spf13/cobra"
)

var (
	inputDir   string
	outputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze INPUT_JSON",
	Short: "Rank the sections of the listed documents and write the result JSON",
	Long: `Read a request naming documents, a persona and a job to be done, rank the
sections of the documents, and write the result atomically.

Documents are read from --input-dir. Unreadable documents are skipped. When
no heading is found or none is relevant, the reason is printed and nothing
is written.

Examples:
  docsect analyze input/challenge1b_input.json
  docsect analyze request.json --input-dir pdfs --output out/result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&inputDir, "input-dir", "", "directory holding the documents (default from INPUT_DIR)")
	analyzeCmd.Flags().StringVar(&outputPath, "output", "", "result file (default from OUTPUT_PATH)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	in, err := report.ReadInputFile(args[0])
	if err != nil {
		return err
	}
	if inputDir == "" {
		inputDir = cfg.InputDir
	}
	if outputPath == "" {
		outputPath = cfg.OutputPath
	}

	var sources []pipeline.Source
	for _, name := range in.Filenames() {
		data, err := os.ReadFile(filepath.Join(inputDir, name))
		if err != nil {
			log.Warn("skipping document", "document", name, "error", err)
			continue
		}
		sources = append(sources, pipeline.Source{Filename: name, Data: data})
	}

	ctx := cmd.Context()
	c, err := newComponents(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := c.analyzer.Analyze(ctx, in, sources)
	if errors.Is(err, pipeline.ErrNoHeadings) || errors.Is(err, pipeline.ErrNothingRelevant) {
		fmt.Fprintln(cmd.OutOrStdout(), err)
		return nil
	}
	if err != nil {
		return err
	}
	if err := report.WriteFile(outputPath, out); err != nil {
		return err
	}
	log.Info("result written", "path", outputPath, "sections", len(out.ExtractedSections))
	return nil
}
