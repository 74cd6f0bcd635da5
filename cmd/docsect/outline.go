package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsect/internal/doctree"
	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/spf13/cobra"
)

var outlineCmd = &cobra.Command{
	Use:   "outline FILE",
	Short: "Print the title and heading outline of one document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		opts, err := pipeline.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		// Outlines need no embeddings or cache.
		a := pipeline.NewAnalyzer(nil, nil, opts, log)
		ol, err := a.Outline(data, filepath.Base(args[0]))
		if err != nil {
			return err
		}
		if ol.Entries == nil {
			ol.Entries = []doctree.OutlineEntry{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ol)
	},
}
