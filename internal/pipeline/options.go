package pipeline

import (
	"github.com/dgallion1/docsect/internal/chunker"
	"github.com/dgallion1/docsect/internal/config"
)

// OptionsFromConfig maps service settings onto analysis options.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	policy, err := chunker.ParsePolicy(cfg.Snippet.Policy)
	if err != nil {
		return Options{}, err
	}
	opts := DefaultOptions()
	opts.Parser.FallbackPdftotext = cfg.PDFFallbackPdftotext
	opts.MaxConcurrentDocs = cfg.MaxConcurrentDocs
	opts.Select.TopK = cfg.TopK
	opts.Select.PerDocLimit = cfg.PerDocLimit
	opts.Snippet.Units.Policy = policy
	opts.Snippet.MaxWords = cfg.Snippet.MaxWords
	opts.Snippet.Highlight = cfg.Snippet.Highlight
	return opts, nil
}
