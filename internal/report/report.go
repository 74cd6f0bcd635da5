// Package report reads the analysis request and writes the result document.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultOutputPath is where the CLI writes results.
const DefaultOutputPath = "output/challenge1b_output.json"

type InputDocument struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
}

type Persona struct {
	Role string `json:"role"`
}

type JobToBeDone struct {
	Task string `json:"task"`
}

// Input is the analysis request.
type Input struct {
	Documents   []InputDocument `json:"documents"`
	Persona     Persona         `json:"persona"`
	JobToBeDone JobToBeDone     `json:"job_to_be_done"`
}

// Validate checks that the request names a persona, a task and documents.
func (in Input) Validate() error {
	var errs []error
	if len(in.Documents) == 0 {
		errs = append(errs, errors.New("documents: at least one document is required"))
	}
	for i, d := range in.Documents {
		if strings.TrimSpace(d.Filename) == "" {
			errs = append(errs, fmt.Errorf("documents[%d]: filename is required", i))
		}
	}
	if strings.TrimSpace(in.Persona.Role) == "" {
		errs = append(errs, errors.New("persona.role is required"))
	}
	if strings.TrimSpace(in.JobToBeDone.Task) == "" {
		errs = append(errs, errors.New("job_to_be_done.task is required"))
	}
	return errors.Join(errs...)
}

// Filenames lists the document filenames in request order.
func (in Input) Filenames() []string {
	out := make([]string, len(in.Documents))
	for i, d := range in.Documents {
		out[i] = d.Filename
	}
	return out
}

// ReadInput decodes and validates a request.
func ReadInput(r io.Reader) (Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return Input{}, fmt.Errorf("decode input: %w", err)
	}
	if err := in.Validate(); err != nil {
		return Input{}, fmt.Errorf("invalid input: %w", err)
	}
	return in, nil
}

// ReadInputFile reads a request from path.
func ReadInputFile(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, err
	}
	defer f.Close()
	return ReadInput(f)
}

type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

type SubsectionAnalysis struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Output is the result document.
type Output struct {
	Metadata           Metadata             `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
}

// Section is one selected heading with its snippet, in rank order.
type Section struct {
	Document string
	Title    string
	Page     int
	Snippet  string
}

// Build assembles the output. Ranks start at 1 in the order given. Sections
// with an empty snippet appear in extracted_sections only.
func Build(in Input, sections []Section, now time.Time) *Output {
	out := &Output{
		Metadata: Metadata{
			InputDocuments:      in.Filenames(),
			Persona:             in.Persona.Role,
			JobToBeDone:         in.JobToBeDone.Task,
			ProcessingTimestamp: now.Format(time.RFC3339),
		},
		ExtractedSections:  []ExtractedSection{},
		SubsectionAnalysis: []SubsectionAnalysis{},
	}
	for i, s := range sections {
		out.ExtractedSections = append(out.ExtractedSections, ExtractedSection{
			Document:       s.Document,
			SectionTitle:   s.Title,
			ImportanceRank: i + 1,
			PageNumber:     s.Page,
		})
		if s.Snippet == "" {
			continue
		}
		out.SubsectionAnalysis = append(out.SubsectionAnalysis, SubsectionAnalysis{
			Document:    s.Document,
			RefinedText: s.Snippet,
			PageNumber:  s.Page,
		})
	}
	return out
}

// WriteFile writes out as indented JSON. The file is replaced atomically
// and its directory is created if needed.
func WriteFile(path string, out *Output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
