package run

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Slot is one of the three logical input roles the entry-removal program
// requires.
type Slot string

const (
	SlotManifest Slot = "manifest"
	SlotTemplate Slot = "template"
	SlotEntries  Slot = "entries"
)

// Params is the parameter set a caller supplies for one run. For each slot
// at most one of path/key is authoritative; when both are present the
// storage key wins unless strict validation is enabled.
type Params struct {
	ManifestPath string `yaml:"manifest_path" json:"manifest_path,omitempty"`
	ManifestKey  string `yaml:"manifest_key" json:"manifest_key,omitempty"`
	TemplatePath string `yaml:"template_path" json:"template_path,omitempty"`
	TemplateKey  string `yaml:"template_key" json:"template_key,omitempty"`
	EntriesPath  string `yaml:"entries_path" json:"entries_path,omitempty"`
	EntriesKey   string `yaml:"entries_key" json:"entries_key,omitempty"`

	// Bucket is used when bare object keys rather than full URIs are given.
	Bucket string `yaml:"s3_bucket" json:"s3_bucket,omitempty"`

	// OutputPrefix is where matched output files are relocated: an
	// s3://bucket/prefix URI, a bare key prefix (with Bucket set), or a
	// local directory. Empty leaves outputs in place.
	OutputPrefix string `yaml:"output_prefix" json:"output_prefix,omitempty"`
}

// LoadParamsFile reads a YAML parameter file.
func LoadParamsFile(path string) (Params, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read params file: %w", err)
	}
	var p Params
	if err := yaml.Unmarshal(body, &p); err != nil {
		return Params{}, fmt.Errorf("decode params file: %w", err)
	}
	p.normalize()
	return p, nil
}

func (p *Params) normalize() {
	p.ManifestPath = strings.TrimSpace(p.ManifestPath)
	p.ManifestKey = strings.TrimSpace(p.ManifestKey)
	p.TemplatePath = strings.TrimSpace(p.TemplatePath)
	p.TemplateKey = strings.TrimSpace(p.TemplateKey)
	p.EntriesPath = strings.TrimSpace(p.EntriesPath)
	p.EntriesKey = strings.TrimSpace(p.EntriesKey)
	p.Bucket = strings.TrimSpace(p.Bucket)
	p.OutputPrefix = strings.TrimSpace(p.OutputPrefix)
}

// Source returns the local path and storage key supplied for a slot.
func (p Params) Source(slot Slot) (path string, key string) {
	switch slot {
	case SlotManifest:
		return strings.TrimSpace(p.ManifestPath), strings.TrimSpace(p.ManifestKey)
	case SlotTemplate:
		return strings.TrimSpace(p.TemplatePath), strings.TrimSpace(p.TemplateKey)
	case SlotEntries:
		return strings.TrimSpace(p.EntriesPath), strings.TrimSpace(p.EntriesKey)
	default:
		return "", ""
	}
}
