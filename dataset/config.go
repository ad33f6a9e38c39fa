package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExpertRole = "You are a knowledgeable assistant"
	DefaultDomain     = "the provided information"
)

// Config describes one dataset. It is immutable once loaded into a Registry.
type Config struct {
	ID         string `yaml:"-" json:"id"`
	Name       string `yaml:"name" json:"name"`
	SourcePath string `yaml:"file" json:"file"`
	ExpertRole string `yaml:"expert_role" json:"expertRole"`
	Domain     string `yaml:"domain" json:"domain"`
}

// withDefaults fills in the optional fields.
func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = c.ID
	}
	if strings.TrimSpace(c.ExpertRole) == "" {
		c.ExpertRole = DefaultExpertRole
	}
	if strings.TrimSpace(c.Domain) == "" {
		c.Domain = DefaultDomain
	}
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.ID, "/ ") {
		return fmt.Errorf("%w: id %q must not contain slashes or spaces", ErrInvalidConfig, c.ID)
	}
	if strings.TrimSpace(c.SourcePath) == "" {
		return fmt.Errorf("%w: dataset %q has no file", ErrInvalidConfig, c.ID)
	}
	return nil
}

// DefaultConfigs returns the built-in catalog. Source paths are relative to
// the working directory.
func DefaultConfigs() []Config {
	return []Config{
		{
			ID:         "sherlock",
			Name:       "Sherlock Holmes QA",
			SourcePath: "data/a_study_in_scarlet.txt",
			ExpertRole: "You are an expert on Sherlock Holmes stories",
			Domain:     "the story",
		},
		{
			ID:         "medical",
			Name:       "FDA Drug Approvals QA",
			SourcePath: "data/medical_textbook.txt",
			ExpertRole: "You are a pharmaceutical expert specializing in recent FDA drug approvals",
			Domain:     "recent FDA drug approval data (2023-2024)",
		},
	}
}

type catalogFile struct {
	Datasets map[string]Config `yaml:"datasets"`
}

// LoadConfigs reads a YAML catalog of the form
//
//	datasets:
//	  sherlock:
//	    name: Sherlock Holmes QA
//	    file: data/a_study_in_scarlet.txt
//	    expert_role: You are an expert on Sherlock Holmes stories
//	    domain: the story
//
// Relative file paths are resolved against the catalog's directory.
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset catalog: %w", err)
	}
	return ParseConfigs(data, filepath.Dir(path))
}

// ParseConfigs parses a YAML catalog. Relative file paths are joined to baseDir
// unless baseDir is empty.
func ParseConfigs(data []byte, baseDir string) ([]Config, error) {
	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(catalog.Datasets) == 0 {
		return nil, fmt.Errorf("%w: catalog defines no datasets", ErrInvalidConfig)
	}

	configs := make([]Config, 0, len(catalog.Datasets))
	for id, cfg := range catalog.Datasets {
		cfg.ID = id
		if baseDir != "" && cfg.SourcePath != "" && !filepath.IsAbs(cfg.SourcePath) {
			cfg.SourcePath = filepath.Join(baseDir, cfg.SourcePath)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
