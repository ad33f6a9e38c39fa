package dataset

import (
	"fmt"
	"slices"
	"strings"
)

// Registry is the read-only catalog of dataset configurations.
type Registry struct {
	configs map[string]Config
	ids     []string
}

// NewRegistry validates configs, applies defaults and indexes them by ID.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{configs: make(map[string]Config, len(configs))}
	for _, cfg := range configs {
		cfg.ID = strings.TrimSpace(cfg.ID)
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.configs[cfg.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidConfig, cfg.ID)
		}
		r.configs[cfg.ID] = cfg.withDefaults()
		r.ids = append(r.ids, cfg.ID)
	}
	slices.Sort(r.ids)
	return r, nil
}

// Get returns the configuration for id, or ErrConfigNotFound.
func (r *Registry) Get(id string) (Config, error) {
	cfg, ok := r.configs[id]
	if !ok {
		return Config{}, newError(ErrConfigNotFound, id, nil)
	}
	return cfg, nil
}

// IDs returns the configured dataset IDs in sorted order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.ids)
}

// Configs returns every configuration, sorted by ID.
func (r *Registry) Configs() []Config {
	out := make([]Config, len(r.ids))
	for i, id := range r.ids {
		out[i] = r.configs[id]
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.ids)
}
