package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Collection names one saved collection to scrape
type Collection struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

type collectionsFile struct {
	Collections []Collection `yaml:"collections" json:"collections"`
}

// LoadCollections reads a collections file. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON:
//
//	{"collections": [{"id": "1789...", "name": "Food"}]}
func LoadCollections(path string) ([]Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections file: %w", err)
	}

	var file collectionsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse collections file %s: %w", path, err)
	}

	if err := ValidateCollections(file.Collections); err != nil {
		return nil, err
	}
	return file.Collections, nil
}

// ValidateCollections rejects an empty list, blank ids and repeated ids
func ValidateCollections(cols []Collection) error {
	if len(cols) == 0 {
		return ErrNoCollections
	}

	var errs []error
	seen := make(map[string]bool, len(cols))
	for i, col := range cols {
		id := strings.TrimSpace(col.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("collection %d: id is required", i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("collection %d: duplicate id %s", i, id))
		}
		seen[id] = true
	}
	return errors.Join(errs...)
}

// ResolveCollections returns the collections the driver should process:
// inline items from the config file take precedence over the collections
// file.
func (c *Config) ResolveCollections() ([]Collection, error) {
	if len(c.Collections.Items) > 0 {
		if err := ValidateCollections(c.Collections.Items); err != nil {
			return nil, err
		}
		return c.Collections.Items, nil
	}
	if c.Collections.File == "" {
		return nil, ErrNoCollections
	}
	return LoadCollections(c.Collections.File)
}
