package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadManifest reads an app manifest file. Manifests are JSON or YAML;
// JSON is tried first since valid JSON is also valid YAML and the stricter
// parse gives better error positions for .json files.
func loadManifest(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var manifest map[string]any

	if jsonErr := json.Unmarshal(data, &manifest); jsonErr == nil {
		return manifest, nil
	}

	if yamlErr := yaml.Unmarshal(data, &manifest); yamlErr != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, yamlErr)
	}

	return manifest, nil
}
