package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
)

// BuildManifest maps each entry to the public URLs of its compiled script and stylesheet.
func BuildManifest(metadata *BuildMetadata, plan *Plan, workingDir string) Manifest {
	manifest := Manifest{}
	for outputPath, info := range metadata.Outputs {
		if info.EntryPoint == "" {
			continue
		}
		name, ok := plan.EntryName(absolute(workingDir, info.EntryPoint))
		if !ok {
			continue
		}

		ext := path.Ext(outputPath)
		if ext == ".map" {
			continue
		}
		manifest[name+ext] = publicURL(plan, workingDir, outputPath)

		if info.CSSBundle != "" {
			manifest[name+".css"] = publicURL(plan, workingDir, info.CSSBundle)
		}
	}
	return manifest
}

// Write stores the manifest as indented JSON.
func (m Manifest) Write(p string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, append(data, '\n'), 0600)
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(p string) (Manifest, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", p, err)
	}
	return m, nil
}
