package plugins

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile names the manifest of a packaged term filter directory.
const ManifestFile = "trecprep-plugin.yaml"

// TermFilterManifest describes a packaged Lua term filter:
//
//	plugin:
//	  name: stem-rewrite
//	  version: 0.2.0
//	main:
//	  script: main.lua
//	  runtime: lua
type TermFilterManifest struct {
	ManifestVersion string `yaml:"manifest_version"`
	Plugin          struct {
		Name        string `yaml:"name"`
		Version     string `yaml:"version"`
		Description string `yaml:"description"`
		Author      string `yaml:"author"`
	} `yaml:"plugin"`
	Main struct {
		Script  string `yaml:"script"`
		Runtime string `yaml:"runtime"`
		MaxVMs  int    `yaml:"max_vms"`
	} `yaml:"main"`
}

// LoadTermFilter loads a term filter from path. A file is used as the
// script directly. A directory must hold a manifest naming its script;
// manifest metadata overrides the script's comment header. maxVMs wins
// over the manifest's max_vms when positive.
func LoadTermFilter(path string, maxVMs int) (*LuaTermFilter, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("term filter %s: %w", path, err)
	}
	if !info.IsDir() {
		return NewLuaTermFilter(path, maxVMs)
	}

	manifest, err := readManifest(filepath.Join(path, ManifestFile))
	if err != nil {
		return nil, err
	}
	if manifest.Main.Runtime != "" && manifest.Main.Runtime != "lua" {
		return nil, fmt.Errorf("term filter %s: unsupported runtime %q", path, manifest.Main.Runtime)
	}
	if manifest.Main.Script == "" {
		manifest.Main.Script = "main.lua"
	}
	if maxVMs <= 0 {
		maxVMs = manifest.Main.MaxVMs
	}

	lf, err := NewLuaTermFilter(filepath.Join(path, manifest.Main.Script), maxVMs)
	if err != nil {
		return nil, err
	}
	if manifest.Plugin.Name != "" {
		lf.meta.Name = manifest.Plugin.Name
	}
	if manifest.Plugin.Version != "" {
		lf.meta.Version = manifest.Plugin.Version
	}
	if manifest.Plugin.Description != "" {
		lf.meta.Description = manifest.Plugin.Description
	}
	lf.log = lf.log.With("plugin", lf.meta.Name)
	return lf, nil
}

func readManifest(path string) (*TermFilterManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var manifest TermFilterManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &manifest, nil
}
