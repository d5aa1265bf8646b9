// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scripter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// bundleVersion is the export format version.
const bundleVersion = 1

type bundle struct {
	Version int      `yaml:"version"`
	Scripts []Script `yaml:"scripts"`
}

// Export writes scripts as a YAML bundle.
func Export(w io.Writer, scripts []Script) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(bundle{Version: bundleVersion, Scripts: scripts}); err != nil {
		return fmt.Errorf("encode scripts: %w", err)
	}
	return enc.Close()
}

// Import reads a YAML bundle written by Export.
func Import(r io.Reader) ([]Script, error) {
	var b bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode scripts: %w", err)
	}
	if b.Version > bundleVersion {
		return nil, fmt.Errorf("unsupported script bundle version %d", b.Version)
	}
	return b.Scripts, nil
}
