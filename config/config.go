/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package config parses the external configuration surface of spec.md §6:
// scope descriptors, npmrc, and lockfile data. Parsed values are not
// validated beyond what YAML/JSONC decoding itself rejects.
package config

import (
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"bennypowers.dev/specresolve/internal/platform"
	"bennypowers.dev/specresolve/set"
)

// NpmrcConfig carries registry endpoints and scopes, the structured form of
// spec.md §6's "npmrc" configuration option.
type NpmrcConfig struct {
	Registries map[string]string `yaml:"registries" mapstructure:"registries"`
}

// Scope is the configuration descriptor the resolver recognizes, mirroring
// the teacher's CemConfig/.config/cem.yaml convention (cmd/config.CemConfig,
// workspace/local.go initConfig) but reshaped for this domain.
type Scope struct {
	ScopeRoot       string      `yaml:"scope" mapstructure:"scope"`
	Byonm           bool        `yaml:"byonm" mapstructure:"byonm"`
	NodeModulesDir  string      `yaml:"nodeModulesDir" mapstructure:"nodeModulesDir"`
	VendorDir       string      `yaml:"vendorDir" mapstructure:"vendorDir"`
	JSXImportSource string      `yaml:"jsxImportSource" mapstructure:"jsxImportSource"`
	Unstable        []string    `yaml:"unstable" mapstructure:"unstable"`
	Npmrc           NpmrcConfig `yaml:"npmrc" mapstructure:"npmrc"`
	Lockfile        string      `yaml:"lockfile" mapstructure:"lockfile"`
	SloppyImports   bool        `yaml:"sloppyImports" mapstructure:"sloppyImports"`
}

// Clone returns a deep copy, following the teacher's CemConfig.Clone
// convention so config values can be handed to a scope without aliasing
// slices or maps.
func (s Scope) Clone() Scope {
	clone := s
	clone.Unstable = slices.Clone(s.Unstable)
	if s.Npmrc.Registries != nil {
		clone.Npmrc.Registries = make(map[string]string, len(s.Npmrc.Registries))
		for k, v := range s.Npmrc.Registries {
			clone.Npmrc.Registries[k] = v
		}
	}
	return clone
}

// HasUnstable reports whether flag is opted into via the "unstable" set,
// e.g. "bare-node-builtins".
func (s Scope) HasUnstable(flag string) bool {
	return set.NewSet(s.Unstable...).Has(flag)
}

// Load reads and parses a YAML scope configuration file via the injected
// filesystem, matching the teacher's yaml.Unmarshal convention in
// workspace/local.go: initConfig.
func Load(fs platform.FileSystem, path string) (*Scope, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scope Scope
	if err := yaml.Unmarshal(data, &scope); err != nil {
		return nil, err
	}
	return &scope, nil
}

// IsPackageSpecifier reports whether spec carries one of the recognized
// synthetic scheme prefixes, generalizing the teacher's
// cmd/config.CemConfig.IsPackageSpecifier (which checked only "npm:") to
// both registry and package-manager flavors.
func IsPackageSpecifier(spec string) bool {
	return strings.HasPrefix(spec, "npm:") || strings.HasPrefix(spec, "jsr:")
}
