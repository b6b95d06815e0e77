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

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"bennypowers.dev/specresolve/config"
	"bennypowers.dev/specresolve/graph"
	"bennypowers.dev/specresolve/internal/platform"
	"bennypowers.dev/specresolve/npmres"
	"bennypowers.dev/specresolve/pkgjson"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <specifier>",
	Short: "Resolve a single module specifier through one scope",
	Long: `Resolves specifier the way the Graph Resolver would during a single
LSP request: graph-imports override, registry/package-manager short
references, scheme URL redirects, workspace rewrites, then relative
resolution against --referrer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		referrer, err := cmd.Flags().GetString("referrer")
		if err != nil {
			return err
		}
		configPath, err := cmd.Flags().GetString("scope-config")
		if err != nil {
			return err
		}

		resolver, err := buildGraphResolver(configPath)
		if err != nil {
			return fmt.Errorf("resolve: %w", err)
		}

		resolved, err := resolver.Resolve(args[0], referrer, npmres.ModeTypes)
		if err != nil {
			if errors.Is(err, npmres.ErrNeedsCache) {
				fmt.Fprintln(os.Stderr, "specresolve: package not cached; run `specresolve cache` first")
			}
			return err
		}
		fmt.Println(resolved)
		return nil
	},
}

// buildGraphResolver wires one Graph Resolver from an optional scope
// config file. The managed package-manager variant is used unless the
// config sets byonm, so it is also the default when no config is given.
// No registry or redirect resolver is wired: registry references fail as
// unresolved and scheme URLs are returned without redirect probing.
func buildGraphResolver(configPath string) (*graph.Resolver, error) {
	fs := platform.NewOSFileSystem()
	pkgjsonResolver := pkgjson.New(fs)

	var scope config.Scope
	if configPath != "" {
		loaded, err := config.Load(fs, configPath)
		if err != nil {
			return nil, err
		}
		scope = *loaded
	}

	var npmResolver npmres.Resolver
	if scope.Byonm {
		npmResolver = npmres.NewBringYourOwn(pkgjsonResolver, scope.NodeModulesDir)
	} else {
		cacheDir := filepath.Join(xdg.CacheHome, "specresolve", "npm")
		npmResolver = npmres.NewManaged(cacheDir, npmres.CacheSettingOnly, npmres.SnapshotSpecified, npmres.NewCDNPopulator(cacheDir))
	}

	features := graph.WorkspaceFeatures{
		BareNodeBuiltins: scope.HasUnstable("bare-node-builtins"),
	}

	return graph.New(nil, npmResolver, nil, pkgjsonResolver, pkgjson.NewDepIndex(), fs, features), nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("referrer", "", "referrer specifier the resolution is relative to")
	resolveCmd.Flags().String("scope-config", "", "path to a scope config YAML file (spec.md §6)")
}
