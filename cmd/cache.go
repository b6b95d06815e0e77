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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"bennypowers.dev/specresolve/npmres"
)

// cacheCmd performs the explicit "cache" action (spec.md §7): populating
// the managed package-manager variant's cache. The resolver itself never
// does this implicitly; CacheSettingOnly forbids a network fetch during
// ordinary resolution and reports ErrNeedsCache instead.
var cacheCmd = &cobra.Command{
	Use:   "cache <name@version>...",
	Short: "Populate the managed package-manager cache",
	Long: `Fetches one or more npm-style package versions into the managed
resolver's cache directory, the only path by which that cache is ever
populated. Resolution during normal operation never triggers a fetch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheDir := filepath.Join(xdg.CacheHome, "specresolve", "npm")
		populator := npmres.NewCDNPopulator(cacheDir)

		for _, arg := range args {
			name, version, err := splitNameVersion(arg)
			if err != nil {
				return err
			}
			pterm.Info.Printf("Caching %s@%s\n", name, version)
			dir, err := populator.Populate(name, version)
			if err != nil {
				return fmt.Errorf("cache: %s@%s: %w", name, version, err)
			}
			pterm.Success.Printf("Cached %s@%s -> %s\n", name, version, dir)
		}
		return nil
	},
}

func splitNameVersion(arg string) (name, version string, err error) {
	at := strings.LastIndex(arg, "@")
	if at <= 0 {
		return "", "", fmt.Errorf("cache: %q must be in name@version form", arg)
	}
	return arg[:at], arg[at+1:], nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}
