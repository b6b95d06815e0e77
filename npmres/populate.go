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

package npmres

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
)

// CDNPopulator implements Populator via the same CDN-fallback-then-tarball
// chain the teacher's RemoteWorkspaceContext uses to fetch a remote
// package's manifest (workspace/remote.go: fetchFromJsdelivr/Esmsh/Unpkg,
// fetchFromNpm, extractFilesFromTarGz), generalized here to extract an
// entire package tree into the managed resolver's cache directory instead
// of just two named files. It is only ever invoked by the explicit "cache"
// action (cmd/cache.go), never by the resolver itself.
type CDNPopulator struct {
	CacheDir string
	client   *http.Client
}

// NewCDNPopulator constructs a populator rooted at cacheDir.
func NewCDNPopulator(cacheDir string) *CDNPopulator {
	return &CDNPopulator{CacheDir: cacheDir, client: http.DefaultClient}
}

var cdnBasePatterns = []string{
	"https://cdn.jsdelivr.net/npm/%s@%s/",
	"https://esm.sh/%s@%s/",
	"https://unpkg.com/%s@%s/",
}

// Populate probes package.json on each CDN fallback in turn until one
// answers, logging failures at debug level; the probe outcome does not
// change what follows. It then looks the version up in the npm registry
// metadata and downloads and extracts that tarball into name@version's
// directory beneath CacheDir. An existing directory is returned as is.
func (p *CDNPopulator) Populate(name, version string) (string, error) {
	dir := filepath.Join(p.CacheDir, packageDirName(name, version))
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}

	var lastErr error
	for _, pattern := range cdnBasePatterns {
		base := fmt.Sprintf(pattern, name, version)
		if err := p.probe(base); err != nil {
			lastErr = err
			pterm.Debug.Printf("npmres: CDN probe failed for %s: %v\n", base, err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		pterm.Debug.Println("npmres: all CDN probes failed, falling back to npm tarball")
	}

	tarballURL, err := p.tarballURL(name, version)
	if err != nil {
		return "", fmt.Errorf("npmres: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	resp, err := p.client.Get(tarballURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("npmres: tarball fetch failed: %s", resp.Status)
	}
	if err := extractTarGz(resp.Body, dir); err != nil {
		return "", err
	}
	return dir, nil
}

func (p *CDNPopulator) probe(base string) error {
	resp, err := p.client.Get(base + "package.json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}

func (p *CDNPopulator) tarballURL(name, version string) (string, error) {
	metaURL := fmt.Sprintf("https://registry.npmjs.org/%s", strings.ReplaceAll(name, "/", "%2F"))
	resp, err := p.client.Get(metaURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var meta struct {
		Versions map[string]struct {
			Dist struct{ Tarball string }
		} `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", err
	}
	v, ok := meta.Versions[version]
	if !ok {
		return "", fmt.Errorf("version %s not found for %s", version, name)
	}
	return v.Dist.Tarball, nil
}

func extractTarGz(r io.Reader, dest string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer func() { _ = gzr.Close() }()
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		// npm tarballs nest everything under a "package/" root directory.
		name := strings.TrimPrefix(hdr.Name, "package/")
		if name == "" {
			continue
		}
		target := filepath.Join(dest, name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.Create(target)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				_ = out.Close()
				return err
			}
			_ = out.Close()
		}
	}
	return nil
}

func packageDirName(name, version string) string {
	return strings.ReplaceAll(name, "/", "+") + "@" + version
}
