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

package platform

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// HTTPCache provides RFC 7234 compliant HTTP caching, wrapping
// gregjones/httpcache the same way the teacher's workspace.HTTPCache does.
// It implements registry.Cache directly (a bare Fetch(url) ([]byte, error)
// method), and its HeaderProvider method has the redirect.HeaderProvider
// signature.
type HTTPCache struct {
	client *http.Client
}

// NewHTTPCache creates an HTTP cache backed by a disk cache at cacheDir.
func NewHTTPCache(cacheDir string) *HTTPCache {
	transport := httpcache.NewTransport(diskcache.New(cacheDir))
	return &HTTPCache{client: transport.Client()}
}

// Fetch retrieves content from url, using the disk cache when the response
// is still fresh per RFC 7234 headers.
func (c *HTTPCache) Fetch(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// HeaderProvider implements redirect.HeaderProvider: a HEAD request against
// url, following no redirects itself so the 3xx hop (if any) is visible to
// the caller exactly once.
func (c *HTTPCache) HeaderProvider(url string) (http.Header, bool) {
	client := &http.Client{
		Transport: c.client.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Head(url)
	if err != nil {
		return nil, false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.Header, true
}
