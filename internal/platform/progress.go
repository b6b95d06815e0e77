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

import "github.com/pterm/pterm"

// ProgressReporter is the text-only progress surface for long-running
// set-requirements operations named in spec.md §6. It carries no
// percentage/ETA model — only a scope identifier and a human-readable
// status line, since the caller (CLI or LSP client) decides how to render
// it.
type ProgressReporter interface {
	Report(scope, message string)
}

// NoopProgressReporter discards every report; the zero-value default when
// a caller doesn't care to observe progress.
type NoopProgressReporter struct{}

func (NoopProgressReporter) Report(scope, message string) {}

// PtermProgressReporter prints one line per report via pterm, matching the
// teacher's spinner.UpdateText convention in workspace/remote.go without
// the spinner itself, since a bulk operation fanning out over many scopes
// has no single line to update in place.
type PtermProgressReporter struct{}

func (PtermProgressReporter) Report(scope, message string) {
	pterm.Info.Printfln("[%s] %s", scope, message)
}
