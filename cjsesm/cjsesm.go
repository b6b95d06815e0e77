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

// Package cjsesm implements the L1 CJS/ESM Tracker: classifying an imported
// file as legacy-CommonJS or modern-ESM via a layered decision.
package cjsesm

import (
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// MediaType mirrors the media-type classification a referrer carries,
// narrowed to what the tracker needs to distinguish TSX from plain
// TS/JS source.
type MediaType int

const (
	MediaTypeJavaScript MediaType = iota
	MediaTypeTypeScript
	MediaTypeJSX
	MediaTypeTSX
)

// languages holds the grammars this tracker needs: only the TypeScript and
// TSX grammars are retained from the teacher's multi-grammar query engine,
// since no other framework grammar bears on module-kind classification.
var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTypescript()),
	ts.NewLanguage(tsTypescript.LanguageTSX()),
}

var typescriptParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(languages.typescript); err != nil {
			panic("cjsesm: failed to set TypeScript language: " + err.Error())
		}
		return parser
	},
}

var tsxParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(languages.tsx); err != nil {
			panic("cjsesm: failed to set TSX language: " + err.Error())
		}
		return parser
	},
}

// RetrieveTypeScriptParser returns a pooled TypeScript/TSX parser, chosen by
// mediaType. Always call PutTypeScriptParser when done.
func RetrieveTypeScriptParser(mediaType MediaType) *ts.Parser {
	if mediaType == MediaTypeTSX || mediaType == MediaTypeJSX {
		return tsxParserPool.Get().(*ts.Parser)
	}
	return typescriptParserPool.Get().(*ts.Parser)
}

// PutTypeScriptParser returns a parser to its pool.
func PutTypeScriptParser(mediaType MediaType, parser *ts.Parser) {
	parser.Reset()
	if mediaType == MediaTypeTSX || mediaType == MediaTypeJSX {
		tsxParserPool.Put(parser)
		return
	}
	typescriptParserPool.Put(parser)
}

// KnownKind is explicit prior knowledge about a module, recorded by package
// inspection (e.g. a package.json "type" field, or a ".cjs"/".mjs"
// extension).
type KnownKind int

const (
	KindUnknown KnownKind = iota
	KindCJS
	KindESM
)

// KnownKindSource supplies explicit prior knowledge, if any, for a
// (url, mediaType) pair.
type KnownKindSource interface {
	GetKnownKind(url string, mediaType MediaType) KnownKind
}

// MaybeCJSSource supplies the heuristic fallback predicate used when no
// parsed source is available.
type MaybeCJSSource interface {
	IsMaybeCJS(url string, mediaType MediaType) (bool, error)
}

// Tracker is the L1 CJS/ESM Tracker.
type Tracker struct {
	known    KnownKindSource
	fallback MaybeCJSSource
}

// New constructs a Tracker. Either collaborator may be nil, in which case
// that decision step is skipped.
func New(known KnownKindSource, fallback MaybeCJSSource) *Tracker {
	return &Tracker{known: known, fallback: fallback}
}

// IsCJS implements the decision order of spec.md §4.6:
//  1. explicit prior knowledge wins outright;
//  2. else, if parsedSource is non-empty, compute is_script from it and
//     combine with media type;
//  3. else ask the maybe-cjs heuristic;
//  4. on any failure, default to false (treat as ESM).
func (t *Tracker) IsCJS(url string, mediaType MediaType, parsedSource []byte) bool {
	if t.known != nil {
		if kind := t.known.GetKnownKind(url, mediaType); kind != KindUnknown {
			return kind == KindCJS
		}
	}

	if len(parsedSource) > 0 {
		isScript := computeIsScript(parsedSource, mediaType)
		return isCJSWithKnownIsScript(mediaType, isScript)
	}

	if t.fallback != nil {
		if maybe, err := t.fallback.IsMaybeCJS(url, mediaType); err == nil {
			return maybe
		}
	}

	return false
}

// computeIsScript parses source with the tree-sitter TypeScript grammar and
// reports whether it contains no ESM import/export syntax, i.e. it reads
// like a classic script rather than a module. Grounded on the teacher's
// tree-sitter pooling (queries.RetrieveTypeScriptParser) generalized to a
// pure classification query instead of the teacher's full declaration walk.
func computeIsScript(source []byte, mediaType MediaType) bool {
	parser := RetrieveTypeScriptParser(mediaType)
	defer PutTypeScriptParser(mediaType, parser)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return !containsESMSyntax(source)
	}
	defer tree.Close()

	root := tree.RootNode()
	return !nodeContainsESMSyntax(root, source)
}

func nodeContainsESMSyntax(node *ts.Node, source []byte) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "import_statement", "export_statement", "export_clause":
		return true
	}
	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		if nodeContainsESMSyntax(node.Child(uint(i)), source) {
			return true
		}
	}
	return false
}

// containsESMSyntax is a regex-free fallback used only when tree-sitter
// parsing itself fails, mirroring the layered-heuristic spirit of the
// module-kind decision without depending on the parser succeeding.
func containsESMSyntax(source []byte) bool {
	text := string(source)
	return strings.Contains(text, "export ") ||
		strings.Contains(text, "export{") ||
		strings.Contains(text, "import ") ||
		strings.Contains(text, "import{")
}

// isCJSWithKnownIsScript asks the underlying classifier with the is_script
// hint: a file that parses as a plain script (no ESM syntax) and is not JSX
// media is treated as CommonJS.
func isCJSWithKnownIsScript(mediaType MediaType, isScript bool) bool {
	if mediaType == MediaTypeJSX || mediaType == MediaTypeTSX {
		return false
	}
	return isScript
}
