package model

import (
	"path"
	"strings"
)

// HandlerRef identifies an exported symbol inside a handler source file.
// The manifest spells it as "path/to/file.exportedName" with the file
// extension omitted.
type HandlerRef struct {
	// File is the handler path relative to the project folder, without extension.
	File string
	// Symbol is the exported function name.
	Symbol string
}

// ParseHandlerRef splits a manifest handler string at its last dot.
func ParseHandlerRef(ref string) HandlerRef {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "./")
	i := strings.LastIndex(ref, ".")
	if i < 0 || strings.Contains(ref[i:], "/") {
		return HandlerRef{File: ref}
	}
	return HandlerRef{File: ref[:i], Symbol: ref[i+1:]}
}

func (h HandlerRef) String() string {
	if h.Symbol == "" {
		return h.File
	}
	return h.File + "." + h.Symbol
}

// IsZero reports whether the manifest entry had no handler at all.
func (h HandlerRef) IsZero() bool { return h.File == "" && h.Symbol == "" }

// OperationName is the final path segment of the handler reference, so
// "handlers/users.get" becomes "users.get".
func (h HandlerRef) OperationName() string {
	return path.Base(h.String())
}

// RouteBinding is one HTTP trigger of a function.
type RouteBinding struct {
	// Method is upper-case; "ANY" covers every method.
	Method string
	Path   string
}

// FunctionDefinition is one HTTP-triggered manifest entry.
type FunctionDefinition struct {
	Name    string
	Handler HandlerRef
	Routes  []RouteBinding
}

// AnnotationFragment is the structured data parsed out of an @apidoc block.
// Conventional keys are description, success, failure and authorization;
// any other key is passed through to the operation.
type AnnotationFragment map[string]any

// HandlerDocIndex maps exported symbol names of one file to their fragment.
type HandlerDocIndex map[string]AnnotationFragment

// DocIndex maps handler file identity (HandlerRef.File) to its index.
type DocIndex map[string]HandlerDocIndex

// Lookup resolves the fragment for a handler, or nil when undocumented.
func (d DocIndex) Lookup(ref HandlerRef) AnnotationFragment {
	if d == nil {
		return nil
	}
	return d[ref.File][ref.Symbol]
}

// HandlerFiles returns the distinct handler files referenced by defs, in
// first-seen order.
func HandlerFiles(defs []FunctionDefinition) []string {
	seen := make(map[string]bool)
	var files []string
	for _, def := range defs {
		if def.Handler.File == "" || seen[def.Handler.File] {
			continue
		}
		seen[def.Handler.File] = true
		files = append(files, def.Handler.File)
	}
	return files
}
