package bundler

import (
	"errors"
	"path"
	"strings"
)

var (
	// ErrBuildFailed indicates esbuild reported errors
	ErrBuildFailed = errors.New("esbuild failed with errors")
	// ErrNoEntryPoints indicates the configuration has no entries to build
	ErrNoEntryPoints = errors.New("no entry points found")
	// ErrNotBuilt indicates metadata was requested before a build completed
	ErrNotBuilt = errors.New("assets not built yet, call Compile() first")
	// ErrUnknownEntry indicates the entry name is not part of the last build
	ErrUnknownEntry = errors.New("entrypoint not found in metadata")
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	CSSBundle  string       `json:"cssBundle"`
	Imports    []ImportInfo `json:"imports"`
	Bytes      int          `json:"bytes"`
}

type ImportInfo struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external"`
}

// Manifest maps "<entry name>.<ext>" to the public URL of the compiled file.
type Manifest map[string]string

// Lookup returns the public URL for name, e.g. "pages/home.js".
func (m Manifest) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// packExtensions are the output extensions a pack name may carry.
var packExtensions = map[string]bool{".js": true, ".mjs": true, ".cjs": true, ".css": true}

// LookupPack returns the public URL of the entry's file with the given extension,
// accepting "pages/home", "pages/home.js" and "pages/home.css" alike.
func (m Manifest) LookupPack(name, ext string) (string, bool) {
	if e := path.Ext(name); packExtensions[e] {
		name = strings.TrimSuffix(name, e)
	}
	return m.Lookup(name + ext)
}

// ManifestOptions are read from the manifest plugin descriptor.
type ManifestOptions struct {
	FileName        string
	PublicPath      string
	WriteToFileEmit bool
}

// CompressionOptions are read from the compression plugin descriptor.
type CompressionOptions struct {
	Algorithms []string
	Extensions []string
}
