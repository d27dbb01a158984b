package environment

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/wolfeidau/webpacker/internal/config"
	"github.com/wolfeidau/webpacker/internal/configerr"
	"github.com/wolfeidau/webpacker/internal/entries"
	"github.com/wolfeidau/webpacker/internal/merge"
	"github.com/wolfeidau/webpacker/internal/settings"
)

const (
	// OutputFilename names emitted entry bundles
	OutputFilename = "[name]-[chunkhash].js"
	// ChunkFilename names emitted shared chunks
	ChunkFilename = "[name]-[chunkhash].chunk.js"
	// StylesheetFilename names extracted stylesheets
	StylesheetFilename = "[name]-[contenthash].css"

	nodeModules = "node_modules"
)

// Options configures a new Environment.
type Options struct {
	// Source tree root, module resolution starts here
	SourceRoot string
	// Directory under SourceRoot scanned for entries
	EntryPath string
	// Extensions compiled as entries
	Extensions []string
	// Extra module resolution directories, searched after node_modules
	ResolvedPaths []string
	// Absolute directory output is written to
	OutputPath string
	// URL prefix output is served from
	PublicPath string
	// Snapshot of the variables injected into the build
	Env map[string]string
	// Rule registry producing the default module rules
	Loaders []LoaderFactory
	// Manifest writer plugin, defaults to ManifestPlugin(PublicPath, true)
	ManifestPlugin Plugin
	// Merge policy used by MergeConfig, defaults to merge.DefaultPolicy()
	Policy merge.Policy
	// Filesystem scanned for entries, defaults to the OS filesystem
	Fs     afero.Fs
	Logger zerolog.Logger
}

// FromSettings derives builder options from loaded settings and an environment snapshot.
func FromSettings(s *settings.Settings, env map[string]string) Options {
	return Options{
		SourceRoot:    s.SourceRoot(),
		EntryPath:     s.SourceEntryPath,
		Extensions:    s.Extensions,
		ResolvedPaths: s.ResolvedPaths,
		OutputPath:    s.OutputPath(),
		PublicPath:    s.PublicPath(),
		Env:           env,
		Loaders:       DefaultLoaders(),
	}
}

type state int

const (
	ready state = iota
	finalized
)

// Environment assembles a bundler configuration and lets callers extend it.
//
// Entries are discovered once in New. Every mutation merges a fragment into the current
// configuration and replaces it. An Environment is not safe for concurrent use.
type Environment struct {
	config  config.Configuration
	policy  merge.Policy
	entries entries.Map
	state   state
	logger  zerolog.Logger
}

// New discovers entries and assembles the default configuration.
func New(opts Options) (*Environment, error) {
	policy := opts.Policy
	if policy == nil {
		policy = merge.DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	sourceRoot, err := filepath.Abs(opts.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve source root: %v", configerr.ErrDiscovery, err)
	}

	discovered, err := entries.NewDiscoverer(opts.Fs, opts.Logger).Discover(sourceRoot, opts.EntryPath, opts.Extensions)
	if err != nil {
		return nil, err
	}

	e := &Environment{
		policy:  policy,
		entries: discovered,
		logger:  opts.Logger,
	}
	e.config = defaultConfig(sourceRoot, discovered, opts)

	opts.Logger.Debug().
		Int("entries", len(discovered)).
		Int("rules", len(opts.Loaders)).
		Str("source_root", sourceRoot).
		Msg("Environment ready")

	return e, nil
}

func defaultConfig(sourceRoot string, discovered entries.Map, opts Options) config.Configuration {
	entry := make(map[string]any, len(discovered))
	for name, path := range discovered {
		entry[name] = path
	}

	rules := make([]any, 0, len(opts.Loaders))
	for _, factory := range opts.Loaders {
		rules = append(rules, map[string]any(factory()))
	}

	manifest := opts.ManifestPlugin
	if manifest == nil {
		manifest = ManifestPlugin(opts.PublicPath, true)
	}
	plugins := []any{
		map[string]any(EnvironmentPlugin(opts.Env)),
		map[string]any(ExtractTextPlugin(StylesheetFilename)),
		map[string]any(manifest),
	}

	modules := []any{sourceRoot, nodeModules}
	for _, p := range opts.ResolvedPaths {
		modules = append(modules, p)
	}

	extensions := make([]any, len(opts.Extensions))
	for i, ext := range opts.Extensions {
		extensions[i] = ext
	}

	return config.Configuration{
		"entry": entry,
		"output": map[string]any{
			"filename":      OutputFilename,
			"chunkFilename": ChunkFilename,
			"path":          opts.OutputPath,
			"publicPath":    opts.PublicPath,
		},
		"module": map[string]any{
			"rules": rules,
		},
		"plugins": plugins,
		"resolve": map[string]any{
			"extensions": extensions,
			"modules":    modules,
		},
		"resolveLoader": map[string]any{
			"modules": []any{nodeModules},
		},
	}.Clone()
}

// AddLoader appends one or more transformation rules to module.rules.
func (e *Environment) AddLoader(rules ...Rule) error {
	seq := make([]any, len(rules))
	for i, r := range rules {
		seq[i] = map[string]any(r)
	}
	_, err := e.apply(config.Configuration{
		"module": map[string]any{"rules": seq},
	}, e.policy.With("module.rules", merge.Append))
	return err
}

// AddPlugin appends one or more plugins to plugins.
func (e *Environment) AddPlugin(plugins ...Plugin) error {
	seq := make([]any, len(plugins))
	for i, p := range plugins {
		seq[i] = map[string]any(p)
	}
	_, err := e.apply(config.Configuration{"plugins": seq}, e.policy.With("plugins", merge.Append))
	return err
}

// MergeConfig merges fragment using the environment's merge policy and returns the result.
func (e *Environment) MergeConfig(fragment config.Configuration) (config.Configuration, error) {
	merged, err := e.apply(fragment, e.policy)
	if err != nil {
		return nil, err
	}
	return merged.Clone(), nil
}

// ToWebpackConfig returns a snapshot of the current configuration.
func (e *Environment) ToWebpackConfig() config.Configuration {
	return e.config.Clone()
}

// Entries returns the entries discovered when the environment was created.
func (e *Environment) Entries() entries.Map {
	out := make(entries.Map, len(e.entries))
	for k, v := range e.entries {
		out[k] = v
	}
	return out
}

// Finalize rejects every later mutation with configerr.ErrLifecycle.
func (e *Environment) Finalize() config.Configuration {
	e.state = finalized
	return e.ToWebpackConfig()
}

// Finalized reports whether Finalize has been called.
func (e *Environment) Finalized() bool {
	return e.state == finalized
}

func (e *Environment) apply(fragment config.Configuration, policy merge.Policy) (config.Configuration, error) {
	if e.state == finalized {
		return nil, fmt.Errorf("%w: configuration is finalized", configerr.ErrLifecycle)
	}

	merged, err := merge.Merge(e.config, fragment, policy)
	if err != nil {
		return nil, err
	}

	e.config = merged
	return merged, nil
}
