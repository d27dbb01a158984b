package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/webpacker/internal/configerr"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. WEBPACKER_SOURCE_PATH
	EnvPrefix = "WEBPACKER_"

	defaultSection = "default"
	production     = "production"
)

// Settings describes where sources live and where compiled packs are written.
type Settings struct {
	// Directory containing the source tree (e.g. "app/javascript")
	SourcePath string `yaml:"source_path" env:"SOURCE_PATH"`
	// Directory under SourcePath holding entry files (e.g. "packs")
	SourceEntryPath string `yaml:"source_entry_path" env:"SOURCE_ENTRY_PATH"`
	// Web server document root (e.g. "public")
	PublicRootPath string `yaml:"public_root_path" env:"PUBLIC_ROOT_PATH"`
	// Directory under PublicRootPath receiving compiled packs (e.g. "packs")
	PublicOutputPath string `yaml:"public_output_path" env:"PUBLIC_OUTPUT_PATH"`
	// File extensions compiled as entries and tried during resolution
	Extensions []string `yaml:"extensions" env:"EXTENSIONS" envSeparator:","`
	// Extra module resolution directories searched after the source path
	ResolvedPaths []string `yaml:"resolved_paths" env:"RESOLVED_PATHS" envSeparator:","`
	// Optional CDN host prefixed to the public path
	AssetHost string `yaml:"asset_host" env:"ASSET_HOST"`

	Minify    *bool `yaml:"minify" env:"MINIFY"`
	SourceMap *bool `yaml:"source_map" env:"SOURCE_MAP"`
	Compress  *bool `yaml:"compress" env:"COMPRESS"`

	// Root that relative paths are resolved against, not read from the file
	Root string `yaml:"-"`
	// Environment name the settings were loaded for
	Environment string `yaml:"-"`
}

// Defaults returns the built-in settings for the named environment.
func Defaults(environment string) Settings {
	isProduction := environment == production
	return Settings{
		SourcePath:       "app/javascript",
		SourceEntryPath:  "packs",
		PublicRootPath:   "public",
		PublicOutputPath: "packs",
		Extensions:       []string{".js", ".jsx", ".ts", ".tsx", ".css"},
		Minify:           ptr(isProduction),
		SourceMap:        ptr(true),
		Compress:         ptr(isProduction),
		Environment:      environment,
	}
}

// Load reads the YAML file at path and returns the settings for the named environment.
//
// Values are layered: the environment section, then the "default" section, then the
// built-in defaults, and finally WEBPACKER_* overrides taken from environ. An empty path
// skips the file. ASSET_HOST in environ is used when no asset host is configured.
func Load(path, environment, root string, environ map[string]string) (*Settings, error) {
	s := Settings{}
	if environ == nil {
		environ = map[string]string{}
	}

	if path != "" {
		sections, err := readSections(path)
		if err != nil {
			return nil, err
		}

		section, ok := sections[environment]
		if !ok {
			log.Warn().Str("settings", path).Str("environment", environment).Msg("No settings section for environment, using defaults")
		}
		s = section
		if err := mergo.Merge(&s, sections[defaultSection], mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("failed to merge default settings: %w", err)
		}
	}

	if err := mergo.Merge(&s, Defaults(environment), mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("failed to merge built-in settings: %w", err)
	}

	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return nil, fmt.Errorf("%w: failed to parse environment overrides: %v", configerr.ErrConfiguration, err)
	}

	if s.AssetHost == "" {
		s.AssetHost = environ["ASSET_HOST"]
	}

	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return nil, err
		}
	}
	s.Root = root
	s.Environment = environment

	return &s, s.Validate()
}

func readSections(path string) (map[string]Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var sections map[string]Settings
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", configerr.ErrConfiguration, path, err)
	}
	return sections, nil
}

// Validate checks the settings can produce a build configuration.
func (s *Settings) Validate() error {
	var errs []error
	if s.SourcePath == "" {
		errs = append(errs, errors.New("source_path is required"))
	}
	if len(s.Extensions) == 0 {
		errs = append(errs, errors.New("at least one extension must be configured to compile"))
	}
	if s.PublicOutputPath == "" {
		errs = append(errs, errors.New("public_output_path is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", configerr.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// SourceRoot returns the absolute source path.
func (s *Settings) SourceRoot() string {
	return s.resolve(s.SourcePath)
}

// OutputPath returns the absolute directory compiled packs are written to.
func (s *Settings) OutputPath() string {
	return filepath.Join(s.resolve(s.PublicRootPath), s.PublicOutputPath)
}

// PublicPath returns the URL prefix compiled packs are served from.
func (s *Settings) PublicPath() string {
	host := strings.TrimRight(s.AssetHost, "/")
	out := strings.Trim(filepath.ToSlash(s.PublicOutputPath), "/")
	return host + "/" + out + "/"
}

// ShouldMinify reports whether output is minified.
func (s *Settings) ShouldMinify() bool { return deref(s.Minify) }

// ShouldSourceMap reports whether source maps are emitted.
func (s *Settings) ShouldSourceMap() bool { return deref(s.SourceMap) }

// ShouldCompress reports whether precompressed copies of outputs are written.
func (s *Settings) ShouldCompress() bool { return deref(s.Compress) }

func (s *Settings) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

func ptr[T any](v T) *T {
	return &v
}

func deref(b *bool) bool {
	return b != nil && *b
}
