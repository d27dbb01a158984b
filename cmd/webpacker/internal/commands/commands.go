package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/webpacker/internal/environment"
	"github.com/wolfeidau/webpacker/internal/logger"
	"github.com/wolfeidau/webpacker/internal/settings"
)

type Globals struct {
	Debug   bool
	Version string
}

// SettingsFlags locate the settings file and select the environment section.
type SettingsFlags struct {
	Settings string `help:"path to the settings file" default:"config/webpacker.yml" env:"WEBPACKER_CONFIG"`
	Env      string `help:"environment section to load" default:"development" env:"NODE_ENV"`
	Root     string `help:"project root relative paths are resolved against" default:"." env:"WEBPACKER_ROOT" type:"path"`

	// Environment snapshot, read from the process when nil
	Environ map[string]string `kong:"-"`
	// Output writer, os.Stdout when nil
	Out io.Writer `kong:"-"`
}

func (f *SettingsFlags) stdout() io.Writer {
	if f.Out == nil {
		return os.Stdout
	}
	return f.Out
}

func (f *SettingsFlags) environ() map[string]string {
	if f.Environ == nil {
		f.Environ = env.ToMap(os.Environ())
	}
	return f.Environ
}

func (f *SettingsFlags) load(log zerolog.Logger) (*settings.Settings, error) {
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	path := f.Settings
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("settings", path).Msg("Settings file not found, using defaults")
		path = ""
	}

	s, err := settings.Load(path, f.Env, root, f.environ())
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	log.Debug().
		Str("environment", s.Environment).
		Str("source_path", s.SourcePath).
		Strs("extensions", s.Extensions).
		Msg("Loaded settings")

	return s, nil
}

// newEnvironment loads settings and assembles the builder, adding the compression plugin
// when the settings ask for precompressed output.
func (f *SettingsFlags) newEnvironment(globals *Globals) (*environment.Environment, *settings.Settings, error) {
	log := logger.Setup(globals.Debug)

	s, err := f.load(log)
	if err != nil {
		return nil, nil, err
	}

	opts := environment.FromSettings(s, f.environ())
	opts.Logger = log

	builder, err := environment.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create environment: %w", err)
	}

	if s.ShouldCompress() {
		if err := builder.AddPlugin(environment.CompressionPlugin([]string{"gzip", "zstd"}, []string{".js", ".css", ".svg", ".map"})); err != nil {
			return nil, nil, err
		}
	}

	return builder, s, nil
}
