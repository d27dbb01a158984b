package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/webpacker/internal/config"
)

// Compiler runs esbuild for a configuration and keeps the resulting metadata and
// manifest for script lookups.
type Compiler struct {
	config   Config
	plan     *Plan
	metadata *BuildMetadata
	manifest Manifest
	mu       sync.RWMutex
}

// New creates a new compiler with the given configuration
func New(config Config) *Compiler {
	return &Compiler{
		config: config,
	}
}

// Compile builds cfg with esbuild, writes the metafile and manifest and runs compression.
func (c *Compiler) Compile(ctx context.Context, cfg config.Configuration) (Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plan, err := NewPlan(cfg, c.config)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(plan.Inputs))
	for _, name := range plan.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Info().Strs("entrypoints", names).Str("outdir", plan.Options.Outdir).Msg("Building assets")

	result := api.Build(plan.Options)

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			ev := log.Error().Str("error", msg.Text)
			if msg.Location != nil {
				ev = ev.Str("file", msg.Location.File).Int("line", msg.Location.Line)
			}
			ev.Msg("Build error")
		}
		return nil, ErrBuildFailed
	}
	for _, msg := range result.Warnings {
		log.Warn().Str("warning", msg.Text).Msg("Build warning")
	}

	// Write metafile
	metafilePath := filepath.Join(plan.Options.Outdir, c.config.MetafileName)
	if err := os.WriteFile(metafilePath, []byte(result.Metafile), 0600); err != nil {
		return nil, err
	}

	// Parse and cache metadata
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(result.Metafile), &metadata); err != nil {
		return nil, err
	}

	for output := range metadata.Outputs {
		log.Info().Str("file", output).Msg("Built file")
	}

	manifest := BuildManifest(&metadata, plan, c.config.WorkingDir)

	if plan.Manifest != nil && plan.Manifest.WriteToFileEmit {
		if err := manifest.Write(filepath.Join(plan.Options.Outdir, plan.Manifest.FileName)); err != nil {
			return nil, err
		}
	}

	if plan.Compression != nil {
		if err := c.compressOutputs(&metadata, plan.Compression); err != nil {
			return nil, err
		}
	}

	c.plan = plan
	c.metadata = &metadata
	c.manifest = manifest
	return manifest, nil
}

// Manifest returns the manifest of the last successful build.
func (c *Compiler) Manifest() (Manifest, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.manifest == nil {
		return nil, ErrNotBuilt
	}
	out := make(Manifest, len(c.manifest))
	for k, v := range c.manifest {
		out[k] = v
	}
	return out, nil
}

// LoadScripts returns the ordered public paths of every script the named entry needs,
// the entry itself first followed by the chunks it imports.
func (c *Compiler) LoadScripts(name string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.metadata == nil {
		return nil, ErrNotBuilt
	}

	scripts := []string{}
	visited := make(map[string]bool)

	// Find the output file for this entrypoint
	for outputPath, info := range c.metadata.Outputs {
		if !strings.HasSuffix(outputPath, ".js") || info.EntryPoint == "" {
			continue
		}
		if entry, _ := c.plan.EntryName(c.absolute(info.EntryPoint)); entry != name {
			continue
		}
		scripts = append(scripts, c.publicURL(outputPath))
		visited[outputPath] = true
		c.addDependencies(info, &scripts, visited)
		return scripts, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, name)
}

func (c *Compiler) addDependencies(output OutputInfo, scripts *[]string, visited map[string]bool) {
	for _, imp := range output.Imports {
		if imp.External || visited[imp.Path] {
			continue
		}
		visited[imp.Path] = true
		*scripts = append(*scripts, c.publicURL(imp.Path))

		if chunkInfo, exists := c.metadata.Outputs[imp.Path]; exists {
			c.addDependencies(chunkInfo, scripts, visited)
		}
	}
}

func (c *Compiler) absolute(p string) string {
	return absolute(c.config.WorkingDir, p)
}

func (c *Compiler) publicURL(outputPath string) string {
	return publicURL(c.plan, c.config.WorkingDir, outputPath)
}

func (c *Compiler) compressOutputs(metadata *BuildMetadata, opts *CompressionOptions) error {
	for output := range metadata.Outputs {
		if !matchesExtension(output, opts.Extensions) {
			continue
		}
		written, err := CompressFile(c.absolute(output), opts.Algorithms)
		if err != nil {
			return err
		}
		log.Debug().Str("file", output).Strs("compressed", written).Msg("Compressed file")
	}
	return nil
}

func absolute(workingDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(workingDir, filepath.FromSlash(p))
}

func publicURL(plan *Plan, workingDir, outputPath string) string {
	rel, err := filepath.Rel(plan.Options.Outdir, absolute(workingDir, outputPath))
	if err != nil {
		rel = filepath.Base(outputPath)
	}
	publicPath := plan.Options.PublicPath
	if plan.Manifest != nil && plan.Manifest.PublicPath != "" {
		publicPath = plan.Manifest.PublicPath
	}
	return publicPath + filepath.ToSlash(rel)
}

func matchesExtension(p string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}
