package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/webpacker/internal/bundler"
)

// CompileCmd builds every entry with esbuild and writes the manifest.
type CompileCmd struct {
	SettingsFlags `embed:""`
}

func (c *CompileCmd) Run(ctx context.Context, globals *Globals) error {
	env, s, err := c.newEnvironment(globals)
	if err != nil {
		return err
	}

	if len(env.Entries()) == 0 {
		return fmt.Errorf("nothing to compile in %s", s.SourceRoot())
	}

	bc := bundler.DefaultConfig(s.Root)
	bc.Minify = s.ShouldMinify()
	bc.SourceMap = s.ShouldSourceMap()

	compiler := bundler.New(bc)
	manifest, err := compiler.Compile(ctx, env.Finalize())
	if err != nil {
		return fmt.Errorf("failed to compile packs: %w", err)
	}

	keys := make([]string, 0, len(manifest))
	for k := range manifest {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.stdout(), "%s -> %s\n", k, manifest[k])
	}

	log.Info().Int("files", len(manifest)).Str("environment", s.Environment).Msg("Compilation complete")

	return nil
}
