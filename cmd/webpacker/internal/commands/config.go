package commands

import (
	"context"
	"fmt"
)

// ConfigCmd prints the configuration handed to the bundler.
type ConfigCmd struct {
	SettingsFlags `embed:""`
	Format        string `help:"output format" default:"json" enum:"json,yaml"`
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	env, _, err := c.newEnvironment(globals)
	if err != nil {
		return err
	}

	cfg := env.Finalize()

	var out []byte
	switch c.Format {
	case "yaml":
		out, err = cfg.YAML()
	default:
		out, err = cfg.JSON()
	}
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	_, err = c.stdout().Write(out)
	return err
}
