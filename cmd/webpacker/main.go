package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/webpacker/cmd/webpacker/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Config  commands.ConfigCmd  `cmd:"" help:"Print the resolved bundler configuration"`
		Entries commands.EntriesCmd `cmd:"" help:"List discovered entry points"`
		Compile commands.CompileCmd `cmd:"" help:"Compile packs with esbuild"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("webpacker"),
		kong.Description("Assemble and compile web asset packs."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
