package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
)

// EntriesCmd lists the discovered entry points.
type EntriesCmd struct {
	SettingsFlags `embed:""`
}

func (c *EntriesCmd) Run(ctx context.Context, globals *Globals) error {
	env, _, err := c.newEnvironment(globals)
	if err != nil {
		return err
	}

	entries := env.Entries()

	w := tabwriter.NewWriter(c.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH")
	for _, name := range entries.Names() {
		fmt.Fprintf(w, "%s\t%s\n", name, entries[name])
	}
	return w.Flush()
}
