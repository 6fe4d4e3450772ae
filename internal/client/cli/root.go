package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s) ", a.userName)
}

// Root runs the interactive loop until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintf(a.out, "authctl connected to %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader)
}
