// Package cli provides the command-line interface for the crawlee application.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wpitallo/crawlee/internal/app"
)

// ctxKey is used for storing the application in cobra command contexts
type ctxKey string

const appKey ctxKey = "app"

// SetApp stores the Application in the command's context so RunE functions
// can retrieve it with GetApp.
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetApp retrieves the Application placed in the command's context by the
// root command's PersistentPreRunE. Returns nil when initialization was
// skipped or failed.
func GetApp(cmd *cobra.Command) *app.Application {
	if cmd == nil {
		return nil
	}
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(appKey).(*app.Application)
	return a
}
