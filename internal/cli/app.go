package cli

// Package cli implements the pastibot command tree on top of the session client.

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pastibot/companion/internal/bootstrap"
	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/pastibot/companion/internal/service"
	"github.com/spf13/cobra"
)

// terminalNavigator reports forced screen changes on stderr.
type terminalNavigator struct {
	w io.Writer
}

func (n terminalNavigator) Navigate(_ context.Context, screen domainauth.ScreenID) {
	fmt.Fprintf(n.w, "navigate: %s (%s)\n", screen, screen.Path())
}

// startApp loads configuration, wires the client and runs the session startup
// sequence. Callers must Close the returned App.
func startApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return nil, exitError(ExitInvalidInput, "load config: %v", err)
	}
	logger := bootstrap.InitLogger(cfg)

	stderr := cmd.ErrOrStderr()
	app, err := bootstrap.BuildApp(cmd.Context(), bootstrap.AppDeps{
		Config: cfg,
		Logger: logger,
		UI: bootstrap.AppUI{
			Navigator: terminalNavigator{w: stderr},
			OpenBrowser: func(authURL string) error {
				_, err := fmt.Fprintf(stderr, "Open this URL in your browser to continue:\n  %s\n", authURL)
				return err
			},
		},
	})
	if err != nil {
		return nil, exitError(ExitFailure, "start client: %v", err)
	}

	if err := app.Session.Start(cmd.Context()); err != nil {
		// The session already reflects the outcome; a transient restore
		// failure keeps the stored token for the next run.
		logger.WarnContext(cmd.Context(), "session startup incomplete", "error", err)
	}
	return app, nil
}

// withApp runs fn against a started App and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(app *bootstrap.App) error) error {
	app, err := startApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			app.Logger.Warn("close client", "error", closeErr)
		}
	}()
	return fn(app)
}

// printSession writes who is signed in and where the route guard sends them.
func printSession(w io.Writer, session *service.Session) {
	snap := session.Snapshot()
	switch {
	case snap.IsAnonymous():
		fmt.Fprintln(w, "not signed in")
	case snap.User == nil:
		fmt.Fprintln(w, "signed in, profile not loaded")
	default:
		role := string(snap.User.Role)
		if role == "" {
			role = "no role"
		}
		fmt.Fprintf(w, "signed in as %s <%s> (%s)\n", snap.User.Name, snap.User.Email, role)
	}
	screen := session.Destination()
	fmt.Fprintf(w, "screen: %s %s\n", screen, screen.Path())
}

// secretValue returns flagValue or, when empty, the next line of stdin.
func secretValue(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", exitError(ExitInvalidInput, "read %s: %v", strings.ToLower(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
