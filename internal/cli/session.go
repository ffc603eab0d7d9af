package cli

import (
	"encoding/json"
	"fmt"

	"github.com/pastibot/companion/internal/bootstrap"
	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/spf13/cobra"
)

// NewLoginCmd creates the "login" subcommand.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long:  "Sign in with email and password. The password is read from stdin when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	password, err := secretValue(cmd, password, "Password")
	if err != nil {
		return err
	}
	return withApp(cmd, func(app *bootstrap.App) error {
		if _, err := app.Session.Login(cmd.Context(), email, password); err != nil {
			return fromAppError("login", err)
		}
		printSession(cmd.OutOrStdout(), app.Session)
		return nil
	})
}

// NewRegisterCmd creates the "register" subcommand.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a patient account and sign in",
		Args:  cobra.NoArgs,
		RunE:  runRegister,
	}
	cmd.Flags().String("name", "", "Full name")
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Password (at least 8 characters)")
	cmd.Flags().String("confirm", "", "Password confirmation (defaults to --password)")
	cmd.Flags().String("role", string(domainauth.RolePatient), "Account role")
	cmd.Flags().String("gender", "", "Gender")
	cmd.Flags().String("caregiver-code", "", "Sharing code of the caregiver")
	return cmd
}

func runRegister(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	email, _ := flags.GetString("email")
	password, _ := flags.GetString("password")
	confirm, _ := flags.GetString("confirm")
	role, _ := flags.GetString("role")
	gender, _ := flags.GetString("gender")
	code, _ := flags.GetString("caregiver-code")
	if !flags.Changed("confirm") {
		confirm = password
	}

	in := domainauth.RegisterInput{
		Name:          name,
		Email:         email,
		Password:      password,
		Confirm:       confirm,
		Role:          domainauth.ParseRole(role),
		Gender:        gender,
		CaregiverCode: code,
	}
	return withApp(cmd, func(app *bootstrap.App) error {
		if _, err := app.Session.Register(cmd.Context(), in); err != nil {
			return fromAppError("register", err)
		}
		printSession(cmd.OutOrStdout(), app.Session)
		return nil
	})
}

// NewFederatedLoginCmd creates the "federated-login" subcommand.
func NewFederatedLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "federated-login",
		Short: "Sign in through a social identity provider",
		Long: "Sign in through a social identity provider. With --manual the sign-in URL is printed " +
			"and the redirect URL the browser lands on is read back from stdin.",
		Args: cobra.NoArgs,
		RunE: runFederatedLogin,
	}
	cmd.Flags().String("provider", "", "Identity provider hint (defaults to OAUTH_PROVIDER_HINT)")
	cmd.Flags().Bool("manual", false, "Complete the sign-in by pasting the redirect URL")
	return cmd
}

func runFederatedLogin(cmd *cobra.Command, _ []string) error {
	provider, _ := cmd.Flags().GetString("provider")
	manual, _ := cmd.Flags().GetBool("manual")
	return withApp(cmd, func(app *bootstrap.App) error {
		if provider == "" {
			provider = app.Config.Auth.OAuth.ProviderHint
		}
		if manual {
			return runManualFederatedLogin(cmd, app, provider)
		}
		if _, err := app.Session.LoginWithFederatedProvider(cmd.Context(), provider); err != nil {
			return fromAppError("federated login", err)
		}
		printSession(cmd.OutOrStdout(), app.Session)
		return nil
	})
}

func runManualFederatedLogin(cmd *cobra.Command, app *bootstrap.App, provider string) error {
	authURL, err := app.Session.BeginRedirectSignIn(cmd.Context(), provider)
	if err != nil {
		return fromAppError("federated login", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in your browser to continue:\n  %s\n", authURL)
	redirect, err := secretValue(cmd, "", "Redirect URL")
	if err != nil {
		return err
	}
	ok, err := app.Session.HandleDeepLink(cmd.Context(), redirect)
	if err != nil {
		return fromAppError("federated login", err)
	}
	if !ok {
		return exitError(ExitInvalidInput, "federated login: %q is not a sign-in redirect", redirect)
	}
	printSession(cmd.OutOrStdout(), app.Session)
	return nil
}

// NewLogoutCmd creates the "logout" subcommand.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				if err := app.Session.Logout(cmd.Context()); err != nil {
					return fromAppError("logout", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

type statusOutput struct {
	SignedIn bool                   `json:"signedIn"`
	Loading  bool                   `json:"loading"`
	Screen   domainauth.ScreenID    `json:"screen"`
	Path     string                 `json:"path"`
	User     *domainauth.UserRecord `json:"user,omitempty"`
}

// NewStatusCmd creates the "status" subcommand.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Restore the stored session and show the current screen",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().Bool("json", false, "Print the session as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	return withApp(cmd, func(app *bootstrap.App) error {
		if !asJSON {
			printSession(cmd.OutOrStdout(), app.Session)
			return nil
		}
		snap := app.Session.Snapshot()
		screen := app.Session.Destination()
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(statusOutput{
			SignedIn: !snap.IsAnonymous(),
			Loading:  snap.Loading,
			Screen:   screen,
			Path:     screen.Path(),
			User:     snap.User,
		})
	})
}

// NewDeepLinkCmd creates the "deeplink" subcommand.
func NewDeepLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deeplink <url>",
		Short: "Complete a sign-in from a social-success return link or an authorization redirect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				ok, err := app.Session.HandleDeepLink(cmd.Context(), args[0])
				if err != nil {
					return fromAppError("deep link", err)
				}
				if !ok {
					return exitError(ExitInvalidInput, "deep link: no sign-in token in %q", args[0])
				}
				printSession(cmd.OutOrStdout(), app.Session)
				return nil
			})
		},
	}
}
