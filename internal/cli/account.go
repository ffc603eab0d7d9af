package cli

import (
	"fmt"

	"github.com/pastibot/companion/internal/bootstrap"
	domainauth "github.com/pastibot/companion/internal/domain/auth"
	"github.com/spf13/cobra"
)

// NewSetRoleCmd creates the "set-role" subcommand.
func NewSetRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Choose the account role after a social sign-up",
		Args:  cobra.NoArgs,
		RunE:  runSetRole,
	}
	cmd.Flags().String("role", "", "PATIENT or CAREGIVER")
	cmd.Flags().String("caregiver-code", "", "Sharing code of the caregiver (patients only)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func runSetRole(cmd *cobra.Command, _ []string) error {
	role, _ := cmd.Flags().GetString("role")
	code, _ := cmd.Flags().GetString("caregiver-code")
	return withApp(cmd, func(app *bootstrap.App) error {
		if err := app.Session.SelectRole(cmd.Context(), domainauth.ParseRole(role), code); err != nil {
			return fromAppError("set role", err)
		}
		printSession(cmd.OutOrStdout(), app.Session)
		return nil
	})
}

// NewCompleteProfileCmd creates the "complete-profile" subcommand.
func NewCompleteProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete-profile",
		Short: "Fill in the patient onboarding fields",
		Args:  cobra.NoArgs,
		RunE:  runCompleteProfile,
	}
	cmd.Flags().Int("age", 0, "Patient age")
	cmd.Flags().String("condition", "", "Medical condition")
	cmd.Flags().String("emergency-phone", "", "Emergency contact phone")
	return cmd
}

func runCompleteProfile(cmd *cobra.Command, _ []string) error {
	age, _ := cmd.Flags().GetInt("age")
	condition, _ := cmd.Flags().GetString("condition")
	phone, _ := cmd.Flags().GetString("emergency-phone")
	return withApp(cmd, func(app *bootstrap.App) error {
		if app.Session.Snapshot().IsAnonymous() {
			return exitError(ExitUnauthorized, "complete profile: not signed in")
		}
		err := app.Accounts.CompleteProfile(cmd.Context(), domainauth.ProfileUpdate{
			Age:            age,
			Condition:      condition,
			EmergencyPhone: phone,
		})
		if err != nil {
			return fromAppError("complete profile", err)
		}
		printSession(cmd.OutOrStdout(), app.Session)
		return nil
	})
}

// NewForgotPasswordCmd creates the "forgot-password" subcommand.
func NewForgotPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			return withApp(cmd, func(app *bootstrap.App) error {
				if err := app.Accounts.ForgotPassword(cmd.Context(), email); err != nil {
					return fromAppError("forgot password", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "if the account exists, a reset link is on its way")
				return nil
			})
		},
	}
	cmd.Flags().String("email", "", "Account email")
	return cmd
}

// NewResetPasswordCmd creates the "reset-password" subcommand.
func NewResetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with the token from the reset email",
		Args:  cobra.NoArgs,
		RunE:  runResetPassword,
	}
	cmd.Flags().String("token", "", "Reset token")
	cmd.Flags().String("password", "", "New password")
	cmd.Flags().String("confirm", "", "Password confirmation (defaults to --password)")
	return cmd
}

func runResetPassword(cmd *cobra.Command, _ []string) error {
	token, _ := cmd.Flags().GetString("token")
	password, _ := cmd.Flags().GetString("password")
	password, err := secretValue(cmd, password, "New password")
	if err != nil {
		return err
	}
	confirm := password
	if cmd.Flags().Changed("confirm") {
		confirm, _ = cmd.Flags().GetString("confirm")
	}
	return withApp(cmd, func(app *bootstrap.App) error {
		if err := app.Accounts.ResetPassword(cmd.Context(), token, password, confirm); err != nil {
			return fromAppError("reset password", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "password updated, sign in with the new password")
		return nil
	})
}

// NewLinkCaregiverCmd creates the "link-caregiver" subcommand.
func NewLinkCaregiverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link-caregiver <code>",
		Short: "Link the signed-in patient to a caregiver by sharing code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *bootstrap.App) error {
				if app.Session.Snapshot().IsAnonymous() {
					return exitError(ExitUnauthorized, "link caregiver: not signed in")
				}
				if err := app.Accounts.LinkCaregiver(cmd.Context(), args[0]); err != nil {
					return fromAppError("link caregiver", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "linked to caregiver")
				printSession(cmd.OutOrStdout(), app.Session)
				return nil
			})
		},
	}
}
