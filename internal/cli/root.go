package cli

import "github.com/spf13/cobra"

// AddCommands registers every pastibot subcommand on root.
func AddCommands(root *cobra.Command) {
	root.AddCommand(
		NewLoginCmd(),
		NewRegisterCmd(),
		NewFederatedLoginCmd(),
		NewLogoutCmd(),
		NewStatusCmd(),
		NewDeepLinkCmd(),
		NewSetRoleCmd(),
		NewCompleteProfileCmd(),
		NewForgotPasswordCmd(),
		NewResetPasswordCmd(),
		NewLinkCaregiverCmd(),
		NewDispenseCmd(),
		NewHistoryCmd(),
		NewWatchRobotCmd(),
	)
}
