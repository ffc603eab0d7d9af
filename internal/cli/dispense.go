package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pastibot/companion/internal/bootstrap"
	"github.com/pastibot/companion/internal/domain/robot"
	"github.com/spf13/cobra"
)

// NewDispenseCmd creates the "dispense" subcommand.
func NewDispenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispense",
		Short: "Release one dose of a medicine",
		Long: "Release one dose of a medicine. Caregivers send the order to their robot; " +
			"patients release their own scheduled dose.",
		Args: cobra.NoArgs,
		RunE: runDispense,
	}
	cmd.Flags().Int64("medicine-id", 0, "Medicine to dispense")
	_ = cmd.MarkFlagRequired("medicine-id")
	return cmd
}

func runDispense(cmd *cobra.Command, _ []string) error {
	medicineID, _ := cmd.Flags().GetInt64("medicine-id")
	return withApp(cmd, func(app *bootstrap.App) error {
		res, err := app.Dispenser.Dispense(cmd.Context(), medicineID)
		if err != nil {
			return fromAppError("dispense", err)
		}
		out := cmd.OutOrStdout()
		switch {
		case res.LogID != 0:
			fmt.Fprintf(out, "dispensed, log %d\n", res.LogID)
		case res.TaskID != 0:
			fmt.Fprintf(out, "dispense order sent, task %d\n", res.TaskID)
		default:
			fmt.Fprintln(out, "dispense order sent")
		}
		return nil
	})
}

// NewHistoryCmd creates the "history" subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the patient's recent dispensations",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().Int("days", 0, "How many days back to list (default 1)")
	cmd.Flags().Bool("json", false, "Print the history as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	days, _ := cmd.Flags().GetInt("days")
	asJSON, _ := cmd.Flags().GetBool("json")
	return withApp(cmd, func(app *bootstrap.App) error {
		entries, err := app.Dispenser.History(cmd.Context(), days)
		if err != nil {
			return fromAppError("history", err)
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		printHistory(cmd.OutOrStdout(), entries)
		return nil
	})
}

func printHistory(w io.Writer, entries []robot.Dispensation) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no dispensations")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %-9s %s\n", e.DispensedAt.Local().Format(time.DateTime), e.Status, e.Medicine.Name)
	}
}
