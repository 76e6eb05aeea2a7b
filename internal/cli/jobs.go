package cli

import (
	"github.com/spf13/cobra"

	"metalbot/internal/app"
)

var (
	checkAlertsDryRun bool
	pushDailyDryRun   bool
)

var checkAlertsCmd = &cobra.Command{
	Use:   "check-alerts",
	Short: "Evaluate every stored alert once and notify the triggered chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckAlerts(cmd.Context(), cmd.OutOrStdout(), app.JobOptions{DryRun: checkAlertsDryRun})
	},
}

var pushDailyCmd = &cobra.Command{
	Use:   "push-daily",
	Short: "Send the daily price update to every subscriber once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PushDaily(cmd.Context(), cmd.OutOrStdout(), app.JobOptions{DryRun: pushDailyDryRun})
	},
}

func init() {
	checkAlertsCmd.Flags().BoolVar(&checkAlertsDryRun, "dry-run", false, "Print messages instead of sending them")
	pushDailyCmd.Flags().BoolVar(&pushDailyDryRun, "dry-run", false, "Print messages instead of sending them")
}
