package cli

import (
	"github.com/spf13/cobra"

	"metalbot/internal/app"
)

var (
	showMetal   string
	showCity    string
	showMessage bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch and print the price table for one metal and city",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		opts := app.ShowOptions{
			Metal:   showMetal,
			City:    showCity,
			Message: showMessage,
		}
		if opts.Metal == "" {
			opts.Metal = a.Config.Bot.DefaultMetal
		}
		if opts.City == "" {
			opts.City = a.Config.Bot.DefaultCity
		}
		return a.Show(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showMetal, "metal", "", "Metal to fetch (gold, silver); defaults to bot.default_metal")
	showCmd.Flags().StringVar(&showCity, "city", "", "City to fetch; defaults to bot.default_city")
	showCmd.Flags().BoolVar(&showMessage, "message", false, "Print the full chat message (HTML) instead of the plain table")
}
