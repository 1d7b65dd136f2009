package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List the most recent stored alerts",
	RunE:  runAlerts,
}

var (
	alertsRegion string
	alertsLimit  int
)

func init() {
	alertsCmd.Flags().StringVarP(&alertsRegion, "region", "r", "", "Only alerts of this region")
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 20, "Maximum alerts to list")

	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	a, _, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	alerts, err := a.Alerts().ListRecent(cmd.Context(), alertsRegion, alertsLimit)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tREGION\tPRIORITY\tSCORE\tTYPE\tTITLE")
	for _, al := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%s\t%s\n",
			al.CreatedAt.Format("2006-01-02 15:04"), al.Region, al.Priority, al.OpportunityScore, al.Type, al.Title)
	}
	return w.Flush()
}
