package cli

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/klarity/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the inbox store, event broker and GitHub connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if app.Health == nil {
			fmt.Fprintln(out, "ok")
			return nil
		}

		health := app.Health.GetOverallHealth(cmd.Context())
		if JSONOutput() {
			data, err := health.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			names := make([]string, 0, len(health.Checks))
			for name := range health.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := health.Checks[name]
				fmt.Fprintf(out, "%-8s %s %s\n", name, check.Status, check.Message)
			}
			fmt.Fprintf(out, "overall  %s\n", health.Status)
		}
		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
