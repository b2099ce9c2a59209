package inbox

import (
	"fmt"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an item and its replies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		item, err := app.GetItemHandler.Handle(cmd.Context(), queries.GetItemQuery{ItemID: args[0]})
		if err != nil {
			return fmt.Errorf("failed to get inbox item: %w", err)
		}
		return printItem(cmd.OutOrStdout(), item)
	},
}
