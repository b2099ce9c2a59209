package inbox

import (
	"fmt"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one item, or the whole inbox, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		command := commands.MarkReadCommand{}
		if len(args) == 1 {
			command.ItemID = args[0]
		}
		marked, err := app.MarkReadHandler.Handle(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to mark read: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Marked %d item(s) as read\n", marked)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of unread items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		unread, err := app.UnreadCountHandler.Handle(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count unread items: %w", err)
		}
		if cli.JSONOutput() {
			return printJSON(cmd.OutOrStdout(), map[string]int{"unread": unread})
		}
		fmt.Fprintln(cmd.OutOrStdout(), unread)
		return nil
	},
}
