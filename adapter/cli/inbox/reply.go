package inbox

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/spf13/cobra"
)

var replyCmd = &cobra.Command{
	Use:   "reply <id> <text>",
	Short: "Reply to an item",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		result, err := app.AddReplyHandler.Handle(cmd.Context(), commands.AddReplyCommand{
			ItemID: args[0],
			Author: domain.AuthorUser,
			Text:   strings.Join(args[1:], " "),
		})
		if err != nil {
			return fmt.Errorf("failed to reply: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Replied to %s (%d replies)\n", result.Item.ID, len(result.Item.Replies))
		return nil
	},
}
