package inbox

import (
	"fmt"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/spf13/cobra"
)

var (
	doneCmd   = newStatusCmd("done", "Mark items as done", domain.StatusDone)
	skipCmd   = newStatusCmd("skip", "Mark items as skipped", domain.StatusSkipped)
	reopenCmd = newStatusCmd("reopen", "Move items back to pending", domain.StatusPending)
)

func newStatusCmd(use, short string, status domain.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.RequireApp()
			if err != nil {
				return err
			}

			for _, id := range args {
				item, err := app.SetStatusHandler.Handle(cmd.Context(), commands.SetStatusCommand{ItemID: id, Status: status})
				if err != nil {
					return fmt.Errorf("failed to update %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", item.ID, item.Status)
			}
			return nil
		},
	}
}
