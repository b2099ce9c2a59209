package inbox

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/spf13/cobra"
)

var (
	captureType     string
	captureProject  string
	capturePriority string
	captureForAgent bool
	captureParent   string
	captureTaskRef  string
)

var captureCmd = &cobra.Command{
	Use:   "capture <text>",
	Short: "Capture an idea, task or note",
	Long: `Capture text into the inbox. Without --type the item is classified
from its wording.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		result, err := app.CaptureItemHandler.Handle(cmd.Context(), commands.CaptureItemCommand{
			Text:     strings.Join(args, " "),
			Type:     captureType,
			Project:  captureProject,
			Priority: capturePriority,
			ForAgent: captureForAgent,
			ParentID: captureParent,
			TaskRef:  captureTaskRef,
		})
		if err != nil {
			return fmt.Errorf("failed to capture inbox item: %w", err)
		}

		if cli.JSONOutput() {
			dto, err := app.GetItemHandler.Handle(cmd.Context(), queries.GetItemQuery{ItemID: result.Item.ID})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Captured %s %s\n", result.Item.Type, result.Item.ID)
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureType, "type", "t", "", "item type: idea, task or note")
	captureCmd.Flags().StringVarP(&captureProject, "project", "p", "", "project the item belongs to")
	captureCmd.Flags().StringVar(&capturePriority, "priority", "", "priority: P0, P1 or P2")
	captureCmd.Flags().BoolVar(&captureForAgent, "for-agent", false, "address the item to an agent")
	captureCmd.Flags().StringVar(&captureParent, "parent", "", "id of the item this one answers")
	captureCmd.Flags().StringVar(&captureTaskRef, "task", "", "reference to a task on the board")
}
