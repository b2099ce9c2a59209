package inbox

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	listStatus  string
	listUnread  bool
	listProject string
	listLimit   int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List inbox items, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		query := queries.ListItemsQuery{
			Status:     domain.Status(strings.ToLower(listStatus)),
			UnreadOnly: listUnread,
			Project:    listProject,
			Limit:      listLimit,
		}
		if query.Status != "" && !query.Status.IsValid() {
			return fmt.Errorf("unknown status %q: use pending, done or skipped", listStatus)
		}

		items, err := app.ListItemsHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list inbox items: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return printJSON(out, items)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "No inbox items found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.AppendHeader(table.Row{"", "ID", "Type", "Status", "Priority", "Project", "Text", "Replies"})
		tw.SetColumnConfigs([]table.ColumnConfig{{Name: "Text", WidthMax: 60}})
		for _, item := range items {
			marker := ""
			if !item.Read {
				marker = "*"
			}
			tw.AppendRow(table.Row{marker, item.ID, item.Type, item.Status, item.Priority, item.Project, item.Text, len(item.Replies)})
		}
		tw.Render()
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "only items with this status")
	listCmd.Flags().BoolVarP(&listUnread, "unread", "u", false, "only unread items")
	listCmd.Flags().StringVarP(&listProject, "project", "p", "", "only items of this project")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of items")
}
