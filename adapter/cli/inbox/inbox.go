package inbox

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/spf13/cobra"
)

// Cmd groups all inbox commands.
var Cmd = &cobra.Command{
	Use:   "inbox",
	Short: "Capture, review and sync inbox items",
}

func init() {
	Cmd.AddCommand(captureCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(replyCmd)
	Cmd.AddCommand(doneCmd)
	Cmd.AddCommand(skipCmd)
	Cmd.AddCommand(reopenCmd)
	Cmd.AddCommand(readCmd)
	Cmd.AddCommand(countCmd)
	Cmd.AddCommand(syncCmd)
	Cmd.AddCommand(pushCmd)
	Cmd.AddCommand(watchCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printItem writes one item and its thread.
func printItem(w io.Writer, item *queries.InboxItemDTO) error {
	if cli.JSONOutput() {
		return printJSON(w, item)
	}
	fmt.Fprintf(w, "%s [%s] %s\n", item.ID, item.Type, item.Status)
	fmt.Fprintf(w, "  %s\n", item.Text)
	if item.Project != "" {
		fmt.Fprintf(w, "  Project:  %s\n", item.Project)
	}
	if item.Priority != "" {
		fmt.Fprintf(w, "  Priority: %s\n", item.Priority)
	}
	if item.ParentID != "" {
		fmt.Fprintf(w, "  Reply to: %s\n", item.ParentID)
	}
	fmt.Fprintf(w, "  Author:   %s\n", item.Author)
	fmt.Fprintf(w, "  Created:  %s\n", item.CreatedAt)
	for _, reply := range item.Replies {
		fmt.Fprintf(w, "    %s (%s): %s\n", reply.Author, reply.CreatedAt, reply.Text)
	}
	return nil
}
