package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/mcp-go"
)

const triageSteps = `1. Run inbox.sync so you see items captured on my other devices
2. Read the pending items from the klarity://inbox/pending resource
3. For every item addressed to you (forAgent), either reply with inbox.reply
   or, when the answer deserves its own entry, use inbox.respond
4. Mark items you fully handled as done with inbox.set_status
5. Finish with inbox.push so my other devices get your answers

Keep replies short and concrete.`

// RegisterPrompts registers the inbox workflows agents can start from.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}

	srv.Prompt("inbox_triage").
		Description("Work through the items the user left for the agent and answer each one. Optional argument: project.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			intro := "Please triage my inbox:"
			if project := strings.TrimSpace(args["project"]); project != "" {
				intro = fmt.Sprintf("Please triage the %s items in my inbox and leave the rest alone:", project)
			}
			return &mcp.PromptResult{
				Description: "Inbox Triage",
				Messages: []mcp.PromptMessage{{
					Role:    string(mcp.RoleUser),
					Content: mcp.TextContent{Type: "text", Text: intro + "\n\n" + triageSteps},
				}},
			}, nil
		})

	return nil
}
