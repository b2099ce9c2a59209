package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/klarity/adapter/cli"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/commands"
	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/mcp-go"
)

type inboxListInput struct {
	Status     string `json:"status,omitempty"`
	UnreadOnly bool   `json:"unread_only,omitempty"`
	Project    string `json:"project,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type inboxItemInput struct {
	ItemID string `json:"item_id" jsonschema:"required"`
}

type inboxReplyInput struct {
	ItemID string `json:"item_id" jsonschema:"required"`
	Text   string `json:"text" jsonschema:"required"`
}

type inboxRespondInput struct {
	ItemID   string `json:"item_id" jsonschema:"required"`
	Text     string `json:"text" jsonschema:"required"`
	Project  string `json:"project,omitempty"`
	Priority string `json:"priority,omitempty"`
	TaskRef  string `json:"task_ref,omitempty"`
}

type inboxCaptureInput struct {
	Text     string `json:"text" jsonschema:"required"`
	Type     string `json:"type,omitempty"`
	Project  string `json:"project,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type inboxSetStatusInput struct {
	ItemID string `json:"item_id" jsonschema:"required"`
	Status string `json:"status" jsonschema:"required"`
}

type inboxMarkReadInput struct {
	ItemID string `json:"item_id,omitempty"`
}

type inboxSyncOutput struct {
	Changed  bool     `json:"changed"`
	NewCount int      `json:"new_count"`
	NewIDs   []string `json:"new_ids"`
	Total    int      `json:"total"`
}

type inboxPushOutput struct {
	Resource string `json:"resource"`
	Status   string `json:"status"`
}

type unreadOutput struct {
	Unread int `json:"unread"`
}

// inboxTools implements the inbox.* tools. Agents write as domain.AuthorAgent.
type inboxTools struct {
	app *cli.App
}

func registerInboxTools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	tools := inboxTools{app: deps.App}

	srv.Tool("inbox.list").
		Description("List inbox items newest first, optionally filtered by status, project or unread").
		Handler(tools.list)

	srv.Tool("inbox.get").
		Description("Get one inbox item with its reply thread").
		Handler(tools.get)

	srv.Tool("inbox.capture").
		Description("Add a new item to the inbox as the agent").
		Handler(tools.capture)

	srv.Tool("inbox.reply").
		Description("Reply to an inbox item as the agent; the item becomes unread for the user").
		Handler(tools.reply)

	srv.Tool("inbox.respond").
		Description("Answer an inbox item with a new agent-response item linked to it").
		Handler(tools.respond)

	srv.Tool("inbox.set_status").
		Description("Set an item's status to pending, done or skipped").
		Handler(tools.setStatus)

	srv.Tool("inbox.mark_read").
		Description("Mark one item, or every item when item_id is empty, as read").
		Handler(tools.markRead)

	srv.Tool("inbox.unread_count").
		Description("Count unread inbox items").
		Handler(tools.unreadCount)

	srv.Tool("inbox.sync").
		Description("Pull the remote inbox and merge it into the local one").
		Handler(tools.sync)

	srv.Tool("inbox.push").
		Description("Merge with the remote inbox and write the result back").
		Handler(tools.push)

	return nil
}

func (t inboxTools) list(ctx context.Context, input inboxListInput) ([]queries.InboxItemDTO, error) {
	status, err := parseOptionalStatus(input.Status)
	if err != nil {
		return nil, err
	}
	return t.app.ListItemsHandler.Handle(ctx, queries.ListItemsQuery{
		Status:     status,
		UnreadOnly: input.UnreadOnly,
		Project:    input.Project,
		Limit:      input.Limit,
	})
}

func (t inboxTools) get(ctx context.Context, input inboxItemInput) (*queries.InboxItemDTO, error) {
	id, err := requireID(input.ItemID)
	if err != nil {
		return nil, err
	}
	return t.app.GetItemHandler.Handle(ctx, queries.GetItemQuery{ItemID: id})
}

func (t inboxTools) capture(ctx context.Context, input inboxCaptureInput) (*queries.InboxItemDTO, error) {
	text, err := requireText(input.Text)
	if err != nil {
		return nil, err
	}
	result, err := t.app.CaptureItemHandler.Handle(ctx, commands.CaptureItemCommand{
		Text:     text,
		Type:     input.Type,
		Project:  input.Project,
		Priority: input.Priority,
		Author:   domain.AuthorAgent,
	})
	if err != nil {
		return nil, err
	}
	return t.get(ctx, inboxItemInput{ItemID: result.Item.ID})
}

func (t inboxTools) reply(ctx context.Context, input inboxReplyInput) (*queries.InboxItemDTO, error) {
	id, err := requireID(input.ItemID)
	if err != nil {
		return nil, err
	}
	text, err := requireText(input.Text)
	if err != nil {
		return nil, err
	}
	if _, err := t.app.AddReplyHandler.Handle(ctx, commands.AddReplyCommand{
		ItemID: id,
		Author: domain.AuthorAgent,
		Text:   text,
	}); err != nil {
		return nil, err
	}
	return t.get(ctx, inboxItemInput{ItemID: id})
}

func (t inboxTools) respond(ctx context.Context, input inboxRespondInput) (*queries.InboxItemDTO, error) {
	id, err := requireID(input.ItemID)
	if err != nil {
		return nil, err
	}
	text, err := requireText(input.Text)
	if err != nil {
		return nil, err
	}
	result, err := t.app.CaptureItemHandler.Handle(ctx, commands.CaptureItemCommand{
		Text:     text,
		Type:     string(domain.TypeAgentResponse),
		Project:  input.Project,
		Priority: input.Priority,
		Author:   domain.AuthorAgent,
		ParentID: id,
		TaskRef:  input.TaskRef,
	})
	if err != nil {
		return nil, err
	}
	return t.get(ctx, inboxItemInput{ItemID: result.Item.ID})
}

func (t inboxTools) setStatus(ctx context.Context, input inboxSetStatusInput) (*queries.InboxItemDTO, error) {
	id, err := requireID(input.ItemID)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	if _, err := t.app.SetStatusHandler.Handle(ctx, commands.SetStatusCommand{ItemID: id, Status: status}); err != nil {
		return nil, err
	}
	return t.get(ctx, inboxItemInput{ItemID: id})
}

func (t inboxTools) markRead(ctx context.Context, input inboxMarkReadInput) (map[string]int, error) {
	marked, err := t.app.MarkReadHandler.Handle(ctx, commands.MarkReadCommand{ItemID: input.ItemID})
	if err != nil {
		return nil, err
	}
	return map[string]int{"marked": marked}, nil
}

func (t inboxTools) unreadCount(ctx context.Context, input struct{}) (*unreadOutput, error) {
	unread, err := t.app.UnreadCountHandler.Handle(ctx)
	if err != nil {
		return nil, err
	}
	return &unreadOutput{Unread: unread}, nil
}

func (t inboxTools) sync(ctx context.Context, input struct{}) (*inboxSyncOutput, error) {
	svc, err := t.app.RequireSync()
	if err != nil {
		return nil, err
	}
	result, err := svc.SyncOnce(ctx)
	if err != nil {
		return nil, err
	}
	out := &inboxSyncOutput{
		Changed:  result.Changed,
		NewCount: result.NewCount,
		NewIDs:   make([]string, 0, len(result.NewItems)),
		Total:    len(result.Merged),
	}
	for _, item := range result.NewItems {
		out.NewIDs = append(out.NewIDs, item.ID)
	}
	return out, nil
}

func (t inboxTools) push(ctx context.Context, input struct{}) (*inboxPushOutput, error) {
	svc, err := t.app.RequireSync()
	if err != nil {
		return nil, err
	}
	if err := svc.Push(ctx); err != nil {
		return nil, err
	}
	return &inboxPushOutput{Resource: svc.Resource().Key(), Status: "pushed"}, nil
}
