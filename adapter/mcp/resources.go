package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/klarity/internal/inbox/application/queries"
	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/felixgeelhaar/mcp-go"
)

// inboxViews are the read-only inbox listings agents can attach as context.
var inboxViews = []struct {
	uri, name, description string
	query                  queries.ListItemsQuery
}{
	{"klarity://inbox", "Inbox", "Every inbox item, newest first", queries.ListItemsQuery{}},
	{"klarity://inbox/unread", "Unread inbox items", "Items the user has not read yet", queries.ListItemsQuery{UnreadOnly: true}},
	{"klarity://inbox/pending", "Pending inbox items", "Items nobody has marked done or skipped", queries.ListItemsQuery{Status: domain.StatusPending}},
}

// RegisterResources exposes the inbox listings as JSON resources.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	for _, view := range inboxViews {
		query := view.query
		srv.Resource(view.uri).
			Name(view.name).
			Description(view.description).
			MimeType("application/json").
			Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
				if deps.App == nil {
					return nil, errors.New("inbox is not available")
				}
				items, err := deps.App.ListItemsHandler.Handle(ctx, query)
				if err != nil {
					return nil, err
				}
				data, err := json.MarshalIndent(items, "", "  ")
				if err != nil {
					return nil, err
				}
				return &mcp.ResourceContent{URI: uri, MimeType: "application/json", Text: string(data)}, nil
			})
	}
	return nil
}
