package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	sharedApplication "github.com/felixgeelhaar/klarity/internal/shared/application"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database"
)

const timeLayout = time.RFC3339Nano

// SQLStore keeps the inbox in the inbox_items and inbox_replies tables of a
// SQLite or PostgreSQL database. Save replaces the whole collection in one transaction.
type SQLStore struct {
	conn         database.Connection
	markdownPath string
	logger       *slog.Logger
}

// NewSQLStore creates a store on conn. A non-empty markdownPath is re-rendered on every save.
func NewSQLStore(conn database.Connection, markdownPath string, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		conn:         conn,
		markdownPath: markdownPath,
		logger:       logger,
	}
}

func (s *SQLStore) q(query string) string {
	return database.Rebind(s.conn.Driver(), query)
}

// Load returns every stored item, newest first.
func (s *SQLStore) Load(ctx context.Context) ([]domain.InboxItem, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	rows, err := exec.Query(ctx, `
		SELECT id, text, type, project, priority, status, created_at, read,
		       author, for_agent, parent_id, task_ref, task_title
		FROM inbox_items
	`)
	if err != nil {
		return nil, fmt.Errorf("query inbox items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	replies, err := s.loadReplies(ctx, exec)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if rs, ok := replies[items[i].ID]; ok {
			domain.SortRepliesOldestFirst(rs)
			items[i].Replies = rs
		}
	}

	domain.SortNewestFirst(items)
	return items, nil
}

func scanItems(rows database.Rows) ([]domain.InboxItem, error) {
	defer rows.Close()

	items := []domain.InboxItem{}
	for rows.Next() {
		var (
			item                                            domain.InboxItem
			itemType, status, author, createdAt             string
			project, priority, parentID, taskRef, taskTitle sql.NullString
		)
		err := rows.Scan(
			&item.ID,
			&item.Text,
			&itemType,
			&project,
			&priority,
			&status,
			&createdAt,
			&item.Read,
			&author,
			&item.ForAgent,
			&parentID,
			&taskRef,
			&taskTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("scan inbox item: %w", err)
		}

		item.Type = domain.ItemType(itemType)
		item.Status = domain.Status(status)
		item.Author = domain.Author(author)
		item.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of %s: %w", item.ID, err)
		}
		item.Project = nullableString(project)
		if priority.Valid {
			p := domain.Priority(priority.String)
			item.Priority = &p
		}
		item.ParentID = nullableString(parentID)
		item.TaskRef = nullableString(taskRef)
		item.TaskTitle = nullableString(taskTitle)
		item.Replies = []domain.Reply{}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *SQLStore) loadReplies(ctx context.Context, exec database.Executor) (map[string][]domain.Reply, error) {
	rows, err := exec.Query(ctx, `SELECT item_id, id, author, text, created_at FROM inbox_replies`)
	if err != nil {
		return nil, fmt.Errorf("query inbox replies: %w", err)
	}
	defer rows.Close()

	replies := make(map[string][]domain.Reply)
	for rows.Next() {
		var (
			itemID, author, createdAt string
			reply                     domain.Reply
		)
		if err := rows.Scan(&itemID, &reply.ID, &author, &reply.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan inbox reply: %w", err)
		}
		reply.Author = domain.Author(author)
		reply.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse reply created_at of %s: %w", reply.ID, err)
		}
		replies[itemID] = append(replies[itemID], reply)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return replies, nil
}

// Save replaces the stored collection with items.
func (s *SQLStore) Save(ctx context.Context, items []domain.InboxItem) error {
	if err := domain.ValidateItems(items); err != nil {
		return err
	}

	err := sharedApplication.WithUnitOfWork(ctx, database.NewUnitOfWork(s.conn), func(txCtx context.Context) error {
		return s.replaceAll(txCtx, items)
	})
	if err != nil {
		return fmt.Errorf("save inbox: %w", err)
	}

	sorted := make([]domain.InboxItem, len(items))
	copy(sorted, items)
	domain.SortNewestFirst(sorted)
	if err := writeMarkdown(s.markdownPath, sorted); err != nil {
		return err
	}
	s.logger.Debug("inbox saved", "driver", s.conn.Driver().String(), "items", len(items))
	return nil
}

func (s *SQLStore) replaceAll(ctx context.Context, items []domain.InboxItem) error {
	exec := database.ExecutorFromContext(ctx, s.conn)

	if _, err := exec.Exec(ctx, `DELETE FROM inbox_replies`); err != nil {
		return fmt.Errorf("clear inbox replies: %w", err)
	}
	if _, err := exec.Exec(ctx, `DELETE FROM inbox_items`); err != nil {
		return fmt.Errorf("clear inbox items: %w", err)
	}

	insertItem := s.q(`
		INSERT INTO inbox_items (
			id, text, type, project, priority, status, created_at, read,
			author, for_agent, parent_id, task_ref, task_title
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	insertReply := s.q(`
		INSERT INTO inbox_replies (item_id, id, author, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	for _, item := range items {
		var priority any
		if item.Priority != nil {
			priority = string(*item.Priority)
		}
		_, err := exec.Exec(ctx, insertItem,
			item.ID,
			item.Text,
			string(item.Type),
			stringArg(item.Project),
			priority,
			string(item.Status),
			item.CreatedAt.UTC().Format(timeLayout),
			item.Read,
			string(item.Author),
			item.ForAgent,
			stringArg(item.ParentID),
			stringArg(item.TaskRef),
			stringArg(item.TaskTitle),
		)
		if err != nil {
			return fmt.Errorf("insert inbox item %s: %w", item.ID, err)
		}

		for _, r := range item.Replies {
			_, err := exec.Exec(ctx, insertReply,
				item.ID,
				r.ID,
				string(r.Author),
				r.Text,
				r.CreatedAt.UTC().Format(timeLayout),
			)
			if err != nil {
				return fmt.Errorf("insert reply %s of %s: %w", r.ID, item.ID, err)
			}
		}
	}
	return nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
