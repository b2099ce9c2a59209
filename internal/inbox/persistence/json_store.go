// Package persistence stores the local inbox.
package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
	"github.com/natefinch/atomic"
)

const (
	// DefaultJSONFile is the structured inbox inside the data directory.
	DefaultJSONFile = "inbox.json"
	// DefaultMarkdownFile is the rendered inbox inside the data directory.
	DefaultMarkdownFile = "inbox.md"
)

// JSONStore keeps the inbox as the same envelope the remote uses, plus a markdown rendering.
// Both files are replaced atomically so readers never observe a partial write.
type JSONStore struct {
	path         string
	markdownPath string
	logger       *slog.Logger
	now          func() time.Time
	mu           sync.Mutex
}

// NewJSONStore creates a store writing dir/inbox.json and dir/inbox.md.
func NewJSONStore(dir string, logger *slog.Logger) *JSONStore {
	return NewJSONStoreWithPaths(
		filepath.Join(dir, DefaultJSONFile),
		filepath.Join(dir, DefaultMarkdownFile),
		logger,
	)
}

// NewJSONStoreWithPaths creates a store with explicit file paths.
// An empty markdownPath disables the markdown rendering.
func NewJSONStoreWithPaths(path, markdownPath string, logger *slog.Logger) *JSONStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONStore{
		path:         path,
		markdownPath: markdownPath,
		logger:       logger,
		now:          time.Now,
	}
}

// Path returns the structured file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the inbox. A missing or empty file is an empty inbox.
func (s *JSONStore) Load(ctx context.Context) ([]domain.InboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.InboxItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.InboxItem{}, nil
	}

	file, err := domain.DecodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	items := file.Items
	if items == nil {
		items = []domain.InboxItem{}
	}
	return items, nil
}

// Save replaces the inbox with items and re-renders the markdown file.
func (s *JSONStore) Save(ctx context.Context, items []domain.InboxItem) error {
	if err := domain.ValidateItems(items); err != nil {
		return err
	}
	sorted := make([]domain.InboxItem, len(items))
	copy(sorted, items)
	domain.SortNewestFirst(sorted)

	data, err := domain.EncodeFile(sorted, s.now())
	if err != nil {
		return fmt.Errorf("encode inbox: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFile(s.path, data); err != nil {
		return err
	}
	if err := writeMarkdown(s.markdownPath, sorted); err != nil {
		return err
	}
	s.logger.Debug("inbox saved", "path", s.path, "items", len(items))
	return nil
}

func writeMarkdown(path string, items []domain.InboxItem) error {
	if path == "" {
		return nil
	}
	return writeFile(path, []byte(domain.RenderMarkdown(items)))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
