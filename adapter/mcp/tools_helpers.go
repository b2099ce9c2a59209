package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

func requireID(value string) (string, error) {
	id := strings.TrimSpace(value)
	if id == "" {
		return "", errors.New("item_id is required")
	}
	return id, nil
}

func requireText(value string) (string, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return "", errors.New("text is required")
	}
	return text, nil
}

func parseStatus(value string) (domain.Status, error) {
	status := domain.Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid status %q, use pending, done or skipped", value)
	}
	return status, nil
}

func parseOptionalStatus(value string) (domain.Status, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return parseStatus(value)
}
