package services

import (
	"strings"

	"github.com/felixgeelhaar/klarity/internal/inbox/domain"
)

// Classifier suggests an item type for quick captures that did not name one.
type Classifier struct{}

// NewClassifier returns a classifier instance.
func NewClassifier() *Classifier {
	return &Classifier{}
}

var taskKeywords = []string{"todo", "fix", "implement", "add ", "remove", "update", "refactor", "ship", "deploy", "bug"}

var ideaKeywords = []string{"idea", "what if", "maybe", "could we", "might", "explore"}

// Classify returns the explicit type when it is valid, otherwise a keyword guess.
// Anything without a recognizable cue is a note.
func (c *Classifier) Classify(content string, explicit string) domain.ItemType {
	if t := domain.ItemType(explicit); t.IsValid() {
		return t
	}
	text := strings.ToLower(content)
	if containsAny(text, ideaKeywords) {
		return domain.TypeIdea
	}
	if strings.HasPrefix(strings.TrimSpace(text), "- [ ]") || containsAny(text, taskKeywords) {
		return domain.TypeTask
	}
	return domain.TypeNote
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
