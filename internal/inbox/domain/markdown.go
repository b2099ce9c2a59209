package domain

import (
	"fmt"
	"strings"
)

const markdownHeader = "# Inbox\n\nQuick instructions for agents.\n\n---\n\n"

// RenderMarkdown produces the human-readable inbox for non-interactive readers.
// Pending items come first, then closed ones, each group newest first.
// The output depends only on items.
func RenderMarkdown(items []InboxItem) string {
	sorted := make([]InboxItem, len(items))
	copy(sorted, items)
	SortNewestFirst(sorted)

	var pending, closed []InboxItem
	for _, item := range sorted {
		if item.Status.IsFinal() {
			closed = append(closed, item)
		} else {
			pending = append(pending, item)
		}
	}

	var b strings.Builder
	b.WriteString(markdownHeader)
	writeSection(&b, "Pending", pending)
	writeSection(&b, "Done", closed)
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []InboxItem) {
	fmt.Fprintf(b, "## %s\n\n", title)
	if len(items) == 0 {
		b.WriteString("_Nothing here._\n\n")
		return
	}
	for _, item := range items {
		b.WriteString("- ")
		if item.Status == StatusSkipped {
			b.WriteString("[SKIPPED] ")
		}
		if item.Priority != nil {
			fmt.Fprintf(b, "[%s] ", *item.Priority)
		}
		b.WriteString(singleLine(item.Text))
		if project := item.ProjectName(); project != "" {
			fmt.Fprintf(b, " @%s", project)
		}
		fmt.Fprintf(b, " (%s, %s", item.Type, item.CreatedAt.UTC().Format("2006-01-02"))
		if item.Author == AuthorAgent {
			b.WriteString(", from agent")
		}
		b.WriteString(")\n")
		for _, r := range item.Replies {
			fmt.Fprintf(b, "  > %s: %s\n", r.Author, singleLine(r.Text))
		}
	}
	b.WriteString("\n")
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
