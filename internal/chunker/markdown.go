package chunker

import (
	"strings"

	"docqa/internal/domain"
)

const (
	fenceMarker   = "```"
	sectionMarker = "## "
)

// MarkdownChunker splits Markdown documents on level-2 headings.
type MarkdownChunker struct{}

func NewMarkdownChunker() *MarkdownChunker { return &MarkdownChunker{} }

func (c *MarkdownChunker) Chunk(document domain.Document) []domain.Section {
	return SplitMarkdown(document.Content, document.Path)
}

// SplitMarkdown scans content line by line and starts a new section at every
// "## " heading that is not inside a fenced code block. Deeper headings stay
// attached to their parent section. An unclosed fence suppresses boundary
// detection until the end of the input.
func SplitMarkdown(content, source string) []domain.Section {
	var (
		sections []domain.Section
		buf      []string
		title    = domain.DefaultSectionTitle
		inFence  bool
	)
	flush := func() {
		text := strings.Join(buf, "\n")
		if strings.TrimSpace(text) == "" {
			return
		}
		sections = append(sections, domain.Section{Text: text, Source: source, Title: title})
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, fenceMarker) {
			inFence = !inFence
			buf = append(buf, line)
			continue
		}
		if inFence {
			buf = append(buf, line)
			continue
		}
		if strings.HasPrefix(line, sectionMarker) {
			flush()
			title = strings.TrimSpace(line[len(sectionMarker):])
			buf = []string{line}
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}
