package domain

import "context"

// DefaultSectionTitle tags content that appears before the first level-2 heading.
const DefaultSectionTitle = "Introduction"

// Document represents a single Markdown file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Section is a header-delimited span of a document. Text includes the
// heading line that opened it.
type Section struct {
	Text   string
	Source string
	Title  string
}

// Node is the unit stored in the vector index: a whole Section, or a window
// of one when the Section is larger than the configured chunk size.
type Node struct {
	ID     string
	Source string
	Title  string
	Index  int
	Text   string
}

// Candidate represents a retrieved node with its similarity score.
type Candidate struct {
	Node  Node
	Score float64
}

// Chunker splits documents into sections suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) []Section
}

// Completer is a text-completion service.
type Completer interface {
	// Complete sends a single non-conversational prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Chat sends a system instruction followed by one user message.
	Chat(ctx context.Context, system, user string) (string, error)
}
