package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"docqa/internal/domain"
)

// Windower turns sections into index nodes. Sections that fit in chunkSize
// tokens become a single node; larger ones are split into overlapping windows.
type Windower struct {
	chunkSize    int
	chunkOverlap int
	splitter     *regexp.Regexp
}

func NewWindower(chunkSize, chunkOverlap int) *Windower {
	if chunkSize <= 0 {
		chunkSize = 2048
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Windower{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter:     regexp.MustCompile(`(?U)([^.!?]+[.!?]+)(\s+|$)`),
	}
}

// Nodes converts the ordered sections of one document into nodes with
// IDs of the form docID:index.
func (w *Windower) Nodes(docID string, sections []domain.Section) []domain.Node {
	var nodes []domain.Node
	idx := 0
	for _, s := range sections {
		for _, text := range w.windows(s.Text) {
			nodes = append(nodes, domain.Node{
				ID:     docID + ":" + strconv.Itoa(idx),
				Source: s.Source,
				Title:  s.Title,
				Index:  idx,
				Text:   text,
			})
			idx++
		}
	}
	return nodes
}

func (w *Windower) windows(text string) []string {
	if EstimateTokens(text) <= w.chunkSize {
		return []string{text}
	}
	units := w.units(text)
	words := make([]int, len(units))
	for i, u := range units {
		words[i] = len(strings.Fields(text[u.start:u.end]))
	}
	var out []string
	i, prevEnd := 0, 0
	for i < len(units) {
		end := i
		n := 0
		for end < len(units) {
			if wordTokens(n+words[end]) > w.chunkSize && end > i && end > prevEnd {
				break
			}
			n += words[end]
			end++
		}
		out = append(out, text[units[i].start:units[end-1].end])
		if end == len(units) {
			break
		}
		i = w.overlapStart(words, i, end)
		prevEnd = end
	}
	return out
}

// overlapStart walks back from end while the carried units stay within the
// overlap budget. The next window always starts after i.
func (w *Windower) overlapStart(words []int, i, end int) int {
	start := end
	carried := 0
	for start-1 > i {
		if wordTokens(carried+words[start-1]) > w.chunkOverlap {
			break
		}
		carried += words[start-1]
		start--
	}
	return start
}

func wordTokens(words int) int {
	return int(float64(words) * 1.33)
}

// span is a byte range of the section text.
type span struct{ start, end int }

// units breaks text into lines, and lines longer than chunkSize into
// sentences. A window covers the bytes from its first unit to its last, so
// it is always a substring of the section.
func (w *Windower) units(text string) []span {
	var units []span
	off := 0
	for _, line := range strings.Split(text, "\n") {
		if EstimateTokens(line) <= w.chunkSize {
			units = append(units, span{off, off + len(line)})
			off += len(line) + 1
			continue
		}
		prev := 0
		for _, loc := range w.splitter.FindAllStringIndex(line, -1) {
			units = appendTrimmed(units, line, off, prev, loc[1])
			prev = loc[1]
		}
		units = appendTrimmed(units, line, off, prev, len(line))
		off += len(line) + 1
	}
	return units
}

// appendTrimmed adds line[from:to] without its surrounding whitespace. The
// bytes between two sentences still land inside any window spanning both.
func appendTrimmed(units []span, line string, off, from, to int) []span {
	seg := line[from:to]
	trimmed := strings.TrimSpace(seg)
	if trimmed == "" {
		return units
	}
	start := off + from + strings.Index(seg, trimmed)
	return append(units, span{start, start + len(trimmed)})
}
