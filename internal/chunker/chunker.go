package chunker

import "strings"

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 150  // characters
)

// Splitter cuts text into overlapping chunks sized for embedding. Sizes are
// measured in characters. Splitting is deterministic: identical input always
// yields identical boundaries.
type Splitter struct {
	size    int
	overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{size: size, overlap: overlap}
}

// Split returns the chunks of content in document order. Empty or
// whitespace-only content yields no chunks; content shorter than the chunk
// size yields exactly one.
func (s *Splitter) Split(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if len(content) <= s.size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(content) {
		end := min(start+s.size, len(content))

		// Snap the boundary back to a sentence or word break within the
		// last 10% of the chunk so sentences are not split mid-way.
		if end < len(content) {
			lookBack := min(s.size/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(content) {
			break
		}

		// Advance relative to the actual boundary so snapped-back chunks
		// never open a gap in coverage.
		next := end - s.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
