package diagram

import (
	"strings"
)

// DefaultLanguage is the fence info string that marks a diagram source block.
const DefaultLanguage = "mermaid"

// Block is one fenced diagram source block inside a fragment body.
type Block struct {
	// Source is the diagram source text between the fences.
	Source string
	// Start and End are byte offsets of the whole fenced block (fences
	// included) within the body, End exclusive.
	Start int
	End   int
}

// FindBlocks locates fenced code blocks tagged with the given diagram
// language in a Markdown body. Offsets allow callers to splice replacements
// back into the original text without disturbing surrounding content.
func FindBlocks(body string, language string) []Block {
	if language == "" {
		language = DefaultLanguage
	}

	var blocks []Block
	offset := 0
	inBlock := false
	var blockStart, sourceStart int

	for offset <= len(body) {
		lineEnd := strings.IndexByte(body[offset:], '\n')
		var next int
		var line string
		if lineEnd < 0 {
			line = body[offset:]
			next = len(body) + 1
		} else {
			line = body[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case !inBlock && strings.HasPrefix(trimmed, "```") && strings.TrimSpace(strings.TrimPrefix(trimmed, "```")) == language:
			inBlock = true
			blockStart = offset
			sourceStart = next
		case inBlock && trimmed == "```":
			end := next
			if lineEnd < 0 {
				end = len(body)
			}
			source := body[sourceStart:offset]
			blocks = append(blocks, Block{
				Source: strings.TrimSuffix(source, "\n"),
				Start:  blockStart,
				End:    end,
			})
			inBlock = false
		}

		if lineEnd < 0 {
			break
		}
		offset = next
	}

	return blocks
}

// HasBlocks reports whether a body contains at least one diagram block.
func HasBlocks(body string, language string) bool {
	return len(FindBlocks(body, language)) > 0
}
