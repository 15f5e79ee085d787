// Package narrative turns the AI-written audit narrative into typed blocks.
//
// The parser is line oriented: every non-blank line becomes exactly one block.
// Inline markdown (bold, italic, links) is left untouched in the block text.
package narrative

import (
	"iter"
	"regexp"
	"strings"
)

// Kind identifies the block variant.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading1
	KindHeading2
	KindListItem
)

// String returns the short tag used in templates and CLI output.
func (k Kind) String() string {
	switch k {
	case KindHeading1:
		return "h1"
	case KindHeading2:
		return "h2"
	case KindListItem:
		return "li"
	default:
		return "p"
	}
}

// Block is one classified narrative line.
type Block struct {
	Kind Kind
	Text string
	// Continued marks the remainder of a block split across report pages.
	Continued bool
}

// IsHeading reports whether the block is a level 1 or level 2 heading.
func (b Block) IsHeading() bool {
	return b.Kind == KindHeading1 || b.Kind == KindHeading2
}

var (
	lineSplit       = regexp.MustCompile(`\r?\n`)
	orderedListItem = regexp.MustCompile(`^\d+\.\s`)
)

// Parse classifies every non-blank line of md.
func Parse(md string) []Block {
	var blocks []Block
	for block := range Blocks(md) {
		blocks = append(blocks, block)
	}
	return blocks
}

// Blocks yields the blocks of md lazily, in input order.
func Blocks(md string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		if md == "" {
			return
		}
		for _, line := range lineSplit.Split(md, -1) {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if !yield(classify(trimmed)) {
				return
			}
		}
	}
}

func classify(line string) Block {
	switch {
	case strings.HasPrefix(line, "# "):
		return Block{Kind: KindHeading1, Text: strings.TrimSpace(line[2:])}
	case strings.HasPrefix(line, "## "):
		return Block{Kind: KindHeading2, Text: strings.TrimSpace(line[3:])}
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		return Block{Kind: KindListItem, Text: strings.TrimSpace(line[2:])}
	case orderedListItem.MatchString(line):
		return Block{Kind: KindListItem, Text: strings.TrimSpace(orderedListItem.ReplaceAllString(line, ""))}
	default:
		return Block{Kind: KindParagraph, Text: line}
	}
}

const (
	priorityHeading  = "RECOMMANDATIONS PRIORITAIRES"
	immediateHeading = "ACTIONS IMMÉDIATES (7 PREMIERS JOURS)"
)

// Rewrite applies the on-screen wording used by the results dashboard.
// The PDF report renders the narrative as received.
func Rewrite(md string) string {
	return strings.ReplaceAll(md, priorityHeading, immediateHeading)
}
