package auditreport

import (
	"unicode"
	"unicode/utf8"

	"github.com/perfiamatic/audit-flash/internal/narrative"
)

// Layout estimates how narrative blocks fill A4 pages. Costs are in body
// text lines.
type Layout struct {
	PageLines   int
	HeaderLines int
	LineChars   int
}

// DefaultLayout matches the report stylesheet (10pt body, 40pt margins).
var DefaultLayout = Layout{
	PageLines:   52,
	HeaderLines: 4,
	LineChars:   96,
}

// Cost returns the estimated number of lines a block takes, margins
// included.
func (l Layout) Cost(b narrative.Block) int {
	width := max(l.LineChars, 20)
	switch b.Kind {
	case narrative.KindHeading1:
		return wrapped(b.Text, width*5/8) + 2
	case narrative.KindHeading2:
		return wrapped(b.Text, width*3/4) + 1
	case narrative.KindListItem:
		return wrapped(b.Text, l.textWidth(b.Kind))
	default:
		return wrapped(b.Text, width) + 1
	}
}

// Paginate splits blocks into pages. The first page loses HeaderLines to
// the section header. A heading stays on the same page as the start of the
// block that follows it. Paragraphs and list items that do not fit the room
// left on a page are split at a word boundary and continue on the next one,
// so no page holds more than its budget.
func (l Layout) Paginate(blocks []narrative.Block) [][]narrative.Block {
	if len(blocks) == 0 {
		return nil
	}
	var (
		pages  [][]narrative.Block
		cur    []narrative.Block
		budget = l.PageLines - l.HeaderLines
		used   int
	)
	flush := func() {
		pages = append(pages, cur)
		cur = nil
		used = 0
		budget = l.PageLines
	}
	// breakPage starts a new page, moving trailing headings along so they
	// stay with the block that follows them.
	breakPage := func() {
		n := trailingHeadings(cur)
		carry := append([]narrative.Block(nil), cur[len(cur)-n:]...)
		cur = cur[:len(cur)-n]
		flush()
		for _, h := range carry {
			cur = append(cur, h)
			used += l.Cost(h)
		}
	}
	queue := append([]narrative.Block(nil), blocks...)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		cost := l.Cost(b)
		n := trailingHeadings(cur)

		if b.IsHeading() {
			need := cost
			if len(queue) > 0 {
				next := l.Cost(queue[0])
				if next > l.PageLines-cost {
					next = min(next, minSplitLines+1)
				}
				need += next
			}
			if len(cur) > n && used+need > budget {
				breakPage()
			}
			cur = append(cur, b)
			used += cost
			continue
		}

		if cost > budget-used && len(cur) > n && l.costOf(cur[len(cur)-n:])+cost <= l.PageLines {
			breakPage()
		}
		if room := budget - used; cost > room {
			if head, rest, ok := l.split(b, room); ok {
				cur = append(cur, head)
				flush()
				queue = append([]narrative.Block{rest}, queue...)
				continue
			}
			if len(cur) > trailingHeadings(cur) {
				breakPage()
				queue = append([]narrative.Block{b}, queue...)
				continue
			}
		}
		cur = append(cur, b)
		used += cost
	}
	if len(cur) > 0 {
		pages = append(pages, cur)
	}
	return pages
}

// minSplitLines is the smallest number of text lines in the first part of a
// split block.
const minSplitLines = 2

// split cuts b so that the first part costs at most room lines. ok is false
// when room cannot hold minSplitLines of text.
func (l Layout) split(b narrative.Block, room int) (head, rest narrative.Block, ok bool) {
	width := l.textWidth(b.Kind)
	lines := room - (l.Cost(b) - wrapped(b.Text, width))
	if lines < minSplitLines {
		return head, rest, false
	}
	runes := []rune(b.Text)
	limit := lines * width
	if len(runes) <= limit {
		return head, rest, false
	}
	cut, skip := limit, 0
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut, skip = i, 1
			break
		}
	}
	head = narrative.Block{Kind: b.Kind, Text: string(runes[:cut]), Continued: b.Continued}
	rest = narrative.Block{Kind: b.Kind, Text: string(runes[cut+skip:]), Continued: true}
	return head, rest, true
}

func (l Layout) textWidth(kind narrative.Kind) int {
	width := max(l.LineChars, 20)
	if kind == narrative.KindListItem {
		return width - 6
	}
	return width
}

func (l Layout) costOf(blocks []narrative.Block) int {
	var total int
	for _, b := range blocks {
		total += l.Cost(b)
	}
	return total
}

func trailingHeadings(blocks []narrative.Block) int {
	n := 0
	for i := len(blocks) - 1; i >= 0 && blocks[i].IsHeading(); i-- {
		n++
	}
	return n
}

func wrapped(text string, width int) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 1
	}
	return (n + width - 1) / width
}
