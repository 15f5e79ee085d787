package auditreport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfiamatic/audit-flash/internal/narrative"
)

func TestPaginateRespectsBudget(t *testing.T) {
	l := Layout{PageLines: 10, HeaderLines: 2, LineChars: 40}
	blocks := make([]narrative.Block, 12)
	for i := range blocks {
		blocks[i] = narrative.Block{Kind: narrative.KindParagraph, Text: "court"}
	}

	pages := l.Paginate(blocks)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 4)
	assert.Len(t, pages[1], 5)
	assert.Len(t, pages[2], 3)
}

func TestPaginateKeepsHeadingWithNext(t *testing.T) {
	l := Layout{PageLines: 10, HeaderLines: 0, LineChars: 40}
	blocks := []narrative.Block{
		{Kind: narrative.KindParagraph, Text: "a"},
		{Kind: narrative.KindParagraph, Text: "b"},
		{Kind: narrative.KindParagraph, Text: "c"},
		{Kind: narrative.KindHeading2, Text: "Titre"},
		{Kind: narrative.KindParagraph, Text: strings.Repeat("x", 120)},
	}

	pages := l.Paginate(blocks)
	require.Len(t, pages, 2)
	assert.Len(t, pages[0], 3)
	assert.Equal(t, narrative.KindHeading2, pages[1][0].Kind)
}

func TestPaginateSplitsOversizedBlock(t *testing.T) {
	l := Layout{PageLines: 5, HeaderLines: 0, LineChars: 20}
	blocks := []narrative.Block{
		{Kind: narrative.KindParagraph, Text: "a"},
		{Kind: narrative.KindParagraph, Text: strings.Repeat("y", 400)},
		{Kind: narrative.KindParagraph, Text: "b"},
	}

	pages := l.Paginate(blocks)
	require.Len(t, pages, 6)
	assert.Equal(t, "a", pages[0][0].Text)
	assert.Equal(t, strings.Repeat("y", 40), pages[0][1].Text)
	assert.False(t, pages[0][1].Continued)
	assert.True(t, pages[1][0].Continued)
	assert.Equal(t, "b", pages[5][len(pages[5])-1].Text)
	assertWithinBudget(t, l, pages)

	var ys strings.Builder
	for _, page := range pages {
		for _, b := range page {
			if b.Text != "a" && b.Text != "b" {
				ys.WriteString(b.Text)
			}
		}
	}
	assert.Equal(t, strings.Repeat("y", 400), ys.String())
	assert.Nil(t, l.Paginate(nil))
}

func TestPaginateLongParagraphKeepsAllText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("analyse ", 825))
	blocks := []narrative.Block{
		{Kind: narrative.KindHeading1, Text: "Analyse"},
		{Kind: narrative.KindParagraph, Text: text},
		{Kind: narrative.KindListItem, Text: text},
	}
	require.Greater(t, DefaultLayout.Cost(blocks[1]), DefaultLayout.PageLines)

	pages := DefaultLayout.Paginate(blocks)
	assertWithinBudget(t, DefaultLayout, pages)

	var joined []string
	for _, page := range pages {
		for _, b := range page {
			if b.Continued {
				joined[len(joined)-1] += " " + b.Text
				continue
			}
			joined = append(joined, b.Text)
		}
	}
	assert.Equal(t, []string{"Analyse", text, text}, joined)
}

func TestPaginateHeadingNotAloneBeforeOversizedBlock(t *testing.T) {
	l := Layout{PageLines: 10}
	blocks := []narrative.Block{
		{Kind: narrative.KindParagraph, Text: "a"},
		{Kind: narrative.KindHeading2, Text: "Titre"},
		{Kind: narrative.KindParagraph, Text: strings.Repeat("x", 800)},
	}

	pages := l.Paginate(blocks)
	assertWithinBudget(t, l, pages)
	for _, page := range pages {
		last := page[len(page)-1]
		assert.False(t, last.IsHeading(), "page ends with heading %q", last.Text)
	}
	require.Len(t, pages[0], 3)
	assert.Equal(t, narrative.KindHeading2, pages[0][1].Kind)
}

func TestPaginateCarriesHeadingRun(t *testing.T) {
	l := Layout{PageLines: 10}
	blocks := []narrative.Block{
		{Kind: narrative.KindParagraph, Text: "a"},
		{Kind: narrative.KindHeading1, Text: "T"},
		{Kind: narrative.KindHeading2, Text: "Titre"},
		{Kind: narrative.KindParagraph, Text: strings.Repeat("x", 140)},
	}

	pages := l.Paginate(blocks)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 1)
	require.Len(t, pages[1], 3)
	assert.Equal(t, narrative.KindHeading1, pages[1][0].Kind)
	assert.Equal(t, narrative.KindHeading2, pages[1][1].Kind)
	assert.Equal(t, strings.Repeat("x", 80), pages[1][2].Text)
	assert.Equal(t, strings.Repeat("x", 60), pages[2][0].Text)
	assertWithinBudget(t, l, pages)
}

func TestPaginateFirstPageHeaderRoom(t *testing.T) {
	l := Layout{PageLines: 10, HeaderLines: 4, LineChars: 20}
	blocks := []narrative.Block{{Kind: narrative.KindParagraph, Text: strings.TrimSpace(strings.Repeat("mot ", 40))}}
	require.LessOrEqual(t, l.Cost(blocks[0]), l.PageLines)

	pages := l.Paginate(blocks)
	require.Len(t, pages, 2)
	assertWithinBudget(t, l, pages)
}

func assertWithinBudget(t *testing.T, l Layout, pages [][]narrative.Block) {
	t.Helper()
	for i, page := range pages {
		budget := l.PageLines
		if i == 0 {
			budget -= l.HeaderLines
		}
		var used int
		for _, b := range page {
			used += l.Cost(b)
		}
		assert.LessOrEqual(t, used, budget, "page %d", i+1)
	}
}
