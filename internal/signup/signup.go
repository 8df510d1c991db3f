// Package signup extracts sign-up rosters from the rich-text HTML bodies of
// event submissions.
//
// Bodies come from a rich-text editor with no schema, so a roster is
// recognised by shape alone: a table with at least MinRows rows, sitting
// directly inside one of the body's top-level blocks. Each usable row gives a
// role in its first cell and a player name in its second.
package signup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMinRows is the smallest table treated as a roster.
const DefaultMinRows = 10

// maxCellDepth bounds the text search inside a single cell.
const maxCellDepth = 32

// placeholderPrefix marks "no entry" cells.
const placeholderPrefix = "-"

// Slot is one (role, player) pair from a roster row.
type Slot struct {
	Role   string
	Player string
}

// Extractor finds roster tables. The zero value uses DefaultMinRows.
type Extractor struct {
	MinRows int
}

// Extract runs the default Extractor over body.
func Extract(body string) []Slot {
	return Extractor{}.Extract(body)
}

// Extract returns the slots of the first top-level block holding a roster
// table, or nil when there is none. All qualifying tables of that block
// contribute, in document order.
func (e Extractor) Extract(body string) []Slot {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	minRows := e.MinRows
	if minRows <= 0 {
		minRows = DefaultMinRows
	}

	var slots []Slot
	doc.Find("body").Children().EachWithBreak(func(_ int, block *goquery.Selection) bool {
		block.ChildrenFiltered("table").Each(func(_ int, table *goquery.Selection) {
			rows := tableRows(table)
			if len(rows) < minRows {
				return
			}
			for _, row := range rows {
				if s, ok := rowSlot(row); ok {
					slots = append(slots, s)
				}
			}
		})
		return len(slots) == 0
	})
	return slots
}

// tableRows collects the rows placed directly in the table or in one of its
// tbody groups. Header and footer groups are left out.
func tableRows(table *goquery.Selection) []*html.Node {
	var rows []*html.Node
	for _, t := range table.Nodes {
		for c := t.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				rows = append(rows, c)
			case atom.Tbody:
				for r := c.FirstChild; r != nil; r = r.NextSibling {
					if r.Type == html.ElementNode && r.DataAtom == atom.Tr {
						rows = append(rows, r)
					}
				}
			}
		}
	}
	return rows
}

// rowSlot reads the first two cells of row.
func rowSlot(row *html.Node) (Slot, bool) {
	var values []string
	for c := row.FirstChild; c != nil && len(values) < 2; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		text, ok := firstText(c)
		if !ok {
			return Slot{}, false
		}
		values = append(values, strings.TrimSpace(text))
	}
	if len(values) < 2 {
		return Slot{}, false
	}
	for _, v := range values {
		if v == "" || strings.HasPrefix(v, placeholderPrefix) {
			return Slot{}, false
		}
	}
	return Slot{Role: values[0], Player: values[1]}, true
}

// firstText returns the first text node below n in depth-first pre-order.
func firstText(n *html.Node) (string, bool) {
	type frame struct {
		node  *html.Node
		depth int
	}
	var stack []frame
	push := func(parent *html.Node, depth int) {
		for c := parent.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, frame{c, depth})
		}
	}

	push(n, 1)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.node.Type == html.TextNode {
			return f.node.Data, true
		}
		if f.depth < maxCellDepth {
			push(f.node, f.depth+1)
		}
	}
	return "", false
}
