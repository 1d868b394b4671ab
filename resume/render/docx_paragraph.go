package render

import (
	"encoding/xml"
	"strings"
)

// Paragraph is a w:p element of a parsed part.
type Paragraph struct {
	node *xmlNode
}

func paragraphsOf(container *xmlNode) []*Paragraph {
	var out []*Paragraph
	for _, node := range childElements(container, "p") {
		out = append(out, &Paragraph{node: node})
	}
	return out
}

// Text returns the concatenated text of the paragraph's direct runs.
func (p *Paragraph) Text() string {
	var builder strings.Builder
	for _, run := range p.runs() {
		builder.WriteString(runText(run))
	}
	return builder.String()
}

func (p *Paragraph) runs() []*xmlNode {
	return childElements(p.node, "r")
}

// IsBlank reports whether the paragraph has no visible text.
func (p *Paragraph) IsBlank() bool {
	return strings.TrimSpace(p.Text()) == ""
}

// Table is a w:tbl element.
type Table struct {
	node *xmlNode
}

// Rows returns the cells of every w:tr, row-major.
func (t *Table) Rows() [][]*Cell {
	var rows [][]*Cell
	for _, tr := range childElements(t.node, "tr") {
		var cells []*Cell
		for _, tc := range childElements(tr, "tc") {
			cells = append(cells, &Cell{node: tc})
		}
		rows = append(rows, cells)
	}
	return rows
}

// Cell is a w:tc element.
type Cell struct {
	node *xmlNode
}

// Paragraphs returns the cell's top-level paragraphs.
func (c *Cell) Paragraphs() []*Paragraph {
	return paragraphsOf(c.node)
}

// Tables returns the tables nested directly in the cell.
func (c *Cell) Tables() []*Table {
	var out []*Table
	for _, node := range childElements(c.node, "tbl") {
		out = append(out, &Table{node: node})
	}
	return out
}

func runText(run *xmlNode) string {
	var builder strings.Builder
	for _, child := range run.Children {
		switch {
		case isElement(child, "t"):
			builder.WriteString(nodeText(child))
		case isElement(child, "tab"):
			builder.WriteByte('\t')
		case isElement(child, "br"), isElement(child, "cr"):
			builder.WriteByte('\n')
		}
	}
	return builder.String()
}

// setRunText replaces the run's content with text, keeping w:rPr. Line feeds
// become w:br and tabs become w:tab.
func setRunText(run *xmlNode, text string) {
	kept := run.Children[:0]
	for _, child := range run.Children {
		if isElement(child, "rPr") {
			kept = append(kept, child)
		}
	}
	run.Children = kept

	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		run.Children = append(run.Children, newTextNode(pending.String()))
		pending.Reset()
	}
	for _, r := range text {
		switch r {
		case '\n':
			flush()
			run.Children = append(run.Children, newWElement("br"))
		case '\t':
			flush()
			run.Children = append(run.Children, newWElement("tab"))
		case '\r':
		default:
			pending.WriteRune(r)
		}
	}
	flush()
}

func newWElement(local string) *xmlNode {
	return &xmlNode{Name: xml.Name{Space: wmlNamespace, Local: local}}
}

func newTextNode(text string) *xmlNode {
	node := newWElement("t")
	node.Attr = []xml.Attr{{Name: xml.Name{Space: xmlNamespace, Local: "space"}, Value: "preserve"}}
	node.Children = []*xmlNode{{IsText: true, Text: text}}
	return node
}
