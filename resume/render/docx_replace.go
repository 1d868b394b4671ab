package render

import "strings"

// ReplaceText replaces every occurrence of key in the concatenated run text
// of each paragraph with value.
//
// A matching paragraph is collapsed: the new text goes into its first run
// and every other run is emptied, so formatting carried by the other runs is
// lost. Paragraphs without a match are left untouched.
func ReplaceText(paragraphs []*Paragraph, key, value string) int {
	if key == "" {
		return 0
	}
	replaced := 0
	for _, p := range paragraphs {
		text := p.Text()
		if !strings.Contains(text, key) {
			continue
		}
		p.setText(strings.ReplaceAll(text, key, value))
		replaced++
	}
	return replaced
}

func (p *Paragraph) setText(text string) {
	runs := p.runs()
	if len(runs) == 0 {
		run := newWElement("r")
		p.node.Children = append(p.node.Children, run)
		runs = []*xmlNode{run}
	}
	for _, run := range runs[1:] {
		setRunText(run, "")
	}
	setRunText(runs[0], text)
}

// ReplaceEverywhere applies ReplaceText to the body paragraphs, then to every
// table cell (row-major, nested tables included), then to the header and
// footer paragraphs of each section. It returns the number of paragraphs
// changed.
func ReplaceEverywhere(doc *Document, key, value string) int {
	replaced := ReplaceText(doc.Paragraphs(), key, value)
	for _, table := range doc.Tables() {
		replaced += replaceInTable(table, key, value)
	}

	seen := make(map[*xmlPart]struct{})
	for _, section := range doc.Sections() {
		for _, group := range [][]*Part{section.Headers, section.Footers} {
			for _, part := range group {
				// Sections may share a header part; replace it once.
				if _, ok := seen[part.xml]; ok {
					continue
				}
				seen[part.xml] = struct{}{}
				replaced += ReplaceText(part.Paragraphs(), key, value)
			}
		}
	}
	return replaced
}

func replaceInTable(table *Table, key, value string) int {
	replaced := 0
	for _, row := range table.Rows() {
		for _, cell := range row {
			replaced += ReplaceText(cell.Paragraphs(), key, value)
			for _, nested := range cell.Tables() {
				replaced += replaceInTable(nested, key, value)
			}
		}
	}
	return replaced
}
