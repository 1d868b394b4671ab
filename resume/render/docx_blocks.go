package render

import (
	"fmt"
	"strings"
)

// Block is one instance of the repeating region, in document order.
type Block []*Paragraph

// Last returns the final paragraph of the block.
func (b Block) Last() *Paragraph {
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1]
}

// LastNonBlank returns the last paragraph with visible text, or the final
// paragraph when every paragraph is blank.
func (b Block) LastNonBlank() *Paragraph {
	for i := len(b) - 1; i >= 0; i-- {
		if !b[i].IsBlank() {
			return b[i]
		}
	}
	return b.Last()
}

// FindBlock locates the body paragraphs from the first one containing start
// to the next one containing end, both included. The end marker may sit in
// the start paragraph itself.
func (d *Document) FindBlock(start, end string) (Block, error) {
	paragraphs := d.Paragraphs()
	first := -1
	for i, p := range paragraphs {
		if strings.Contains(p.Text(), start) {
			first = i
			break
		}
	}
	if first == -1 {
		return nil, &TemplateStructureError{StartMarker: start, EndMarker: end, Reason: "start marker not found"}
	}
	for i := first; i < len(paragraphs); i++ {
		if strings.Contains(paragraphs[i].Text(), end) {
			return Block(paragraphs[first : i+1]), nil
		}
	}
	return nil, &TemplateStructureError{StartMarker: start, EndMarker: end, Reason: "end marker not found after start marker"}
}

// DuplicateBlock expands the block between start and end to count
// contiguous instances. The original block is returned first; each copy is
// a deep clone of the template paragraphs inserted after the previously
// emitted paragraph.
func (d *Document) DuplicateBlock(start, end string, count int) ([]Block, error) {
	if count < 1 {
		return nil, fmt.Errorf("duplicate block: count must be at least 1, got %d", count)
	}
	original, err := d.FindBlock(start, end)
	if err != nil {
		return nil, err
	}

	template := make([]*xmlNode, 0, len(original))
	for _, p := range original {
		template = append(template, cloneNode(p.node))
	}

	blocks := make([]Block, 0, count)
	blocks = append(blocks, original)
	last := original.Last().node
	for i := 1; i < count; i++ {
		block := make(Block, 0, len(template))
		for _, node := range template {
			copied := cloneNode(node)
			d.renumberDrawings(copied)
			if err := insertChildAfter(d.body, last, copied); err != nil {
				return nil, fmt.Errorf("duplicate block: %w", err)
			}
			block = append(block, &Paragraph{node: copied})
			last = copied
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// RemoveBlock deletes the paragraphs between start and end from the body.
func (d *Document) RemoveBlock(start, end string) error {
	block, err := d.FindBlock(start, end)
	if err != nil {
		return err
	}
	// Paragraphs carrying section properties close a section; keep them.
	for _, p := range block {
		if firstChild(firstChild(p.node, "pPr"), "sectPr") != nil {
			p.setText("")
			continue
		}
		removeChild(d.body, p.node)
	}
	return nil
}
