package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	documentPartName     = "word/document.xml"
	documentRelsPartName = "word/_rels/document.xml.rels"
	contentTypesPartName = "[Content_Types].xml"

	headerRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	footerRelationshipType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	imageRelationshipType  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	packageRelsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
	contentTypesNS       = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// Relationship is one entry of a part's .rels file.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

type relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

type contentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentTypes struct {
	XMLName   xml.Name              `xml:"Types"`
	Namespace string                `xml:"xmlns,attr"`
	Defaults  []contentTypeDefault  `xml:"Default"`
	Overrides []contentTypeOverride `xml:"Override"`
}

type zipEntry struct {
	header  zip.FileHeader
	content []byte
}

// Document is an in-memory DOCX package. The main document part and every
// header/footer part referenced from it are parsed into mutable trees; every
// other part is carried through untouched. A Document is not safe for
// concurrent use.
type Document struct {
	entries []*zipEntry
	main    *xmlPart
	body    *xmlNode
	parts   map[string]*xmlPart

	rels      *relationships
	relsDirty bool

	types      *contentTypes
	typesDirty bool

	media       []*zipEntry
	images      map[string]pictureRef
	nextDocPrID int
}

// Open parses a DOCX package held in memory.
func Open(data []byte) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read docx zip: %w", err)
	}

	doc := &Document{
		parts:  make(map[string]*xmlPart),
		images: make(map[string]pictureRef),
	}
	for _, file := range reader.File {
		content, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Name, err)
		}
		header := file.FileHeader
		header.Name = normalizeZipName(file.Name)
		doc.entries = append(doc.entries, &zipEntry{header: header, content: content})
	}

	mainEntry := doc.entry(documentPartName)
	if mainEntry == nil {
		return nil, errors.New("not a docx package: missing word/document.xml")
	}
	doc.main, err = parsePart(documentPartName, mainEntry.content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentPartName, err)
	}
	doc.parts[documentPartName] = doc.main
	doc.body = findFirst(doc.main.root, "body")
	if doc.body == nil {
		return nil, errors.New("word/document.xml has no body")
	}

	if err := doc.loadRelationships(); err != nil {
		return nil, err
	}
	if err := doc.loadContentTypes(); err != nil {
		return nil, err
	}
	doc.nextDocPrID = doc.maxDocPrID() + 1
	return doc, nil
}

func (d *Document) entry(name string) *zipEntry {
	for _, e := range d.entries {
		if e.header.Name == name {
			return e
		}
	}
	return nil
}

func (d *Document) loadRelationships() error {
	d.rels = &relationships{Namespace: packageRelsNamespace}
	relsEntry := d.entry(documentRelsPartName)
	if relsEntry == nil {
		return nil
	}
	if err := xml.Unmarshal(relsEntry.content, d.rels); err != nil {
		return fmt.Errorf("parse %s: %w", documentRelsPartName, err)
	}
	// The namespace is written back through the Namespace attribute.
	d.rels.XMLName = xml.Name{}
	if d.rels.Namespace == "" {
		d.rels.Namespace = packageRelsNamespace
	}

	for _, rel := range d.rels.Relationship {
		if rel.Type != headerRelationshipType && rel.Type != footerRelationshipType {
			continue
		}
		name := resolvePartTarget(rel.Target)
		if _, ok := d.parts[name]; ok {
			continue
		}
		e := d.entry(name)
		if e == nil {
			return fmt.Errorf("relationship %s points to missing part %s", rel.ID, name)
		}
		part, err := parsePart(name, e.content)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		d.parts[name] = part
	}
	return nil
}

func (d *Document) loadContentTypes() error {
	d.types = &contentTypes{Namespace: contentTypesNS}
	e := d.entry(contentTypesPartName)
	if e == nil {
		return nil
	}
	if err := xml.Unmarshal(e.content, d.types); err != nil {
		return fmt.Errorf("parse %s: %w", contentTypesPartName, err)
	}
	d.types.XMLName = xml.Name{}
	if d.types.Namespace == "" {
		d.types.Namespace = contentTypesNS
	}
	return nil
}

func (d *Document) relationship(id string) (Relationship, bool) {
	for _, rel := range d.rels.Relationship {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Paragraphs returns the body's top-level paragraphs in document order.
func (d *Document) Paragraphs() []*Paragraph {
	return paragraphsOf(d.body)
}

// Tables returns the body's top-level tables in document order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, node := range childElements(d.body, "tbl") {
		out = append(out, &Table{node: node})
	}
	return out
}

// Section groups the header and footer parts referenced by one w:sectPr.
type Section struct {
	Headers []*Part
	Footers []*Part
}

// Part is a parsed header or footer part.
type Part struct {
	xml *xmlPart
}

// Name returns the zip entry name of the part.
func (p *Part) Name() string {
	return p.xml.name
}

// Paragraphs returns the part's top-level paragraphs.
func (p *Part) Paragraphs() []*Paragraph {
	return paragraphsOf(p.xml.root)
}

// Sections lists the document sections in order. Paragraph-level section
// properties come first, the body-level w:sectPr closes the list.
func (d *Document) Sections() []Section {
	var props []*xmlNode
	for _, child := range d.body.Children {
		switch {
		case isElement(child, "p"):
			if sectPr := firstChild(firstChild(child, "pPr"), "sectPr"); sectPr != nil {
				props = append(props, sectPr)
			}
		case isElement(child, "sectPr"):
			props = append(props, child)
		}
	}

	sections := make([]Section, 0, len(props))
	for _, sectPr := range props {
		var section Section
		for _, ref := range sectPr.Children {
			var target *[]*Part
			switch {
			case isElement(ref, "headerReference"):
				target = &section.Headers
			case isElement(ref, "footerReference"):
				target = &section.Footers
			default:
				continue
			}
			id, ok := attrValue(ref, relNamespace, "id")
			if !ok {
				continue
			}
			rel, ok := d.relationship(id)
			if !ok {
				continue
			}
			if part, ok := d.parts[resolvePartTarget(rel.Target)]; ok {
				*target = append(*target, &Part{xml: part})
			}
		}
		sections = append(sections, section)
	}
	return sections
}

// Save serializes the document, keeping the original entry order and
// appending any media added since Open.
func (d *Document) Save() ([]byte, error) {
	var output bytes.Buffer
	writer := zip.NewWriter(&output)

	wroteRels := false
	wroteTypes := false
	for _, e := range d.entries {
		content := e.content
		switch name := e.header.Name; {
		case d.parts[name] != nil:
			encoded, err := d.parts[name].encode()
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", name, err)
			}
			content = encoded
		case name == documentRelsPartName && d.relsDirty:
			encoded, err := marshalPackageXML(d.rels)
			if err != nil {
				return nil, err
			}
			content = encoded
			wroteRels = true
		case name == contentTypesPartName && d.typesDirty:
			encoded, err := marshalPackageXML(d.types)
			if err != nil {
				return nil, err
			}
			content = encoded
			wroteTypes = true
		}
		if err := writeZipEntry(writer, e.header, content); err != nil {
			return nil, err
		}
	}

	if d.relsDirty && !wroteRels {
		encoded, err := marshalPackageXML(d.rels)
		if err != nil {
			return nil, err
		}
		if err := writeZipEntry(writer, newFileHeader(documentRelsPartName), encoded); err != nil {
			return nil, err
		}
	}
	if d.typesDirty && !wroteTypes {
		encoded, err := marshalPackageXML(d.types)
		if err != nil {
			return nil, err
		}
		if err := writeZipEntry(writer, newFileHeader(contentTypesPartName), encoded); err != nil {
			return nil, err
		}
	}
	for _, m := range d.media {
		if err := writeZipEntry(writer, m.header, m.content); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close docx zip: %w", err)
	}
	return output.Bytes(), nil
}

func marshalPackageXML(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal package xml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func newFileHeader(name string) zip.FileHeader {
	return zip.FileHeader{Name: name, Method: zip.Deflate}
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeZipEntry(writer *zip.Writer, header zip.FileHeader, content []byte) error {
	dst, err := writer.CreateHeader(&header)
	if err != nil {
		return fmt.Errorf("create %s: %w", header.Name, err)
	}
	if _, err := dst.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", header.Name, err)
	}
	return nil
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

// resolvePartTarget turns a relationship target of word/document.xml into a
// package part name.
func resolvePartTarget(target string) string {
	target = normalizeZipName(target)
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join("word", target))
}
