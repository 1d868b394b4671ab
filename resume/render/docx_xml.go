package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	wpNamespace  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	aNamespace   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	picNamespace = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
)

var knownNamespaceURIs = map[string]string{
	"w":   wmlNamespace,
	"r":   relNamespace,
	"a":   aNamespace,
	"wp":  wpNamespace,
	"pic": picNamespace,
	"mc":  "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"w14": "http://schemas.microsoft.com/office/word/2010/wordml",
	"w15": "http://schemas.microsoft.com/office/word/2012/wordml",
}

// xmlNode is a mutable element or character-data node of a WordprocessingML part.
type xmlNode struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*xmlNode
	Text     string
	IsText   bool
}

// xmlPart is one parsed XML part of the package. The root start and end tags
// are kept verbatim so namespace declarations and mc:Ignorable survive a
// round trip.
type xmlPart struct {
	name      string
	header    string
	rootStart string
	rootEnd   string
	root      *xmlNode
}

var xmlHeaderPattern = regexp.MustCompile(`(?s)^\s*(<\?xml[^>]+\?>)`)

// parsePart decodes content into a node tree. The raw root tags are cut out
// of the input at the decoder offsets where the root opens and closes.
func parsePart(name string, content []byte) (*xmlPart, error) {
	text := string(content)
	part := &xmlPart{name: name}
	if match := xmlHeaderPattern.FindStringSubmatch(text); match != nil {
		part.header = match[1]
		text = strings.TrimSpace(text[len(match[0]):])
	}

	root, err := decodeTree(text, func(depth int, open bool, raw string) {
		if depth != 0 {
			return
		}
		if open {
			part.rootStart = raw
		} else {
			part.rootEnd = raw
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	part.root = root

	// <w:hdr/> style roots: reopen so children can be written back.
	if strings.HasSuffix(part.rootStart, "/>") {
		tag := strings.FieldsFunc(part.rootStart[1:], func(r rune) bool {
			return unicode.IsSpace(r) || r == '/' || r == '>'
		})
		if len(tag) == 0 {
			return nil, fmt.Errorf("parse %s: root tag name missing", name)
		}
		part.rootStart = strings.TrimSuffix(part.rootStart, "/>") + ">"
		part.rootEnd = "</" + tag[0] + ">"
	}
	return part, nil
}

// decodeTree builds the element tree of text. onRoot, when set, receives the
// raw source of every start and end tag together with its depth.
func decodeTree(text string, onRoot func(depth int, open bool, raw string)) (*xmlNode, error) {
	decoder := xml.NewDecoder(strings.NewReader(text))
	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		before := decoder.InputOffset()
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		after := decoder.InputOffset()

		switch t := token.(type) {
		case xml.StartElement:
			node := &xmlNode{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			switch {
			case len(stack) > 0:
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			case root != nil:
				return nil, errors.New("more than one root element")
			default:
				root = node
			}
			if onRoot != nil {
				onRoot(len(stack), true, text[before:after])
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			stack = stack[:len(stack)-1]
			if onRoot != nil {
				onRoot(len(stack), false, text[before:after])
			}
		case xml.CharData:
			if len(stack) == 0 || len(t) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &xmlNode{IsText: true, Text: string(t)})
		}
	}
	if root == nil {
		return nil, errors.New("xml part has no root element")
	}
	return root, nil
}

// encode writes the part back out. Nodes carry resolved namespace URIs, so
// every name is re-qualified with the root's prefixes; well-known prefixes
// picked up by inserted nodes get declared on the root tag.
func (p *xmlPart) encode() ([]byte, error) {
	declared := rootDeclarations(p.root)
	prefixFor := make(map[string]string, len(declared)+len(knownNamespaceURIs))
	for prefix, uri := range declared {
		prefixFor[uri] = prefix
	}
	for prefix, uri := range knownNamespaceURIs {
		if _, clash := declared[prefix]; clash {
			continue
		}
		if _, ok := prefixFor[uri]; !ok {
			prefixFor[uri] = prefix
		}
	}

	used := make(map[string]bool)
	clone := cloneNode(p.root)
	qualify(clone, prefixFor, used)

	var buf bytes.Buffer
	if p.header != "" {
		buf.WriteString(p.header)
		if !strings.HasSuffix(p.header, "\n") {
			buf.WriteByte('\n')
		}
	}
	buf.WriteString(withDeclarations(p.rootStart, declared, used))

	encoder := xml.NewEncoder(&buf)
	for _, child := range clone.Children {
		if err := encodeXMLNode(encoder, child); err != nil {
			return nil, err
		}
	}
	if err := encoder.Flush(); err != nil {
		return nil, err
	}
	buf.WriteString(p.rootEnd)
	return buf.Bytes(), nil
}

// rootDeclarations maps each prefix declared on the root to its URI. The
// default namespace, if any, is keyed by "".
func rootDeclarations(root *xmlNode) map[string]string {
	out := make(map[string]string)
	if root == nil {
		return out
	}
	for _, attr := range root.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			out[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			out[""] = attr.Value
		}
	}
	return out
}

// qualify rewrites resolved names as prefix:local and records which
// prefixes ended up in use.
func qualify(node *xmlNode, prefixFor map[string]string, used map[string]bool) {
	if node == nil || node.IsText {
		return
	}
	node.Name = qualifiedName(node.Name, prefixFor, used)
	for i, attr := range node.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			node.Attr[i].Name = xml.Name{Local: "xmlns:" + attr.Name.Local}
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
		default:
			node.Attr[i].Name = qualifiedName(attr.Name, prefixFor, used)
		}
	}
	for _, child := range node.Children {
		qualify(child, prefixFor, used)
	}
}

func qualifiedName(name xml.Name, prefixFor map[string]string, used map[string]bool) xml.Name {
	prefix, ok := prefixFor[name.Space]
	if !ok || prefix == "" {
		return name
	}
	used[prefix] = true
	return xml.Name{Local: prefix + ":" + name.Local}
}

// withDeclarations appends xmlns attributes for used prefixes the root tag
// does not declare yet, in prefix order.
func withDeclarations(rootStart string, declared map[string]string, used map[string]bool) string {
	var missing []string
	for prefix := range used {
		if _, ok := declared[prefix]; ok {
			continue
		}
		if _, ok := knownNamespaceURIs[prefix]; ok {
			missing = append(missing, prefix)
		}
	}
	if len(missing) == 0 || !strings.HasSuffix(rootStart, ">") {
		return rootStart
	}
	sort.Strings(missing)

	var decls strings.Builder
	for _, prefix := range missing {
		fmt.Fprintf(&decls, ` xmlns:%s="%s"`, prefix, knownNamespaceURIs[prefix])
	}
	return strings.TrimSuffix(rootStart, ">") + decls.String() + ">"
}

func encodeXMLNode(encoder *xml.Encoder, node *xmlNode) error {
	if node.IsText {
		return encoder.EncodeToken(xml.CharData([]byte(node.Text)))
	}
	start := xml.StartElement{Name: node.Name, Attr: node.Attr}
	if err := encoder.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := encodeXMLNode(encoder, child); err != nil {
			return err
		}
	}
	return encoder.EncodeToken(start.End())
}

// parseFragment parses a snippet written with the well-known prefixes
// (w, r, wp, a, pic) into nodes carrying resolved namespace URIs.
func parseFragment(fragment string) ([]*xmlNode, error) {
	prefixes := make([]string, 0, len(knownNamespaceURIs))
	for prefix := range knownNamespaceURIs {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var builder strings.Builder
	builder.WriteString("<fragment")
	for _, prefix := range prefixes {
		builder.WriteString(" xmlns:")
		builder.WriteString(prefix)
		builder.WriteString(`="`)
		builder.WriteString(knownNamespaceURIs[prefix])
		builder.WriteString(`"`)
	}
	builder.WriteString(">")
	builder.WriteString(fragment)
	builder.WriteString("</fragment>")

	root, err := decodeTree(builder.String(), nil)
	if err != nil {
		return nil, err
	}
	out := make([]*xmlNode, 0, len(root.Children))
	for _, child := range root.Children {
		if child.IsText {
			continue
		}
		stripNamespaceDecls(child)
		out = append(out, child)
	}
	return out, nil
}

func stripNamespaceDecls(node *xmlNode) {
	if node == nil || node.IsText {
		return
	}
	kept := node.Attr[:0]
	for _, attr := range node.Attr {
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			continue
		}
		kept = append(kept, attr)
	}
	node.Attr = kept
	for _, child := range node.Children {
		stripNamespaceDecls(child)
	}
}

func walkXML(node *xmlNode, visit func(*xmlNode) bool) bool {
	if node == nil {
		return true
	}
	if !visit(node) {
		return false
	}
	for _, child := range node.Children {
		if !walkXML(child, visit) {
			return false
		}
	}
	return true
}

func cloneNode(node *xmlNode) *xmlNode {
	if node == nil {
		return nil
	}
	cloned := &xmlNode{
		Name:   node.Name,
		Attr:   append([]xml.Attr(nil), node.Attr...),
		Text:   node.Text,
		IsText: node.IsText,
	}
	if len(node.Children) > 0 {
		cloned.Children = make([]*xmlNode, 0, len(node.Children))
		for _, child := range node.Children {
			cloned.Children = append(cloned.Children, cloneNode(child))
		}
	}
	return cloned
}

func isElement(node *xmlNode, local string) bool {
	if node == nil || node.IsText {
		return false
	}
	if node.Name.Local != local {
		return false
	}
	return node.Name.Space == "" || node.Name.Space == wmlNamespace
}

func childElements(node *xmlNode, local string) []*xmlNode {
	if node == nil {
		return nil
	}
	var out []*xmlNode
	for _, child := range node.Children {
		if isElement(child, local) {
			out = append(out, child)
		}
	}
	return out
}

func firstChild(node *xmlNode, local string) *xmlNode {
	if node == nil {
		return nil
	}
	for _, child := range node.Children {
		if isElement(child, local) {
			return child
		}
	}
	return nil
}

func findFirst(root *xmlNode, local string) *xmlNode {
	var match *xmlNode
	walkXML(root, func(n *xmlNode) bool {
		if isElement(n, local) {
			match = n
			return false
		}
		return true
	})
	return match
}

func attrValue(node *xmlNode, space, local string) (string, bool) {
	if node == nil {
		return "", false
	}
	for _, attr := range node.Attr {
		if attr.Name.Local == local && (space == "" || attr.Name.Space == space) {
			return attr.Value, true
		}
	}
	return "", false
}

func nodeText(node *xmlNode) string {
	if node.IsText {
		return node.Text
	}
	var builder strings.Builder
	for _, child := range node.Children {
		if child.IsText {
			builder.WriteString(child.Text)
		}
	}
	return builder.String()
}

func indexOfChild(parent, child *xmlNode) int {
	if parent == nil {
		return -1
	}
	for idx, candidate := range parent.Children {
		if candidate == child {
			return idx
		}
	}
	return -1
}

func insertChildAfter(parent, anchor, node *xmlNode) error {
	idx := indexOfChild(parent, anchor)
	if idx == -1 {
		return errors.New("anchor node is not a child of parent")
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[idx+2:], parent.Children[idx+1:])
	parent.Children[idx+1] = node
	return nil
}

func removeChild(parent, child *xmlNode) bool {
	idx := indexOfChild(parent, child)
	if idx == -1 {
		return false
	}
	parent.Children = append(parent.Children[:idx], parent.Children[idx+1:]...)
	return true
}
