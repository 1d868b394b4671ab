package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strconv"
	"strings"
)

// EMUsPerInch converts inches to the English Metric Units used by DrawingML.
const EMUsPerInch = 914400

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// Picture is an image to embed inline.
type Picture struct {
	Data []byte
	// Width in EMUs. Height follows the image aspect ratio.
	Width int64
}

type pictureRef struct {
	relID  string
	width  int64
	height int64
}

// InsertPictureAfter adds a centered paragraph holding pic right after
// anchor. The image bytes are stored once per document no matter how many
// paragraphs reference them.
func (d *Document) InsertPictureAfter(anchor *Paragraph, pic Picture) (*Paragraph, error) {
	if anchor == nil {
		return nil, errors.New("insert picture: nil anchor paragraph")
	}
	ref, err := d.addPicture(pic)
	if err != nil {
		return nil, err
	}

	id := d.nextDocPrID
	d.nextDocPrID++
	nodes, err := parseFragment(pictureParagraphXML(ref, id))
	if err != nil {
		return nil, fmt.Errorf("insert picture: %w", err)
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("insert picture: expected one paragraph, got %d nodes", len(nodes))
	}

	parent := d.parentOf(anchor.node)
	if parent == nil {
		return nil, errors.New("insert picture: anchor paragraph is not part of the document")
	}
	if err := insertChildAfter(parent, anchor.node, nodes[0]); err != nil {
		return nil, fmt.Errorf("insert picture: %w", err)
	}
	return &Paragraph{node: nodes[0]}, nil
}

// HasPicture reports whether the paragraph contains an inline drawing.
func (p *Paragraph) HasPicture() bool {
	return findFirst(p.node, "drawing") != nil
}

// IsCentered reports whether the paragraph is center-justified.
func (p *Paragraph) IsCentered() bool {
	jc := firstChild(firstChild(p.node, "pPr"), "jc")
	val, _ := attrValue(jc, wmlNamespace, "val")
	return val == "center"
}

func (d *Document) addPicture(pic Picture) (pictureRef, error) {
	if len(pic.Data) == 0 {
		return pictureRef{}, errors.New("insert picture: empty image data")
	}
	if pic.Width <= 0 {
		return pictureRef{}, fmt.Errorf("insert picture: invalid width %d", pic.Width)
	}

	sum := sha256.Sum256(pic.Data)
	key := hex.EncodeToString(sum[:]) + ":" + strconv.FormatInt(pic.Width, 10)
	if ref, ok := d.images[key]; ok {
		return ref, nil
	}

	cfg, format, err := CheckPicture(pic.Data)
	if err != nil {
		return pictureRef{}, fmt.Errorf("insert picture: %w", err)
	}
	contentType := imageContentTypes[format]

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	mediaName := d.nextMediaName(ext)
	d.media = append(d.media, &zipEntry{header: newFileHeader(mediaName), content: pic.Data})
	d.ensureContentTypeDefault(ext, contentType)

	relID := getNextRelationshipID(d.rels)
	d.rels.Relationship = append(d.rels.Relationship, Relationship{
		ID:     relID,
		Type:   imageRelationshipType,
		Target: strings.TrimPrefix(mediaName, "word/"),
	})
	d.relsDirty = true

	ref := pictureRef{
		relID:  relID,
		width:  pic.Width,
		height: pic.Width * int64(cfg.Height) / int64(cfg.Width),
	}
	d.images[key] = ref
	return ref, nil
}

// CheckPicture decodes the image header and reports its size and format.
// Only PNG, JPEG and GIF are accepted.
func CheckPicture(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode image: %w", err)
	}
	if _, ok := imageContentTypes[format]; !ok || cfg.Width == 0 || cfg.Height == 0 {
		return image.Config{}, "", fmt.Errorf("unsupported image %q", format)
	}
	return cfg, format, nil
}

func (d *Document) nextMediaName(ext string) string {
	taken := make(map[string]struct{}, len(d.entries)+len(d.media))
	for _, e := range d.entries {
		taken[e.header.Name] = struct{}{}
	}
	for _, e := range d.media {
		taken[e.header.Name] = struct{}{}
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("word/media/cvimage%d.%s", i, ext)
		if _, ok := taken[name]; !ok {
			return name
		}
	}
}

func (d *Document) ensureContentTypeDefault(ext, contentType string) {
	for _, def := range d.types.Defaults {
		if strings.EqualFold(def.Extension, ext) {
			return
		}
	}
	d.types.Defaults = append(d.types.Defaults, contentTypeDefault{Extension: ext, ContentType: contentType})
	d.typesDirty = true
}

func getNextRelationshipID(rels *relationships) string {
	maxID := 0
	for _, rel := range rels.Relationship {
		if !strings.HasPrefix(rel.ID, "rId") {
			continue
		}
		if id, err := strconv.Atoi(rel.ID[3:]); err == nil && id > maxID {
			maxID = id
		}
	}
	return fmt.Sprintf("rId%d", maxID+1)
}

func (d *Document) maxDocPrID() int {
	names := make([]string, 0, len(d.parts))
	for name := range d.parts {
		names = append(names, name)
	}
	sort.Strings(names)

	maxID := 0
	for _, name := range names {
		walkXML(d.parts[name].root, func(n *xmlNode) bool {
			if n.IsText || n.Name.Local != "docPr" {
				return true
			}
			if v, ok := attrValue(n, "", "id"); ok {
				if id, err := strconv.Atoi(v); err == nil && id > maxID {
					maxID = id
				}
			}
			return true
		})
	}
	return maxID
}

// renumberDrawings gives every wp:docPr under node a fresh id.
func (d *Document) renumberDrawings(node *xmlNode) {
	walkXML(node, func(n *xmlNode) bool {
		if n.IsText || n.Name.Local != "docPr" {
			return true
		}
		for i, attr := range n.Attr {
			if attr.Name.Local == "id" && attr.Name.Space == "" {
				n.Attr[i].Value = strconv.Itoa(d.nextDocPrID)
				d.nextDocPrID++
			}
		}
		return true
	})
}

func (d *Document) parentOf(target *xmlNode) *xmlNode {
	for _, part := range d.parts {
		var parent *xmlNode
		walkXML(part.root, func(n *xmlNode) bool {
			if indexOfChild(n, target) != -1 {
				parent = n
				return false
			}
			return true
		})
		if parent != nil {
			return parent
		}
	}
	return nil
}

func pictureParagraphXML(ref pictureRef, id int) string {
	return fmt.Sprintf(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/>`+
		`<wp:docPr id="%[3]d" name="Picture %[3]d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="%[3]d" name="Picture %[3]d"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[4]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		ref.width, ref.height, id, ref.relID)
}
