package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrNotPDF is returned for uploads that do not parse as a PDF document.
var ErrNotPDF = errors.New("file is not a readable PDF")

var (
	tokenPattern   = regexp.MustCompile(`\[[A-Za-z_][A-Za-z0-9_ ]*\]`)
	headerFooterRE = regexp.MustCompile(`^word/(header|footer)[0-9]*\.xml$`)
)

// PDFInfo summarizes an uploaded PDF.
type PDFInfo struct {
	Pages int
}

// InspectPDF checks that data is a readable PDF and counts its pages.
func InspectPDF(data []byte) (info PDFInfo, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return PDFInfo{}, ErrNotPDF
	}
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			info, err = PDFInfo{}, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFInfo{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	pages := reader.NumPage()
	if pages < 1 {
		return PDFInfo{}, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return PDFInfo{Pages: pages}, nil
}

// ExtractTextFromBytes extracts text from an in-memory payload.
func ExtractTextFromBytes(ctx context.Context, data []byte, mimeType string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := normalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("unsupported mime type: %s", normalized)
	}
}

// UnresolvedTokens lists the bracketed placeholders still present in a
// rendered DOCX: body first, then headers, then footers.
func UnresolvedTokens(data []byte) ([]string, error) {
	text, err := extractDOCX(data)
	if err != nil {
		return nil, err
	}
	tokens := tokenPattern.FindAllString(text, -1)

	parts, err := headerFooterTexts(data)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		tokens = append(tokens, tokenPattern.FindAllString(part, -1)...)
	}
	return tokens, nil
}

func headerFooterTexts(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	files := make([]*zip.File, 0, 4)
	for _, f := range zr.File {
		if headerFooterRE.MatchString(strings.ReplaceAll(f.Name, "\\", "/")) {
			files = append(files, f)
		}
	}
	// headers sort before footers
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	texts := make([]string, 0, len(files))
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		texts = append(texts, stripDocxXML(string(raw)))
	}
	return texts, nil
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func normalizeMimeType(mimeType string, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if clean == "" || clean == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			return MimePDF
		case ".docx":
			return MimeDOCX
		}
		if bytes.HasPrefix(data, []byte("%PDF-")) {
			return MimePDF
		}
		clean = "application/zip"
	}
	if clean != "application/zip" {
		return clean
	}
	if isWordPackage(data) {
		return MimeDOCX
	}
	if strings.EqualFold(filepath.Ext(fileName), ".docx") {
		return MimeDOCX
	}
	return clean
}

func isWordPackage(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
