package ingestion_engine

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

const (
	TypePDF      = "application/pdf"
	TypeText     = "text/plain"
	TypeMarkdown = "text/markdown"
	TypeCSV      = "text/csv"
	TypeHTML     = "text/html"
	TypeJSON     = "application/json"
	TypeRTF      = "application/rtf"
	TypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeDoc      = "application/msword"
	TypeXlsx     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TypeXls      = "application/vnd.ms-excel"
)

// printableThreshold is the share of printable characters a buffer needs to be treated as text.
const printableThreshold = 0.7

var extensionTypes = map[string]string{
	".pdf":  TypePDF,
	".txt":  TypeText,
	".md":   TypeMarkdown,
	".docx": TypeDocx,
	".doc":  TypeDoc,
	".xlsx": TypeXlsx,
	".xls":  TypeXls,
	".csv":  TypeCSV,
	".json": TypeJSON,
	".html": TypeHTML,
	".htm":  TypeHTML,
	".rtf":  TypeRTF,
}

var typeAliases = map[string]string{
	"text/rtf":              TypeRTF,
	"application/x-rtf":     TypeRTF,
	"text/x-markdown":       TypeMarkdown,
	"application/x-pdf":     TypePDF,
	"application/csv":       TypeCSV,
	"text/x-csv":            TypeCSV,
	"text/json":             TypeJSON,
	"application/xhtml+xml": TypeHTML,
}

// sniffable types carry a magic number, so a content match beats anything the client claims.
var sniffableTypes = map[string]struct{}{
	TypePDF:  {},
	TypeDocx: {},
	TypeDoc:  {},
	TypeXlsx: {},
	TypeXls:  {},
	TypeRTF:  {},
}

// TypeResolver decides what a buffer actually is.
//
// allowedTypes:  declared media types admitted at the boundary.
// allowedExts:   filename extensions admitted at the boundary.
// maxBytes:      upload size ceiling.
type TypeResolver struct {
	allowedTypes map[string]struct{}
	allowedExts  map[string]struct{}
	maxBytes     int64
}

func NewTypeResolver(allowedTypes, allowedExtensions []string, maxBytes int64) *TypeResolver {
	r := &TypeResolver{
		allowedTypes: make(map[string]struct{}, len(allowedTypes)),
		allowedExts:  make(map[string]struct{}, len(allowedExtensions)),
		maxBytes:     maxBytes,
	}
	for _, t := range allowedTypes {
		r.allowedTypes[CanonicalType(t)] = struct{}{}
	}
	for _, e := range allowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.allowedExts[e] = struct{}{}
	}
	return r
}

// Admit applies the upload filter: size ceiling, then declared type or extension allow-list.
func (r *TypeResolver) Admit(declaredType, filename string, size int64) error {
	if r.maxBytes > 0 && size > r.maxBytes {
		return core.InputRejected("file is %d bytes, limit is %d bytes", size, r.maxBytes).WithCode(core.CodeFileTooLarge)
	}
	if _, ok := r.allowedTypes[CanonicalType(declaredType)]; ok {
		return nil
	}
	if _, ok := r.allowedExts[fileExt(filename)]; ok {
		return nil
	}
	return core.InputRejected("file type %q (%s) not supported; supported extensions: %s",
		declaredType, filename, strings.Join(SupportedExtensions(), ", ")).WithCode(core.CodeUnsupportedType)
}

// Resolve picks the media type that drives extraction.
// Precedence: confident content sniff, recognized declared type, extension table,
// then plain text if the buffer looks readable.
func (r *TypeResolver) Resolve(buf []byte, declaredType, filename string) (string, error) {
	if t, ok := sniff(buf); ok {
		return t, nil
	}
	if t := CanonicalType(declaredType); isKnownType(t) {
		return t, nil
	}
	if t, ok := extensionTypes[fileExt(filename)]; ok {
		return t, nil
	}
	if IsReadableText(buf) {
		return TypeText, nil
	}
	return "", core.InputRejected("could not determine a supported type for %q", filename).WithCode(core.CodeUnsupportedType)
}

func sniff(buf []byte) (string, bool) {
	if len(buf) == 0 {
		return "", false
	}
	t := CanonicalType(mimetype.Detect(buf).String())
	if _, ok := sniffableTypes[t]; ok {
		return t, true
	}
	return "", false
}

// CanonicalType strips parameters, lower-cases and folds aliases.
func CanonicalType(t string) string {
	t, _, _ = strings.Cut(t, ";")
	t = strings.ToLower(strings.TrimSpace(t))
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

func isKnownType(t string) bool {
	for _, known := range extensionTypes {
		if known == t {
			return true
		}
	}
	return false
}

// TypeFromExtension looks filename up in the static extension table.
func TypeFromExtension(filename string) (string, bool) {
	t, ok := extensionTypes[fileExt(filename)]
	return t, ok
}

// SupportedExtensions lists the extension table keys in a stable order.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".pdf", ".docx", ".doc", ".xlsx", ".xls", ".json", ".csv", ".html", ".htm", ".rtf"}
}

func fileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsReadableText reports whether more than 70% of the decoded characters are printable ASCII or whitespace.
func IsReadableText(buf []byte) bool {
	return PrintableRatio(buf) > printableThreshold
}

func PrintableRatio(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	var total, printable int
	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		buf = buf[size:]
		total++
		if (r >= 0x20 && r <= 0x7e) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}
