package ingestion_engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	scriptBlock    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlock     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlTag        = regexp.MustCompile(`<[^>]*>`)
	rtfControlWord = regexp.MustCompile(`\\[a-z]+\d*\s?`)
	rtfBraces      = regexp.MustCompile(`[{}]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeUTF8 drops a leading BOM and any invalid byte sequences.
func decodeUTF8(buf []byte) string {
	return strings.ToValidUTF8(string(bytes.TrimPrefix(buf, utf8BOM)), "")
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// PlainTextStrategy handles text, markdown and CSV.
type PlainTextStrategy struct{}

func (PlainTextStrategy) Name() string { return "plain-text" }

func (PlainTextStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	return strings.TrimSpace(decodeUTF8(buf)), nil
}

// JSONStrategy re-serializes JSON with two-space indentation.
type JSONStrategy struct{}

func (JSONStrategy) Name() string { return "json" }

func (JSONStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimPrefix(buf, utf8BOM), "", "  "); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return out.String(), nil
}

// HTMLStrategy drops script and style blocks, then tags, then decodes entities.
type HTMLStrategy struct{}

func (HTMLStrategy) Name() string { return "html" }

func (HTMLStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	s := decodeUTF8(buf)
	s = scriptBlock.ReplaceAllString(s, "")
	s = styleBlock.ReplaceAllString(s, "")
	s = htmlTag.ReplaceAllString(s, " ")
	return collapseWhitespace(html.UnescapeString(s)), nil
}

// RTFStrategy strips control words and group braces.
type RTFStrategy struct{}

func (RTFStrategy) Name() string { return "rtf" }

func (RTFStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	s := decodeUTF8(buf)
	s = rtfControlWord.ReplaceAllString(s, "")
	s = rtfBraces.ReplaceAllString(s, "")
	return collapseWhitespace(s), nil
}

// ReadableTextStrategy accepts unknown types only when they decode to readable text.
type ReadableTextStrategy struct{}

func (ReadableTextStrategy) Name() string { return "readable-text" }

func (ReadableTextStrategy) Extract(_ context.Context, buf []byte) (string, error) {
	if !IsReadableText(buf) {
		return "", fmt.Errorf("unsupported binary content (%.0f%% printable)", PrintableRatio(buf)*100)
	}
	return strings.TrimSpace(decodeUTF8(buf)), nil
}
