package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
)

const ocrHint = "Could not extract text from PDF. This might be an image-based PDF requiring OCR."

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r]+`)
	newlineRun      = regexp.MustCompile(`\s*\n\s*`)
	textObject      = regexp.MustCompile(`(?s)BT\s*.*?ET`)
	nonPrintable    = regexp.MustCompile(`[^\x20-\x7E\n\r\t]`)
	readableRun     = regexp.MustCompile(`[a-zA-Z0-9\s.,!?;:'"()\-]{5,}`)
)

// toolRunner converts the PDF at in into text at out.
type toolRunner func(ctx context.Context, tool, in, out string) error

// PDFStrategy runs pdftotext and falls back to in-process parsing.
//
// toolPath:  pdftotext binary name or path.
// tempDir:   where scratch files go ("" means os.TempDir()).
// run:       subprocess launcher, swapped in tests.
type PDFStrategy struct {
	toolPath string
	tempDir  string
	run      toolRunner
	log      hclog.Logger
}

type PDFOption func(*PDFStrategy)

func WithPdfToTextPath(path string) PDFOption {
	return func(s *PDFStrategy) {
		if path != "" {
			s.toolPath = path
		}
	}
}

func WithPDFTempDir(dir string) PDFOption {
	return func(s *PDFStrategy) { s.tempDir = dir }
}

func WithPDFLogger(l hclog.Logger) PDFOption {
	return func(s *PDFStrategy) { s.log = logging.OrNull(l) }
}

func NewPDFStrategy(opts ...PDFOption) *PDFStrategy {
	s := &PDFStrategy{
		toolPath: "pdftotext",
		run:      runPdfToText,
		log:      hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PDFStrategy) Name() string { return "pdf" }

// ToolAvailable reports whether the pdftotext binary can be found.
func (s *PDFStrategy) ToolAvailable() bool {
	_, err := exec.LookPath(s.toolPath)
	return err == nil
}

func (s *PDFStrategy) Extract(ctx context.Context, buf []byte) (string, error) {
	text, err := s.extractWithTool(ctx, buf)
	if err == nil && utf8.RuneCountInString(text) >= MinExtractedChars {
		return text, nil
	}
	if err != nil {
		s.log.Debug("pdftotext failed, trying fallback", "error", err)
	}

	if text := nativePDFText(buf); utf8.RuneCountInString(text) >= MinExtractedChars {
		return text, nil
	}
	if text := scanTextObjects(buf); utf8.RuneCountInString(text) >= MinExtractedChars {
		s.log.Debug("recovered PDF text from raw text objects", "chars", len(text))
		return text, nil
	}
	return "", core.ExtractionFailed(ocrHint, nil)
}

// extractWithTool writes buf to a scratch file, runs pdftotext -layout and reads the result.
// Both scratch files are removed on every path.
func (s *PDFStrategy) extractWithTool(ctx context.Context, buf []byte) (string, error) {
	in, err := os.CreateTemp(s.tempDir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(in.Name())

	_, werr := in.Write(buf)
	if cerr := in.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", fmt.Errorf("write temp pdf: %w", werr)
	}

	out, err := os.CreateTemp(s.tempDir, "text-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp output: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()
	defer os.Remove(outPath)

	if err := s.run(ctx, s.toolPath, in.Name(), outPath); err != nil {
		return "", err
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read pdftotext output: %w", err)
	}
	return normalizeToolOutput(string(data)), nil
}

func runPdfToText(ctx context.Context, tool, in, out string) error {
	cmd := exec.CommandContext(ctx, tool, "-layout", in, out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func normalizeToolOutput(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// nativePDFText parses the document in-process. Malformed files yield "".
func nativePDFText(buf []byte) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	return normalizeToolOutput(sb.String())
}

// scanTextObjects recovers readable runs from BT...ET text objects of the raw file.
// When that yields under 20 characters it widens to any printable run of 5 or more.
func scanTextObjects(buf []byte) string {
	raw := latin1(buf)

	var parts []string
	for _, m := range textObject.FindAllString(raw, -1) {
		frag := collapseWhitespace(nonPrintable.ReplaceAllString(m, " "))
		if len(frag) > 3 {
			parts = append(parts, frag)
		}
	}
	text := strings.Join(parts, " ")

	if len(text) < 20 {
		var runs []string
		for _, m := range readableRun.FindAllString(raw, -1) {
			if len(strings.TrimSpace(m)) > 3 {
				runs = append(runs, m)
			}
		}
		if len(runs) > 0 {
			text = collapseWhitespace(strings.Join(runs, " "))
		}
	}
	return text
}

// latin1 maps every byte to the code point of the same value.
func latin1(buf []byte) string {
	runes := make([]rune, len(buf))
	for i, b := range buf {
		runes[i] = rune(b)
	}
	return string(runes)
}
