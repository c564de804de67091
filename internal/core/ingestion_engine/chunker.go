package ingestion_engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

// DefaultMaxChunkSize is the chunk ceiling in characters.
const DefaultMaxChunkSize = 4000

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+\s+`)
)

// Chunker packs text greedily into chunks of at most maxSize characters.
// Paragraphs are kept whole when they fit; oversized paragraphs are cut at
// sentence boundaries. A single sentence longer than maxSize becomes its own chunk.
type Chunker struct {
	maxSize int
}

func NewChunker(maxSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	return &Chunker{maxSize: maxSize}
}

func (c *Chunker) MaxSize() int { return c.maxSize }

// Split returns the chunks of text in reading order.
func (c *Chunker) Split(text string) []models.Chunk {
	pieces := c.SplitText(text)
	out := make([]models.Chunk, len(pieces))
	for i, p := range pieces {
		out[i] = models.Chunk{Index: i, Text: p, TokenCount: approxTokens(p)}
	}
	return out
}

func (c *Chunker) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.maxSize {
		return []string{text}
	}

	p := &packer{max: c.maxSize}
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if p.fits(para, paragraphSep) {
			p.add(para, paragraphSep)
			continue
		}
		p.flush()
		if utf8.RuneCountInString(para) <= c.maxSize {
			p.add(para, paragraphSep)
			continue
		}
		for _, s := range splitSentences(para) {
			if !p.fits(s, sentenceSep) {
				p.flush()
			}
			p.add(s, sentenceSep)
		}
	}
	p.flush()
	return p.chunks
}

// splitSentences cuts after terminal punctuation followed by whitespace.
// The punctuation stays with its sentence.
func splitSentences(para string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(para, -1) {
		if s := strings.TrimSpace(para[last:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(para[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// packer accumulates pieces until the next one would overflow max.
type packer struct {
	max    int
	buf    strings.Builder
	n      int
	chunks []string
}

func (p *packer) fits(s, sep string) bool {
	n := utf8.RuneCountInString(s)
	if p.n == 0 {
		return n <= p.max
	}
	return p.n+len(sep)+n <= p.max
}

func (p *packer) add(s, sep string) {
	if p.n > 0 {
		p.buf.WriteString(sep)
		p.n += len(sep)
	}
	p.buf.WriteString(s)
	p.n += utf8.RuneCountInString(s)
}

func (p *packer) flush() {
	if t := strings.TrimSpace(p.buf.String()); t != "" {
		p.chunks = append(p.chunks, t)
	}
	p.buf.Reset()
	p.n = 0
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
