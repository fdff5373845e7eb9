package docpipe

import "strings"

// Options controls chunking. Tokens are whitespace-separated words.
type Options struct {
	MaxTokens     int // per chunk, default 500
	OverlapTokens int // words repeated from the previous chunk, default 50
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 500
	}
	if o.OverlapTokens < 0 {
		o.OverlapTokens = 0
	}
	if o.OverlapTokens >= o.MaxTokens {
		o.OverlapTokens = o.MaxTokens / 2
	}
	return o
}

// Chunk is one slice of a document.
type Chunk struct {
	Index       int
	Text        string
	TokenCount  int
	OverlapPrev int // leading words shared with the previous chunk
}

// Split breaks text into chunks of at most MaxTokens words. Paragraph
// boundaries are preferred as cut points; paragraphs longer than a chunk
// are cut mid-paragraph.
func Split(text string, opts Options) []Chunk {
	opts = opts.withDefaults()

	var (
		chunks  []Chunk
		cur     []string
		overlap int
	)
	flush := func() {
		if len(cur) <= overlap {
			return
		}
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Text:        strings.Join(cur, " "),
			TokenCount:  len(cur),
			OverlapPrev: overlap,
		})
		keep := min(opts.OverlapTokens, len(cur))
		cur = append([]string(nil), cur[len(cur)-keep:]...)
		overlap = keep
	}

	for _, para := range paragraphs(text) {
		words := strings.Fields(para)
		if len(cur)+len(words) > opts.MaxTokens {
			flush()
		}
		for _, w := range words {
			if len(cur) >= opts.MaxTokens {
				flush()
			}
			cur = append(cur, w)
		}
	}
	flush()

	return chunks
}

// CountTokens returns the number of whitespace-separated words in text.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
