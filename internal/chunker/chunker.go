// Package chunker splits page text into overlapping fixed-size windows
// suitable for embedding.
package chunker

// Defaults for window size and overlap, in characters. The overlap keeps
// sentences that straddle a window boundary intact in at least one chunk.
const (
	DefaultMaxChars = 1200
	DefaultOverlap  = 120
)

// Chunker holds the window parameters. The zero value is not usable; call
// New or NewWithLimits.
type Chunker struct {
	maxChars int
	overlap  int
}

// New creates a Chunker with the default window parameters.
func New() *Chunker {
	return NewWithLimits(DefaultMaxChars, DefaultOverlap)
}

// NewWithLimits creates a Chunker with explicit parameters. Non-positive
// maxChars falls back to the default; overlap is clamped below maxChars.
func NewWithLimits(maxChars, overlap int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		overlap = maxChars - 1
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}
}

// Split divides text into ordered, non-empty windows of at most maxChars
// characters. Limits count characters, not bytes, so multi-byte text is
// never over-split and boundaries never land inside a rune. Each window
// after the first starts overlap characters before the previous window's
// end, so the windows cover the whole input with no gaps. Text that fits
// in a single window is returned whole. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.maxChars {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/(c.maxChars-c.overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		start = end - c.overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
