package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/docvault/docvault/pkg/types"
)

// Generator produces free-form text from a prompt. The vault treats
// generation as optional: when none is configured, answers are extractive
// quotes from the retrieved passages.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answer is a response to a question, with the passages it rests on.
type Answer struct {
	Text      string               `json:"text"`
	Sources   []types.SearchResult `json:"sources"`
	Generated bool                 `json:"generated"`
}

// Answerer turns retrieval results into answers, generating over them when
// a Generator is available and quoting them verbatim otherwise.
type Answerer struct {
	searcher *Searcher
	gen      Generator // nil means extractive answers only
}

// NewAnswerer creates an Answerer. gen may be nil.
func NewAnswerer(searcher *Searcher, gen Generator) *Answerer {
	return &Answerer{searcher: searcher, gen: gen}
}

// Answer retrieves the topK passages for question and produces an answer
// from them. A failing generator degrades to the extractive form rather
// than failing the question.
func (a *Answerer) Answer(ctx context.Context, question string, topK int) (Answer, error) {
	sources, err := a.searcher.Search(ctx, question, topK)
	if err != nil {
		return Answer{}, err
	}
	if len(sources) == 0 {
		return Answer{
			Text:    "No matching passages found.",
			Sources: []types.SearchResult{},
		}, nil
	}

	if a.gen != nil {
		text, err := a.gen.Generate(ctx, buildPrompt(question, sources))
		if err == nil && strings.TrimSpace(text) != "" {
			return Answer{Text: text, Sources: sources, Generated: true}, nil
		}
	}
	return Answer{Text: FormatQuoted(sources), Sources: sources}, nil
}

// buildPrompt frames the retrieved passages as grounding context for the
// generator. Passages are numbered so the model can cite them.
func buildPrompt(question string, sources []types.SearchResult) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the passages below. ")
	b.WriteString("Cite passages by number.\n\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] %s (page %d): %s\n", i+1, s.File, s.Page, s.Snippet)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}
