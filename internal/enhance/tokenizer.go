package enhance

import (
	"hash/fnv"
	"strings"
)

// Tokenizer kinds selectable via configuration.
const (
	TokenizerHash    = "hash"
	TokenizerSubword = "subword"
)

// Tokenizer is the pluggable tokenization capability. The default is the
// hash-based stand-in; real subword tokenization lives inside the llama
// backend and needs no separate handle.
type Tokenizer interface {
	Source() string
	Encode(text string) []int
	Decode(ids []int) string
}

// vocabBase is where hashed ids start; everything below is the fixed table.
const vocabBase = 1000

var fixedVocab = []string{
	"the", "a", "an", "and", "or", "to", "of", "in", "is", "it",
	"note", "blog", "post", "write", "text",
}

var fixedVocabIndex = func() map[string]int {
	m := make(map[string]int, len(fixedVocab))
	for i, w := range fixedVocab {
		m[w] = i
	}
	return m
}()

// hashTokenizer assigns token ids by FNV-1a hash with a small fixed
// vocabulary table for common words.
type hashTokenizer struct {
	source string
}

func (t *hashTokenizer) Source() string { return t.source }

func (t *hashTokenizer) Encode(text string) []int {
	words := strings.Fields(strings.ToLower(text))
	ids := make([]int, 0, len(words))
	for _, w := range words {
		if id, ok := fixedVocabIndex[w]; ok {
			ids = append(ids, id)
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		ids = append(ids, vocabBase+int(h.Sum32()%100000))
	}
	return ids
}

func (t *hashTokenizer) Decode(ids []int) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(fixedVocab) {
			words = append(words, fixedVocab[id])
		} else {
			words = append(words, "<unk>")
		}
	}
	return strings.Join(words, " ")
}

// newTokenizer builds the configured tokenizer. The subword kind has no
// standalone implementation; selecting it yields no handle, which the
// compatibility validator reports as tokenizer-not-loaded.
func newTokenizer(kind, source string) (Tokenizer, bool) {
	switch kind {
	case "", TokenizerHash:
		return &hashTokenizer{source: source}, true
	default:
		return nil, false
	}
}
