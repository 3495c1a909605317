package embedding

import (
	"hash/fnv"
	"strings"
)

// Tokenizer produces BERT-style model inputs (input_ids, attention_mask,
// token_type_ids) padded to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// wordTokenizer splits on whitespace and hashes each word into the model's
// vocabulary range. Good enough for models exported with their own embedding
// table remapped, and for tests; a real wordpiece vocab can be dropped in later.
type wordTokenizer struct {
	vocabSize int64
}

const (
	tokenCLS = 101
	tokenSEP = 102
)

// Tokenize produces padded token IDs for text, bounded by maxTokens.
func (t *wordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	vocab := t.vocabSize
	if vocab <= 0 {
		vocab = 30000
	}

	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.ToLower(word)))
		inputIDs[pos] = int64(h.Sum32()) % vocab
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenSEP
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}
