// Package keyword provides an exact-term FAQ search backed by Bleve. It
// complements the semantic stores: queries like error codes or feature names
// match literally even when the embedding similarity is low.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/pawlink/recall/internal/models"
)

// Result is one keyword hit: the FAQ id and Bleve's relevance score.
type Result struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

// faqDoc is the shape handed to Bleve for indexing.
type faqDoc struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQIndex is a Bleve index over FAQ questions and answers.
type FAQIndex struct {
	index bleve.Index
}

// NewFAQIndex creates or opens a Bleve index at path. An existing index is
// opened and reused; remove the directory to force a rebuild after a mapping
// change.
func NewFAQIndex(path string) (*FAQIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open faq index: %w", openErr)
		}
		return &FAQIndex{index: index}, nil
	}

	textField := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming, so exact feature
	// names and error codes match literally
	textField.Analyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("question", textField)
	docMapping.AddFieldMappingsAt("answer", textField)

	im := bleve.NewIndexMapping()
	im.AddDocumentMapping("faq", docMapping)
	im.DefaultType = "faq"
	im.DefaultMapping = docMapping

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create faq index: %w", err)
	}
	return &FAQIndex{index: index}, nil
}

// Index adds or replaces one FAQ.
func (f *FAQIndex) Index(ctx context.Context, faq *models.FAQ) error {
	return f.index.Index(strconv.FormatInt(faq.ID, 10), &faqDoc{
		Question: faq.Question,
		Answer:   faq.Answer,
	})
}

// IndexAll indexes faqs in one batch.
func (f *FAQIndex) IndexAll(ctx context.Context, faqs []*models.FAQ) error {
	batch := f.index.NewBatch()
	for _, faq := range faqs {
		if err := batch.Index(strconv.FormatInt(faq.ID, 10), &faqDoc{
			Question: faq.Question,
			Answer:   faq.Answer,
		}); err != nil {
			return fmt.Errorf("batch faq %d: %w", faq.ID, err)
		}
	}
	return f.index.Batch(batch)
}

// Delete removes one FAQ from the index.
func (f *FAQIndex) Delete(ctx context.Context, id int64) error {
	return f.index.Delete(strconv.FormatInt(id, 10))
}

// Search runs a match query over question and answer text and returns up to
// limit hits sorted by Bleve score.
func (f *FAQIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit
	results, err := f.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("faq keyword search: %w", err)
	}
	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &Result{ID: id, Score: hit.Score})
	}
	return out, nil
}

// DocCount returns the number of indexed FAQs.
func (f *FAQIndex) DocCount() (uint64, error) {
	return f.index.DocCount()
}

// Close closes the underlying index.
func (f *FAQIndex) Close() error {
	return f.index.Close()
}
