// Package batch splits a PDF into page ranges, OCRs each range on its own
// and reassembles the text in page order.
package batch

import "fmt"

// DefaultPagesPerBatch is used when no positive batch size is configured.
const DefaultPagesPerBatch = 10

// Batch is a contiguous, 1-based inclusive page range of a document.
type Batch struct {
	Index     int `json:"index" yaml:"index"`
	FirstPage int `json:"first_page" yaml:"first_page"`
	LastPage  int `json:"last_page" yaml:"last_page"`
}

// Name is the file name used for the batch sub-document.
func (b Batch) Name() string {
	return fmt.Sprintf("chunk_%d_to_%d.pdf", b.FirstPage, b.LastPage)
}

// Len returns the number of pages in the batch.
func (b Batch) Len() int {
	return b.LastPage - b.FirstPage + 1
}

// PageNumbers lists the source pages covered by the batch.
func (b Batch) PageNumbers() []int {
	pages := make([]int, 0, b.Len())
	for p := b.FirstPage; p <= b.LastPage; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Selection is the page selection string understood by pdfcpu ("11-20").
func (b Batch) Selection() string {
	if b.FirstPage == b.LastPage {
		return fmt.Sprintf("%d", b.FirstPage)
	}
	return fmt.Sprintf("%d-%d", b.FirstPage, b.LastPage)
}

// Plan cuts totalPages into consecutive batches of at most pagesPerBatch
// pages. The last batch holds the remainder.
func Plan(totalPages, pagesPerBatch int) []Batch {
	if pagesPerBatch <= 0 {
		pagesPerBatch = DefaultPagesPerBatch
	}
	if totalPages <= 0 {
		return nil
	}

	batches := make([]Batch, 0, (totalPages+pagesPerBatch-1)/pagesPerBatch)
	for first := 1; first <= totalPages; first += pagesPerBatch {
		batches = append(batches, Batch{
			Index:     len(batches),
			FirstPage: first,
			LastPage:  min(first+pagesPerBatch-1, totalPages),
		})
	}
	return batches
}
