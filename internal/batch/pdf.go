package batch

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Pager reads page counts and writes page-range sub-documents.
type Pager interface {
	PageCount(path string) (int, error)
	Extract(path string, b Batch, dst string) error
}

// PDFPager implements Pager with pdfcpu.
type PDFPager struct {
	conf *model.Configuration
}

// NewPDFPager creates a pager that validates documents in relaxed mode,
// which tolerates the minor defects common in scanner output.
func NewPDFPager() *PDFPager {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFPager{conf: conf}
}

// PageCount returns the number of pages of the PDF at path.
func (p *PDFPager) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, p.conf)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// Extract writes the pages of b into a new PDF at dst.
func (p *PDFPager) Extract(path string, b Batch, dst string) error {
	if err := api.TrimFile(path, dst, []string{b.Selection()}, p.conf); err != nil {
		return fmt.Errorf("failed to extract pages %s: %w", b.Selection(), err)
	}
	return nil
}

var _ Pager = (*PDFPager)(nil)
