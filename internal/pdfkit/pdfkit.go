// Package pdfkit wraps the PDF parsing and authoring collaborators behind a
// small interface so the merge pipeline can be tested without real PDFs.
package pdfkit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ParsedDocument is the result of reading one uploaded PDF.
type ParsedDocument struct {
	PageCount int
	Text      string
}

// Engine is the seam between the merge pipeline and the PDF libraries.
type Engine interface {
	// Parse validates a document and returns its page count and extracted
	// plain text. A text-extraction miss is not an error; Text is empty then.
	Parse(ctx context.Context, name string, content []byte) (ParsedDocument, error)
	// Merge concatenates the members' pages, in order, into one PDF.
	Merge(ctx context.Context, members [][]byte) ([]byte, error)
}

// PDFKit implements Engine with pdfcpu for structure work and ledongthuc/pdf
// for text extraction. All pdfcpu calls go through per-call temp directories.
type PDFKit struct {
	conf *model.Configuration
}

// New returns a PDFKit with relaxed validation, matching what scanned and
// lightly damaged invoices require in practice.
func New() *PDFKit {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFKit{conf: conf}
}

func (k *PDFKit) Parse(ctx context.Context, name string, content []byte) (ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return ParsedDocument{}, err
	}

	tempDir, err := os.MkdirTemp("", "fatturamerge-parse-*")
	if err != nil {
		return ParsedDocument{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, content, 0o600); err != nil {
		return ParsedDocument{}, fmt.Errorf("failed to write temp file for %s: %w", name, err)
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := api.OptimizeFile(sourcePath, optimizedPath, k.conf); err != nil {
		return ParsedDocument{}, fmt.Errorf("failed to validate/optimize %s: %w", name, err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return ParsedDocument{}, fmt.Errorf("failed to get page count for %s: %w", name, err)
	}

	return ParsedDocument{
		PageCount: pageCount,
		Text:      extractPlainText(content),
	}, nil
}

func (k *PDFKit) Merge(ctx context.Context, members [][]byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("nothing to merge")
	}

	tempDir, err := os.MkdirTemp("", "fatturamerge-merge-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inFiles := make([]string, 0, len(members))
	for i, member := range members {
		memberPath := filepath.Join(tempDir, fmt.Sprintf("member_%03d.pdf", i))
		if err := os.WriteFile(memberPath, member, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write member %d: %w", i, err)
		}
		inFiles = append(inFiles, memberPath)
	}

	outPath := filepath.Join(tempDir, "merged.pdf")
	if err := api.MergeCreateFile(inFiles, outPath, false, k.conf); err != nil {
		return nil, fmt.Errorf("failed to merge %d documents: %w", len(members), err)
	}

	merged, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged output: %w", err)
	}
	return merged, nil
}

// extractPlainText is best-effort: any failure yields empty text and the
// caller falls back to identifier-based naming. The recover guard is needed
// because ledongthuc/pdf panics on some malformed xref tables.
func extractPlainText(content []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return ""
	}
	plainText, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plainText); err != nil {
		return ""
	}
	return sb.String()
}
