package receipt

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
)

// Renderer converts uploaded receipt files into JPEG page images for the
// scanner. PDFs are rasterized page by page; JPEG and PNG uploads are
// re-encoded as a single page.
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer creates a new receipt renderer
func NewRenderer(logger *zap.Logger) port.ReceiptRenderer {
	return &Renderer{logger: logger}
}

// RenderPages converts the file at path into one JPEG per page
func (r *Renderer) RenderPages(path string) ([][]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("receipt file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return r.renderPDF(path)
	case ".jpg", ".jpeg", ".png":
		return r.renderImage(path, ext)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// renderPDF rasterizes each PDF page to JPEG using mupdf
func (r *Renderer) renderPDF(path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages [][]byte
	pageCount := doc.NumPage()

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to rasterize PDF page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		data, err := encodeJPEG(img)
		if err != nil {
			r.logger.Warn("Failed to encode PDF page",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		pages = append(pages, data)
	}

	return pages, nil
}

// renderImage decodes an uploaded image and re-encodes it as JPEG
func (r *Renderer) renderImage(path, ext string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	var img image.Image
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	case ".png":
		img, err = png.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	data, err := encodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return [][]byte{data}, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verify interface compliance
var _ port.ReceiptRenderer = (*Renderer)(nil)
