package convert

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // pdftoppm output format
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// CommandRunner executes an external command. Overridable in tests so the
// pipeline can be exercised without LibreOffice installed.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LibreOfficeConverter renders presentations by converting to PDF with a
// headless LibreOffice, then rasterizing pages with pdftoppm. PDF inputs
// skip the first step.
type LibreOfficeConverter struct {
	logger *logrus.Logger
	run    CommandRunner

	// SofficeBin and PdftoppmBin default to the binaries on PATH.
	SofficeBin  string
	PdftoppmBin string
}

// NewLibreOfficeConverter creates the production converter.
func NewLibreOfficeConverter(logger *logrus.Logger) *LibreOfficeConverter {
	if logger == nil {
		logger = logrus.New()
	}
	return &LibreOfficeConverter{
		logger:      logger,
		run:         defaultRunner,
		SofficeBin:  "libreoffice",
		PdftoppmBin: "pdftoppm",
	}
}

// Convert renders path into ordered slide images in a temp dir that is
// removed before returning; only the decoded images survive.
func (c *LibreOfficeConverter) Convert(ctx context.Context, path string) ([]Slide, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ConversionError{Path: path, Stage: "pdf", Err: err}
	}

	tmpDir, err := os.MkdirTemp("", "slidelink-convert-")
	if err != nil {
		return nil, &ConversionError{Path: path, Stage: "pdf", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	pdfPath, err := c.toPDF(ctx, path, tmpDir)
	if err != nil {
		return nil, &ConversionError{Path: path, Stage: "pdf", Err: err}
	}

	c.logger.WithField("pdf", filepath.Base(pdfPath)).Debug("Rasterizing PDF pages")
	if err := c.run(ctx, c.PdftoppmBin, "-png", "-r", "150", pdfPath, filepath.Join(tmpDir, "slide")); err != nil {
		return nil, &ConversionError{Path: path, Stage: "raster", Err: err}
	}

	slides, err := c.loadSlides(tmpDir)
	if err != nil {
		return nil, &ConversionError{Path: path, Stage: "decode", Err: err}
	}
	if len(slides) == 0 {
		return nil, &ConversionError{Path: path, Stage: "decode", Err: fmt.Errorf("no pages rendered")}
	}

	c.logger.WithFields(logrus.Fields{
		"path":   path,
		"slides": len(slides),
	}).Info("Presentation converted")
	return slides, nil
}

// toPDF ensures a PDF rendition of path exists in tmpDir and returns its
// location. PDF sources are used as-is.
func (c *LibreOfficeConverter) toPDF(ctx context.Context, path, tmpDir string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return path, nil
	}

	c.logger.WithField("path", path).Debug("Converting presentation to PDF")
	if err := c.run(ctx, c.SofficeBin, "--headless", "--convert-to", "pdf", "--outdir", tmpDir, path); err != nil {
		return "", err
	}

	base := filepath.Base(path)
	pdfName := strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
	pdfPath := filepath.Join(tmpDir, pdfName)
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("PDF conversion produced no output (expected %s)", pdfName)
	}
	return pdfPath, nil
}

// loadSlides decodes the pdftoppm output in page order. pdftoppm zero-pads
// page numbers, so a lexical sort is a page sort.
func (c *LibreOfficeConverter) loadSlides(dir string) ([]Slide, error) {
	pages, err := filepath.Glob(filepath.Join(dir, "slide-*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(pages)

	slides := make([]Slide, 0, len(pages))
	for i, page := range pages {
		f, err := os.Open(page)
		if err != nil {
			return nil, err
		}
		img, _, err := image.Decode(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(page), err)
		}
		slides = append(slides, Slide{Index: i, Image: img})
	}
	return slides, nil
}
