// Package convert turns presentation files into ordered slide images. The
// production converter shells out to LibreOffice and pdftoppm, the same
// pipeline the controller has always depended on; callers only see the
// Converter interface.
package convert

import (
	"context"
	"fmt"
	"image"
)

// Slide is one rendered page of a presentation.
type Slide struct {
	Index int
	Image image.Image
}

// Converter renders a presentation file into an ordered slide sequence.
// Convert is synchronous and potentially slow; callers decide where to run
// it. A failed conversion is never fatal to the process.
type Converter interface {
	Convert(ctx context.Context, path string) ([]Slide, error)
}

// ConversionError reports a failed conversion with the pipeline stage that
// broke.
type ConversionError struct {
	Path  string
	Stage string // "pdf", "raster", "decode"
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion of %q failed at %s stage: %v", e.Path, e.Stage, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
