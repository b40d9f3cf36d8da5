// Package xslt adapts the libxslt binding to the pipeline's Transformer
// contract.
package xslt

import (
	"fmt"
	"os"

	"github.com/wamuir/go-xslt"
)

// Stylesheet is a precompiled XSLT 1.0 stylesheet.
type Stylesheet struct {
	xs *xslt.Stylesheet
}

// Load reads and compiles the stylesheet at path.
func Load(path string) (*Stylesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stylesheet: %w", err)
	}

	xs, err := xslt.NewStylesheet(data)
	if err != nil {
		return nil, fmt.Errorf("compiling stylesheet %s: %w", path, err)
	}

	return &Stylesheet{xs: xs}, nil
}

// Transform applies the stylesheet to one serialised document.
func (s *Stylesheet) Transform(doc []byte) ([]byte, error) {
	out, err := s.xs.Transform(doc)
	if err != nil {
		return nil, fmt.Errorf("applying stylesheet: %w", err)
	}

	return out, nil
}

// Close releases the compiled stylesheet.
func (s *Stylesheet) Close() {
	s.xs.Close()
}
