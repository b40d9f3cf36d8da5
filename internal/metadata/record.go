// Package metadata carries harvested records through the action pipeline.
package metadata

import (
	"github.com/beevik/etree"
)

// Record is one unit of harvested metadata. Envelope marks a document still
// wrapped in the OAI response envelope; List marks a list response that has
// not been split yet. Once both are false the document holds exactly one
// record element and ID is non-empty.
type Record struct {
	ID       string
	Prefix   string
	Doc      *etree.Document
	Origin   string
	Envelope bool
	List     bool
}

// Factory creates records. Each worker owns its own factory so that record
// construction never shares parser state across goroutines.
type Factory struct{}

// NewFactory creates a record factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewRecord creates a single, fully split record.
func (f *Factory) NewRecord(id, prefix string, doc *etree.Document, origin string) *Record {
	return &Record{
		ID:     id,
		Prefix: prefix,
		Doc:    doc,
		Origin: origin,
	}
}

// NewEnvelope creates a record wrapping a complete list response.
func (f *Factory) NewEnvelope(prefix string, doc *etree.Document, origin string) *Record {
	return &Record{
		Prefix:   prefix,
		Doc:      doc,
		Origin:   origin,
		Envelope: true,
		List:     true,
	}
}

// FindDescendants walks el depth-first and collects elements whose local tag
// matches name, ignoring namespace prefixes.
func FindDescendants(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element

	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if c.Tag == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(el)

	return out
}

// FirstDescendant returns the first element with the given local tag in
// document order, nil when absent.
func FirstDescendant(el *etree.Element, name string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == name {
			return c
		}

		if found := FirstDescendant(c, name); found != nil {
			return found
		}
	}

	return nil
}

// ChildByTag returns the first direct child with the given local tag.
func ChildByTag(el *etree.Element, name string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == name {
			return c
		}
	}

	return nil
}
