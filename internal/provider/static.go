package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
	"oaiharvest/internal/oai"
)

// Static repository errors.
var (
	ErrNoRepositoryRoot = errors.New("static archive has no repository root")
	ErrNoFormatSection  = errors.New("static archive has no ListMetadataFormats section")
	ErrPrefixNotInFile  = errors.New("static archive has no records for prefix")
)

// StaticProvider is a provider whose records are pre-materialised in a local
// XML archive. It answers the same queries as a live provider without network
// I/O. The archive follows the OAI static repository layout: one document
// with an Identify section, a ListMetadataFormats section, and one
// ListRecords section per prefix.
type StaticProvider struct {
	Provider
	Path string

	doc *etree.Document
}

// NewStatic creates a static provider backed by the archive at path.
func NewStatic(name, baseURL, path string, log *logger.Logger) (*StaticProvider, error) {
	p, err := New(name, baseURL, log)
	if err != nil {
		return nil, err
	}

	return &StaticProvider{Provider: *p, Path: path}, nil
}

// Init loads and parses the archive. The context is accepted for interface
// symmetry with live providers; no I/O beyond the local file happens.
func (s *StaticProvider) Init(_ context.Context) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(s.Path); err != nil {
		return fmt.Errorf("reading static archive %s: %w", s.Path, err)
	}

	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%w: %s", ErrNoRepositoryRoot, s.Path)
	}

	s.doc = doc

	if s.Name == "" {
		if ident := metadata.FirstDescendant(root, "Identify"); ident != nil {
			if rn := metadata.FirstDescendant(ident, "repositoryName"); rn != nil {
				s.Name = rn.Text()
			}
		}

		if s.Name == "" {
			s.Name = s.BaseURL
		}
	}

	return nil
}

// Formats reads the archive's metadata format list.
func (s *StaticProvider) Formats() ([]oai.MetadataFormat, error) {
	section := metadata.FirstDescendant(&s.doc.Element, "ListMetadataFormats")
	if section == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoFormatSection, s.Path)
	}

	var formats []oai.MetadataFormat

	for _, el := range metadata.FindDescendants(section, "metadataFormat") {
		var f oai.MetadataFormat

		if p := metadata.ChildByTag(el, "metadataPrefix"); p != nil {
			f.MetadataPrefix = p.Text()
		}

		if sc := metadata.ChildByTag(el, "schema"); sc != nil {
			f.Schema = sc.Text()
		}

		if ns := metadata.ChildByTag(el, "metadataNamespace"); ns != nil {
			f.MetadataNamespace = ns.Text()
		}

		if f.MetadataPrefix != "" {
			formats = append(formats, f)
		}
	}

	return formats, nil
}

// Records returns a fresh document whose root is a copy of the archive's
// ListRecords section for the given prefix. There is no OAI-PMH root element
// as in a live response.
func (s *StaticProvider) Records(prefix string) (*etree.Document, error) {
	for _, section := range metadata.FindDescendants(&s.doc.Element, "ListRecords") {
		if section.SelectAttrValue("metadataPrefix", "") != prefix {
			continue
		}

		doc := etree.NewDocument()
		doc.SetRoot(section.Copy())

		return doc, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrPrefixNotInFile, prefix)
}
