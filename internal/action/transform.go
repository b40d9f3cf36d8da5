package action

import (
	"fmt"

	"github.com/beevik/etree"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

// Transform applies a precompiled XSLT stylesheet, identified by its
// filename, to each record's document.
type Transform struct {
	file string
	xsl  Transformer
	log  *logger.Logger
}

// NewTransform creates a transform action over a loaded stylesheet.
func NewTransform(file string, xsl Transformer, log *logger.Logger) *Transform {
	return &Transform{file: file, xsl: xsl, log: log}
}

// Perform rewrites each record's document through the stylesheet. A runtime
// transform error fails the batch.
func (a *Transform) Perform(records []*metadata.Record) ([]*metadata.Record, bool) {
	out := make([]*metadata.Record, 0, len(records))

	for _, rec := range records {
		src, err := rec.Doc.WriteToBytes()
		if err != nil {
			a.log.WithError(err).WithField("id", rec.ID).Error("serialising record for transform")

			return nil, false
		}

		result, err := a.xsl.Transform(src)
		if err != nil {
			a.log.WithError(err).WithFields(logger.Fields{
				"id":         rec.ID,
				"stylesheet": a.file,
			}).Error("transform failed")

			return nil, false
		}

		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(result); err != nil {
			a.log.WithError(err).WithField("id", rec.ID).Error("parsing transform output")

			return nil, false
		}

		transformed := *rec
		transformed.Doc = doc
		out = append(out, &transformed)
	}

	return out, true
}

func (a *Transform) String() string {
	return fmt.Sprintf("transform(%s)", a.file)
}

// Equal reports structural equality: transforms are equal when they apply
// the same stylesheet file.
func (a *Transform) Equal(other Action) bool {
	t, ok := other.(*Transform)

	return ok && t.file == a.file
}
