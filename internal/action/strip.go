package action

import (
	"github.com/beevik/etree"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

// Strip removes the OAI envelope from a single record, leaving only the
// payload inside the metadata element.
type Strip struct {
	log *logger.Logger
}

// NewStrip creates a strip action.
func NewStrip(log *logger.Logger) *Strip {
	return &Strip{log: log}
}

// Perform unwraps each record in the batch. A record whose structure does
// not contain a metadata element with a payload fails the batch.
func (a *Strip) Perform(records []*metadata.Record) ([]*metadata.Record, bool) {
	out := make([]*metadata.Record, 0, len(records))

	for _, rec := range records {
		root := rec.Doc.Root()
		if root == nil {
			a.log.WithField("id", rec.ID).Error("record has no document root")

			return nil, false
		}

		meta := metadata.FirstDescendant(root, "metadata")
		if meta == nil {
			a.log.WithField("id", rec.ID).Error("record has no metadata element")

			return nil, false
		}

		payload := firstChildElement(meta)
		if payload == nil {
			a.log.WithField("id", rec.ID).Error("metadata element is empty")

			return nil, false
		}

		doc := etree.NewDocument()
		doc.SetRoot(payload.Copy())

		stripped := *rec
		stripped.Doc = doc
		out = append(out, &stripped)
	}

	return out, true
}

func firstChildElement(el *etree.Element) *etree.Element {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}

	return children[0]
}

func (a *Strip) String() string {
	return "strip"
}

// Equal reports structural equality; all strip actions are equal.
func (a *Strip) Equal(other Action) bool {
	_, ok := other.(*Strip)

	return ok
}
