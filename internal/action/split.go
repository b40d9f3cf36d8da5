package action

import (
	"strings"

	"github.com/beevik/etree"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

// Split breaks an OAI-PMH envelope holding multiple records into one record
// per contained record element. Matching ignores namespaces; each emitted
// record owns a deep copy of its element, never a pointer into the envelope.
type Split struct {
	factory *metadata.Factory
	log     *logger.Logger
}

// NewSplit creates a split action.
func NewSplit(log *logger.Logger) *Split {
	return &Split{factory: metadata.NewFactory(), log: log}
}

// Perform replaces the batch with the individual records found in each
// envelope. An envelope without any record element fails the batch.
func (a *Split) Perform(records []*metadata.Record) ([]*metadata.Record, bool) {
	var out []*metadata.Record

	for _, rec := range records {
		root := rec.Doc.Root()
		if root == nil {
			a.log.WithField("id", rec.ID).Warn("no content was found in this envelope")

			return nil, false
		}

		matches := metadata.FindDescendants(root, "record")
		if len(matches) == 0 {
			a.log.WithField("id", rec.ID).Warn("no content was found in this envelope")

			return nil, false
		}

		for _, el := range matches {
			doc := etree.NewDocument()
			doc.SetRoot(el.Copy())

			id := ""
			if header := metadata.ChildByTag(el, "header"); header != nil {
				if ident := metadata.ChildByTag(header, "identifier"); ident != nil {
					id = strings.TrimSpace(ident.Text())
				}
			}

			out = append(out, a.factory.NewRecord(id, rec.Prefix, doc, rec.Origin))
		}
	}

	return out, true
}

func (a *Split) String() string {
	return "split"
}

// Equal reports structural equality; all split actions are equal.
func (a *Split) Equal(other Action) bool {
	_, ok := other.(*Split)

	return ok
}
