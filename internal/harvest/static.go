package harvest

import (
	"context"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
	"oaiharvest/internal/provider"
)

// StaticRecordListHarvesting yields one envelope record per prefix from a
// static archive. There is no pagination; the archive holds complete record
// lists.
type StaticRecordListHarvesting struct {
	prov     *provider.StaticProvider
	prefixes []string
	factory  *metadata.Factory
	log      *logger.Logger

	state     State
	prefixIdx int
	pending   *metadata.Record
}

// NewStaticRecordListHarvesting creates the static record-list strategy.
func NewStaticRecordListHarvesting(p *provider.StaticProvider, prefixes []string, log *logger.Logger) *StaticRecordListHarvesting {
	return &StaticRecordListHarvesting{
		prov:     p,
		prefixes: prefixes,
		factory:  metadata.NewFactory(),
		log:      log,
	}
}

// Request loads the record list for the current prefix from the archive.
func (h *StaticRecordListHarvesting) Request(_ context.Context) bool {
	if h.state != StateReady {
		return false
	}

	if h.prefixIdx >= len(h.prefixes) {
		h.state = StateDone

		return false
	}

	h.state = StateRequesting

	prefix := h.prefixes[h.prefixIdx]

	doc, err := h.prov.Records(prefix)
	if err != nil {
		h.log.WithError(err).WithFields(logger.Fields{
			"path":   h.prov.Path,
			"prefix": prefix,
		}).Warn("static record list failed")

		return false
	}

	h.pending = h.factory.NewEnvelope(prefix, doc, h.prov.Name)
	h.state = StateParsing

	return true
}

// ProcessResponse advances to the next prefix; the archive needs no parsing
// beyond the load done in Request.
func (h *StaticRecordListHarvesting) ProcessResponse() bool {
	if h.state != StateParsing {
		return false
	}

	h.log.WithFields(logger.Fields{
		"path":   h.prov.Path,
		"prefix": h.prefixes[h.prefixIdx],
	}).Info("static record list processed")

	h.advancePrefix()

	return true
}

func (h *StaticRecordListHarvesting) advancePrefix() {
	h.prefixIdx++

	if h.prefixIdx >= len(h.prefixes) {
		h.state = StateDone
	} else {
		h.state = StateReady
	}
}

// FullyParsed reports whether every prefix has been read.
func (h *StaticRecordListHarvesting) FullyParsed() bool {
	return h.state.Terminal()
}

// ResumptionToken is always empty; archives are not paginated.
func (h *StaticRecordListHarvesting) ResumptionToken() string {
	return ""
}

// State returns the current strategy state.
func (h *StaticRecordListHarvesting) State() State {
	return h.state
}

// Next yields the next envelope record from the archive.
func (h *StaticRecordListHarvesting) Next(ctx context.Context) (*metadata.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if h.pending != nil {
			rec := h.pending
			h.pending = nil

			return rec, nil
		}

		if h.state.Terminal() {
			return nil, ErrDone
		}

		if !h.Request(ctx) || !h.ProcessResponse() {
			if h.state.Terminal() {
				return nil, ErrDone
			}

			h.advancePrefix()
		}
	}
}
