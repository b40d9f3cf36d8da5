package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/beevik/etree"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
	"oaiharvest/internal/oai"
	"oaiharvest/internal/provider"
)

// ErrNoRecordElement indicates a response without a record element.
var ErrNoRecordElement = errors.New("response contains no record element")

// RecordListHarvesting pages ListRecords for each prefix and yields every
// page as one envelope record, to be split by the action pipeline. A failed
// page stops pagination for its prefix only.
type RecordListHarvesting struct {
	prov     *provider.Provider
	prefixes []string
	from     time.Time
	factory  *metadata.Factory
	log      *logger.Logger

	state     State
	prefixIdx int
	token     string
	resp      *oai.Response
	pending   *metadata.Record
}

// NewRecordListHarvesting creates the record-list strategy.
func NewRecordListHarvesting(p *provider.Provider, prefixes []string, from time.Time, log *logger.Logger) *RecordListHarvesting {
	return &RecordListHarvesting{
		prov:     p,
		prefixes: prefixes,
		from:     from,
		factory:  metadata.NewFactory(),
		log:      log,
	}
}

// Request fetches the next record page for the current prefix.
func (h *RecordListHarvesting) Request(ctx context.Context) bool {
	if h.state != StateReady && h.state != StateHasMore {
		return false
	}

	if h.prefixIdx >= len(h.prefixes) {
		h.state = StateDone

		return false
	}

	h.state = StateRequesting

	req := &oai.Request{
		BaseURL:         h.prov.BaseURL,
		Verb:            oai.VerbListRecords,
		MetadataPrefix:  h.prefixes[h.prefixIdx],
		ResumptionToken: h.token,
	}
	if h.token == "" {
		req.SetFrom(h.from)
	}

	resp, err := h.prov.Client().Do(ctx, req)
	if err != nil {
		h.log.WithError(err).WithFields(logger.Fields{
			"url":    h.prov.BaseURL,
			"prefix": h.prefixes[h.prefixIdx],
		}).Warn("record page failed")

		return false
	}

	if resp.HasError() && !resp.Error.IsNoRecordsMatch() {
		h.log.WithError(resp.Error).WithFields(logger.Fields{
			"url":    h.prov.BaseURL,
			"prefix": h.prefixes[h.prefixIdx],
		}).Error("record listing refused")

		return false
	}

	h.resp = resp
	h.state = StateParsing

	return true
}

// ProcessResponse wraps the page as an envelope record and advances
// pagination.
func (h *RecordListHarvesting) ProcessResponse() bool {
	if h.state != StateParsing {
		return false
	}

	prefix := h.prefixes[h.prefixIdx]

	if len(h.resp.ListRecords.Records) > 0 {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(h.resp.Raw); err != nil {
			h.log.WithError(err).WithFields(logger.Fields{
				"url":    h.prov.BaseURL,
				"prefix": prefix,
			}).Error("parsing record page")

			return false
		}

		h.pending = h.factory.NewEnvelope(prefix, doc, h.prov.Name)
	}

	h.log.WithFields(logger.Fields{
		"url":     h.prov.BaseURL,
		"prefix":  prefix,
		"records": len(h.resp.ListRecords.Records),
		"token":   h.resp.ResumptionToken(),
	}).Info("record page processed")

	prev := h.token
	h.token = h.resp.ResumptionToken()

	if h.token == "" || h.token == prev {
		h.advancePrefix()
	} else {
		h.state = StateHasMore
	}

	return true
}

func (h *RecordListHarvesting) advancePrefix() {
	h.token = ""
	h.prefixIdx++

	if h.prefixIdx >= len(h.prefixes) {
		h.state = StateDone
	} else {
		h.state = StateReady
	}
}

// FullyParsed reports whether every prefix has been paged to the end.
func (h *RecordListHarvesting) FullyParsed() bool {
	return h.state.Terminal()
}

// ResumptionToken returns the current pagination token.
func (h *RecordListHarvesting) ResumptionToken() string {
	return h.token
}

// State returns the current strategy state.
func (h *RecordListHarvesting) State() State {
	return h.state
}

// Next yields the next envelope record, requesting pages as needed.
func (h *RecordListHarvesting) Next(ctx context.Context) (*metadata.Record, error) {
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
