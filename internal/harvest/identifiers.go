package harvest

import (
	"context"
	"strings"
	"time"

	"github.com/beevik/etree"

	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
	"oaiharvest/internal/oai"
	"oaiharvest/internal/provider"
)

// identifier pairs a record header with the prefix it was listed under.
type identifier struct {
	header oai.Header
	prefix string
}

// IdentifierListHarvesting pages ListIdentifiers for each prefix, then
// fetches every record individually with GetRecord. A failed page stops
// pagination for its prefix only; remaining prefixes continue. A missing or
// malformed record is skipped, not fatal.
type IdentifierListHarvesting struct {
	prov     *provider.Provider
	prefixes []string
	from     time.Time
	factory  *metadata.Factory
	log      *logger.Logger

	state     State
	prefixIdx int
	token     string
	resp      *oai.Response
	pending   []identifier
	pos       int
}

// NewIdentifierListHarvesting creates the identifier-list strategy.
func NewIdentifierListHarvesting(p *provider.Provider, prefixes []string, from time.Time, log *logger.Logger) *IdentifierListHarvesting {
	return &IdentifierListHarvesting{
		prov:     p,
		prefixes: prefixes,
		from:     from,
		factory:  metadata.NewFactory(),
		log:      log,
	}
}

// Request fetches the next identifier page for the current prefix.
func (h *IdentifierListHarvesting) Request(ctx context.Context) bool {
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
		Verb:            oai.VerbListIdentifiers,
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
		}).Warn("identifier page failed")

		return false
	}

	if resp.HasError() && !resp.Error.IsNoRecordsMatch() {
		h.log.WithError(resp.Error).WithFields(logger.Fields{
			"url":    h.prov.BaseURL,
			"prefix": h.prefixes[h.prefixIdx],
		}).Error("identifier listing refused")

		return false
	}

	h.resp = resp
	h.state = StateParsing

	return true
}

// ProcessResponse collects the page's headers and advances pagination.
func (h *IdentifierListHarvesting) ProcessResponse() bool {
	if h.state != StateParsing {
		return false
	}

	prefix := h.prefixes[h.prefixIdx]
	for _, hdr := range h.resp.ListIdentifiers.Headers {
		h.pending = append(h.pending, identifier{header: hdr, prefix: prefix})
	}

	h.log.WithFields(logger.Fields{
		"url":         h.prov.BaseURL,
		"prefix":      prefix,
		"identifiers": len(h.resp.ListIdentifiers.Headers),
		"token":       h.resp.ResumptionToken(),
	}).Info("identifier page processed")

	prev := h.token
	h.token = h.resp.ResumptionToken()

	if h.token == "" || h.token == prev {
		// token reuse means a broken server; treat the prefix as finished
		h.advancePrefix()
	} else {
		h.state = StateHasMore
	}

	return true
}

// advancePrefix moves pagination to the next prefix, Done after the last.
func (h *IdentifierListHarvesting) advancePrefix() {
	h.token = ""
	h.prefixIdx++

	if h.prefixIdx >= len(h.prefixes) {
		h.state = StateDone
	} else {
		h.state = StateReady
	}
}

// FullyParsed reports whether every prefix has been paged to the end.
func (h *IdentifierListHarvesting) FullyParsed() bool {
	return h.state.Terminal()
}

// ResumptionToken returns the current pagination token.
func (h *IdentifierListHarvesting) ResumptionToken() string {
	return h.token
}

// State returns the current strategy state.
func (h *IdentifierListHarvesting) State() State {
	return h.state
}

// Next yields the next harvested record, fetching identifier pages and
// records as needed.
func (h *IdentifierListHarvesting) Next(ctx context.Context) (*metadata.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if h.pos < len(h.pending) {
			ident := h.pending[h.pos]
			h.pos++

			if ident.header.IsDeleted() {
				continue
			}

			rec, err := h.fetchRecord(ctx, ident)
			if err != nil {
				h.log.WithError(err).WithFields(logger.Fields{
					"url":        h.prov.BaseURL,
					"identifier": ident.header.Identifier,
				}).Warn("skipping record")

				continue
			}

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

// fetchRecord retrieves one record and wraps it as a standalone document.
func (h *IdentifierListHarvesting) fetchRecord(ctx context.Context, ident identifier) (*metadata.Record, error) {
	resp, err := h.prov.Client().GetRecord(ctx, h.prov.BaseURL, ident.prefix, ident.header.Identifier)
	if err != nil {
		return nil, err
	}

	return RecordFromResponse(resp, ident.prefix, h.prov.Name, h.factory)
}

// RecordFromResponse extracts the single record element from a GetRecord
// response into a document of its own.
func RecordFromResponse(resp *oai.Response, prefix, origin string, factory *metadata.Factory) (*metadata.Record, error) {
	envelope := etree.NewDocument()
	if err := envelope.ReadFromBytes(resp.Raw); err != nil {
		return nil, err
	}

	root := envelope.Root()
	if root == nil {
		return nil, ErrNoRecordElement
	}

	el := metadata.FirstDescendant(root, "record")
	if el == nil {
		return nil, ErrNoRecordElement
	}

	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())

	id := resp.GetRecord.Record.Header.Identifier
	if id == "" {
		if header := metadata.ChildByTag(el, "header"); header != nil {
			if ident := metadata.ChildByTag(header, "identifier"); ident != nil {
				id = strings.TrimSpace(ident.Text())
			}
		}
	}

	return factory.NewRecord(id, prefix, doc, origin), nil
}
