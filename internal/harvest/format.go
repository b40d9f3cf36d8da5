package harvest

import (
	"context"

	"oaiharvest/internal/action"
	"oaiharvest/internal/logger"
	"oaiharvest/internal/oai"
	"oaiharvest/internal/provider"
)

// FormatHarvesting lists the metadata formats of a live endpoint and keeps
// the prefixes compatible with an action sequence's input format. One
// request, no pagination.
type FormatHarvesting struct {
	prov  *provider.Provider
	input action.Format
	log   *logger.Logger

	state    State
	resp     *oai.Response
	prefixes []string
}

// NewFormatHarvesting creates the format strategy for one provider and one
// sequence input format.
func NewFormatHarvesting(p *provider.Provider, input action.Format, log *logger.Logger) *FormatHarvesting {
	return &FormatHarvesting{prov: p, input: input, log: log}
}

// Request performs the ListMetadataFormats call.
func (h *FormatHarvesting) Request(ctx context.Context) bool {
	if h.state != StateReady {
		return false
	}

	h.state = StateRequesting

	resp, err := h.prov.Client().Do(ctx, &oai.Request{
		BaseURL: h.prov.BaseURL,
		Verb:    oai.VerbListMetadataFormats,
	})
	if err != nil {
		h.log.WithError(err).WithField("url", h.prov.BaseURL).Error("listing metadata formats failed")
		h.state = StateFailed

		return false
	}

	if resp.HasError() {
		h.log.WithError(resp.Error).WithField("url", h.prov.BaseURL).Error("listing metadata formats failed")
		h.state = StateFailed

		return false
	}

	h.resp = resp
	h.state = StateParsing

	return true
}

// ProcessResponse keeps the prefixes the provider allows and the sequence
// accepts.
func (h *FormatHarvesting) ProcessResponse() bool {
	if h.state != StateParsing {
		return false
	}

	for _, f := range h.resp.ListMetadataFormats.Formats {
		if !h.prov.Allows(f.MetadataPrefix) {
			continue
		}

		if matchesFormat(f, h.input) {
			h.prefixes = append(h.prefixes, f.MetadataPrefix)
		}
	}

	h.state = StateDone

	return true
}

// matchesFormat compares an offered format against a sequence input: by
// prefix, or by schema when the sequence pins one.
func matchesFormat(f oai.MetadataFormat, input action.Format) bool {
	if f.MetadataPrefix == input.Prefix {
		return true
	}

	return input.Schema != "" && f.Schema == input.Schema
}

// FullyParsed reports completion.
func (h *FormatHarvesting) FullyParsed() bool {
	return h.state.Terminal()
}

// ResumptionToken is always empty; format listing is not paginated.
func (h *FormatHarvesting) ResumptionToken() string {
	return ""
}

// State returns the current strategy state.
func (h *FormatHarvesting) State() State {
	return h.state
}

// Prefixes returns the matching prefixes in provider order.
func (h *FormatHarvesting) Prefixes() []string {
	return h.prefixes
}

// StaticPrefixHarvesting answers the same prefix query from a static
// archive, without network I/O.
type StaticPrefixHarvesting struct {
	prov  *provider.StaticProvider
	input action.Format
	log   *logger.Logger

	state    State
	formats  []oai.MetadataFormat
	prefixes []string
}

// NewStaticPrefixHarvesting creates the static format strategy.
func NewStaticPrefixHarvesting(p *provider.StaticProvider, input action.Format, log *logger.Logger) *StaticPrefixHarvesting {
	return &StaticPrefixHarvesting{prov: p, input: input, log: log}
}

// Request reads the archive's format list.
func (h *StaticPrefixHarvesting) Request(_ context.Context) bool {
	if h.state != StateReady {
		return false
	}

	h.state = StateRequesting

	formats, err := h.prov.Formats()
	if err != nil {
		h.log.WithError(err).WithField("path", h.prov.Path).Error("reading static archive formats failed")
		h.state = StateFailed

		return false
	}

	h.formats = formats
	h.state = StateParsing

	return true
}

// ProcessResponse filters the archive formats like the live variant.
func (h *StaticPrefixHarvesting) ProcessResponse() bool {
	if h.state != StateParsing {
		return false
	}

	for _, f := range h.formats {
		if h.prov.Allows(f.MetadataPrefix) && matchesFormat(f, h.input) {
			h.prefixes = append(h.prefixes, f.MetadataPrefix)
		}
	}

	h.state = StateDone

	return true
}

// FullyParsed reports completion.
func (h *StaticPrefixHarvesting) FullyParsed() bool {
	return h.state.Terminal()
}

// ResumptionToken is always empty.
func (h *StaticPrefixHarvesting) ResumptionToken() string {
	return ""
}

// State returns the current strategy state.
func (h *StaticPrefixHarvesting) State() State {
	return h.state
}

// Prefixes returns the matching prefixes in archive order.
func (h *StaticPrefixHarvesting) Prefixes() []string {
	return h.prefixes
}
