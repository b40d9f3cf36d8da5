package harvest

import (
	"context"
	"errors"

	"oaiharvest/internal/action"
	"oaiharvest/internal/logger"
	"oaiharvest/internal/metadata"
)

// Scenario glues one harvesting strategy to one action sequence and drives
// the protocol to exhaustion for a single provider.
type Scenario struct {
	providerName string
	sequence     *action.Sequence
	log          *logger.Logger
}

// NewScenario creates a scenario for one provider and one sequence.
func NewScenario(providerName string, seq *action.Sequence, log *logger.Logger) *Scenario {
	return &Scenario{providerName: providerName, sequence: seq, log: log}
}

// GetPrefixes runs the format strategy and returns the prefixes both the
// provider and the sequence accept. An empty result means this sequence is
// not applicable to the provider and no record harvesting should happen.
func (s *Scenario) GetPrefixes(ctx context.Context, src PrefixSource) []string {
	if !src.Request(ctx) {
		return nil
	}

	if !src.ProcessResponse() {
		return nil
	}

	prefixes := src.Prefixes()

	s.log.WithFields(logger.Fields{
		"provider": s.providerName,
		"input":    s.sequence.Input.Prefix,
		"prefixes": prefixes,
	}).Debug("prefixes matched")

	return prefixes
}

// ListIdentifiers drives an identifier-list source to exhaustion, feeding
// every record through the action sequence. Returns true when at least one
// record made it through the final action.
func (s *Scenario) ListIdentifiers(ctx context.Context, src RecordSource) bool {
	return s.harvest(ctx, src)
}

// ListRecords drives a record-list source to exhaustion. Each envelope is
// fed through the sequence, which must start with a split.
func (s *Scenario) ListRecords(ctx context.Context, src RecordSource) bool {
	return s.harvest(ctx, src)
}

func (s *Scenario) harvest(ctx context.Context, src RecordSource) bool {
	saved := 0

	for {
		rec, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, ErrDone) {
				// interrupted; whatever was saved so far still counts
				s.log.WithError(err).WithField("provider", s.providerName).Warn("harvest interrupted")
			}

			break
		}

		n, ok := s.sequence.Run([]*metadata.Record{rec})
		if !ok {
			s.log.WithFields(logger.Fields{
				"provider": s.providerName,
				"id":       rec.ID,
				"sequence": s.sequence.String(),
			}).Warn("action sequence failed for record")

			continue
		}

		saved += n
	}

	s.log.WithFields(logger.Fields{
		"provider": s.providerName,
		"saved":    saved,
	}).Info("scenario finished")

	return saved > 0
}
