package worker

import (
	"context"

	"oaiharvest/internal/action"
	"oaiharvest/internal/cycle"
	"oaiharvest/internal/harvest"
	"oaiharvest/internal/logger"
	"oaiharvest/internal/provider"
)

// Outcome is the result of one worker run.
type Outcome struct {
	Endpoint   *cycle.Endpoint
	Succeeded  bool
	PersistErr error
}

// Worker harvests one provider during one cycle iteration. It tries the
// action sequences in order and stops after the first one whose scenario
// succeeds. The attempt is always recorded on the cycle, success or not.
type Worker struct {
	Live         *provider.Provider
	Static       *provider.StaticProvider
	Sequences    []*action.Sequence
	ScenarioName string
	Cycle        *cycle.Cycle
	Endpoint     *cycle.Endpoint
	Log          *logger.Logger
}

// Run drives the worker to completion.
func (w *Worker) Run(ctx context.Context) Outcome {
	name := w.providerName()
	log := w.Log.WithFields(logger.Fields{
		"provider": name,
		"endpoint": w.Endpoint.URI,
	})
	log.Info("processing provider")

	if err := w.initProvider(ctx); err != nil {
		log.WithError(err).Error("provider initialisation failed")

		return w.finish(log, false)
	}

	from := w.Cycle.RequestDate(w.Endpoint)
	done := false

	for _, seq := range w.Sequences {
		scenario := harvest.NewScenario(w.providerName(), seq, w.Log)

		if w.Static != nil {
			prefixes := scenario.GetPrefixes(ctx,
				harvest.NewStaticPrefixHarvesting(w.Static, seq.Input, w.Log))
			if len(prefixes) == 0 {
				continue
			}

			done = scenario.ListRecords(ctx,
				harvest.NewStaticRecordListHarvesting(w.Static, prefixes, w.Log))
		} else {
			prefixes := scenario.GetPrefixes(ctx,
				harvest.NewFormatHarvesting(w.Live, seq.Input, w.Log))
			if len(prefixes) == 0 {
				continue
			}

			if w.ScenarioName == cycle.ScenarioListIdentifiers {
				done = scenario.ListIdentifiers(ctx,
					harvest.NewIdentifierListHarvesting(w.Live, prefixes, from, w.Log))
			} else {
				done = scenario.ListRecords(ctx,
					harvest.NewRecordListHarvesting(w.Live, prefixes, from, w.Log))
			}
		}

		// break after an action sequence has completed successfully
		if done {
			break
		}
	}

	return w.finish(log, done)
}

func (w *Worker) finish(log *logger.Logger, done bool) Outcome {
	persistErr := w.Cycle.RecordAttempt(w.Endpoint, done)
	if persistErr != nil {
		log.WithError(persistErr).Error("recording attempt failed")
	}

	log.WithField("succeeded", done).Info("processing finished")

	return Outcome{Endpoint: w.Endpoint, Succeeded: done, PersistErr: persistErr}
}

func (w *Worker) initProvider(ctx context.Context) error {
	if w.Static != nil {
		return w.Static.Init(ctx)
	}

	return w.Live.Init(ctx)
}

func (w *Worker) providerName() string {
	if w.Static != nil {
		return w.Static.String()
	}

	return w.Live.String()
}
