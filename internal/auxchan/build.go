package auxchan

import (
	"fmt"
	"log/slog"

	"github.com/agleyzer/fakeframes/internal/config"
	"github.com/agleyzer/fakeframes/pkg/series"
)

// AddConfigured synthesizes every auxiliary channel enabled in cfg and
// appends it to set in state, DQ, iDQ order. cfg must have been validated.
func AddConfigured(set *series.Set, ref Reference, cfg *config.Config, logger *slog.Logger) error {
	if sv := cfg.StateVector; sv != nil {
		s, err := Synthesize(ref, StateVectorPolicy(*sv.Good, sv.OffSegments))
		if err != nil {
			return fmt.Errorf("state vector %q: %w", sv.Channel, err)
		}
		logger.Info("synthesized state vector",
			"channel", sv.Channel,
			"samples", s.Len(),
			"good", *sv.Good,
			"offSegments", len(sv.OffSegments),
		)
		if err := set.Add(sv.Channel, s); err != nil {
			return err
		}
	}

	if dq := cfg.DQVector; dq != nil {
		p := DQVectorPolicy(*dq.Good, config.Epochs(dq.BadTimes, *dq.BadPad))
		s, err := Synthesize(ref, p)
		if err != nil {
			return fmt.Errorf("dq vector %q: %w", dq.Channel, err)
		}
		logger.Info("synthesized dq vector",
			"channel", dq.Channel,
			"samples", s.Len(),
			"good", *dq.Good,
			"bad", DQBadValue(*dq.Good),
			"badEpochs", len(dq.BadTimes),
		)
		if err := set.Add(dq.Channel, s); err != nil {
			return err
		}
	}

	if idq := cfg.IDQ; idq != nil {
		p := IDQPolicy(*idq.Seed, config.Epochs(idq.BadTimes, *idq.BadPad))
		s, err := Synthesize(ref, p)
		if err != nil {
			return fmt.Errorf("idq channel %q: %w", idq.Channel, err)
		}
		logger.Info("synthesized idq channel",
			"channel", idq.Channel,
			"samples", s.Len(),
			"seed", *idq.Seed,
			"badEpochs", len(idq.BadTimes),
		)
		if err := set.Add(idq.Channel, s); err != nil {
			return err
		}
	}

	return nil
}
