package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Janitor periodically deletes finished rooms nobody watches and rooms idle for longer
// than the idle TTL.
type Janitor struct {
	store         RoomRetirer
	tickerCreator PeriodicTickerChannelCreator
	interval      time.Duration
	idleTTL       time.Duration
	now           func() time.Time
}

func NewJanitor(store RoomRetirer, tickerCreator PeriodicTickerChannelCreator, interval, idleTTL time.Duration) *Janitor {
	return &Janitor{
		store:         store,
		tickerCreator: tickerCreator,
		interval:      interval,
		idleTTL:       idleTTL,
		now:           time.Now,
	}
}

// Run sweeps on every tick until ctx is done. started is closed once the ticker exists.
func (j *Janitor) Run(ctx context.Context, started chan struct{}) {
	ticker := j.tickerCreator.Create(j.interval)
	close(started)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) int {
	n, err := j.store.Retire(ctx, j.now().Add(-j.idleTTL))
	if err != nil {
		log.Error().Err(err).Msg("room sweep failed")
		return 0
	}
	if n > 0 {
		log.Info().Int("rooms", n).Msg("retired rooms")
	}
	return n
}
