package backup

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// RunOnSchedule fires run on the given cron expression until ctx is
// cancelled. A trigger that lands while the previous run is still going is
// skipped, so runs from this process never overlap; the run lock stays useful
// against other processes.
func RunOnSchedule(ctx context.Context, spec string, run func(context.Context) error) error {
	var mu sync.Mutex
	busy := false

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		mu.Lock()
		if busy {
			mu.Unlock()
			log.Ctx(ctx).Warn().Msg("previous run still active, skipping trigger")
			return
		}
		busy = true
		mu.Unlock()
		defer func() {
			mu.Lock()
			busy = false
			mu.Unlock()
		}()

		if err := run(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q", spec)
	}

	log.Ctx(ctx).Info().Str("schedule", spec).Msg("scheduler started")
	c.Start()
	<-ctx.Done()
	log.Ctx(ctx).Info().Msg("stopping scheduler")
	<-c.Stop().Done()
	return nil
}
