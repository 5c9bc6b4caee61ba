package main

import (
	"context"
	"errors"

	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/adapters/cache"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/adapters/database"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/adapters/events"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/providers"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/domain/repositories"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/postgres"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/internal/infrastructure/clients/redis"
	"github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/config"
)

// sinks holds the optional run store, summary cache and run event bus
// enabled in config.
type sinks struct {
	runs      repositories.RunRepository
	summaries providers.SummaryStore
	events    providers.RunEventBus
	closers   []func() error
}

func openSinks(ctx context.Context, cfg *config.Config) (*sinks, error) {
	s := &sinks{}

	if cfg.Database.Enabled {
		pg, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)

		repo := database.NewScoringRunAdapter(pg)
		if err := repo.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.runs = repo
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, rc.Close)
		s.summaries = cache.NewRedisSummaryStore(rc, cfg.Redis.TTLSeconds)

		bus := events.NewRedisRunEventBus(rc)
		s.closers = append(s.closers, bus.Close)
		s.events = bus
	}

	return s, nil
}

func (s *sinks) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
