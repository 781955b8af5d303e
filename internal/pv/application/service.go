package application

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	pv "nowcasting-dashboard/internal/pv/domain"
	"nowcasting-dashboard/internal/render"
)

// Reader reads PV telemetry.
type Reader interface {
	SystemIDs(ctx context.Context) ([]int, error)
	Yields(ctx context.Context, systemIDs []int, since time.Time) ([]pv.Yield, error)
}

// Service backs the PV tab.
type Service struct {
	reader Reader
	now    func() time.Time
	logger zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customises a Service.
type Option func(*Service)

// WithNow overrides the time source for the yield window.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRand overrides the random source used by Random.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Service) {
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

// NewService constructs a Service.
func NewService(reader Reader, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if reader == nil {
		return nil, errors.New("pv service: reader is required")
	}
	s := &Service{
		reader: reader,
		now:    time.Now,
		logger: logger.With().Str("component", "pv").Logger(),
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SystemIDs lists all PV systems. It is the PV tab's refresh fetcher.
func (s *Service) SystemIDs(ctx context.Context) ([]int, error) {
	ids, err := s.reader.SystemIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out, nil
}

// Plot renders the last day of yields for the selected systems.
// An empty selection plots the default systems.
func (s *Service) Plot(ctx context.Context, systemIDs []int) (render.TimeSeriesFigure, error) {
	ids, err := pv.ValidateSelection(systemIDs)
	if err != nil {
		return render.EmptyFigure(), err
	}
	if len(ids) == 0 {
		ids = pv.DefaultSystemIDs
	}

	since := s.now().UTC().Add(-pv.YieldWindow)
	yields, err := s.reader.Yields(ctx, ids, since)
	if err != nil {
		return render.EmptyFigure(), err
	}
	if len(yields) == 0 {
		s.logger.Warn().Ints("systems", ids).Msg("no pv yields found")
		return render.EmptyFigure(), nil
	}
	s.logger.Debug().Int("yields", len(yields)).Msg("pv yields loaded")
	return render.PVFigure(yields), nil
}

// Random picks up to MaxSelection distinct ids from available.
func (s *Service) Random(available []int) ([]int, error) {
	if len(available) == 0 {
		return nil, pv.ErrNoSystems
	}
	n := pv.MaxSelection
	if len(available) < n {
		n = len(available)
	}

	s.mu.Lock()
	perm := s.rnd.Perm(len(available))
	s.mu.Unlock()

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = available[perm[i]]
	}
	sort.Ints(out)
	return out, nil
}
