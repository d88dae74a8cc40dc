package reckoner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gostackhq/reckoner-backend/pkg/metrics"
)

type instrumentedService struct {
	Service
	metrics *metrics.ResolverMetrics
}

// NewInstrumentedService wraps a resolution service with latency and miss
// metrics. A nil collector returns the service unchanged.
func NewInstrumentedService(svc Service, m *metrics.ResolverMetrics) Service {
	if m == nil {
		return svc
	}
	return &instrumentedService{Service: svc, metrics: m}
}

func (s *instrumentedService) GetActivePrice(ctx context.Context, itemCode string, channelID uuid.UUID, companyID *uuid.UUID, asOf time.Time) (*ActivePriceDTO, error) {
	start := time.Now()
	dto, err := s.Service.GetActivePrice(ctx, itemCode, channelID, companyID, asOf)
	s.metrics.ObserveDuration("active_price", time.Since(start))
	if err == nil && !dto.Found {
		s.metrics.IncMiss("active_price")
	}
	return dto, err
}

func (s *instrumentedService) GetGrid(ctx context.Context, filters GridFilters) (*Grid, error) {
	start := time.Now()
	grid, err := s.Service.GetGrid(ctx, filters)
	s.metrics.ObserveDuration("grid", time.Since(start))
	return grid, err
}
