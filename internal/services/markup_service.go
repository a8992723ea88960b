package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// MarkupServiceDeps bundles constructor inputs for the markup service.
type MarkupServiceDeps struct {
	Resolver   *MarkupResolver
	Calculator *MarkupCalculator
	Clock      func() time.Time
	Logger     *zap.Logger
}

type markupService struct {
	resolver   *MarkupResolver
	calculator *MarkupCalculator
	clock      func() time.Time
	logger     *zap.Logger
}

// NewMarkupService constructs the rate markup orchestrator.
func NewMarkupService(deps MarkupServiceDeps) (MarkupService, error) {
	if deps.Resolver == nil {
		return nil, errors.New("markup service: resolver is required")
	}
	calculator := deps.Calculator
	if calculator == nil {
		calculator = NewMarkupCalculator(deps.Logger)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &markupService{
		resolver:   deps.Resolver,
		calculator: calculator,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

// MarkRates applies the company's applicable markup rules to every rate. A
// rule-fetch failure degrades to returning the raw rates as both views so the
// surrounding quote flow keeps working.
func (s *markupService) MarkRates(ctx context.Context, companyID string, shipment ShipmentContext, rates []RawRate) ([]MarkedUpRate, error) {
	now := s.clock()

	rules, err := s.resolver.FetchApplicable(ctx, companyID)
	if err != nil {
		s.logger.Error("markup rule fetch failed, returning unmarked rates",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		fallback := make([]MarkedUpRate, 0, len(rates))
		for _, rate := range rates {
			fallback = append(fallback, MarkedUpRate{
				Cost:   cloneRate(rate),
				Charge: cloneRate(rate),
				Metadata: MarkupMetadata{
					OriginalTotal: rate.Pricing.Total,
					MarkupTotal:   rate.Pricing.Total,
					CompanyID:     companyID,
					ProcessedAt:   now,
				},
			})
		}
		return fallback, nil
	}

	marked := make([]MarkedUpRate, 0, len(rates))
	for _, rate := range rates {
		marked = append(marked, s.calculator.ApplyRules(ctx, rate, rules, companyID, shipment, now))
	}
	return marked, nil
}

var _ MarkupService = (*markupService)(nil)
