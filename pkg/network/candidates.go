package network

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fibertrack/fibertrack/pkg/geo"
	"github.com/fibertrack/fibertrack/pkg/model"
)

// Candidate is a cabinet paired with its distance from a query point.
type Candidate struct {
	Cabinet  model.Cabinet
	Distance float64 // meters
}

// NearestCandidates returns the tenant's cabinets ordered by ascending
// distance from coord, ties broken by cabinet ID. A limit of zero means
// no limit. An empty result is not an error.
//
// Cabinet counts per tenant sit in the hundreds to low thousands, so a
// linear scan with a sort is the reference implementation here.
func (s *Service) NearestCandidates(ctx context.Context, tenantID uuid.UUID, coord geo.Coordinate, limit int) ([]Candidate, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	cabinets, err := s.store.ListCabinets(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(cabinets))
	for _, cabinet := range cabinets {
		distance, err := geo.Distance(coord, cabinet.Coordinate())
		if err != nil {
			// Bad stored coordinates should never block the whole search.
			s.logger.Warn("skipping cabinet with invalid coordinates",
				zap.String("cabinet_id", cabinet.ID.String()),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, Candidate{Cabinet: cabinet, Distance: distance})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].Cabinet.ID.String() < candidates[j].Cabinet.ID.String()
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}
