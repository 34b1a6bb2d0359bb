package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/client"
	"github.com/noah-isme/roadworks-api/internal/identity"
	"github.com/noah-isme/roadworks-api/internal/models"
)

type geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (client.Place, error)
}

type enrichmentRepository interface {
	RoadName(ctx context.Context, keys []identity.Key) (string, bool, error)
	District(ctx context.Context, keys []identity.Key) (string, bool, error)
	SaveRoadName(ctx context.Context, keys []identity.Key, name string) error
	SaveDistrict(ctx context.Context, keys []identity.Key, district string) error
}

// EnrichmentService fills in human-readable road names and districts
// for defect items. Cached answers are served without any network call;
// misses go to the reverse geocoder, and only successful answers are
// written back, so a failed lookup stays retryable.
type EnrichmentService struct {
	geocoder geocoder
	repo     enrichmentRepository
	logger   *zap.Logger
}

func NewEnrichmentService(geocoder geocoder, repo enrichmentRepository, logger *zap.Logger) *EnrichmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentService{geocoder: geocoder, repo: repo, logger: logger}
}

// Cached fills the item's road name and district from the cache alone.
// It reports whether both fields were resolved; upstream-supplied
// values on the item itself count as resolved and also warm the cache.
func (s *EnrichmentService) Cached(ctx context.Context, item *models.DefectItem) (bool, error) {
	keys := identity.Keys(item)
	if len(keys) == 0 {
		return false, nil
	}

	roadKnown := item.RoadName != ""
	if roadKnown {
		if err := s.repo.SaveRoadName(ctx, keys, item.RoadName); err != nil {
			return false, err
		}
	} else {
		name, hit, err := s.repo.RoadName(ctx, keys)
		if err != nil {
			return false, err
		}
		if hit {
			item.RoadName = name
			roadKnown = true
		}
	}

	districtKnown := item.District != ""
	if districtKnown {
		if err := s.repo.SaveDistrict(ctx, keys, item.District); err != nil {
			return false, err
		}
	} else {
		district, hit, err := s.repo.District(ctx, keys)
		if err != nil {
			return false, err
		}
		if hit {
			item.District = district
			districtKnown = true
		}
	}

	return roadKnown && districtKnown, nil
}

// Lookup resolves the item's road name and district through the reverse
// geocoder and caches the answer under every identity key. When the
// geocoder fails the item is labelled with the unknown sentinels but
// nothing is cached.
func (s *EnrichmentService) Lookup(ctx context.Context, item *models.DefectItem) error {
	if item.Coordinates == nil {
		item.RoadName = models.UnknownRoad
		item.District = models.UnknownDistrict
		return nil
	}

	place, err := s.geocoder.Reverse(ctx, item.Coordinates.Lat, item.Coordinates.Lon)
	if err != nil {
		s.logger.Warn("reverse geocode failed",
			zap.String("item", item.ID),
			zap.Error(err))
		item.RoadName = models.UnknownRoad
		item.District = models.UnknownDistrict
		return err
	}

	item.RoadName = place.RoadName
	item.District = place.District

	keys := identity.Keys(item)
	if err := s.repo.SaveRoadName(ctx, keys, place.RoadName); err != nil {
		return err
	}
	return s.repo.SaveDistrict(ctx, keys, place.District)
}
