package service

import (
	"context"
	"errors"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/repository"
	"go.uber.org/zap"
)

// ThresholdSource supplies per-tier trigger counts
type ThresholdSource interface {
	GetQuotationThresholds(ctx context.Context) (entity.QuotationThreshold, error)
}

// ThresholdService persisted thresholds with configured defaults
type ThresholdService struct {
	repo     *repository.ThresholdRepository
	defaults entity.QuotationThreshold
	logger   *zap.Logger
}

func NewThresholdService(repo *repository.ThresholdRepository, defaults entity.QuotationThreshold, logger *zap.Logger) *ThresholdService {
	return &ThresholdService{repo: repo, defaults: defaults, logger: logger.Named("thresholds")}
}

// GetQuotationThresholds the saved row, or the defaults when none was saved
func (s *ThresholdService) GetQuotationThresholds(ctx context.Context) (entity.QuotationThreshold, error) {
	t, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.defaults, nil
		}
		return entity.QuotationThreshold{}, err
	}
	return *t, nil
}

// UpdateThresholdRequest partial threshold update
type UpdateThresholdRequest struct {
	High   *int `json:"high"`
	Medium *int `json:"medium"`
	Low    *int `json:"low"`
}

// Update changes the given tiers; zero triggers on any shortage
func (s *ThresholdService) Update(ctx context.Context, req *UpdateThresholdRequest, userID string) (entity.QuotationThreshold, error) {
	current, err := s.GetQuotationThresholds(ctx)
	if err != nil {
		return entity.QuotationThreshold{}, err
	}

	for _, v := range []*int{req.High, req.Medium, req.Low} {
		if v != nil && *v < 0 {
			return entity.QuotationThreshold{}, invalidState("thresholds must not be negative")
		}
	}
	if req.High != nil {
		current.High = *req.High
	}
	if req.Medium != nil {
		current.Medium = *req.Medium
	}
	if req.Low != nil {
		current.Low = *req.Low
	}
	current.UpdatedBy = userID

	if err := s.repo.Save(ctx, &current); err != nil {
		return entity.QuotationThreshold{}, err
	}
	s.logger.Info("quotation thresholds updated",
		zap.Int("high", current.High), zap.Int("medium", current.Medium), zap.Int("low", current.Low),
		zap.String("by", userID))
	return current, nil
}
