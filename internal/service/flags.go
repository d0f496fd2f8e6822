package service

import (
	"context"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/flags"
	"github.com/google/uuid"
)

func (s *Service) UpsertFeatureFlag(ctx context.Context, f domain.FeatureFlag) (domain.FeatureFlag, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = s.now().UTC()
	stored, err := s.repo.UpsertFeatureFlag(ctx, f)
	return stored, mapRepoError(err)
}

func (s *Service) ListFeatureFlags(ctx context.Context, environment domain.Environment) ([]domain.FeatureFlag, error) {
	return s.repo.ListFeatureFlags(ctx, environment)
}

func (s *Service) GetFeatureFlag(ctx context.Context, name string) (domain.FeatureFlag, error) {
	f, err := s.repo.GetFeatureFlag(ctx, name)
	return f, mapRepoError(err)
}

func (s *Service) SetFeatureFlagEnabled(ctx context.Context, name string, enabled bool) error {
	return mapRepoError(s.repo.SetFeatureFlagEnabled(ctx, name, enabled))
}

func (s *Service) DeleteFeatureFlag(ctx context.Context, name string) error {
	return mapRepoError(s.repo.DeleteFeatureFlag(ctx, name))
}

// EvaluateFeatureFlag answers "is this flag on for this subject".
func (s *Service) EvaluateFeatureFlag(ctx context.Context, name, subject string, attrs map[string]string) (bool, error) {
	f, err := s.repo.GetFeatureFlag(ctx, name)
	if err != nil {
		return false, mapRepoError(err)
	}
	return flags.Evaluate(f, subject, attrs), nil
}
