package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) UpsertFeatureFlag(ctx context.Context, f domain.FeatureFlag) (domain.FeatureFlag, error) {
	conditions, err := json.Marshal(f.Conditions)
	if err != nil {
		return domain.FeatureFlag{}, fmt.Errorf("encode flag conditions: %w", err)
	}
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return domain.FeatureFlag{}, fmt.Errorf("encode flag metadata: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO feature_flags (flag_id, name, description, enabled, environment, rollout_percentage, conditions, metadata, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $10)
		ON CONFLICT (name)
		DO UPDATE SET description = EXCLUDED.description,
		              enabled = EXCLUDED.enabled,
		              environment = EXCLUDED.environment,
		              rollout_percentage = EXCLUDED.rollout_percentage,
		              conditions = EXCLUDED.conditions,
		              metadata = EXCLUDED.metadata,
		              updated_at = EXCLUDED.updated_at
		RETURNING flag_id, created_at, updated_at
	`, f.ID, f.Name, f.Description, f.Enabled, string(f.Environment), f.RolloutPercentage,
		string(conditions), string(metadata), f.CreatedBy, f.CreatedAt).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return domain.FeatureFlag{}, fmt.Errorf("upsert feature flag: %w", err)
	}
	return f, nil
}

func (r *Repository) GetFeatureFlag(ctx context.Context, name string) (domain.FeatureFlag, error) {
	return scanFeatureFlag(r.pool.QueryRow(ctx, `
		SELECT flag_id, name, description, enabled, environment, rollout_percentage, conditions, metadata, created_by, created_at, updated_at
		FROM feature_flags
		WHERE name = $1
	`, name))
}

func (r *Repository) ListFeatureFlags(ctx context.Context, environment domain.Environment) ([]domain.FeatureFlag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT flag_id, name, description, enabled, environment, rollout_percentage, conditions, metadata, created_by, created_at, updated_at
		FROM feature_flags
		WHERE ($1 = '' OR environment = $1)
		ORDER BY name
	`, string(environment))
	if err != nil {
		return nil, fmt.Errorf("select feature flags: %w", err)
	}
	defer rows.Close()

	var result []domain.FeatureFlag
	for rows.Next() {
		f, err := scanFeatureFlag(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature flags: %w", err)
	}
	return result, nil
}

func scanFeatureFlag(row pgx.Row) (domain.FeatureFlag, error) {
	var f domain.FeatureFlag
	var environment string
	var conditions, metadata []byte

	err := row.Scan(&f.ID, &f.Name, &f.Description, &f.Enabled, &environment,
		&f.RolloutPercentage, &conditions, &metadata, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FeatureFlag{}, ErrNotFound
	}
	if err != nil {
		return domain.FeatureFlag{}, fmt.Errorf("scan feature flag: %w", err)
	}

	f.Environment = domain.Environment(environment)
	if err := json.Unmarshal(conditions, &f.Conditions); err != nil {
		return domain.FeatureFlag{}, fmt.Errorf("decode flag conditions: %w", err)
	}
	if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
		return domain.FeatureFlag{}, fmt.Errorf("decode flag metadata: %w", err)
	}
	return f, nil
}

func (r *Repository) SetFeatureFlagEnabled(ctx context.Context, name string, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE feature_flags SET enabled = $2, updated_at = NOW() WHERE name = $1
	`, name, enabled)
	if err != nil {
		return fmt.Errorf("toggle feature flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteFeatureFlag(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete feature flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
