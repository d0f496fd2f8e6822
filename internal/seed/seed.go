// Package seed loads demo fixture data at startup. It only ever runs once,
// before the server starts accepting requests, and never affects request-time
// behavior.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/service"
)

type fixture struct {
	Organizations []struct {
		Name      string `yaml:"name"`
		Domain    string `yaml:"domain"`
		Employees []struct {
			Email      string `yaml:"email"`
			FullName   string `yaml:"full_name"`
			Position   string `yaml:"position"`
			Department string `yaml:"department"`
			HiredAt    string `yaml:"hired_at"`
		} `yaml:"employees"`
	} `yaml:"organizations"`

	FeatureFlags []struct {
		Name              string `yaml:"name"`
		Description       string `yaml:"description"`
		Enabled           bool   `yaml:"enabled"`
		Environment       string `yaml:"environment"`
		RolloutPercentage int    `yaml:"rollout_percentage"`
		Conditions        []struct {
			Attribute string   `yaml:"attribute"`
			Op        string   `yaml:"op"`
			Values    []string `yaml:"values"`
		} `yaml:"conditions"`
	} `yaml:"feature_flags"`

	Deployments []struct {
		Environment string `yaml:"environment"`
		Version     string `yaml:"version"`
		DeployedBy  string `yaml:"deployed_by"`
	} `yaml:"deployments"`

	Integrations []struct {
		Name       string `yaml:"name"`
		Kind       string `yaml:"kind"`
		WebhookURL string `yaml:"webhook_url"`
		CreatedBy  string `yaml:"created_by"`
	} `yaml:"integrations"`
}

// Apply reads the fixture file and inserts its records through the service
// layer. Records that already exist are skipped, so re-running against a
// seeded database is harmless.
func Apply(ctx context.Context, svc *service.Service, path string, logger *zap.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	existing, err := svc.ListOrganizations(ctx)
	if err != nil {
		return err
	}
	orgIDs := make(map[string]string, len(existing))
	for _, o := range existing {
		orgIDs[o.Name] = o.ID
	}

	for _, o := range fx.Organizations {
		id, ok := orgIDs[o.Name]
		if !ok {
			created, err := svc.CreateOrganization(ctx, o.Name, o.Domain)
			if err != nil {
				return fmt.Errorf("seed organization %q: %w", o.Name, err)
			}
			id = created.ID
			orgIDs[o.Name] = id
		}

		for _, e := range o.Employees {
			hiredAt, err := parseDate(e.HiredAt)
			if err != nil {
				return fmt.Errorf("seed employee %q: %w", e.Email, err)
			}
			_, err = svc.UpsertEmployee(ctx, domain.Employee{
				OrganizationID: id,
				Email:          e.Email,
				FullName:       e.FullName,
				Position:       e.Position,
				Department:     e.Department,
				HiredAt:        hiredAt,
				Active:         true,
			})
			if err != nil {
				return fmt.Errorf("seed employee %q: %w", e.Email, err)
			}
		}
	}

	for _, f := range fx.FeatureFlags {
		conditions := make([]domain.FlagCondition, 0, len(f.Conditions))
		for _, c := range f.Conditions {
			conditions = append(conditions, domain.FlagCondition{
				Attribute: c.Attribute,
				Op:        domain.FlagConditionOp(c.Op),
				Values:    c.Values,
			})
		}
		_, err := svc.UpsertFeatureFlag(ctx, domain.FeatureFlag{
			Name:              f.Name,
			Description:       f.Description,
			Enabled:           f.Enabled,
			Environment:       domain.Environment(f.Environment),
			RolloutPercentage: f.RolloutPercentage,
			Conditions:        conditions,
			CreatedBy:         "seed",
		})
		if err != nil {
			return fmt.Errorf("seed feature flag %q: %w", f.Name, err)
		}
	}

	for _, d := range fx.Deployments {
		_, err := svc.CreateDeployment(ctx, domain.Deployment{
			Environment: domain.Environment(d.Environment),
			Version:     d.Version,
			DeployedBy:  d.DeployedBy,
		})
		if err != nil {
			return fmt.Errorf("seed deployment %q: %w", d.Version, err)
		}
	}

	for _, i := range fx.Integrations {
		_, err := svc.CreateIntegration(ctx, domain.Integration{
			Name:       i.Name,
			Kind:       i.Kind,
			WebhookURL: i.WebhookURL,
			CreatedBy:  i.CreatedBy,
		})
		if err != nil && !errors.Is(err, service.ErrAlreadyExists) {
			return fmt.Errorf("seed integration %q: %w", i.Name, err)
		}
	}

	logger.Info("demo fixture applied",
		zap.String("path", path),
		zap.Int("organizations", len(fx.Organizations)),
		zap.Int("feature_flags", len(fx.FeatureFlags)),
		zap.Int("deployments", len(fx.Deployments)),
		zap.Int("integrations", len(fx.Integrations)),
	)
	return nil
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}
