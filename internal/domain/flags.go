package domain

import "time"

// FlagConditionOp is the comparison applied by a flag condition.
type FlagConditionOp string

const (
	FlagConditionEq FlagConditionOp = "eq"
	FlagConditionIn FlagConditionOp = "in"
)

// FlagCondition is one attribute predicate. All conditions on a flag must
// hold for the flag to be eligible for the rollout bucket check.
type FlagCondition struct {
	Attribute string          `json:"attribute"`
	Op        FlagConditionOp `json:"op"`
	Values    []string        `json:"values"`
}

// FeatureFlag is a toggle with an optional percentage rollout and attribute
// conditions, scoped to one environment.
type FeatureFlag struct {
	ID                string
	Name              string
	Description       string
	Enabled           bool
	Environment       Environment
	RolloutPercentage int
	Conditions        []FlagCondition
	Metadata          map[string]string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
