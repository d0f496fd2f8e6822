// Package flags evaluates feature flags against a subject and its
// attributes. Evaluation is deterministic: the same flag and subject always
// land in the same rollout bucket.
package flags

import (
	"hash/fnv"
	"slices"

	"github.com/crewbase/crewbase/internal/domain"
)

const bucketCount = 100

// Evaluate reports whether the flag is on for the given subject. Disabled
// flags short-circuit; all conditions must hold; the subject must hash into
// the rollout bucket.
func Evaluate(flag domain.FeatureFlag, subject string, attrs map[string]string) bool {
	if !flag.Enabled {
		return false
	}

	for _, cond := range flag.Conditions {
		if !matches(cond, attrs) {
			return false
		}
	}

	if flag.RolloutPercentage >= bucketCount {
		return true
	}
	if flag.RolloutPercentage <= 0 {
		return false
	}
	return Bucket(flag.Name, subject) < flag.RolloutPercentage
}

// Bucket maps a flag/subject pair onto [0, 100).
func Bucket(flagName, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(flagName))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(subject))
	return int(h.Sum32() % bucketCount)
}

func matches(cond domain.FlagCondition, attrs map[string]string) bool {
	value, ok := attrs[cond.Attribute]
	if !ok {
		return false
	}

	switch cond.Op {
	case domain.FlagConditionEq:
		return len(cond.Values) == 1 && cond.Values[0] == value
	case domain.FlagConditionIn:
		return slices.Contains(cond.Values, value)
	default:
		return false
	}
}
