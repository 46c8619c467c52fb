// Package descparse resolves free-text offer descriptions like
// "Spend $25, get $10" into a spend threshold and reward amount. Regex
// handles the common phrasings; anything it cannot read may be handed to an
// optional semantic-parsing fallback. Resolution runs strictly before the
// scoring engine.
package descparse

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"activation-analytics/internal/models"
)

const spendPrefix = "Spend $"

var (
	spendRe  = regexp.MustCompile(`(?i)Spend\s+\$(\d+(?:\.\d+)?)`)
	rewardRe = regexp.MustCompile(`(?i)(?:get|receive|earn)\s+\$(\d+(?:\.\d+)?)`)
)

// Parse extracts the spend threshold and reward from a description. Either
// value is nil when its phrasing was not recognized.
func Parse(description string) (minSpend, reward *float64) {
	if m := spendRe.FindStringSubmatch(description); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			minSpend = &v
		}
	}
	if m := rewardRe.FindStringSubmatch(description); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			reward = &v
		}
	}
	return minSpend, reward
}

// IsSpendOffer reports whether the description marks a spend-threshold
// promotion, the only offer type the scoring engine understands.
func IsSpendOffer(description string) bool {
	return strings.HasPrefix(description, spendPrefix)
}

// Fallback is a semantic parser consulted when regex fails. Implementations
// call out of process, so they take a context.
type Fallback interface {
	Parse(ctx context.Context, description string) (minSpend, reward float64, err error)
}

// Resolve fills in MinimumSpend and RewardAmount on every spend-offer
// activation that is still unresolved, first by regex and then through the
// fallback when one is provided. Activations the fallback also cannot read
// stay unresolved and are later rejected from scoring; their intervals still
// feed the exclusion index.
func Resolve(ctx context.Context, activations []models.Activation, fb Fallback) []models.Activation {
	out := make([]models.Activation, len(activations))
	copy(out, activations)

	for i := range out {
		act := &out[i]
		if act.Parsed() || !IsSpendOffer(act.Description) {
			continue
		}

		minSpend, reward := Parse(act.Description)
		if minSpend != nil && reward != nil {
			act.MinimumSpend = minSpend
			act.RewardAmount = reward
			continue
		}

		if fb == nil {
			continue
		}
		ms, rw, err := fb.Parse(ctx, act.Description)
		if err != nil {
			continue
		}
		act.MinimumSpend = &ms
		act.RewardAmount = &rw
	}
	return out
}
