package rules

import "github.com/loyaltyworks/loyaltyhub/internal/models"

// TierFor maps a balance to its tier label under the rule's thresholds.
// Thresholds are rule-scoped: the same balance can map to different tiers
// depending on which rule applies to the card's context.
func TierFor(balance int64, rule *models.Rule) string {
	switch {
	case balance >= rule.GoldThreshold:
		return models.TierGold
	case balance >= rule.SilverThreshold:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}
