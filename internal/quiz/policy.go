package quiz

import "github.com/terra-clan/trivia-engine/internal/models"

// PromotionStreak is the number of consecutive correct answers that
// promotes a session one tier
const PromotionStreak = 3

// NextTier decides the tier after an answer. There is no demotion: an
// incorrect answer leaves the tier unchanged. promoted reports that the
// streak threshold was reached, which resets the streak even when the
// session is already at the hardest tier.
func NextTier(current models.Tier, streak int, wasCorrect bool) (next models.Tier, promoted bool) {
	if !wasCorrect || streak < PromotionStreak {
		return current, false
	}
	return current.Next(), true
}
