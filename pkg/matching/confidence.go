package matching

import "github.com/govlens-inc/govlens-engine/pkg/models"

// Acceptance thresholds per method, and the floor below which a candidate
// is not even worth a human look. Scores in [ReviewFloor, threshold) are
// recorded as pending_review rather than silently discarded or applied.
const (
	AcceptExactTitle = 90
	AcceptForumLink  = 85
	AcceptFuzzyTitle = 90
	AcceptClassifier = 90
	ReviewFloor      = 70
)

// Score converts a match method plus auxiliary signals into a single 0-100
// confidence. A URL/id match is structurally unambiguous and always scores
// 100; title similarity is inherently approximate, so no fuzzy score can
// outrank a structural one.
func Score(method models.MatchMethod, similarity int, sameAuthor bool) int {
	switch method {
	case models.MethodDeterministicURL, models.MethodManualOverride:
		return 100
	case models.MethodExactTitle:
		if sameAuthor {
			return 95
		}
		return 90
	case models.MethodFuzzyTitle, models.MethodForumLink:
		score := similarity
		if sameAuthor {
			score += 5
		}
		if score > 100 {
			score = 100
		}
		return score
	}
	return 0
}

// AcceptThreshold returns the auto-accept confidence for a method.
// Methods without a fuzzy component auto-accept at any score they produce.
func AcceptThreshold(method models.MatchMethod) int {
	switch method {
	case models.MethodExactTitle:
		return AcceptExactTitle
	case models.MethodForumLink:
		return AcceptForumLink
	case models.MethodFuzzyTitle:
		return AcceptFuzzyTitle
	case models.MethodClassifier:
		return AcceptClassifier
	}
	return 0
}
