// Package scoring ships the reference risk scorer. The rule set is
// deliberately trivial; deployments swap in their own domain.RiskScorer.
package scoring

import "github.com/aegisai/aegis-core/pkg/domain"

// Metadata flags the reference scorer reacts to.
const (
	flagPersonalData  = "contains_personal_data"
	flagExternalModel = "is_external_model"
)

// FlagScorer scores an operation from boolean-style metadata flags: personal
// data weighs 70, an external model weighs 50. The reason reflects the last
// matched flag, or "ok" when nothing matched.
type FlagScorer struct{}

// NewFlagScorer creates the reference scorer.
func NewFlagScorer() *FlagScorer {
	return &FlagScorer{}
}

// Score implements domain.RiskScorer.
func (s *FlagScorer) Score(_ string, _ string, meta domain.Metadata) (int, string) {
	score := 0
	reason := "ok"

	if meta.Flag(flagPersonalData) {
		score += 70
		reason = "contains_personal_data"
	}
	if meta.Flag(flagExternalModel) {
		score += 50
		reason = "external_model_detected"
	}

	return score, reason
}
