package extract

import (
	"strings"

	"github.com/Kkro1s/HongLouMeng/internal/models"
)

// Rule assigns Type to any sentence containing one of Keywords.
type Rule struct {
	Type     models.InteractionType `json:"type" yaml:"type"`
	Keywords []string               `json:"keywords" yaml:"keywords"`
}

// Rules is an ordered classification table; the first matching rule wins and
// CoOccurrence is the fallback.
type Rules []Rule

// DefaultRules is the speech-verb and movement-verb table.
var DefaultRules = Rules{
	{Type: models.Dialogue, Keywords: []string{"道", "說", "問", "答", "回", "笑", "叫", "勸", "罵"}},
	{Type: models.Action, Keywords: []string{"見", "遇", "訪", "來", "去", "送", "給", "拉", "推"}},
}

// Classify returns the type of the first rule with a keyword in sentence.
func (rs Rules) Classify(sentence string) models.InteractionType {
	for _, r := range rs {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(sentence, kw) {
				return r.Type
			}
		}
	}
	return models.CoOccurrence
}
