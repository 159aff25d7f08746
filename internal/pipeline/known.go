package pipeline

import (
	"github.com/blueprintkit/bioblueprint/internal/model"
)

// ApplyKnownInfo overwrites identity card fields with user-declared values,
// tagging each replacement with a user_input source. Fields absent from
// known are left untouched, so inferred values survive wherever the user
// declared nothing. Blueprints without an identity card are returned as-is.
func ApplyKnownInfo(blueprint model.FinalBlueprint, known model.KnownInfo) {
	card := blueprint.IdentityCard()
	if card == nil {
		return
	}

	set := func(field, value string) {
		if value == "" {
			return
		}
		card[field] = map[string]any{
			"value":  value,
			"source": string(model.SourceUserInput),
		}
	}

	set("gender", known.Gender)
	set("username", known.Username)
	set("name", known.Name)
	set("age", known.AgeRange)
	set("location", known.Location)
	set("occupation", known.Occupation)
}
