package model

// Source marks where a final blueprint field value came from.
type Source string

const (
	SourceUserInput Source = "user_input"
	SourceInferred  Source = "inferred"
	SourceDetected  Source = "detected"
)

// TrackedField is a final blueprint field annotated with its provenance.
// Confidence and Evidence survive only for inferred/detected values.
type TrackedField struct {
	Value      any      `json:"value"`
	Source     Source   `json:"source"`
	Confidence *float64 `json:"confidence,omitempty"`
	Evidence   []string `json:"evidence,omitempty"`
}

// FinalBlueprint is the synthesized narrative profile document. Its schema is
// open (the synthesizer decides the narrative sections), but the identity
// card lives at profile.identity_card and the known-info merge targets it.
type FinalBlueprint map[string]any

// IdentityCard returns the identity card map, or nil when the blueprint has
// no profile.identity_card path.
func (b FinalBlueprint) IdentityCard() map[string]any {
	profile, ok := b["profile"].(map[string]any)
	if !ok {
		return nil
	}
	card, ok := profile["identity_card"].(map[string]any)
	if !ok {
		return nil
	}
	return card
}

// ID returns the blueprint identifier, if set.
func (b FinalBlueprint) ID() string {
	id, _ := b["id"].(string)
	return id
}

// CharacterName returns the generated character name, if set.
func (b FinalBlueprint) CharacterName() string {
	name, _ := b["character_name"].(string)
	return name
}
