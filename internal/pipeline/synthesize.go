package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/config"
	"github.com/blueprintkit/bioblueprint/internal/model"
	"github.com/blueprintkit/bioblueprint/pkg/anthropic"
)

// Synthesize turns the filtered analysis tree into the final narrative
// blueprint. Known info and the context summary ride along as underscore-
// prefixed side channels inside the input JSON; the prompt instructs the
// model to treat known info as ground truth. The returned blueprint always
// carries a locally generated UUID, replacing whatever the model put in the
// id field.
func Synthesize(ctx context.Context, tree model.AnalysisTree, known model.KnownInfo, contextSummary *model.ContextSummary, aiClient anthropic.Client, aiCfg config.AnthropicConfig) (model.FinalBlueprint, *anthropic.TokenUsage, error) {
	zap.L().Info("synthesizing final blueprint")

	input := make(map[string]any, len(tree)+2)
	for k, v := range tree {
		input[k] = v
	}
	if !known.IsEmpty() {
		input["_knownInfo"] = known
	}
	if contextSummary != nil {
		input["_context"] = contextSummary
	}

	encoded, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: encode synthesis input")
	}

	prompt := fmt.Sprintf("Convert the following inference results to the final profile format:\n\n%s", encoded)

	resp, err := aiClient.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     aiCfg.Model,
		MaxTokens: aiCfg.SynthesizeMaxTokens,
		System:    synthesizePrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: []anthropic.ContentPart{anthropic.TextPart(prompt)}},
		},
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: synthesis request")
	}

	var blueprint model.FinalBlueprint
	if err := decodeResponse("synthesize", resp.Text(), &blueprint); err != nil {
		return nil, &resp.Usage, err
	}

	// The model is asked to generate an id but its output is not trusted to
	// be unique; overwrite with a real UUID.
	blueprint["id"] = uuid.NewString()

	zap.L().Info("synthesis complete",
		zap.String("id", blueprint.ID()),
		zap.String("character_name", blueprint.CharacterName()),
	)

	return blueprint, &resp.Usage, nil
}
