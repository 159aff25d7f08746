package model

// AnalysisCategories are the seven fixed top-level sections of the deep
// analysis tree. Fields below them are dynamic.
var AnalysisCategories = []string{
	"corePersonality",
	"careerEngine",
	"expressionEngine",
	"aestheticEngine",
	"simulation",
	"backstory",
	"goal",
}

// ConfidenceValue is the universal leaf of the analysis tree: a value with
// its confidence, supporting evidence citations and an optional inference
// explanation.
type ConfidenceValue struct {
	Value        any      `json:"value"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence,omitempty"`
	InferredFrom string   `json:"inferredFrom,omitempty"`
}

// AnalysisTree is the open confidence-annotated profile tree produced by the
// deep analysis phase. Nodes are either ConfidenceValue-shaped maps, arrays
// of nodes, or maps of further nodes; the shape is preserved by filtering.
type AnalysisTree map[string]any

// IsConfidenceValueShape reports whether a decoded JSON object carries the
// ConfidenceValue shape, i.e. has both a "value" and a "confidence" key.
func IsConfidenceValueShape(m map[string]any) bool {
	_, hasValue := m["value"]
	_, hasConfidence := m["confidence"]
	return hasValue && hasConfidence
}
