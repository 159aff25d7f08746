package pipeline

import (
	"github.com/blueprintkit/bioblueprint/internal/model"
)

const (
	// DefaultFilterThreshold is the threshold used when callers filter a
	// tree directly.
	DefaultFilterThreshold = 0.6
	// SynthesisFilterThreshold is the stricter threshold applied before a
	// filtered tree is handed to the synthesizer.
	SynthesisFilterThreshold = 0.8
)

// FilterByConfidence prunes every confidence-annotated leaf below threshold
// from the analysis tree, then removes containers the pruning left empty.
// The result is never nil: a tree filtered to nothing comes back as an empty
// tree. The input is not modified.
func FilterByConfidence(tree model.AnalysisTree, threshold float64) model.AnalysisTree {
	filtered, ok := filterNode(map[string]any(tree), threshold)
	if !ok {
		return model.AnalysisTree{}
	}
	return model.AnalysisTree(filtered.(map[string]any))
}

// filterNode applies the confidence filter to one node. The second return
// value is false when the node should be dropped from its parent.
func filterNode(node any, threshold float64) (any, bool) {
	switch v := node.(type) {
	case nil:
		return nil, false

	case []any:
		kept := make([]any, 0, len(v))
		for _, item := range v {
			out, ok := filterNode(item, threshold)
			if !ok {
				continue
			}
			if arr, isArr := out.([]any); isArr && len(arr) == 0 {
				continue
			}
			kept = append(kept, out)
		}
		return kept, true

	case map[string]any:
		// Confidence-value leaves are kept or dropped whole; their
		// internals are never descended into.
		if model.IsConfidenceValueShape(v) {
			conf, ok := v["confidence"].(float64)
			if !ok || conf < threshold {
				return nil, false
			}
			return v, true
		}

		kept := make(map[string]any, len(v))
		for key, val := range v {
			out, ok := filterNode(val, threshold)
			if !ok {
				continue
			}
			if arr, isArr := out.([]any); isArr && len(arr) == 0 {
				continue
			}
			if obj, isObj := out.(map[string]any); isObj && len(obj) == 0 {
				continue
			}
			kept[key] = out
		}
		if len(kept) == 0 {
			return nil, false
		}
		return kept, true

	default:
		return v, true
	}
}
