package pipeline

import (
	"github.com/blueprintkit/bioblueprint/internal/model"
)

// Cross-reference confidence bands, derived from occurrence count. Model
// output drifts above these limits often enough that the bands are enforced
// in code after the scan phase rather than trusted from the prompt.
const (
	// singleOccurrenceCap bounds topics supported by one image only.
	singleOccurrenceCap = 0.60
	// fewOccurrenceFloor / fewOccurrenceCap bracket 2-3 occurrence topics.
	fewOccurrenceFloor = 0.70
	fewOccurrenceCap   = 0.80
	// manyOccurrenceFloor bounds 4+ occurrence topics from below.
	manyOccurrenceFloor = 0.85
	// corroborationBoost is added once per corroborating evidence class
	// (GPS, OCR) for multi-occurrence topics.
	corroborationBoost = 0.05
)

// FocusTopicThreshold selects which cross-references become deep analysis
// focus topics.
const FocusTopicThreshold = 0.70

// NormalizeCrossReferences clamps each cross-reference confidence into the
// band its occurrence count allows, then applies corroboration boosts:
// - 1 supporting image: capped at 0.60, no boosts
// - 2-3 supporting images: clamped to [0.70, 0.80] before boosts
// - 4+ supporting images: raised to at least 0.85
// A GPS fix on any supporting image and OCR text evidence each add 0.05 for
// multi-occurrence topics, capped at 1.0. Single-occurrence topics stay at or
// below 0.60 regardless of corroboration.
func NormalizeCrossReferences(scan *model.ScanResult, images []model.EvidenceImage) {
	for i := range scan.Summary.CrossReferences {
		ref := &scan.Summary.CrossReferences[i]
		n := len(ref.Images)

		switch {
		case n <= 1:
			ref.Confidence = min(ref.Confidence, singleOccurrenceCap)
			continue
		case n <= 3:
			ref.Confidence = clamp(ref.Confidence, fewOccurrenceFloor, fewOccurrenceCap)
		default:
			ref.Confidence = max(ref.Confidence, manyOccurrenceFloor)
		}

		if hasGPSCorroboration(ref, images) {
			ref.Confidence += corroborationBoost
		}
		if hasOCRCorroboration(ref, scan) {
			ref.Confidence += corroborationBoost
		}
		ref.Confidence = min(ref.Confidence, 1.0)
	}
}

// FocusTopics returns the topics of all cross-references whose confidence
// exceeds FocusTopicThreshold, preserving order.
func FocusTopics(scan *model.ScanResult) []string {
	var topics []string
	for _, ref := range scan.Summary.CrossReferences {
		if ref.Confidence > FocusTopicThreshold {
			topics = append(topics, ref.Topic)
		}
	}
	return topics
}

func hasGPSCorroboration(ref *model.CrossReference, images []model.EvidenceImage) bool {
	for _, idx := range ref.Images {
		if idx < 0 || idx >= len(images) {
			continue
		}
		exif := images[idx].Exif
		if exif != nil && exif.HasGPS() {
			return true
		}
	}
	return false
}

func hasOCRCorroboration(ref *model.CrossReference, scan *model.ScanResult) bool {
	if len(ref.TextEvidence) > 0 {
		return true
	}
	for _, idx := range ref.Images {
		for _, rec := range scan.ScanResults {
			if rec.ImageIndex == idx && len(rec.TextDetected) > 0 {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
