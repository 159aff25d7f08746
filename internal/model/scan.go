package model

// TagCategory is the fixed domain taxonomy for scan tags.
type TagCategory string

const (
	CategoryHobby     TagCategory = "hobby"
	CategoryFood      TagCategory = "food"
	CategoryTravel    TagCategory = "travel"
	CategorySocial    TagCategory = "social"
	CategoryBackstory TagCategory = "backstory"
	CategoryLocation  TagCategory = "location"
	CategoryAesthetic TagCategory = "aesthetic"
	CategoryPet       TagCategory = "pet"
	CategoryFamily    TagCategory = "family"
	CategoryWork      TagCategory = "work"
)

// TagCategories lists all valid tag categories in display order.
var TagCategories = []TagCategory{
	CategoryHobby, CategoryFood, CategoryTravel, CategorySocial,
	CategoryBackstory, CategoryLocation, CategoryAesthetic, CategoryPet,
	CategoryFamily, CategoryWork,
}

// Priority ranks how much signal a single image carries for deep analysis.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ImageTag is one tag assigned to an image during the scan phase.
type ImageTag struct {
	Tag        string      `json:"tag"`
	Confidence float64     `json:"confidence"`
	Category   TagCategory `json:"category"`
}

// DetectedText is one OCR snippet extracted from an image.
type DetectedText struct {
	Text       string  `json:"text"`
	Type       string  `json:"type,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ImageScan is the per-image scan record: tags, OCR text, people count,
// location signal and priority tier.
type ImageScan struct {
	ImageIndex   int            `json:"imageIndex"`
	Tags         []ImageTag     `json:"tags"`
	TextDetected []DetectedText `json:"textDetected"`
	PeopleCount  int            `json:"peopleCount"`
	HasLocation  bool           `json:"hasLocation"`
	LocationTag  string         `json:"locationTag,omitempty"`
	Priority     Priority       `json:"priority"`
}

// CrossReference is a topic corroborated across images, carrying the
// supporting image indices and an occurrence-derived confidence.
type CrossReference struct {
	Topic        string   `json:"topic"`
	Images       []int    `json:"images"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence,omitempty"`
	TextEvidence []string `json:"textEvidence,omitempty"`
}

// ScanSummary aggregates the scan phase across the whole batch.
type ScanSummary struct {
	TotalImages          int                 `json:"totalImages"`
	CategoryDistribution map[TagCategory]int `json:"categoryDistribution"`
	HighPriorityImages   []int               `json:"highPriorityImages"`
	CrossReferences      []CrossReference    `json:"crossReferences"`
}

// ScanResult is the evidence scanner output for one image batch.
type ScanResult struct {
	ScanResults []ImageScan `json:"scanResults"`
	Summary     ScanSummary `json:"summary"`
}
