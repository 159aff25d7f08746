package model

// SourceType identifies what kind of image an evidence item is.
type SourceType string

const (
	SourceTypeAppScreenshot   SourceType = "app_screenshot"
	SourceTypeCameraPhoto     SourceType = "camera_photo"
	SourceTypeEditedPhoto     SourceType = "edited_photo"
	SourceTypeDocumentScan    SourceType = "document_scan"
	SourceTypeScreenRecording SourceType = "screen_recording"
	SourceTypeDownloadedImage SourceType = "downloaded_image"
	SourceTypeUnknown         SourceType = "unknown"
)

// ContentDomain identifies the area of life an image relates to.
type ContentDomain string

const (
	DomainSocialMedia   ContentDomain = "social_media"
	DomainMessaging     ContentDomain = "messaging"
	DomainFinance       ContentDomain = "finance"
	DomainShopping      ContentDomain = "shopping"
	DomainTravel        ContentDomain = "travel"
	DomainHealth        ContentDomain = "health"
	DomainWork          ContentDomain = "work"
	DomainEntertainment ContentDomain = "entertainment"
	DomainDailyLife     ContentDomain = "daily_life"
	DomainUnknown       ContentDomain = "unknown"
)

// InteractionMode identifies what the user was doing in a screenshot.
type InteractionMode string

const (
	ModeContentBrowsing InteractionMode = "content_browsing"
	ModeContentPosting  InteractionMode = "content_posting"
	ModePrivateChat     InteractionMode = "private_chat"
	ModeGroupChat       InteractionMode = "group_chat"
	ModeTransaction     InteractionMode = "transaction"
	ModeNotification    InteractionMode = "notification"
	ModeProfileViewing  InteractionMode = "profile_viewing"
	ModeSearchResults   InteractionMode = "search_results"
	ModeSettings        InteractionMode = "settings"
	ModeUnknown         InteractionMode = "unknown"
)

// ContentFormat identifies how content is laid out in an image.
type ContentFormat string

const (
	FormatSingleImage  ContentFormat = "single_image"
	FormatGridOverview ContentFormat = "grid_overview"
	FormatFeedList     ContentFormat = "feed_list"
	FormatChatThread   ContentFormat = "chat_thread"
	FormatDetailPage   ContentFormat = "detail_page"
	FormatFullScreen   ContentFormat = "full_screen"
	FormatUnknown      ContentFormat = "unknown"
)

// SubjectRelation identifies whose content an image shows.
type SubjectRelation string

const (
	RelationOwnAccount      SubjectRelation = "own_account"
	RelationOtherPerson     SubjectRelation = "other_person"
	RelationPublicContent   SubjectRelation = "public_content"
	RelationReceivedMessage SubjectRelation = "received_message"
	RelationUnknown         SubjectRelation = "unknown"
)

// PrivacyLevel grades how sensitive an image's content is.
type PrivacyLevel string

const (
	PrivacyLow    PrivacyLevel = "low"
	PrivacyMedium PrivacyLevel = "medium"
	PrivacyHigh   PrivacyLevel = "high"
)

// Classification is one categorical judgment with its confidence and an
// optional short justification.
type Classification[T ~string] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// DetectedApp is an optional application guess for a screenshot.
type DetectedApp struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// VisibleText groups the OCR-extracted text of one image.
type VisibleText struct {
	UILanguage string   `json:"uiLanguage,omitempty"`
	Usernames  []string `json:"usernames"`
	Timestamps []string `json:"timestamps"`
	KeyLabels  []string `json:"keyLabels"`
	OtherText  []string `json:"otherText"`
}

// PrivacySensitivity is the per-image privacy assessment.
type PrivacySensitivity struct {
	Level PrivacyLevel `json:"level"`
	Flags []string     `json:"flags"`
}

// ImageContext is the full context classification for a single image.
type ImageContext struct {
	ImageIndex         int                             `json:"imageIndex"`
	SourceType         Classification[SourceType]      `json:"sourceType"`
	ContentDomain      Classification[ContentDomain]   `json:"contentDomain"`
	InteractionMode    Classification[InteractionMode] `json:"interactionMode"`
	ContentFormat      Classification[ContentFormat]   `json:"contentFormat"`
	SubjectRelation    Classification[SubjectRelation] `json:"subjectRelation"`
	DetectedApp        *DetectedApp                    `json:"detectedApp,omitempty"`
	VisibleText        VisibleText                     `json:"visibleText"`
	PrivacySensitivity PrivacySensitivity              `json:"privacySensitivity"`
}

// ContextSummary aggregates the dominant value per axis across a batch plus
// the unioned username/app lists and the maximum privacy level observed.
type ContextSummary struct {
	DominantSourceType  SourceType    `json:"dominantSourceType"`
	DominantDomain      ContentDomain `json:"dominantDomain"`
	DominantFormat      ContentFormat `json:"dominantFormat"`
	DetectedUsernames   []string      `json:"detectedUsernames"`
	DetectedApps        []string      `json:"detectedApps"`
	OverallPrivacyLevel PrivacyLevel  `json:"overallPrivacyLevel"`
}

// ContextResult is the context detection output for one image batch.
type ContextResult struct {
	Images  []ImageContext `json:"images"`
	Summary ContextSummary `json:"summary"`
}
