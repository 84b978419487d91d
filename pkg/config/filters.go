package config

// FilterConfig holds the regex pattern groups and content heuristics that
// decide what gets skipped before reaching the LLM.
type FilterConfig struct {
	// MeetingSkipPatterns match test/demo/training meeting titles; a whole
	// meeting is dropped if its title matches one of these.
	MeetingSkipPatterns []string `yaml:"meeting_skip_patterns"`

	// SkipMatterTypes are matter types for which the Matter row is still
	// created (referential integrity) but no MatterJob is enqueued.
	SkipMatterTypes []string `yaml:"skip_matter_types"`

	// ItemSkipPatterns match procedural/ceremonial/administrative agenda
	// item titles; matching items are filtered from the LLM batch.
	ItemSkipPatterns []string `yaml:"item_skip_patterns"`

	// Document name filters, applied when building a meeting's
	// DocumentCache.
	PublicCommentPatterns     []string `yaml:"public_comment_patterns"`
	ParcelTablePatterns       []string `yaml:"parcel_table_patterns"`
	BoilerplateContractPatterns []string `yaml:"boilerplate_contract_patterns"`
	EIRPatterns               []string `yaml:"eir_patterns"`

	// CityDocumentPatterns adds per-city document name filters on top of
	// the global ones above.
	CityDocumentPatterns map[string][]string `yaml:"city_document_patterns"`

	// Content heuristics.
	MaxPageCount          int     `yaml:"max_page_count"`
	OCRSuspectPageCount   int     `yaml:"ocr_suspect_page_count"`
	OCRRatioThreshold     float64 `yaml:"ocr_ratio_threshold"`
	SincerelyTextMinLen   int     `yaml:"sincerely_text_min_len"`
	SincerelyMaxOccurrences int   `yaml:"sincerely_max_occurrences"`

	// ExtractionConcurrency bounds concurrent PDF extractions per meeting
	// (suggests 4-8).
	ExtractionConcurrency int `yaml:"extraction_concurrency"`
}

// DefaultFilterConfig returns the named pattern groups with sensible
// example patterns; operators override via YAML.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		MeetingSkipPatterns: []string{
			`(?i)\btest\b`, `(?i)\bdemo\b`, `(?i)\btraining\b`,
		},
		SkipMatterTypes: []string{"Minutes", "IRC", "Information Items"},
		ItemSkipPatterns: []string{
			`(?i)^roll call$`, `(?i)^pledge of allegiance$`, `(?i)^invocation$`,
			`(?i)^call to order$`, `(?i)^adjournment$`, `(?i)^closed session$`,
			`(?i)^proclamation`, `(?i)^presentation of`,
		},
		PublicCommentPatterns:       []string{`(?i)public comment`},
		ParcelTablePatterns:         []string{`(?i)parcel.*table`, `(?i)assessor.*parcel`},
		BoilerplateContractPatterns: []string{`(?i)standard.*contract.*terms`, `(?i)boilerplate`},
		EIRPatterns:                 []string{`(?i)environmental impact report`, `(?i)\beir\b`},
		CityDocumentPatterns:        map[string][]string{},

		MaxPageCount:            1000,
		OCRSuspectPageCount:     50,
		OCRRatioThreshold:       0.30,
		SincerelyTextMinLen:     5000,
		SincerelyMaxOccurrences: 20,

		ExtractionConcurrency: 6,
	}
}
