// Package contentfilter compiles the configured regex pattern groups once
// and exposes the skip/classify decisions the sync orchestrator and
// processor need at meeting, item, and document granularity.
package contentfilter

import (
	"fmt"
	"regexp"

	"github.com/civicsync/civicsync/pkg/config"
)

// DocumentClass labels a document name against the configured pattern
// groups, used to decide extraction priority and LLM framing.
type DocumentClass string

// Document classes.
const (
	DocumentGeneral          DocumentClass = "general"
	DocumentPublicComment    DocumentClass = "public_comment"
	DocumentParcelTable      DocumentClass = "parcel_table"
	DocumentBoilerplate      DocumentClass = "boilerplate_contract"
	DocumentEnvironmentalImpactReport DocumentClass = "eir"
)

// Filter holds every compiled pattern group from config.FilterConfig.
type Filter struct {
	meetingSkip     []*regexp.Regexp
	itemSkip        []*regexp.Regexp
	skipMatterTypes map[string]bool

	publicComment []*regexp.Regexp
	parcelTable   []*regexp.Regexp
	boilerplate   []*regexp.Regexp
	eir           []*regexp.Regexp
	cityDocument  map[string][]*regexp.Regexp
}

// New compiles every pattern in cfg once; callers reuse the returned
// Filter for the lifetime of the process.
func New(cfg *config.FilterConfig) (*Filter, error) {
	f := &Filter{
		skipMatterTypes: make(map[string]bool, len(cfg.SkipMatterTypes)),
		cityDocument:    make(map[string][]*regexp.Regexp, len(cfg.CityDocumentPatterns)),
	}
	for _, t := range cfg.SkipMatterTypes {
		f.skipMatterTypes[t] = true
	}

	var err error
	if f.meetingSkip, err = compileAll(cfg.MeetingSkipPatterns); err != nil {
		return nil, fmt.Errorf("meeting_skip_patterns: %w", err)
	}
	if f.itemSkip, err = compileAll(cfg.ItemSkipPatterns); err != nil {
		return nil, fmt.Errorf("item_skip_patterns: %w", err)
	}
	if f.publicComment, err = compileAll(cfg.PublicCommentPatterns); err != nil {
		return nil, fmt.Errorf("public_comment_patterns: %w", err)
	}
	if f.parcelTable, err = compileAll(cfg.ParcelTablePatterns); err != nil {
		return nil, fmt.Errorf("parcel_table_patterns: %w", err)
	}
	if f.boilerplate, err = compileAll(cfg.BoilerplateContractPatterns); err != nil {
		return nil, fmt.Errorf("boilerplate_contract_patterns: %w", err)
	}
	if f.eir, err = compileAll(cfg.EIRPatterns); err != nil {
		return nil, fmt.Errorf("eir_patterns: %w", err)
	}
	for city, patterns := range cfg.CityDocumentPatterns {
		compiled, err := compileAll(patterns)
		if err != nil {
			return nil, fmt.Errorf("city_document_patterns[%s]: %w", city, err)
		}
		f.cityDocument[city] = compiled
	}

	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ShouldSkipMeeting reports whether a meeting's title matches a
// test/demo/training skip pattern — the whole meeting is dropped.
func (f *Filter) ShouldSkipMeeting(title string) bool {
	return anyMatch(f.meetingSkip, title)
}

// ShouldSkipItem reports whether an agenda item's title is procedural and
// should be excluded from the LLM batch, along with a human-readable
// reason suitable for filter_reason.
func (f *Filter) ShouldSkipItem(title string) (bool, string) {
	if anyMatch(f.itemSkip, title) {
		return true, "procedural agenda item"
	}
	return false, ""
}

// ShouldSkipMatterType reports whether a matter type is tracked for
// referential integrity but never queued for summarization.
func (f *Filter) ShouldSkipMatterType(matterType string) bool {
	return f.skipMatterTypes[matterType]
}

// ClassifyDocument labels a document name for extraction/framing
// decisions, checking city-specific patterns before the global groups.
func (f *Filter) ClassifyDocument(banana, name string) DocumentClass {
	if anyMatch(f.cityDocument[banana], name) {
		return DocumentBoilerplate
	}
	switch {
	case anyMatch(f.publicComment, name):
		return DocumentPublicComment
	case anyMatch(f.parcelTable, name):
		return DocumentParcelTable
	case anyMatch(f.boilerplate, name):
		return DocumentBoilerplate
	case anyMatch(f.eir, name):
		return DocumentEnvironmentalImpactReport
	default:
		return DocumentGeneral
	}
}
