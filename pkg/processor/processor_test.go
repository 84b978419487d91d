package processor

import (
	"fmt"
	"testing"

	"github.com/civicsync/civicsync/pkg/llmclient"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestCollapseVersions_KeepsHighestVersionPerBaseName(t *testing.T) {
	in := []models.Attachment{
		{URL: "https://example.gov/a.pdf", Name: "Staff Report Ver1.pdf"},
		{URL: "https://example.gov/b.pdf", Name: "Staff Report Ver2.pdf"},
		{URL: "https://example.gov/c.pdf", Name: "Unrelated Exhibit.pdf"},
	}
	out := collapseVersions(in)
	assert.Len(t, out, 2)

	var urls []string
	for _, a := range out {
		urls = append(urls, a.URL)
	}
	assert.Contains(t, urls, "https://example.gov/b.pdf")
	assert.Contains(t, urls, "https://example.gov/c.pdf")
	assert.NotContains(t, urls, "https://example.gov/a.pdf")
}

func TestCollapseVersions_NoVersionTokensKeepsAll(t *testing.T) {
	in := []models.Attachment{
		{URL: "https://example.gov/x.pdf", Name: "Exhibit A.pdf"},
		{URL: "https://example.gov/y.pdf", Name: "Exhibit B.pdf"},
	}
	out := collapseVersions(in)
	assert.Len(t, out, 2)
}

func TestSplitVersion(t *testing.T) {
	base, version, ok := splitVersion("Staff Report Ver2.pdf")
	assert.True(t, ok)
	assert.Equal(t, 2, version)
	assert.Equal(t, "Staff Report .pdf", base)

	_, _, ok = splitVersion("No Version Here.pdf")
	assert.False(t, ok)
}

func TestClassifyRetryable(t *testing.T) {
	assert.False(t, classifyRetryable(llmclient.ErrUnavailable))
	assert.False(t, classifyRetryable(fmt.Errorf("wrapped: %w", llmclient.ErrUnavailable)))
	assert.True(t, classifyRetryable(assert.AnError))
}
