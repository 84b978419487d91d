package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTopics_CanonicalizesAndDedupes(t *testing.T) {
	got := normalizeTopics([]string{"Affordable Housing", "  Zoning ", "housing", "", "Unlisted Topic"})
	assert.Equal(t, []string{"housing", "land use", "unlisted topic"}, got)
}

func TestMergeTopics_PreservesFirstSeenOrder(t *testing.T) {
	got := mergeTopics([]string{"budget", "housing"}, []string{"housing", "transportation"})
	assert.Equal(t, []string{"budget", "housing", "transportation"}, got)
}

func TestMergeTopics_NoLists(t *testing.T) {
	assert.Nil(t, mergeTopics())
}
