package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

func auditFixture() []research.Cluster {
	a := buildCluster([]research.Keyword{
		kw("seo services", 1000, research.CompetitionHigh),
		kw("seo audit", 600, research.CompetitionLow),
	}, research.AlgorithmHybrid)
	a.ID = 1
	b := buildCluster([]research.Keyword{
		kw("content marketing", 900, research.CompetitionMedium),
		kw("email marketing", 700, research.CompetitionMedium),
	}, research.AlgorithmHybrid)
	b.ID = 2
	return []research.Cluster{a, b}
}

func TestApplyRegroup(t *testing.T) {
	clusters := auditFixture()
	ApplyRegroup(clusters, research.RegroupSuggestions{
		Renames:     []research.ClusterRename{{ClusterID: 1, PillarTopic: "seo"}, {ClusterID: 99, PillarTopic: "ghost"}},
		PriorityIDs: []int{2},
	})
	assert.Equal(t, "seo", clusters[0].PillarTopic)
	assert.False(t, clusters[0].AIPriority)
	assert.True(t, clusters[1].AIPriority)
}

func TestApplyKeywordAssignment(t *testing.T) {
	clusters := auditFixture()
	out := ApplyKeywordAssignment(clusters, "seo audit", 2)

	assert.False(t, out[0].ContainsKeyword("seo audit"))
	assert.True(t, out[1].ContainsKeyword("seo audit"))
	// Metrics travel with the keyword and totals are recomputed.
	assert.Equal(t, 1000, out[0].TotalSearchVolume)
	assert.Equal(t, 2200, out[1].TotalSearchVolume)
}

func TestApplyKeywordAssignmentUnknownTarget(t *testing.T) {
	clusters := auditFixture()
	out := ApplyKeywordAssignment(clusters, "seo audit", 42)
	assert.True(t, out[0].ContainsKeyword("seo audit"))
}

func TestApplyAuditMergesAndDropsEmpty(t *testing.T) {
	clusters := auditFixture()
	out := ApplyAudit(clusters, research.AuditReport{
		Renames: []research.ClusterRename{{ClusterID: 2, PillarTopic: "marketing"}},
		Merges:  []research.ClusterMerge{{Into: 1, From: 2}},
	})

	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].ID)
	assert.Len(t, out[0].Keywords, 4)
	assert.Equal(t, 3200, out[0].TotalSearchVolume)
}

func TestApplyAuditReassignment(t *testing.T) {
	clusters := auditFixture()
	out := ApplyAudit(clusters, research.AuditReport{
		Reassignments: []research.KeywordAssignment{{Keyword: "email marketing", ToClusterID: 1}},
	})
	require.Len(t, out, 2)
	assert.True(t, out[0].ContainsKeyword("email marketing"))
	assert.False(t, out[1].ContainsKeyword("email marketing"))
}
