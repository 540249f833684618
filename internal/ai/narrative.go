package ai

import (
	"fmt"
	"strings"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

const narrativeKeywords = 4

// Narrative deterministically writes a cluster description and content
// strategy from the pillar topic, top keywords and site context. Used when
// AI is disabled or returned empty copy.
func Narrative(cluster research.Cluster, site research.SiteContext) research.ClusterEnhancement {
	top := cluster.Keywords
	if len(top) > narrativeKeywords {
		top = top[:narrativeKeywords]
	}
	texts := make([]string, len(top))
	for i, kw := range top {
		texts[i] = kw.Text
	}

	subject := site.Title
	if subject == "" {
		subject = site.URL
	}

	description := fmt.Sprintf(
		"This cluster centers on %q with %d related keywords and a combined monthly search volume of %d.",
		cluster.PillarTopic, len(cluster.Keywords), cluster.TotalSearchVolume)
	if len(texts) > 0 {
		description += fmt.Sprintf(" Leading terms include %s.", strings.Join(texts, ", "))
	}

	strategy := fmt.Sprintf(
		"Create a pillar page targeting %q and supporting articles for the related terms, linked back to the pillar.",
		cluster.PillarTopic)
	if subject != "" {
		strategy += fmt.Sprintf(" Align the copy with the positioning of %s.", subject)
	}

	return research.ClusterEnhancement{
		PillarTopic:     cluster.PillarTopic,
		Description:     description,
		ContentStrategy: strategy,
	}
}
