package cluster

import (
	"github.com/flin-agency/keyword-research-tool/internal/research"
)

// ApplyRegroup applies AI regroup suggestions in place: pillar renames and
// priority flags. Unknown cluster IDs are ignored.
func ApplyRegroup(clusters []research.Cluster, suggestions research.RegroupSuggestions) {
	byID := indexByID(clusters)
	for _, rename := range suggestions.Renames {
		if i, ok := byID[rename.ClusterID]; ok && rename.PillarTopic != "" {
			clusters[i].PillarTopic = rename.PillarTopic
		}
	}
	for _, id := range suggestions.PriorityIDs {
		if i, ok := byID[id]; ok {
			clusters[i].AIPriority = true
		}
	}
}

// ApplyAudit applies the AI audit in order: renames, then merges, then
// individual reassignments. Metrics are recomputed after every membership
// change and emptied clusters are dropped.
func ApplyAudit(clusters []research.Cluster, report research.AuditReport) []research.Cluster {
	byID := indexByID(clusters)
	for _, rename := range report.Renames {
		if i, ok := byID[rename.ClusterID]; ok && rename.PillarTopic != "" {
			clusters[i].PillarTopic = rename.PillarTopic
		}
	}

	for _, merge := range report.Merges {
		from, okFrom := byID[merge.From]
		into, okInto := byID[merge.Into]
		if !okFrom || !okInto || from == into {
			continue
		}
		texts := make([]string, len(clusters[from].Keywords))
		for i, kw := range clusters[from].Keywords {
			texts[i] = kw.Text
		}
		for _, text := range texts {
			clusters = ApplyKeywordAssignment(clusters, text, merge.Into)
		}
		byID = indexByID(clusters)
	}

	for _, move := range report.Reassignments {
		clusters = ApplyKeywordAssignment(clusters, move.Keyword, move.ToClusterID)
	}

	return dropEmpty(clusters)
}

// ApplyKeywordAssignment moves a keyword into the target cluster, removing it
// from every other cluster so uniqueness holds. The keyword's metrics travel
// with it; a move to an unknown cluster or onto itself is a no-op.
func ApplyKeywordAssignment(clusters []research.Cluster, keyword string, toID int) []research.Cluster {
	canon := research.CanonicalText(keyword)
	target := -1
	for i := range clusters {
		if clusters[i].ID == toID {
			target = i
			break
		}
	}
	if target < 0 {
		return clusters
	}

	var moved *research.Keyword
	for i := range clusters {
		if i == target {
			continue
		}
		for _, kw := range clusters[i].Keywords {
			if research.CanonicalText(kw.Text) == canon {
				copied := kw
				moved = &copied
				break
			}
		}
		clusters[i].RemoveKeyword(canon)
	}

	if moved != nil && !clusters[target].ContainsKeyword(canon) {
		clusters[target].Keywords = append(clusters[target].Keywords, *moved)
		clusters[target].Recompute()
	}
	return clusters
}

func dropEmpty(clusters []research.Cluster) []research.Cluster {
	var out []research.Cluster
	for _, c := range clusters {
		if len(c.Keywords) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}

func indexByID(clusters []research.Cluster) map[int]int {
	byID := make(map[int]int, len(clusters))
	for i, c := range clusters {
		byID[c.ID] = i
	}
	return byID
}
