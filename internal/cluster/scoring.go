package cluster

import (
	"math"
	"sort"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

// ValueScore derives the 0-100 opportunity score from a cluster's keywords
// and relevance. Pure function of its inputs.
func ValueScore(c research.Cluster) int {
	if len(c.Keywords) == 0 {
		return 0
	}

	totalVolumeScore := math.Min(40, math.Log10(float64(c.TotalSearchVolume)+1)*20)
	avgVolumeScore := math.Min(25, math.Log(c.AvgSearchVolume+1)*10)

	compSum := 0.0
	for _, kw := range c.Keywords {
		compSum += research.CompetitionValue(kw.Competition)
	}
	avgComp := compSum / float64(len(c.Keywords))
	competitionScore := (1 - clamp01((avgComp-1)/2)) * 20
	if competitionScore < 0 {
		competitionScore = 0
	} else if competitionScore > 20 {
		competitionScore = 20
	}

	sizeScore := math.Min(10, math.Log(1+float64(len(c.Keywords)))*4)
	relevanceComponent := c.RelevanceScore * 25

	total := totalVolumeScore + avgVolumeScore + competitionScore + sizeScore + relevanceComponent
	if total < 0 {
		total = 0
	} else if total > 100 {
		total = 100
	}
	return int(math.Round(total))
}

// ScoreAndRank computes each cluster's value score and orders clusters by
// value, relevance, total volume and size, assigning ranks 1..K.
func (e *Engine) ScoreAndRank(clusters []research.Cluster) []research.Cluster {
	for i := range clusters {
		clusters[i].ValueScore = ValueScore(clusters[i])
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.ValueScore != b.ValueScore {
			return a.ValueScore > b.ValueScore
		}
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.TotalSearchVolume != b.TotalSearchVolume {
			return a.TotalSearchVolume > b.TotalSearchVolume
		}
		if len(a.Keywords) != len(b.Keywords) {
			return len(a.Keywords) > len(b.Keywords)
		}
		return a.PillarTopic < b.PillarTopic
	})
	for i := range clusters {
		clusters[i].Rank = i + 1
	}
	return clusters
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
