package cluster

import (
	"math"

	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/textkit"
)

const (
	dbscanEpsilon = 0.3
	dbscanMinPts  = 2
	noiseLabel    = -1
)

// dbscanDistance blends textual dissimilarity with a search-volume term so
// keywords of wildly different popularity resist clustering together.
func dbscanDistance(a, b research.Keyword) float64 {
	volTerm := math.Abs(math.Log(float64(a.SearchVolume)+1)-math.Log(float64(b.SearchVolume)+1)) / 10
	return (1 - textkit.Similarity(a.Text, b.Text)) + 0.2*volTerm
}

// dbscan labels each keyword with a cluster index, or noiseLabel. Standard
// density expansion with a precomputed distance matrix.
func dbscan(keywords []research.Keyword) []int {
	n := len(keywords)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			if i == j {
				continue
			}
			dist[i][j] = dbscanDistance(keywords[i], keywords[j])
		}
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && dist[i][j] <= dbscanEpsilon {
				out = append(out, j)
			}
		}
		return out
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	visited := make([]bool, n)
	next := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		seeds := neighbors(i)
		if len(seeds)+1 < dbscanMinPts {
			continue
		}
		labels[i] = next
		for cursor := 0; cursor < len(seeds); cursor++ {
			j := seeds[cursor]
			if labels[j] == noiseLabel {
				labels[j] = next
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			more := neighbors(j)
			if len(more)+1 >= dbscanMinPts {
				seeds = append(seeds, more...)
			}
		}
		next++
	}
	return labels
}
