// Package cluster implements the topic clustering engine: vectorization,
// k-means, DBSCAN and semantic grouping, hybrid refinement, uniqueness
// enforcement, relevance filtering and value scoring.
package cluster

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/textkit"
)

const (
	defaultMinClusterSize = 3

	coherenceSplitThreshold = 0.3
	coherenceSplitMinSize   = 10
	mergeThreshold          = 0.6
	mixedClusterSize        = 30
	semanticAbsorb          = 0.4
	semanticAttach          = 0.3
	noiseAttach             = 0.3
	coherenceSample         = 10
	topKeywordsCompared     = 5

	// Seed for k-means++ so repeated runs over the same keyword set produce
	// the same clusters.
	rngSeed = 1
)

// Engine runs the clustering pipeline.
type Engine struct {
	logger *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Cluster groups the keywords into ranked topic clusters using the algorithm
// named in opts. Zero keywords yield an empty list; fewer keywords than the
// minimum cluster size yield a single cluster holding all of them.
func (e *Engine) Cluster(ctx context.Context, keywords []research.Keyword, site research.SiteContext, opts research.Options) ([]research.Cluster, error) {
	if len(keywords) == 0 {
		return []research.Cluster{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	minSize := opts.MinClusterSize
	if minSize <= 0 {
		minSize = defaultMinClusterSize
	}
	algorithm := opts.Algorithm
	if !research.ValidAlgorithm(algorithm) {
		algorithm = research.AlgorithmHybrid
	}

	if len(keywords) < minSize {
		single := buildCluster(keywords, algorithm)
		clusters := e.ApplyRelevanceScores([]research.Cluster{single}, site, 1)
		return e.finish(clusters), nil
	}

	rng := rand.New(rand.NewSource(rngSeed))

	var clusters []research.Cluster
	switch algorithm {
	case research.AlgorithmKMeans:
		clusters = buildClusters(e.kmeansGroups(keywords, rng), algorithm)
	case research.AlgorithmDBSCAN:
		clusters = buildClusters(e.dbscanGroups(keywords, minSize), algorithm)
	case research.AlgorithmSemantic:
		clusters = buildClusters(semanticGroups(keywords, minSize), algorithm)
	default:
		clusters = buildClusters(e.kmeansGroups(keywords, rng), algorithm)
		clusters = e.refineWithSemantics(clusters, minSize, rng)
		clusters = e.mergeSimilarClusters(clusters)
		clusters = e.splitMixedClusters(clusters, minSize, rng)
	}

	clusters = EnsureUnique(clusters, minSize)
	if len(clusters) == 0 {
		return nil, research.ErrClusterEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clusters = e.ApplyRelevanceScores(clusters, site, minSize)
	return e.finish(clusters), nil
}

// finish scores, ranks and assigns stable IDs in rank order.
func (e *Engine) finish(clusters []research.Cluster) []research.Cluster {
	clusters = e.ScoreAndRank(clusters)
	for i := range clusters {
		clusters[i].ID = i + 1
	}
	return clusters
}

func (e *Engine) kmeansGroups(keywords []research.Keyword, rng *rand.Rand) [][]research.Keyword {
	vectors := vectorize(keywords)
	k := chooseK(len(keywords))
	assignment := kmeans(vectors, k, rng)
	return groupByAssignment(keywords, assignment, k)
}

// dbscanGroups runs density clustering and folds noise points into the most
// similar cluster, or a trailing misc group when enough of them remain.
func (e *Engine) dbscanGroups(keywords []research.Keyword, minSize int) [][]research.Keyword {
	labels := dbscan(keywords)
	maxLabel := -1
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}

	groups := make([][]research.Keyword, maxLabel+1)
	var noise []research.Keyword
	for i, l := range labels {
		if l == noiseLabel {
			noise = append(noise, keywords[i])
			continue
		}
		groups[l] = append(groups[l], keywords[i])
	}

	var misc []research.Keyword
	for _, kw := range noise {
		best, bestSim := -1, noiseAttach
		for g, group := range groups {
			if sim := topSimilarity(kw.Text, group); sim > bestSim {
				best, bestSim = g, sim
			}
		}
		if best >= 0 {
			groups[best] = append(groups[best], kw)
			continue
		}
		misc = append(misc, kw)
	}
	if len(misc) >= minSize {
		groups = append(groups, misc)
	}
	return groups
}

// topSimilarity averages the similarity of text against the group's top
// keywords by search volume.
func topSimilarity(text string, group []research.Keyword) float64 {
	top := make([]research.Keyword, len(group))
	copy(top, group)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].SearchVolume > top[j].SearchVolume
	})
	if len(top) > topKeywordsCompared {
		top = top[:topKeywordsCompared]
	}
	if len(top) == 0 {
		return 0
	}
	sum := 0.0
	for _, kw := range top {
		sum += textkit.Similarity(text, kw.Text)
	}
	return sum / float64(len(top))
}

// semanticGroups walks keywords by descending volume, starting a cluster per
// unassigned keyword and absorbing close candidates.
func semanticGroups(keywords []research.Keyword, minSize int) [][]research.Keyword {
	order := make([]research.Keyword, len(keywords))
	copy(order, keywords)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].SearchVolume > order[j].SearchVolume
	})

	assigned := make([]bool, len(order))
	var groups [][]research.Keyword
	for i, seed := range order {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := []research.Keyword{seed}
		for j := i + 1; j < len(order); j++ {
			if assigned[j] {
				continue
			}
			if textkit.Similarity(seed.Text, order[j].Text) > semanticAbsorb {
				assigned[j] = true
				group = append(group, order[j])
			}
		}
		groups = append(groups, group)
	}

	// Dissolve undersized groups and reattach their keywords.
	var kept [][]research.Keyword
	var loose []research.Keyword
	for _, group := range groups {
		if len(group) >= minSize {
			kept = append(kept, group)
			continue
		}
		loose = append(loose, group...)
	}

	var misc []research.Keyword
	for _, kw := range loose {
		best, bestSim := -1, semanticAttach
		for g, group := range kept {
			if sim := textkit.Similarity(kw.Text, group[0].Text); sim > bestSim {
				best, bestSim = g, sim
			}
		}
		if best >= 0 {
			kept[best] = append(kept[best], kw)
			continue
		}
		misc = append(misc, kw)
	}
	if len(misc) >= minSize {
		kept = append(kept, misc)
	}
	return kept
}

// refineWithSemantics splits incoherent oversized clusters.
func (e *Engine) refineWithSemantics(clusters []research.Cluster, minSize int, rng *rand.Rand) []research.Cluster {
	var out []research.Cluster
	for _, c := range clusters {
		if len(c.Keywords) > coherenceSplitMinSize && coherence(c) < coherenceSplitThreshold {
			out = append(out, e.splitCluster(c, minSize, rng)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// mergeSimilarClusters folds near-duplicate clusters into the earlier one,
// repeating until no pair exceeds the threshold.
func (e *Engine) mergeSimilarClusters(clusters []research.Cluster) []research.Cluster {
	for {
		merged := false
		for i := 0; i < len(clusters) && !merged; i++ {
			for j := i + 1; j < len(clusters); j++ {
				if clusterSimilarity(clusters[i], clusters[j]) <= mergeThreshold {
					continue
				}
				for _, kw := range clusters[j].Keywords {
					if !clusters[i].ContainsKeyword(kw.Text) {
						clusters[i].Keywords = append(clusters[i].Keywords, kw)
					}
				}
				clusters[i].PillarTopic = selectPillar(clusters[i].Keywords)
				clusters[i].Recompute()
				clusters = append(clusters[:j], clusters[j+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			return clusters
		}
	}
}

func clusterSimilarity(a, b research.Cluster) float64 {
	pillarSim := textkit.Similarity(a.PillarTopic, b.PillarTopic)

	topA, topB := a.Keywords, b.Keywords
	if len(topA) > topKeywordsCompared {
		topA = topA[:topKeywordsCompared]
	}
	if len(topB) > topKeywordsCompared {
		topB = topB[:topKeywordsCompared]
	}
	keywordSim := 0.0
	if len(topA) > 0 && len(topB) > 0 {
		sum, pairs := 0.0, 0
		for _, ka := range topA {
			for _, kb := range topB {
				sum += textkit.Similarity(ka.Text, kb.Text)
				pairs++
			}
		}
		keywordSim = sum / float64(pairs)
	}
	return 0.4*pillarSim + 0.6*keywordSim
}

// splitMixedClusters breaks up clusters that grew past the size ceiling.
func (e *Engine) splitMixedClusters(clusters []research.Cluster, minSize int, rng *rand.Rand) []research.Cluster {
	var out []research.Cluster
	for _, c := range clusters {
		if len(c.Keywords) > mixedClusterSize {
			out = append(out, e.splitCluster(c, minSize, rng)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// splitCluster re-runs k-means inside one cluster. If any sub-cluster falls
// below the minimum size the original cluster is kept instead.
func (e *Engine) splitCluster(c research.Cluster, minSize int, rng *rand.Rand) []research.Cluster {
	k := len(c.Keywords) / 5
	if k > 3 {
		k = 3
	}
	if k < 2 {
		return []research.Cluster{c}
	}

	vectors := vectorize(c.Keywords)
	assignment := kmeans(vectors, k, rng)
	groups := groupByAssignment(c.Keywords, assignment, k)

	var subs []research.Cluster
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		if len(group) < minSize {
			return []research.Cluster{c}
		}
		subs = append(subs, buildCluster(group, c.Algorithm))
	}
	if len(subs) < 2 {
		return []research.Cluster{c}
	}
	return subs
}

// coherence is the average pairwise similarity over the cluster's leading
// keywords.
func coherence(c research.Cluster) float64 {
	sample := c.Keywords
	if len(sample) > coherenceSample {
		sample = sample[:coherenceSample]
	}
	if len(sample) < 2 {
		return 1
	}
	sum, pairs := 0.0, 0
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			sum += textkit.Similarity(sample[i].Text, sample[j].Text)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// EnsureUnique guarantees each keyword text lives in exactly one cluster.
// Duplicates go to the cluster whose pillar they resemble most (earlier
// cluster wins ties); clusters left below minSize are dissolved into the best
// surviving cluster. Running it on an already-unique set is a no-op.
func EnsureUnique(clusters []research.Cluster, minSize int) []research.Cluster {
	owners := make(map[string]int)
	var order []string
	holders := make(map[string][]int)
	for i := range clusters {
		seenHere := make(map[string]struct{})
		for _, kw := range clusters[i].Keywords {
			canon := research.CanonicalText(kw.Text)
			if _, dup := seenHere[canon]; dup {
				continue
			}
			seenHere[canon] = struct{}{}
			if _, ok := owners[canon]; !ok {
				owners[canon] = i
				order = append(order, canon)
			}
			holders[canon] = append(holders[canon], i)
		}
	}

	for _, canon := range order {
		ids := holders[canon]
		if len(ids) < 2 {
			continue
		}
		best, bestSim := ids[0], -1.0
		for _, id := range ids {
			if sim := textkit.Similarity(canon, clusters[id].PillarTopic); sim > bestSim {
				best, bestSim = id, sim
			}
		}
		for _, id := range ids {
			if id != best {
				clusters[id].RemoveKeyword(canon)
			}
		}
	}

	// Also collapse in-cluster duplicates.
	for i := range clusters {
		dedupeClusterKeywords(&clusters[i])
	}

	var survivors []research.Cluster
	var dissolved []research.Cluster
	for _, c := range clusters {
		if len(c.Keywords) == 0 {
			continue
		}
		if len(c.Keywords) < minSize {
			dissolved = append(dissolved, c)
			continue
		}
		survivors = append(survivors, c)
	}
	if len(survivors) == 0 {
		return append(survivors, dissolved...)
	}

	for _, c := range dissolved {
		for _, kw := range c.Keywords {
			best, bestSim := -1, -1.0
			for i := range survivors {
				if survivors[i].ContainsKeyword(kw.Text) {
					continue
				}
				if sim := textkit.Similarity(kw.Text, survivors[i].PillarTopic); sim > bestSim {
					best, bestSim = i, sim
				}
			}
			if best >= 0 {
				survivors[best].Keywords = append(survivors[best].Keywords, kw)
			}
		}
	}
	for i := range survivors {
		survivors[i].Recompute()
	}
	return survivors
}

func dedupeClusterKeywords(c *research.Cluster) {
	seen := make(map[string]struct{}, len(c.Keywords))
	out := c.Keywords[:0]
	changed := false
	for _, kw := range c.Keywords {
		canon := research.CanonicalText(kw.Text)
		if _, dup := seen[canon]; dup {
			changed = true
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, kw)
	}
	c.Keywords = out
	if changed {
		c.Recompute()
	}
}

// selectPillar picks the cluster's representative keyword: high volume,
// preferring 2-3 word phrases that other keywords contain.
func selectPillar(keywords []research.Keyword) string {
	best, bestScore := "", math.Inf(-1)
	for _, kw := range keywords {
		words := len(textkit.Tokenize(kw.Text))
		multiplier := 1.0
		switch {
		case words >= 2 && words <= 3:
			multiplier = 1.2
		case words == 1:
			multiplier = 0.8
		case words > 4:
			multiplier = 0.7
		}
		contained := 0
		canon := research.CanonicalText(kw.Text)
		for _, other := range keywords {
			if other.Text == kw.Text {
				continue
			}
			if strings.Contains(research.CanonicalText(other.Text), canon) {
				contained++
			}
		}
		score := math.Log(float64(kw.SearchVolume)+1)*multiplier + 0.5*float64(contained)
		if score > bestScore {
			best, bestScore = kw.Text, score
		}
	}
	return best
}

func buildCluster(keywords []research.Keyword, algorithm string) research.Cluster {
	c := research.Cluster{
		PillarTopic: selectPillar(keywords),
		Keywords:    append([]research.Keyword(nil), keywords...),
		Algorithm:   algorithm,
	}
	c.Recompute()
	return c
}

func buildClusters(groups [][]research.Keyword, algorithm string) []research.Cluster {
	var out []research.Cluster
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		out = append(out, buildCluster(group, algorithm))
	}
	return out
}

func groupByAssignment(keywords []research.Keyword, assignment []int, k int) [][]research.Keyword {
	groups := make([][]research.Keyword, k)
	for i, c := range assignment {
		groups[c] = append(groups[c], keywords[i])
	}
	return groups
}
