package research

// Scrape strategy selectors accepted in job options.
const (
	StrategyAuto    = "auto"
	StrategyBrowser = "browser"
	StrategyHTTP    = "http"
)

// Clustering algorithm selectors accepted in job options.
const (
	AlgorithmKMeans   = "kmeans"
	AlgorithmDBSCAN   = "dbscan"
	AlgorithmSemantic = "semantic"
	AlgorithmHybrid   = "hybrid"
)

// Options are the per-job knobs requested by the client.
type Options struct {
	MaxPages       int    `json:"maxPages"`
	FollowLinks    bool   `json:"followLinks"`
	ScrapeStrategy string `json:"scrapeStrategy"`
	Algorithm      string `json:"algorithm"`
	MinClusterSize int    `json:"minClusterSize"`
	UseAI          bool   `json:"useAI"`
}

// DefaultOptions returns the documented option defaults. maxPages is capped
// by the service-level scraper config at validation time.
func DefaultOptions() Options {
	return Options{
		MaxPages:       20,
		FollowLinks:    true,
		ScrapeStrategy: StrategyAuto,
		Algorithm:      AlgorithmHybrid,
		MinClusterSize: 3,
		UseAI:          true,
	}
}

// ValidStrategy reports whether s names a known scrape strategy.
func ValidStrategy(s string) bool {
	switch s {
	case StrategyAuto, StrategyBrowser, StrategyHTTP:
		return true
	default:
		return false
	}
}

// ValidAlgorithm reports whether a names a known clustering algorithm.
func ValidAlgorithm(a string) bool {
	switch a {
	case AlgorithmKMeans, AlgorithmDBSCAN, AlgorithmSemantic, AlgorithmHybrid:
		return true
	default:
		return false
	}
}
