package research

import "context"

// FetchPage is the raw result of fetching a single URL.
type FetchPage struct {
	HTML       string
	FinalURL   string
	StatusCode int
	Strategy   string
}

// Fetcher retrieves raw HTML for a URL using the named strategy. With
// StrategyAuto the implementation tries the browser strategy before falling
// back to plain HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, strategy string, attempts int) (FetchPage, error)
	Close(ctx context.Context) error
}

// MetricsProvider resolves seed keywords into volume/competition/CPC metrics.
type MetricsProvider interface {
	KeywordMetrics(ctx context.Context, seeds []string, country, language string) ([]Keyword, error)
	Healthy(ctx context.Context) bool
}

// ClusterRename maps a cluster ID to its suggested new pillar topic.
type ClusterRename struct {
	ClusterID   int    `json:"clusterId"`
	PillarTopic string `json:"pillarTopic"`
}

// RegroupSuggestions carries AI suggestions applied after initial clustering.
type RegroupSuggestions struct {
	Renames     []ClusterRename `json:"renames"`
	PriorityIDs []int           `json:"priorityIds"`
}

// KeywordAssignment proposes moving a keyword into another cluster.
type KeywordAssignment struct {
	Keyword     string `json:"keyword"`
	ToClusterID int    `json:"toClusterId"`
}

// ClusterMerge proposes folding cluster From into cluster Into.
type ClusterMerge struct {
	Into int `json:"into"`
	From int `json:"from"`
}

// AuditReport is the AI post-audit of cluster membership.
type AuditReport struct {
	Renames       []ClusterRename     `json:"renames"`
	Merges        []ClusterMerge      `json:"merges"`
	Reassignments []KeywordAssignment `json:"reassignments"`
}

// ClusterEnhancement is per-cluster copy produced by the AI service.
type ClusterEnhancement struct {
	PillarTopic     string `json:"pillarTopic"`
	Description     string `json:"description"`
	ContentStrategy string `json:"contentStrategy"`
}

// Enhancer is the generative-AI collaborator. Implementations must treat all
// failures as recoverable; callers convert errors into job warnings.
type Enhancer interface {
	Enabled() bool
	GenerateSeedKeywords(ctx context.Context, scrape *ScrapeResult, language string, maxKeywords int) ([]string, error)
	RegroupSuggestions(ctx context.Context, clusters []Cluster, site SiteContext, keywords []Keyword, language string) (RegroupSuggestions, error)
	Scrutinize(ctx context.Context, clusters []Cluster, keywords []Keyword, site SiteContext, language string) (AuditReport, error)
	EnhanceCluster(ctx context.Context, cluster Cluster, site SiteContext, language string) (ClusterEnhancement, error)
}
