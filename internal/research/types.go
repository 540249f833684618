// Package research defines core types shared across the keyword pipeline.
package research

import (
	"strings"
	"time"
)

// Competition buckets a keyword's advertiser competition level.
type Competition string

// Competition values as normalized from the metrics provider.
const (
	CompetitionLow     Competition = "low"
	CompetitionMedium  Competition = "medium"
	CompetitionHigh    Competition = "high"
	CompetitionUnknown Competition = "unknown"
)

// Keyword is one researched keyword with its provider metrics.
type Keyword struct {
	Text         string      `json:"keyword"`
	SearchVolume int         `json:"searchVolume"`
	Competition  Competition `json:"competition"`
	CPCLow       float64     `json:"cpcLow"`
	CPCHigh      float64     `json:"cpcHigh"`
}

// CanonicalText returns the lowercase-trimmed form used for keyword equality.
func CanonicalText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// PageContent is the structured extraction of one crawled page.
type PageContent struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	H1              []string `json:"h1"`
	H2              []string `json:"h2"`
	H3              []string `json:"h3"`
	Paragraphs      []string `json:"paragraphs"`
	ListItems       []string `json:"listItems"`
	Links           []string `json:"links"`
	ImageAlts       []string `json:"imageAlts"`
	WordCount       int      `json:"wordCount"`
}

// ScrapeResult is the ordered output of a site crawl.
type ScrapeResult struct {
	Pages      []PageContent `json:"pages"`
	TotalWords int           `json:"totalWords"`
	Strategy   string        `json:"strategy"`
	ScrapedAt  time.Time     `json:"scrapedAt"`
}

// SiteContext summarizes the scraped site for relevance scoring and AI prompts.
type SiteContext struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	PageTitles       []string `json:"pageTitles"`
	MetaDescriptions []string `json:"metaDescriptions"`
	Focus            []string `json:"focus"`
}

// Cluster groups keywords under a pillar topic with derived metrics.
type Cluster struct {
	ID                int         `json:"id"`
	PillarTopic       string      `json:"pillarTopic"`
	Keywords          []Keyword   `json:"keywords"`
	TotalSearchVolume int         `json:"totalSearchVolume"`
	AvgSearchVolume   float64     `json:"avgSearchVolume"`
	AvgCompetition    Competition `json:"avgCompetition"`
	RelevanceScore    float64     `json:"relevanceScore"`
	ValueScore        int         `json:"clusterValueScore"`
	Algorithm         string      `json:"algorithm"`
	AIDescription     string      `json:"aiDescription,omitempty"`
	AIContentStrategy string      `json:"aiContentStrategy,omitempty"`
	AIPriority        bool        `json:"aiPriority,omitempty"`
	Rank              int         `json:"rank"`
}

// JobStatus is the lifecycle state of a research job.
type JobStatus string

// Job status values. Transitions are monotonic: processing moves to exactly
// one of the terminal states.
const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Result is the final payload attached to a completed job.
type Result struct {
	URL               string    `json:"url"`
	Country           string    `json:"country"`
	Language          string    `json:"language"`
	Clusters          []Cluster `json:"clusters"`
	TotalKeywords     int       `json:"totalKeywords"`
	TotalSearchVolume int       `json:"totalSearchVolume"`
	ScrapedPages      int       `json:"scrapedPages"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// InternalMetadata is operational detail kept on the job but stripped from
// API responses.
type InternalMetadata struct {
	SeedCount        int              `json:"seedCount"`
	PageCount        int              `json:"pageCount"`
	KeywordCount     int              `json:"keywordCount"`
	ScrapeStrategy   string           `json:"scrapeStrategy"`
	StageDurationsMs map[string]int64 `json:"stageDurationsMs"`
}

// Job is the per-request record owned by the job store.
type Job struct {
	ID                string           `json:"id"`
	URL               string           `json:"url"`
	Country           string           `json:"country"`
	RequestedLanguage string           `json:"requestedLanguage,omitempty"`
	ResolvedLanguage  string           `json:"language"`
	Options           Options          `json:"options"`
	Status            JobStatus        `json:"status"`
	Progress          int              `json:"progress"`
	Step              string           `json:"step"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	CompletedAt       *time.Time       `json:"completedAt,omitempty"`
	FailedAt          *time.Time       `json:"failedAt,omitempty"`
	Error             string           `json:"error,omitempty"`
	Warnings          []string         `json:"warnings,omitempty"`
	Data              *Result          `json:"data,omitempty"`
	ProcessingTimeMs  int64            `json:"processingTimeMs"`
	Internal          InternalMetadata `json:"-"`
}
