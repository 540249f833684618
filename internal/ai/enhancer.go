package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

const (
	seedSystemPrompt = "You are a keyword research specialist. Reply with JSON only, no prose."
	maxPromptPages   = 5
	maxPromptTopics  = 15
)

// GenerateSeedKeywords asks the model for marketing-focused seed keywords in
// the target language, derived from the scraped site content.
func (c *Client) GenerateSeedKeywords(ctx context.Context, scrape *research.ScrapeResult, language string, maxKeywords int) ([]string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Website content summary:\n")
	pages := scrape.Pages
	if len(pages) > maxPromptPages {
		pages = pages[:maxPromptPages]
	}
	for _, page := range pages {
		fmt.Fprintf(&b, "- Title: %s\n", page.Title)
		if page.MetaDescription != "" {
			fmt.Fprintf(&b, "  Description: %s\n", page.MetaDescription)
		}
		if len(page.H1) > 0 || len(page.H2) > 0 {
			fmt.Fprintf(&b, "  Headings: %s\n", strings.Join(append(append([]string{}, page.H1...), page.H2...), "; "))
		}
	}
	fmt.Fprintf(&b, "\nReturn up to %d marketing-focused keyword phrases (1-3 words each) in language %q, ordered by relevance, as a JSON array of strings.\n", maxKeywords, language)

	reply, err := c.chat(ctx, seedSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var seeds []string
	if err := json.Unmarshal([]byte(extractJSON(reply)), &seeds); err != nil {
		return nil, fmt.Errorf("parse seed keywords: %w", err)
	}
	if maxKeywords > 0 && len(seeds) > maxKeywords {
		seeds = seeds[:maxKeywords]
	}
	c.logger.Debug("ai seed keywords generated", zap.Int("count", len(seeds)))
	return seeds, nil
}

// RegroupSuggestions asks the model for cluster renames and priority picks.
func (c *Client) RegroupSuggestions(ctx context.Context, clusters []research.Cluster, site research.SiteContext, keywords []research.Keyword, language string) (research.RegroupSuggestions, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s (%s)\n\nClusters:\n", site.Title, site.URL)
	writeClusterDigest(&b, clusters)
	fmt.Fprintf(&b, "\nIn language %q, suggest better pillar topic names where helpful and pick the highest-priority cluster ids. Reply as JSON: {\"renames\":[{\"clusterId\":1,\"pillarTopic\":\"...\"}],\"priorityIds\":[1]}\n", language)

	reply, err := c.chat(ctx, seedSystemPrompt, b.String())
	if err != nil {
		return research.RegroupSuggestions{}, err
	}
	var out research.RegroupSuggestions
	if err := json.Unmarshal([]byte(extractJSON(reply)), &out); err != nil {
		return research.RegroupSuggestions{}, fmt.Errorf("parse regroup suggestions: %w", err)
	}
	return out, nil
}

// Scrutinize asks the model to audit cluster membership: reassignments,
// merges and renames.
func (c *Client) Scrutinize(ctx context.Context, clusters []research.Cluster, keywords []research.Keyword, site research.SiteContext, language string) (research.AuditReport, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s (%s)\n\nClusters with keywords:\n", site.Title, site.URL)
	writeClusterDigest(&b, clusters)
	fmt.Fprintf(&b, "\nAudit the grouping in language %q. Reply as JSON: {\"renames\":[{\"clusterId\":1,\"pillarTopic\":\"...\"}],\"merges\":[{\"into\":1,\"from\":2}],\"reassignments\":[{\"keyword\":\"...\",\"toClusterId\":1}]}\n", language)

	reply, err := c.chat(ctx, seedSystemPrompt, b.String())
	if err != nil {
		return research.AuditReport{}, err
	}
	var out research.AuditReport
	if err := json.Unmarshal([]byte(extractJSON(reply)), &out); err != nil {
		return research.AuditReport{}, fmt.Errorf("parse audit report: %w", err)
	}
	return out, nil
}

// EnhanceCluster asks the model for per-cluster copy.
func (c *Client) EnhanceCluster(ctx context.Context, cluster research.Cluster, site research.SiteContext, language string) (research.ClusterEnhancement, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Site: %s (%s)\nCluster pillar: %s\nKeywords: %s\n", site.Title, site.URL, cluster.PillarTopic, keywordDigest(cluster, maxPromptTopics))
	fmt.Fprintf(&b, "\nIn language %q write a pillar topic, a 2-3 sentence description and a short content strategy. Reply as JSON: {\"pillarTopic\":\"...\",\"description\":\"...\",\"contentStrategy\":\"...\"}\n", language)

	reply, err := c.chat(ctx, seedSystemPrompt, b.String())
	if err != nil {
		return research.ClusterEnhancement{}, err
	}
	var out research.ClusterEnhancement
	if err := json.Unmarshal([]byte(extractJSON(reply)), &out); err != nil {
		return research.ClusterEnhancement{}, fmt.Errorf("parse cluster enhancement: %w", err)
	}
	return out, nil
}

func writeClusterDigest(b *strings.Builder, clusters []research.Cluster) {
	for _, c := range clusters {
		fmt.Fprintf(b, "%d. %s: %s\n", c.ID, c.PillarTopic, keywordDigest(c, maxPromptTopics))
	}
}

func keywordDigest(c research.Cluster, limit int) string {
	keywords := c.Keywords
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}
	texts := make([]string, len(keywords))
	for i, kw := range keywords {
		texts[i] = kw.Text
	}
	return strings.Join(texts, ", ")
}

// Noop is the disabled Enhancer used when no AI endpoint is configured.
type Noop struct{}

// Enabled always reports false.
func (Noop) Enabled() bool { return false }

func (Noop) GenerateSeedKeywords(context.Context, *research.ScrapeResult, string, int) ([]string, error) {
	return nil, fmt.Errorf("ai disabled")
}

func (Noop) RegroupSuggestions(context.Context, []research.Cluster, research.SiteContext, []research.Keyword, string) (research.RegroupSuggestions, error) {
	return research.RegroupSuggestions{}, fmt.Errorf("ai disabled")
}

func (Noop) Scrutinize(context.Context, []research.Cluster, []research.Keyword, research.SiteContext, string) (research.AuditReport, error) {
	return research.AuditReport{}, fmt.Errorf("ai disabled")
}

func (Noop) EnhanceCluster(context.Context, research.Cluster, research.SiteContext, string) (research.ClusterEnhancement, error) {
	return research.ClusterEnhancement{}, fmt.Errorf("ai disabled")
}
