// Package extractor turns raw HTML into structured PageContent.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/flin-agency/keyword-research-tool/internal/research"
)

const (
	minParagraphWords = 10
	minListItemLen    = 10
	minLinkTextLen    = 3
	minImageAltLen    = 3
	maxCountedLinks   = 50
)

// Tags stripped wholesale before extraction.
const strippedTags = "script, style, noscript, iframe, nav, footer, header, aside"

// Class/id fragments that mark boilerplate containers.
var boilerplateMarkers = []string{
	"sidebar", "menu", "navigation", "cookie", "popup", "modal",
	"advertisement", "ads", "comments",
}

// Extract parses the HTML and emits the page's structured content.
func Extract(html, pageURL string) (research.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return research.PageContent{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strippedTags).Remove()
	for _, marker := range boilerplateMarkers {
		doc.Find(fmt.Sprintf("[class*=%q], [id*=%q]", marker, marker)).Remove()
	}

	content := research.PageContent{
		URL:             pageURL,
		Title:           extractTitle(doc),
		MetaDescription: extractMetaDescription(doc),
		H1:              extractHeadings(doc, "h1"),
		H2:              extractHeadings(doc, "h2"),
		H3:              extractHeadings(doc, "h3"),
		Paragraphs:      extractParagraphs(doc),
		ListItems:       extractListItems(doc),
		Links:           extractLinkTexts(doc),
		ImageAlts:       extractImageAlts(doc),
	}
	content.WordCount = countWords(content)
	return content, nil
}

// Hrefs returns the raw href attributes of all anchors, skipping in-page
// fragments. Callers resolve them against the page URL.
func Hrefs(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractMetaDescription(doc *goquery.Document) string {
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if trimmed := strings.TrimSpace(desc); trimmed != "" {
			return trimmed
		}
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	return ""
}

// extractHeadings collects one heading level in document order, dropping
// duplicates by trimmed text.
func extractHeadings(doc *goquery.Document, level string) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find(level).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	return out
}

func extractParagraphs(doc *goquery.Document) []string {
	var out []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeSpace(sel.Text())
		if len(strings.Fields(text)) >= minParagraphWords {
			out = append(out, text)
		}
	})
	// Container elements contribute only their own text nodes so nested
	// paragraphs are not counted twice.
	doc.Find("article, section, main").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeSpace(ownText(sel))
		if len(strings.Fields(text)) >= minParagraphWords {
			out = append(out, text)
		}
	})
	return out
}

// ownText concatenates the direct text-node children of the selection.
func ownText(sel *goquery.Selection) string {
	return sel.Contents().Not("*").Text()
}

func extractListItems(doc *goquery.Document) []string {
	var out []string
	doc.Find("li").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeSpace(sel.Text())
		if len(text) > minListItemLen {
			out = append(out, text)
		}
	})
	return out
}

func extractLinkTexts(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(strings.TrimSpace(href), "#") {
			return
		}
		text := normalizeSpace(sel.Text())
		if len(text) <= minLinkTextLen {
			return
		}
		if _, ok := seen[text]; ok {
			return
		}
		seen[text] = struct{}{}
		out = append(out, text)
	})
	return out
}

func extractImageAlts(doc *goquery.Document) []string {
	var out []string
	doc.Find("img[alt]").Each(func(_ int, sel *goquery.Selection) {
		alt, _ := sel.Attr("alt")
		alt = strings.TrimSpace(alt)
		if len(alt) > minImageAltLen {
			out = append(out, alt)
		}
	})
	return out
}

func countWords(c research.PageContent) int {
	var b strings.Builder
	join := func(parts []string) {
		for _, p := range parts {
			b.WriteString(p)
			b.WriteByte(' ')
		}
	}
	b.WriteString(c.Title)
	b.WriteByte(' ')
	b.WriteString(c.MetaDescription)
	b.WriteByte(' ')
	join(c.H1)
	join(c.H2)
	join(c.H3)
	join(c.Paragraphs)
	join(c.ListItems)
	links := c.Links
	if len(links) > maxCountedLinks {
		links = links[:maxCountedLinks]
	}
	join(links)
	join(c.ImageAlts)
	return len(strings.Fields(b.String()))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
