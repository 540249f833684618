package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Family Dentistry in Zurich</title>
  <meta name="description" content="Gentle dental care for the whole family.">
</head>
<body>
  <nav><a href="/about">About our clinic team</a></nav>
  <div class="cookie-banner">We use cookies to improve your experience on this site.</div>
  <h1>Family Dentistry</h1>
  <h1>Family Dentistry</h1>
  <h2>Our Services</h2>
  <h2>Opening Hours</h2>
  <p>We offer gentle dental cleaning, implants and orthodontics for patients of all ages.</p>
  <p>Short one.</p>
  <ul>
    <li>Dental cleaning and checkups</li>
    <li>Implants</li>
  </ul>
  <a href="#top">Back to top</a>
  <a href="/services">Dental services overview</a>
  <a href="/services">Dental services overview</a>
  <img src="x.png" alt="Dental chair in treatment room">
  <img src="y.png" alt="ok">
  <script>console.log("ignored tracking script");</script>
</body>
</html>`

func TestExtract(t *testing.T) {
	content, err := Extract(samplePage, "https://example.com/dentistry")
	require.NoError(t, err)

	assert.Equal(t, "Family Dentistry in Zurich", content.Title)
	assert.Equal(t, "Gentle dental care for the whole family.", content.MetaDescription)

	// Duplicate headings collapse, order preserved.
	assert.Equal(t, []string{"Family Dentistry"}, content.H1)
	assert.Equal(t, []string{"Our Services", "Opening Hours"}, content.H2)

	// Only paragraphs with at least ten words survive.
	require.Len(t, content.Paragraphs, 1)
	assert.Contains(t, content.Paragraphs[0], "dental cleaning")

	// List items need more than ten characters.
	assert.Equal(t, []string{"Dental cleaning and checkups"}, content.ListItems)

	// Fragment links are dropped, boilerplate containers are removed, and
	// duplicate anchor texts collapse.
	assert.Equal(t, []string{"Dental services overview"}, content.Links)

	// Alt text needs more than three characters.
	assert.Equal(t, []string{"Dental chair in treatment room"}, content.ImageAlts)

	assert.Greater(t, content.WordCount, 10)
}

func TestExtractTitleFallsBackToH1(t *testing.T) {
	content, err := Extract("<html><body><h1>Only Heading</h1></body></html>", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "Only Heading", content.Title)
}

func TestExtractOGDescriptionFallback(t *testing.T) {
	html := `<html><head><meta property="og:description" content="From opengraph."></head><body></body></html>`
	content, err := Extract(html, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "From opengraph.", content.MetaDescription)
}

func TestExtractRemovesBoilerplate(t *testing.T) {
	html := `<html><body>
	  <div id="main-sidebar"><p>Sidebar words that would otherwise count as a long paragraph here.</p></div>
	  <aside><p>Aside words that would otherwise count as a long paragraph here too.</p></aside>
	  <p>Real content paragraph with enough words to clear the minimum length filter.</p>
	</body></html>`
	content, err := Extract(html, "https://example.com")
	require.NoError(t, err)
	require.Len(t, content.Paragraphs, 1)
	assert.Contains(t, content.Paragraphs[0], "Real content")
}

func TestHrefs(t *testing.T) {
	html := `<html><body>
	  <a href="/one">One</a>
	  <a href="#frag">Frag</a>
	  <a href="https://other.example/two">Two</a>
	  <a href="">Empty</a>
	</body></html>`
	hrefs := Hrefs(html)
	assert.Equal(t, []string{"/one", "https://other.example/two"}, hrefs)
}

func TestWordCountCapsLinks(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 80; i++ {
		b.WriteString(`<a href="/p`)
		b.WriteString(strings.Repeat("x", i%5+1))
		b.WriteString(`">unique anchor text `)
		b.WriteString(strings.Repeat("z", i+1))
		b.WriteString("</a>")
	}
	b.WriteString("</body></html>")

	content, err := Extract(b.String(), "https://example.com")
	require.NoError(t, err)
	require.Greater(t, len(content.Links), 50)
	// Only the first 50 links contribute words: 50 links by 4 words each.
	assert.Equal(t, 200, content.WordCount)
}

func TestExtractEmpty(t *testing.T) {
	content, err := Extract("", "https://example.com")
	require.NoError(t, err)
	assert.Zero(t, content.WordCount)
	assert.Empty(t, content.Title)
}
