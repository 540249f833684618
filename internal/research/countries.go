package research

import "strings"

// Country describes one supported target market. Code is the ads provider's
// geo-target ID, transported as a digit string.
type Country struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	DefaultLanguage string `json:"defaultLanguage"`
	Currency        string `json:"currency"`
}

// DefaultCountryCode is used when a request omits the target market.
const DefaultCountryCode = "2756" // Switzerland

var countries = []Country{
	{Code: "2756", Name: "Switzerland", DefaultLanguage: "de", Currency: "CHF"},
	{Code: "2276", Name: "Germany", DefaultLanguage: "de", Currency: "EUR"},
	{Code: "2040", Name: "Austria", DefaultLanguage: "de", Currency: "EUR"},
	{Code: "2250", Name: "France", DefaultLanguage: "fr", Currency: "EUR"},
	{Code: "2380", Name: "Italy", DefaultLanguage: "it", Currency: "EUR"},
	{Code: "2724", Name: "Spain", DefaultLanguage: "es", Currency: "EUR"},
	{Code: "2528", Name: "Netherlands", DefaultLanguage: "nl", Currency: "EUR"},
	{Code: "2620", Name: "Portugal", DefaultLanguage: "pt", Currency: "EUR"},
	{Code: "2616", Name: "Poland", DefaultLanguage: "pl", Currency: "PLN"},
	{Code: "2826", Name: "United Kingdom", DefaultLanguage: "en", Currency: "GBP"},
	{Code: "2840", Name: "United States", DefaultLanguage: "en", Currency: "USD"},
	{Code: "2124", Name: "Canada", DefaultLanguage: "en", Currency: "CAD"},
	{Code: "2036", Name: "Australia", DefaultLanguage: "en", Currency: "AUD"},
	{Code: "2392", Name: "Japan", DefaultLanguage: "ja", Currency: "JPY"},
}

// Language codes accepted by the metrics sidecar.
var languages = []string{"de", "en", "fr", "it", "es", "nl", "pt", "pl", "ru", "ja", "zh"}

// Countries returns the supported market catalog.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// Languages returns the supported language codes.
func Languages() []string {
	out := make([]string, len(languages))
	copy(out, languages)
	return out
}

// ValidCountryCode reports whether code looks like a provider geo code.
func ValidCountryCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveLanguage picks the effective language: an explicit code wins
// lower-cased, then the country default, then English. Unknown explicit
// codes pass through; the metrics sidecar maps anything it does not
// recognize to English.
func ResolveLanguage(requested, countryCode string) string {
	if lower := strings.ToLower(strings.TrimSpace(requested)); lower != "" {
		return lower
	}
	for _, c := range countries {
		if c.Code == countryCode {
			return c.DefaultLanguage
		}
	}
	return "en"
}
