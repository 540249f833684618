package research

import "errors"

// Sentinel errors for the pipeline's failure taxonomy. The orchestrator maps
// these onto job failure labels; the API layer maps the synchronous ones onto
// HTTP status codes.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrNotFound         = errors.New("job not found")
	ErrUnreachable      = errors.New("url not reachable")
	ErrNoSeeds          = errors.New("no seed keywords generated")
	ErrNoMetrics        = errors.New("no keyword metrics returned")
	ErrClusterEmpty     = errors.New("clustering produced no clusters")
	ErrAllScrapesFailed = errors.New("all scraping strategies failed")
)
