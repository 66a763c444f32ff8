package models

// CrawlPage is one successfully fetched page from a crawl run. Depth starts
// at 1 for the seed page; ParentURL is empty for the seed.
type CrawlPage struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
	Depth     int    `json:"depth"`
	ParentURL string `json:"parent_url,omitempty"`
}

// CrawlResult is the outcome of one crawl run. PageErrors holds per-page
// failures that did not abort the traversal.
type CrawlResult struct {
	Pages      []CrawlPage `json:"pages"`
	PageErrors []string    `json:"page_errors,omitempty"`
}
