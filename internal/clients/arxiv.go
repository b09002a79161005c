package clients

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"research-assistant/internal/config"
	"research-assistant/internal/logger"

	"github.com/sirupsen/logrus"
)

// ArxivClientInterface defines the interface for the arXiv search client
type ArxivClientInterface interface {
	Query(ctx context.Context, agentName, query string, maxResults int) ([]ArxivPaper, error)
}

// ArxivClient handles communication with the arXiv Atom API
type ArxivClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// ArxivPaper is a single parsed entry from the arXiv feed
type ArxivPaper struct {
	ArxivID       string    `json:"arxiv_id"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Abstract      string    `json:"abstract"`
	PublishedDate time.Time `json:"published_date"`
	Link          string    `json:"link"`
	PDFLink       string    `json:"pdf_link,omitempty"`
	Categories    []string  `json:"categories"`
}

// arXiv Atom feed XML structures
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// NewArxivClient creates a new arXiv API client
func NewArxivClient(cfg *config.Config) *ArxivClient {
	return &ArxivClient{
		baseURL: cfg.ArxivAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.Log,
	}
}

// Query searches arXiv and returns parsed papers, sorted by relevance
// as ranked by arXiv itself.
func (c *ArxivClient) Query(ctx context.Context, agentName, query string, maxResults int) ([]ArxivPaper, error) {
	start := time.Now()

	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	c.logger.WithFields(map[string]interface{}{
		"agent":       agentName,
		"query":       query,
		"max_results": maxResults,
	}).Info("Performing arXiv search")

	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API error (status %d)", resp.StatusCode)
	}

	papers, err := parseArxivFeed(responseBody)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"agent":        agentName,
		"duration_ms":  time.Since(start).Milliseconds(),
		"papers_count": len(papers),
	}).Info("ArXiv search completed")

	return papers, nil
}

// parseArxivFeed parses the Atom XML response from the arXiv API
func parseArxivFeed(body []byte) ([]ArxivPaper, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arXiv response: %w", err)
	}

	papers := make([]ArxivPaper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper := ArxivPaper{
			ArxivID:  extractArxivID(entry.ID),
			Title:    normalizeWhitespace(entry.Title),
			Abstract: normalizeWhitespace(entry.Summary),
		}

		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			paper.PublishedDate = t
		}

		for _, a := range entry.Authors {
			paper.Authors = append(paper.Authors, strings.TrimSpace(a.Name))
		}

		for _, l := range entry.Links {
			if l.Title == "pdf" || l.Type == "application/pdf" {
				paper.PDFLink = l.Href
			} else if paper.Link == "" {
				paper.Link = l.Href
			}
		}
		// Abstract page URL is derivable from the ID when the feed
		// omits an alternate link.
		if paper.Link == "" && paper.ArxivID != "" {
			paper.Link = "https://arxiv.org/abs/" + paper.ArxivID
		}

		for _, cat := range entry.Categories {
			if cat.Term != "" {
				paper.Categories = append(paper.Categories, cat.Term)
			}
		}

		papers = append(papers, paper)
	}

	return papers, nil
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041v1").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return idURL[idx+len(prefix):]
}

// normalizeWhitespace collapses the newline-wrapped text arXiv returns
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
