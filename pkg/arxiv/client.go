package arxiv

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randcorp/docscope/internal/domain"
)

const baseURL = "http://export.arxiv.org/api/query"

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type SearchResult struct {
	Papers []*domain.Paper
	// Categories is parallel to Papers — Categories[i] is the arXiv
	// primary category term for Papers[i], for internal/ingest/transform
	// to backfill into arxiv_metadata without re-parsing the feed.
	Categories   []string
	TotalResults int
}

// Feed represents the arXiv Atom feed response
type Feed struct {
	XMLName      xml.Name `xml:"feed"`
	TotalResults int      `xml:"totalResults"`
	Entries      []Entry  `xml:"entry"`
}

type Entry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Summary   string     `xml:"summary"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Authors   []Author   `xml:"author"`
	Links     []Link     `xml:"link"`
	Category  []Category `xml:"category"`
}

type Author struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type Category struct {
	Term string `xml:"term,attr"`
}

func (c *Client) Search(query string, limit, offset int) (*SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	params.Set("search_query", fmt.Sprintf("all:%s", query))
	params.Set("start", fmt.Sprintf("%d", offset))
	params.Set("max_results", fmt.Sprintf("%d", limit))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arxiv response: %w", err)
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	categories := make([]string, 0, len(feed.Entries))
	for i := range feed.Entries {
		entry := &feed.Entries[i]
		paper := Transform(entry)
		if paper != nil {
			papers = append(papers, paper)
			categories = append(categories, PrimaryCategory(entry))
		}
	}

	return &SearchResult{
		Papers:       papers,
		Categories:   categories,
		TotalResults: feed.TotalResults,
	}, nil
}

func (c *Client) GetPaper(arxivID string) (*domain.Paper, error) {
	params := url.Values{}
	params.Set("id_list", arxivID)

	reqURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	resp, err := c.httpClient.Get(reqURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arxiv response: %w", err)
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv response: %w", err)
	}

	if len(feed.Entries) == 0 {
		return nil, nil
	}

	return Transform(&feed.Entries[0]), nil
}

// Transform converts one arXiv Atom feed entry into a canonical paper row
// for the "arxiv" source. It does not read entry.Category; the primary
// category that internal/ingest backfills into arxiv_metadata comes from
// PrimaryCategory.
func Transform(entry *Entry) *domain.Paper {
	// Extract arXiv ID from the full URL
	// e.g., "http://arxiv.org/abs/2301.00001v1" -> "2301.00001"
	arxivID := extractArxivID(entry.ID)
	if arxivID == "" {
		return nil
	}

	authors := make([]domain.Author, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		authors = append(authors, domain.Author{
			Name:        strings.TrimSpace(a.Name),
			Affiliation: strings.TrimSpace(a.Affiliation),
		})
	}

	var primaryDate *time.Time
	if entry.Published != "" {
		if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
			primaryDate = &t
		}
	}

	links := fmt.Sprintf("https://arxiv.org/pdf/%s", arxivID)
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			links = link.Href
			break
		}
	}

	return &domain.Paper{
		Source:      domain.SourceArXiv,
		SourceID:    arxivID,
		Title:       strings.TrimSpace(entry.Title),
		Abstract:    strings.TrimSpace(entry.Summary),
		Authors:     authors,
		PrimaryDate: primaryDate,
		Links:       links,
	}
}

// PrimaryCategory returns the first category term on the entry, or "" if
// none were reported — arxiv_metadata.primary_category's source value.
func PrimaryCategory(entry *Entry) string {
	if len(entry.Category) == 0 {
		return ""
	}
	return entry.Category[0].Term
}

func extractArxivID(fullURL string) string {
	// Handle formats like:
	// "http://arxiv.org/abs/2301.00001v1"
	// "http://arxiv.org/abs/hep-th/9901001v1"
	parts := strings.Split(fullURL, "/abs/")
	if len(parts) != 2 {
		return ""
	}
	id := parts[1]
	// Remove version suffix
	if idx := strings.LastIndex(id, "v"); idx > 0 {
		// Check if everything after 'v' is a number
		versionPart := id[idx+1:]
		isVersion := true
		for _, c := range versionPart {
			if c < '0' || c > '9' {
				isVersion = false
				break
			}
		}
		if isVersion && len(versionPart) > 0 {
			id = id[:idx]
		}
	}
	return id
}
