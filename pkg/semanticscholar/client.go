package semanticscholar

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/randcorp/docscope/internal/domain"
)

const apiBaseURL = "https://api.semanticscholar.org/graph/v1"

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type SearchResult struct {
	Papers       []*domain.Paper
	TotalResults int
}

// API response types
type searchResponse struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Data   []paperResult `json:"data"`
}

type paperResult struct {
	PaperID       string        `json:"paperId"`
	Title         string        `json:"title"`
	Abstract      string        `json:"abstract"`
	Year          int           `json:"year"`
	CitationCount int           `json:"citationCount"`
	URL           string        `json:"url"`
	Authors       []authorInfo  `json:"authors"`
	ExternalIDs   externalIDs   `json:"externalIds"`
	OpenAccessPDF *openAccessPDF `json:"openAccessPdf"`
	PublicationDate string      `json:"publicationDate"` // "YYYY-MM-DD"
}

type authorInfo struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type externalIDs struct {
	ArXiv  string `json:"ArXiv"`
	DOI    string `json:"DOI"`
	PubMed string `json:"PubMed"`
	PMCID  string `json:"PMCID,omitempty"`
}

type openAccessPDF struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

// Search searches Semantic Scholar for papers. sortBy can be "relevance", "citationCount", or "publicationDate".
func (c *Client) Search(query string, limit, offset int, sortBy string) (*SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", "title,abstract,year,citationCount,url,authors,externalIds,openAccessPdf,publicationDate")

	// Semantic Scholar API supports sorting
	if sortBy == "citationCount" {
		params.Set("sort", "citationCount:desc")
	} else if sortBy == "publicationDate" {
		params.Set("sort", "publicationDate:desc")
	}
	// Default (relevance) = no sort param needed

	reqURL := fmt.Sprintf("%s/paper/search?%s", apiBaseURL, params.Encode())

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PaperApp/1.0 (academic-reader)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("semantic scholar API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Data))
	for _, result := range searchResp.Data {
		paper := Transform(&result)
		if paper != nil {
			papers = append(papers, paper)
		}
	}

	return &SearchResult{
		Papers:       papers,
		TotalResults: searchResp.Total,
	}, nil
}

// Transform converts one Semantic Scholar paper result into a canonical
// row for the "extpub" source — an externally authored publication returned
// by a Semantic Scholar paper search.
func Transform(r *paperResult) *domain.Paper {
	if r.Title == "" {
		return nil
	}

	authors := make([]domain.Author, 0, len(r.Authors))
	for _, a := range r.Authors {
		if a.Name != "" {
			authors = append(authors, domain.Author{Name: strings.TrimSpace(a.Name)})
		}
	}

	var primaryDate *time.Time
	if r.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", r.PublicationDate); err == nil {
			primaryDate = &t
		}
	} else if r.Year > 0 {
		t := time.Date(r.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		primaryDate = &t
	}

	links := ""
	if r.OpenAccessPDF != nil && r.OpenAccessPDF.URL != "" {
		links = r.OpenAccessPDF.URL
	} else if r.ExternalIDs.DOI != "" {
		links = fmt.Sprintf("https://doi.org/%s", r.ExternalIDs.DOI)
	} else {
		links = r.URL
	}

	return &domain.Paper{
		Source:      domain.SourceExtPub,
		SourceID:    r.PaperID,
		Title:       strings.TrimSpace(r.Title),
		Abstract:    strings.TrimSpace(r.Abstract),
		Authors:     authors,
		PrimaryDate: primaryDate,
		DOI:         r.ExternalIDs.DOI,
		Links:       links,
	}
}
