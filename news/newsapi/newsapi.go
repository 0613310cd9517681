package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/larkbot/models"
)

// Article is one metadata entry returned by the search API. The body text is
// fetched separately.
type Article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type response struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Client queries the NewsAPI /v2/everything endpoint.
type Client struct {
	APIKey   string
	Endpoint string
	HTTP     *http.Client
}

func NewClient(apiKey, endpoint string, timeout time.Duration) Client {
	return Client{APIKey: apiKey, Endpoint: endpoint, HTTP: &http.Client{Timeout: timeout}}
}

// Search performs one search with the given parameter set.
func (c Client) Search(ctx context.Context, p models.SearchParams) ([]Article, error) {
	params := url.Values{}
	params.Add("q", p.Query)
	if p.Sources != "" {
		params.Add("sources", p.Sources)
	}
	if p.From != "" {
		params.Add("from", p.From)
	}
	if p.To != "" {
		params.Add("to", p.To)
	}
	if p.Language != "" {
		params.Add("language", p.Language)
	}
	if p.SortBy != "" {
		params.Add("sortBy", p.SortBy)
	}
	params.Add("apiKey", c.APIKey)

	reqURL := fmt.Sprintf("%s?%s", c.Endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi error: %s", resp.Status)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: %s (%s)", result.Message, result.Code)
	}

	return result.Articles, nil
}
