package router

import (
	"context"
	"encoding/json"

	"github.com/mohammad-safakhou/larkbot/models"
	"github.com/mohammad-safakhou/larkbot/news/newsapi"
	fetchmodels "github.com/mohammad-safakhou/larkbot/tools/web_fetch/models"
)

// fakeProvider scripts inference responses per call type.
type fakeProvider struct {
	completeFn func(ctx context.Context, messages []models.Message) (string, error)
	jsonFn     func(ctx context.Context, messages []models.Message, out any) error

	completeCalls int
	jsonCalls     int
}

func (f *fakeProvider) Complete(ctx context.Context, messages []models.Message) (string, error) {
	f.completeCalls++
	if f.completeFn == nil {
		return "", nil
	}
	return f.completeFn(ctx, messages)
}

func (f *fakeProvider) CompleteJSON(ctx context.Context, messages []models.Message, out any) error {
	f.jsonCalls++
	if f.jsonFn == nil {
		return nil
	}
	return f.jsonFn(ctx, messages, out)
}

// fillJSON decodes a literal into the CompleteJSON target, the way the real
// provider does after a successful call.
func fillJSON(raw string, out any) error {
	return json.Unmarshal([]byte(raw), out)
}

type fakeSearcher struct {
	searchFn func(ctx context.Context, params models.SearchParams) ([]newsapi.Article, error)
	calls    int
}

func (f *fakeSearcher) Search(ctx context.Context, params models.SearchParams) ([]newsapi.Article, error) {
	f.calls++
	if f.searchFn == nil {
		return nil, nil
	}
	return f.searchFn(ctx, params)
}

type fakeFetcher struct {
	fetchFn func(ctx context.Context, url string) (fetchmodels.Result, error)
	fetched []string
}

func (f *fakeFetcher) Exec(ctx context.Context, url string) (fetchmodels.Result, error) {
	f.fetched = append(f.fetched, url)
	if f.fetchFn == nil {
		return fetchmodels.Result{URL: url, Text: "article body"}, nil
	}
	return f.fetchFn(ctx, url)
}

func metaArticle(url, description string) newsapi.Article {
	a := newsapi.Article{URL: url, Description: description}
	a.Source.Name = "test"
	return a
}
