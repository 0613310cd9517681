package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/larkbot/models"
	"github.com/mohammad-safakhou/larkbot/news/newsapi"
)

func testEngine(llm *fakeProvider, search Searcher, fetcher Fetcher) *Engine {
	if search == nil {
		search = &fakeSearcher{}
	}
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	return NewEngine(
		NewSupervisor(llm, nil),
		NewMeetingWorkflow(llm, nil),
		NewNewsWorkflow(llm, search, fetcher, NewsConfig{SearchAttempts: 1, SummaryCount: 1, CandidateCeiling: 10}, nil),
		nil,
	)
}

func TestEngineRejectsEmptyConversation(t *testing.T) {
	t.Parallel()
	e := testEngine(&fakeProvider{}, nil, nil)

	if _, err := e.Handle(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty conversation")
	}
}

func TestEngineChitchatRoute(t *testing.T) {
	t.Parallel()
	llm := &fakeProvider{jsonFn: func(_ context.Context, _ []models.Message, out any) error {
		return fillJSON(`{"next": "chitchat"}`, out)
	}}
	e := testEngine(llm, nil, nil)

	result, err := e.Handle(context.Background(), conv("你好"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Route != models.RouteChitchat {
		t.Fatalf("got route %q", result.Route)
	}
	if result.Chitchat != ChitchatReply {
		t.Fatalf("got chitchat %q", result.Chitchat)
	}
	if result.RunID == "" {
		t.Fatalf("expected a run id")
	}
}

func TestEngineMeetingRoute(t *testing.T) {
	t.Parallel()
	llm := &fakeProvider{
		jsonFn: func(_ context.Context, messages []models.Message, out any) error {
			// First JSON call is the supervisor, second the extraction.
			if _, ok := out.(*models.MeetingFields); ok {
				return fillJSON(`{"title": "standup", "date": "2026-08-30", "time": "10:00"}`, out)
			}
			return fillJSON(`{"next": "meeting"}`, out)
		},
		completeFn: func(_ context.Context, _ []models.Message) (string, error) {
			return `"create_meeting"`, nil
		},
	}
	e := testEngine(llm, nil, nil)

	result, err := e.Handle(context.Background(), conv("帮我创建一个会议"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Route != models.RouteMeeting {
		t.Fatalf("got route %q", result.Route)
	}
	if result.Meeting == nil || result.Meeting.Fields == nil || result.Meeting.Fields.Title != "standup" {
		t.Fatalf("unexpected meeting result: %+v", result.Meeting)
	}
}

func TestEngineNewsRouteUsesLastUserMessage(t *testing.T) {
	t.Parallel()
	var newsQuery string
	llm := &fakeProvider{
		jsonFn: func(_ context.Context, messages []models.Message, out any) error {
			if params, ok := out.(*models.SearchParams); ok {
				newsQuery = messages[len(messages)-1].Content
				*params = models.SearchParams{Query: "q"}
				return nil
			}
			return fillJSON(`{"next": "news"}`, out)
		},
	}
	search := &fakeSearcher{searchFn: func(_ context.Context, _ models.SearchParams) ([]newsapi.Article, error) {
		return nil, errors.New("unavailable")
	}}
	e := testEngine(llm, search, nil)

	conversation := []models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "latest ai news"},
	}
	result, err := e.Handle(context.Background(), conversation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Route != models.RouteNews {
		t.Fatalf("got route %q", result.Route)
	}
	if result.News == nil || result.News.Formatted != NoArticlesFound {
		t.Fatalf("unexpected news result: %+v", result.News)
	}
	if !strings.Contains(newsQuery, "latest ai news") {
		t.Fatalf("expected the last user message in the params prompt, got %q", newsQuery)
	}
}

func TestEngineFinishRoute(t *testing.T) {
	t.Parallel()
	llm := &fakeProvider{jsonFn: func(_ context.Context, _ []models.Message, out any) error {
		return fillJSON(`{"next": "finish"}`, out)
	}}
	e := testEngine(llm, nil, nil)

	result, err := e.Handle(context.Background(), conv("thanks, that is all"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Route != models.RouteFinish {
		t.Fatalf("got route %q", result.Route)
	}
	if result.Meeting != nil || result.News != nil || result.Chitchat != "" {
		t.Fatalf("finish must not produce a skill result: %+v", result)
	}
}

func TestEngineRoutingErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("llm down")
	llm := &fakeProvider{jsonFn: func(_ context.Context, _ []models.Message, _ any) error {
		return boom
	}}
	e := testEngine(llm, nil, nil)

	if _, err := e.Handle(context.Background(), conv("hello")); !errors.Is(err, boom) {
		t.Fatalf("expected routing error to propagate, got %v", err)
	}
}
