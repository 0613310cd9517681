package models

import (
	"errors"
	"strings"
	"time"
)

// ErrMalformedOutput is returned when the model produced output that does not
// conform to the requested schema. Callers apply a best-effort policy instead
// of failing the run.
var ErrMalformedOutput = errors.New("malformed model output")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. Conversations are append-only and
// owned by a single orchestration run.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RouteDecision is the closed set of workers the supervisor may pick.
type RouteDecision string

const (
	RouteMeeting  RouteDecision = "meeting"
	RouteNews     RouteDecision = "news"
	RouteChitchat RouteDecision = "chitchat"
	RouteFinish   RouteDecision = "finish"
)

// ParseRouteDecision maps a model-emitted label onto the closed route set.
// Unrecognized labels report ok=false so the caller can take the fallback
// branch instead of acting on an open-ended string.
func ParseRouteDecision(s string) (RouteDecision, bool) {
	switch RouteDecision(strings.ToLower(strings.TrimSpace(s))) {
	case RouteMeeting:
		return RouteMeeting, true
	case RouteNews:
		return RouteNews, true
	case RouteChitchat:
		return RouteChitchat, true
	case RouteFinish:
		return RouteFinish, true
	default:
		return "", false
	}
}

// MeetingFields is the structured record extracted from a meeting request.
// Every field may be empty; an all-empty record means no meeting information
// was found in the utterance.
type MeetingFields struct {
	Title     string   `json:"title"`
	Date      string   `json:"date"` // YYYY-MM-DD
	Time      string   `json:"time"` // HH:MM, 24-hour
	Attendees []string `json:"attendees"`
	Location  string   `json:"location"`
}

func (f MeetingFields) IsEmpty() bool {
	return f.Title == "" && f.Date == "" && f.Time == "" && f.Location == "" && len(f.Attendees) == 0
}

// SearchParams is one structured parameter set for the news search API.
type SearchParams struct {
	Query    string `json:"q"`
	Sources  string `json:"sources"`
	From     string `json:"from"` // YYYY-MM-DD
	To       string `json:"to"`   // YYYY-MM-DD
	Language string `json:"language"`
	SortBy   string `json:"sort_by"` // relevancy, popularity or publishedAt
}

// Article is a news candidate inside one research run. Text is populated once
// the body has been fetched, Summary once the article has been summarized.
type Article struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Text        string `json:"text,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// MeetingResult is the terminal output of the meeting workflow. Fields is nil
// when the utterance was not a creation request or carried no extractable
// meeting information.
type MeetingResult struct {
	Intent string         `json:"intent"`
	Fields *MeetingFields `json:"fields,omitempty"`
}

// NewsResult is the terminal output of the news research workflow.
type NewsResult struct {
	Formatted string         `json:"formatted"`
	Articles  []Article      `json:"articles,omitempty"`
	Searches  []SearchParams `json:"searches,omitempty"`
}

// Result is the structured outcome of one orchestration run, keyed by the
// workflow that produced it.
type Result struct {
	RunID     string         `json:"run_id"`
	Route     RouteDecision  `json:"route"`
	Meeting   *MeetingResult `json:"meeting,omitempty"`
	News      *NewsResult    `json:"news,omitempty"`
	Chitchat  string         `json:"chitchat,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
