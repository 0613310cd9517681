package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/larkbot/internal/helpers"
	"github.com/mohammad-safakhou/larkbot/internal/telemetry"
	"github.com/mohammad-safakhou/larkbot/models"
	"github.com/mohammad-safakhou/larkbot/news/newsapi"
	"github.com/mohammad-safakhou/larkbot/provider"
	fetchmodels "github.com/mohammad-safakhou/larkbot/tools/web_fetch/models"
)

// NoArticlesFound is returned when the research loop exhausts its attempt
// budget without a single readable article, and when selection comes back
// empty.
const NoArticlesFound = "No articles with text found."

// Searcher is the news metadata search port.
type Searcher interface {
	Search(ctx context.Context, params models.SearchParams) ([]newsapi.Article, error)
}

// Fetcher is the article body fetch port.
type Fetcher interface {
	Exec(ctx context.Context, url string) (fetchmodels.Result, error)
}

// NewsConfig carries the loop tunables. SearchAttempts bounds the number of
// search-refinement iterations, SummaryCount is how many articles to
// summarize, CandidateCeiling caps outstanding candidates across iterations.
type NewsConfig struct {
	SearchAttempts   int
	SummaryCount     int
	CandidateCeiling int
}

// NewsWorkflow runs the bounded-retry research pipeline: generate search
// parameters, fetch metadata, fetch article text, loop until enough
// candidates accumulate or the attempt budget runs out, then select,
// summarize and format.
type NewsWorkflow struct {
	llm     provider.Provider
	search  Searcher
	fetcher Fetcher
	logger  *log.Logger
	cfg     NewsConfig
	now     func() time.Time
}

func NewNewsWorkflow(llm provider.Provider, search Searcher, fetcher Fetcher, cfg NewsConfig, logger *log.Logger) *NewsWorkflow {
	if logger == nil {
		logger = log.New(log.Writer(), "[NEWS] ", log.LstdFlags)
	}
	if cfg.SearchAttempts <= 0 {
		cfg.SearchAttempts = 5
	}
	if cfg.SummaryCount <= 0 {
		cfg.SummaryCount = 3
	}
	if cfg.CandidateCeiling <= 0 {
		cfg.CandidateCeiling = 10
	}
	return &NewsWorkflow{llm: llm, search: search, fetcher: fetcher, logger: logger, cfg: cfg, now: time.Now}
}

// newsState is the accumulator for one research run. Steps take the state by
// value and return the updated copy, so reordering steps cannot alias
// intermediate results.
type newsState struct {
	Query             string
	SearchesRemaining int
	Params            models.SearchParams
	PastSearches      []models.SearchParams
	ScrapedURLs       map[string]struct{}
	Metadata          []newsapi.Article
	Candidates        []models.Article
	Selected          []models.Article
}

type gateDecision int

const (
	gateRetry gateDecision = iota
	gateSelect
	gateGiveUp
)

var urlPattern = regexp.MustCompile(`(https?://[^\s",]+)`)

// Run executes one research run for the query.
func (w *NewsWorkflow) Run(ctx context.Context, query string) (*models.NewsResult, error) {
	st := newsState{
		Query:             query,
		SearchesRemaining: w.cfg.SearchAttempts,
		ScrapedURLs:       make(map[string]struct{}),
	}

	// The iteration bound lives here in the driver, not in the nodes: even a
	// node that forgets to decrement the counter cannot loop forever.
	proceed := false
loop:
	for iter := 0; iter < w.cfg.SearchAttempts; iter++ {
		var err error
		st, err = w.generateSearchParams(ctx, st)
		if err != nil {
			return nil, err
		}
		st = w.fetchMetadata(ctx, st)
		st = w.fetchText(ctx, st)

		switch w.decide(st) {
		case gateRetry:
			continue
		case gateGiveUp:
			return &models.NewsResult{Formatted: NoArticlesFound, Searches: st.PastSearches}, nil
		case gateSelect:
			proceed = true
			break loop
		}
	}
	if !proceed && len(st.Candidates) == 0 {
		return &models.NewsResult{Formatted: NoArticlesFound, Searches: st.PastSearches}, nil
	}

	st, err := w.selectTop(ctx, st)
	if err != nil {
		return nil, err
	}
	if len(st.Selected) == 0 {
		return &models.NewsResult{Formatted: NoArticlesFound, Searches: st.PastSearches}, nil
	}

	st, err = w.summarize(ctx, st)
	if err != nil {
		return nil, err
	}

	return &models.NewsResult{
		Formatted: w.formatResults(st),
		Articles:  st.Selected,
		Searches:  st.PastSearches,
	}, nil
}

const searchParamsPrompt = `Today is %s.

Create a search parameter object for the news API based on the user query:
%s

These searches have already been made. Loosen the search terms to get more results.
%s

Respond with JSON using exactly these keys:
- "q": 1-3 concise keyword search terms that are not too specific
- "sources": comma-separated list of sources from: 'abc-news,abc-news-au,associated-press,australian-financial-review,axios,bbc-news,bbc-sport,bloomberg,business-insider,cbc-news,cbs-news,cnn,financial-post,fortune'
- "from": date in format 'YYYY-MM-DD', two days ago minimum, extend up to 30 days on second and subsequent requests
- "to": date in format 'YYYY-MM-DD', today's date unless specified
- "language": language of articles, 'en' unless specified, one of ['ar', 'de', 'en', 'es', 'fr', 'he', 'it', 'nl', 'no', 'pt', 'ru', 'se', 'ud', 'zh']
- "sort_by": sort by 'relevancy', 'popularity' or 'publishedAt'

Including this one, you have %d searches remaining.
If this is your last search, use all news sources and a 30 days search range.`

// generateSearchParams asks the model for the next parameter set, widening
// the criteria based on the history of past attempts. Inference failures are
// fatal for the run.
func (w *NewsWorkflow) generateSearchParams(ctx context.Context, st newsState) (newsState, error) {
	past, _ := json.Marshal(st.PastSearches)
	prompt := fmt.Sprintf(searchParamsPrompt,
		w.now().Format("2006-01-02"), st.Query, string(past), st.SearchesRemaining)

	telemetry.InferenceCallsTotal.WithLabelValues("news_params").Inc()
	var params models.SearchParams
	if err := w.llm.CompleteJSON(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}}, &params); err != nil {
		return st, fmt.Errorf("search parameter generation failed: %w", err)
	}
	st.Params = params
	return st, nil
}

// fetchMetadata calls the search API with the generated parameters. The
// attempt counter is decremented before anything else: loop termination must
// hold even when every external call fails. Search failures are swallowed
// and leave this attempt's metadata empty.
func (w *NewsWorkflow) fetchMetadata(ctx context.Context, st newsState) newsState {
	st.SearchesRemaining--
	st.PastSearches = append(st.PastSearches, st.Params)
	st.Metadata = nil

	telemetry.SearchAttemptsTotal.Inc()
	articles, err := w.search.Search(ctx, st.Params)
	if err != nil {
		telemetry.SearchFailuresTotal.Inc()
		w.logger.Printf("search failed, continuing with zero results: %v", err)
		return st
	}

	var admitted []newsapi.Article
	for _, article := range articles {
		if len(st.Candidates)+len(admitted) >= w.cfg.CandidateCeiling {
			break
		}
		key := scrapeKey(article.URL)
		if _, seen := st.ScrapedURLs[key]; seen {
			continue
		}
		admitted = append(admitted, article)
	}
	st.Metadata = admitted
	return st
}

// fetchText retrieves the body for each metadata entry. Failed fetches are
// dropped without retry; successful ones mark the URL as scraped and join
// the candidate accumulator.
func (w *NewsWorkflow) fetchText(ctx context.Context, st newsState) newsState {
	for _, meta := range st.Metadata {
		res, err := w.fetcher.Exec(ctx, meta.URL)
		if err != nil || strings.TrimSpace(res.Text) == "" {
			telemetry.FetchFailuresTotal.Inc()
			w.logger.Printf("dropping %s: fetch failed (%v)", meta.URL, err)
			continue
		}
		st.ScrapedURLs[scrapeKey(meta.URL)] = struct{}{}
		st.Candidates = append(st.Candidates, models.Article{
			URL:         meta.URL,
			Title:       meta.Title,
			Description: meta.Description,
			Text:        res.Text,
		})
	}
	st.Metadata = nil
	return st
}

// decide is the loop's termination policy: give up when the budget is
// exhausted with nothing to show, select as soon as enough candidates exist
// or no attempts remain, otherwise retry with widened criteria.
func (w *NewsWorkflow) decide(st newsState) gateDecision {
	if st.SearchesRemaining <= 0 {
		if len(st.Candidates) == 0 {
			return gateGiveUp
		}
		return gateSelect
	}
	if len(st.Candidates) < w.cfg.SummaryCount {
		return gateRetry
	}
	return gateSelect
}

// selectTop asks the model for the most relevant URLs and filters the
// candidates down to those that actually appear in its answer. URLs the
// model invented, and malformed ones, match nothing and are excluded; an
// empty selection is a valid outcome, not an error.
func (w *NewsWorkflow) selectTop(ctx context.Context, st newsState) (newsState, error) {
	var meta strings.Builder
	for _, article := range st.Candidates {
		fmt.Fprintf(&meta, "%s\n%s\n\n", article.URL, article.Description)
	}

	prompt := fmt.Sprintf(`Based on the user news query:
%s

Reply with a list of strings of up to %d relevant urls.
Don't add any urls that are not relevant or aren't listed specifically.
%s`, st.Query, w.cfg.SummaryCount, meta.String())

	telemetry.InferenceCallsTotal.WithLabelValues("news_select").Inc()
	response, err := w.llm.Complete(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return st, fmt.Errorf("url selection failed: %w", err)
	}

	chosen := make(map[string]struct{})
	for _, u := range urlPattern.FindAllString(response, -1) {
		chosen[u] = struct{}{}
	}

	st.Selected = nil
	for _, article := range st.Candidates {
		if _, ok := chosen[article.URL]; ok {
			st.Selected = append(st.Selected, article)
		}
	}
	return st, nil
}

const summaryPrompt = `Create a * bulleted summarizing tldr for the article in markdown format:
%s

Be sure to follow the following format exactly with nothing else:
%s
%s
* tl;dr bulleted summary
* use bullet points for each sentence`

// summarize produces a bullet summary for each selected article,
// sequentially. One failed summarization aborts the rest of the run.
func (w *NewsWorkflow) summarize(ctx context.Context, st newsState) (newsState, error) {
	for i := range st.Selected {
		prompt := fmt.Sprintf(summaryPrompt, st.Selected[i].Text, st.Selected[i].Title, st.Selected[i].URL)
		telemetry.InferenceCallsTotal.WithLabelValues("news_summarize").Inc()
		summary, err := w.llm.Complete(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}})
		if err != nil {
			return st, fmt.Errorf("summarizing %s failed: %w", st.Selected[i].URL, err)
		}
		st.Selected[i].Summary = summary
	}
	return st, nil
}

// formatResults concatenates the distinct keywords used across all attempts
// with the article summaries into the final text block.
func (w *NewsWorkflow) formatResults(st newsState) string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, params := range st.PastSearches {
		if _, ok := seen[params.Query]; ok {
			continue
		}
		seen[params.Query] = struct{}{}
		keywords = append(keywords, params.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here are the top %d articles based on search terms:\n%s\n\n", len(st.Selected), strings.Join(keywords, ", "))
	for i, article := range st.Selected {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(article.Summary)
	}
	return b.String()
}

// scrapeKey normalises a URL for the scraped set so the same article behind
// trivially different URLs is not fetched twice.
func scrapeKey(raw string) string {
	if normalized, err := helpers.NormalizeURL(raw); err == nil {
		return normalized
	}
	return raw
}
