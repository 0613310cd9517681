package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/internal/dedup"
	"github.com/mohammad-safakhou/larkbot/internal/lark"
	"github.com/mohammad-safakhou/larkbot/internal/router"
	"github.com/mohammad-safakhou/larkbot/news/newsapi"
	"github.com/mohammad-safakhou/larkbot/provider"
	"github.com/mohammad-safakhou/larkbot/tools/web_fetch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run wires the full bot together and serves the webhook until the listener
// fails or the process exits.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}
	cache, err := dedup.NewCache(cfg.Dedup)
	if err != nil {
		return err
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Type), cfg.Fetch.Timeout, cfg.Fetch.MaxChars)
	if err != nil {
		return err
	}
	searcher := newsapi.NewClient(cfg.News.APIKey, cfg.News.Endpoint, cfg.News.Timeout)

	engine := router.NewEngine(
		router.NewSupervisor(llm, nil),
		router.NewMeetingWorkflow(llm, nil),
		router.NewNewsWorkflow(llm, searcher, fetcher, router.NewsConfig{
			SearchAttempts:   cfg.Workflow.SearchAttempts,
			SummaryCount:     cfg.Workflow.SummaryCount,
			CandidateCeiling: cfg.Workflow.CandidateCeiling,
		}, nil),
		nil,
	)

	sender := lark.NewClient(cfg.Lark)
	events := NewEventsHandler(engine, cache, sender, cfg.Lark.VerificationToken, cfg.General.MaxProcessingTime, nil)
	events.Register(e)

	baseLogger.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}
