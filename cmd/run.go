package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mohammad-safakhou/larkbot/config"
	"github.com/mohammad-safakhou/larkbot/internal/router"
	"github.com/mohammad-safakhou/larkbot/models"
	"github.com/mohammad-safakhou/larkbot/news/newsapi"
	"github.com/mohammad-safakhou/larkbot/provider"
	"github.com/mohammad-safakhou/larkbot/tools/web_fetch"
	"github.com/spf13/cobra"
)

// runCMD drives a single message through the routing engine from the
// terminal, without the webhook server. Useful for prompt tuning.
func runCMD() *cobra.Command {
	var cfgPath string
	var asJSON bool
	var run = &cobra.Command{
		Use:   "run [message]",
		Short: "Route one message through the engine and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			llm, err := provider.NewProvider(cfg.LLM)
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

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.General.MaxProcessingTime)
			defer cancel()
			result, err := engine.Handle(ctx, []models.Message{{Role: models.RoleUser, Content: strings.Join(args, " ")}})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Printf("route: %s\n", result.Route)
			switch {
			case result.News != nil:
				fmt.Println(result.News.Formatted)
			case result.Meeting != nil:
				fmt.Printf("intent: %s\n", result.Meeting.Intent)
				if result.Meeting.Fields != nil {
					raw, _ := json.MarshalIndent(result.Meeting.Fields, "", "  ")
					fmt.Println(string(raw))
				}
			case result.Chitchat != "":
				fmt.Println(result.Chitchat)
			}
			return nil
		},
	}
	run.Flags().BoolVar(&asJSON, "json", false, "print the full run result as JSON")
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.yaml)")

	return run
}
