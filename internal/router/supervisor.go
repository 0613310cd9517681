package router

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/larkbot/internal/telemetry"
	"github.com/mohammad-safakhou/larkbot/models"
	"github.com/mohammad-safakhou/larkbot/provider"
)

const supervisorSystemPrompt = `You are a supervisor tasked with managing a conversation between the following workers: [meeting news chitchat]. Given the following user request, respond with the worker to act next. If the user request is not clear, respond with chitchat. Each worker will perform a task and respond with their results and status. When finished, respond with FINISH. Output in JSON format.
EXAMPLE Input:
帮我创建一个会议
EXAMPLE JSON OUTPUT:
{"next": "meeting"}
EXAMPLE Input:
你好
EXAMPLE JSON OUTPUT:
{"next": "chitchat"}
EXAMPLE Input:
今天gen ai的新闻有哪些
EXAMPLE JSON OUTPUT:
{"next": "news"}`

// Supervisor classifies the conversation into exactly one next worker.
type Supervisor struct {
	llm    provider.Provider
	logger *log.Logger
}

func NewSupervisor(llm provider.Provider, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.New(log.Writer(), "[ROUTER] ", log.LstdFlags)
	}
	return &Supervisor{llm: llm, logger: logger}
}

type routerSchema struct {
	Next string `json:"next"`
}

// Route picks the next worker for the conversation. Labels outside the legal
// set, and malformed model output, fall back to chitchat; inference transport
// failures propagate to the caller.
func (s *Supervisor) Route(ctx context.Context, conversation []models.Message) (models.RouteDecision, error) {
	messages := append([]models.Message{{Role: models.RoleSystem, Content: supervisorSystemPrompt}}, conversation...)

	telemetry.InferenceCallsTotal.WithLabelValues("supervisor").Inc()
	var out routerSchema
	if err := s.llm.CompleteJSON(ctx, messages, &out); err != nil {
		if errors.Is(err, models.ErrMalformedOutput) {
			s.logger.Printf("malformed routing output, falling back to chitchat: %v", err)
			telemetry.RoutesTotal.WithLabelValues(string(models.RouteChitchat)).Inc()
			return models.RouteChitchat, nil
		}
		return "", fmt.Errorf("routing failed: %w", err)
	}

	route, ok := models.ParseRouteDecision(out.Next)
	if !ok {
		s.logger.Printf("unrecognized route %q, falling back to chitchat", out.Next)
		route = models.RouteChitchat
	}
	telemetry.RoutesTotal.WithLabelValues(string(route)).Inc()
	return route, nil
}
