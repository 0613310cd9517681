package router

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/larkbot/internal/telemetry"
	"github.com/mohammad-safakhou/larkbot/models"
)

// Engine is the orchestration entry point: it routes one conversation
// through the supervisor and drives the matching skill workflow to
// completion. All per-run state lives on the stack of Handle; the engine
// itself is safe for concurrent use.
type Engine struct {
	supervisor *Supervisor
	meeting    *MeetingWorkflow
	news       *NewsWorkflow
	logger     *log.Logger
}

func NewEngine(supervisor *Supervisor, meeting *MeetingWorkflow, news *NewsWorkflow, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(log.Writer(), "[ENGINE] ", log.LstdFlags)
	}
	return &Engine{supervisor: supervisor, meeting: meeting, news: news, logger: logger}
}

// Handle runs one orchestration invocation over the conversation and returns
// the result keyed by the workflow that produced it. Inference transport
// failures abort the run and propagate.
func (e *Engine) Handle(ctx context.Context, conversation []models.Message) (models.Result, error) {
	result := models.Result{RunID: uuid.NewString(), CreatedAt: time.Now()}
	if len(conversation) == 0 {
		return result, fmt.Errorf("empty conversation")
	}

	route, err := e.supervisor.Route(ctx, conversation)
	if err != nil {
		telemetry.RunsTotal.WithLabelValues("failed").Inc()
		return result, err
	}
	result.Route = route
	e.logger.Printf("run %s routed to %s", result.RunID, route)

	switch route {
	case models.RouteMeeting:
		meeting, err := e.meeting.Run(ctx, conversation)
		if err != nil {
			telemetry.RunsTotal.WithLabelValues("failed").Inc()
			return result, err
		}
		result.Meeting = meeting

	case models.RouteNews:
		query := lastUserMessage(conversation)
		news, err := e.news.Run(ctx, query)
		if err != nil {
			telemetry.RunsTotal.WithLabelValues("failed").Inc()
			return result, err
		}
		result.News = news

	case models.RouteFinish:
		// Terminal decision: nothing left to do for this conversation.

	default:
		result.Chitchat = runChitchat()
	}

	telemetry.RunsTotal.WithLabelValues("completed").Inc()
	return result, nil
}

func lastUserMessage(conversation []models.Message) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == models.RoleUser {
			return conversation[i].Content
		}
	}
	return conversation[len(conversation)-1].Content
}
