package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/larkbot/internal/dedup"
	"github.com/mohammad-safakhou/larkbot/internal/lark"
	"github.com/mohammad-safakhou/larkbot/internal/telemetry"
	"github.com/mohammad-safakhou/larkbot/models"
)

const messageReceiveEvent = "im.message.receive_v1"

// fatalRunReply is sent when a run dies on an unrecovered error. The
// upstream behavior was to drop the response silently; surfacing a fixed
// notice instead keeps the user from waiting on a reply that never comes.
const fatalRunReply = "Sorry, something went wrong while handling your message. Please try again later."

const noMeetingReply = "No meeting information found in your message."

// Orchestrator runs one conversation to completion.
type Orchestrator interface {
	Handle(ctx context.Context, conversation []models.Message) (models.Result, error)
}

// Sender delivers replies back to the chat platform.
type Sender interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) error
	SendCard(ctx context.Context, receiveIDType, receiveID string, card map[string]any) error
}

// EventsHandler terminates the platform webhook: challenge verification,
// deduplication, and dispatch into the orchestration engine.
type EventsHandler struct {
	engine            Orchestrator
	cache             dedup.Cache
	sender            Sender
	logger            *log.Logger
	verificationToken string
	runTimeout        time.Duration

	// dispatch is swapped out in tests to run synchronously.
	dispatch func(func())
}

func NewEventsHandler(engine Orchestrator, cache dedup.Cache, sender Sender, verificationToken string, runTimeout time.Duration, logger *log.Logger) *EventsHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[EVENTS] ", log.LstdFlags)
	}
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	return &EventsHandler{
		engine:            engine,
		cache:             cache,
		sender:            sender,
		logger:            logger,
		verificationToken: verificationToken,
		runTimeout:        runTimeout,
		dispatch:          func(f func()) { go f() },
	}
}

// Register attaches the webhook route.
func (h *EventsHandler) Register(e *echo.Echo) {
	e.POST("/webhook/event", h.HandleEvent)
}

type eventEnvelope struct {
	Challenge string `json:"challenge"`
	Type      string `json:"type"`
	Token     string `json:"token"`
	Header    struct {
		EventID   string `json:"event_id"`
		EventType string `json:"event_type"`
		Token     string `json:"token"`
	} `json:"header"`
	Event struct {
		Sender struct {
			SenderID struct {
				OpenID string `json:"open_id"`
			} `json:"sender_id"`
		} `json:"sender"`
		Message struct {
			MessageID   string `json:"message_id"`
			ChatID      string `json:"chat_id"`
			ChatType    string `json:"chat_type"`
			MessageType string `json:"message_type"`
			Content     string `json:"content"`
		} `json:"message"`
	} `json:"event"`
}

// HandleEvent processes one webhook delivery. The platform retries events
// that are not acknowledged quickly, so the orchestration run is dispatched
// asynchronously and the delivery acknowledged immediately.
func (h *EventsHandler) HandleEvent(c echo.Context) error {
	var env eventEnvelope
	if err := c.Bind(&env); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}

	if env.Type == "url_verification" {
		if h.verificationToken != "" && env.Token != h.verificationToken {
			return echo.NewHTTPError(http.StatusUnauthorized, "verification token mismatch")
		}
		return c.JSON(http.StatusOK, map[string]string{"challenge": env.Challenge})
	}

	if env.Header.EventType != messageReceiveEvent {
		return c.NoContent(http.StatusOK)
	}

	telemetry.MessagesTotal.Inc()
	msg := env.Event.Message

	duplicate, err := h.cache.IsDuplicate(c.Request().Context(), msg.MessageID)
	if err != nil {
		h.logger.Printf("dedup lookup failed for %s: %v", msg.MessageID, err)
	}
	if duplicate {
		telemetry.DuplicatesTotal.Inc()
		h.logger.Printf("duplicate message detected: %s", msg.MessageID)
		return c.NoContent(http.StatusOK)
	}

	if msg.MessageType != "text" {
		return c.NoContent(http.StatusOK)
	}

	var content struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &content); err != nil || content.Text == "" {
		h.logger.Printf("unparseable text content in %s", msg.MessageID)
		return c.NoContent(http.StatusOK)
	}

	chatID := msg.ChatID
	chatType := msg.ChatType
	senderID := env.Event.Sender.SenderID.OpenID
	h.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()
		h.process(ctx, content.Text, chatType, chatID, senderID)
	})

	return c.NoContent(http.StatusOK)
}

// process runs the orchestration engine for one utterance and delivers the
// reply. Only direct chats get responses.
func (h *EventsHandler) process(ctx context.Context, text, chatType, chatID, senderID string) {
	conversation := []models.Message{{Role: models.RoleUser, Content: text}}

	result, err := h.engine.Handle(ctx, conversation)
	if err != nil {
		h.logger.Printf("run failed: %v", err)
		if chatType == "p2p" {
			h.reply(ctx, lark.ReceiveByChatID, chatID, fatalRunReply)
		}
		return
	}

	if chatType != "p2p" {
		return
	}

	switch result.Route {
	case models.RouteMeeting:
		if result.Meeting != nil && result.Meeting.Fields != nil {
			card := NewMeetingCard(*result.Meeting.Fields)
			if err := h.sender.SendCard(ctx, lark.ReceiveByOpenID, senderID, card); err != nil {
				h.logger.Printf("card send failed: %v", err)
			}
			return
		}
		h.reply(ctx, lark.ReceiveByChatID, chatID, noMeetingReply)

	case models.RouteNews:
		if result.News != nil {
			h.reply(ctx, lark.ReceiveByChatID, chatID, result.News.Formatted)
		}

	case models.RouteFinish:
		// Nothing to deliver.

	default:
		h.reply(ctx, lark.ReceiveByChatID, chatID, result.Chitchat)
	}
}

func (h *EventsHandler) reply(ctx context.Context, receiveIDType, receiveID, text string) {
	if err := h.sender.SendText(ctx, receiveIDType, receiveID, text); err != nil {
		h.logger.Printf("text send failed: %v", err)
	}
}
