package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/larkbot/internal/telemetry"
	"github.com/mohammad-safakhou/larkbot/models"
	"github.com/mohammad-safakhou/larkbot/provider"
)

// Meeting intents the classifier may emit. Only a creation request moves the
// workflow into the extraction state.
const (
	IntentCreateMeeting = "create_meeting"
	IntentCancelMeeting = "cancel_meeting"
	IntentUpdateMeeting = "update_meeting"
	IntentQueryMeeting  = "query_meeting"
	IntentNone          = "none"
)

const meetingSystemPrompt = `You are a supervisor tasked with managing a conversation between the following workers: [create_meeting cancel_meeting update_meeting query_meeting]. Given the following user request, respond with the worker to act intent. Output in the following format.
EXAMPLE Input:
帮我创建一个会议
EXAMPLE OUTPUT:
"create_meeting"
EXAMPLE Input:
看一下我最近的会有哪几个
EXAMPLE OUTPUT:
"query_meeting"`

const meetingExtractionPrompt = `You are a meeting information extraction assistant. Your task is to extract key meeting information from the user's input and format it as JSON. The current time is %s.
You should extract the following information if present:
- title: Meeting title/topic
- date: Meeting date (convert relative dates like 'tomorrow', 'next Monday' to actual dates based on the current time, format YYYY-MM-DD)
- time: Meeting time (in 24-hour format HH:MM)
- attendees: List of meeting attendees
- location: Meeting location
If any information is missing, use null for that field.
If the input does not contain any meeting related information, return an empty JSON object.
Example input:
明天下午3点在会议室A和张三李四开产品评审会
Example output:
{"title": "产品评审会", "date": "<tomorrow's date>", "time": "15:00", "attendees": ["张三", "李四"], "location": "会议室A"}
Please extract the meeting information from the user's input and return it in the same JSON format. Make sure to convert any relative dates/times to absolute values based on the current time provided.`

// MeetingWorkflow is a two-state pipeline: classify the utterance's meeting
// intent, then extract structured fields only for creation requests. The
// split keeps the heavyweight extraction schema away from inputs that are
// not meeting-related.
type MeetingWorkflow struct {
	llm    provider.Provider
	logger *log.Logger
	now    func() time.Time
}

func NewMeetingWorkflow(llm provider.Provider, logger *log.Logger) *MeetingWorkflow {
	if logger == nil {
		logger = log.New(log.Writer(), "[MEETING] ", log.LstdFlags)
	}
	return &MeetingWorkflow{llm: llm, logger: logger, now: time.Now}
}

// Run executes the workflow over the accumulated conversation.
func (w *MeetingWorkflow) Run(ctx context.Context, conversation []models.Message) (*models.MeetingResult, error) {
	intent, err := w.classify(ctx, conversation)
	if err != nil {
		return nil, err
	}
	result := &models.MeetingResult{Intent: intent}

	if intent != IntentCreateMeeting {
		return result, nil
	}

	fields, err := w.extract(ctx, conversation)
	if err != nil {
		return nil, err
	}
	result.Fields = fields
	return result, nil
}

func (w *MeetingWorkflow) classify(ctx context.Context, conversation []models.Message) (string, error) {
	messages := append([]models.Message{{Role: models.RoleSystem, Content: meetingSystemPrompt}}, conversation...)

	telemetry.InferenceCallsTotal.WithLabelValues("meeting_classify").Inc()
	response, err := w.llm.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("meeting classification failed: %w", err)
	}

	// Transition rule: the literal marker decides, not an exact match.
	for _, intent := range []string{IntentCreateMeeting, IntentCancelMeeting, IntentUpdateMeeting, IntentQueryMeeting} {
		if strings.Contains(response, intent) {
			return intent, nil
		}
	}
	return IntentNone, nil
}

func (w *MeetingWorkflow) extract(ctx context.Context, conversation []models.Message) (*models.MeetingFields, error) {
	system := fmt.Sprintf(meetingExtractionPrompt, w.now().Format("2006-01-02 15:04"))
	messages := append([]models.Message{{Role: models.RoleSystem, Content: system}}, conversation...)

	telemetry.InferenceCallsTotal.WithLabelValues("meeting_extract").Inc()
	var fields models.MeetingFields
	if err := w.llm.CompleteJSON(ctx, messages, &fields); err != nil {
		if errors.Is(err, models.ErrMalformedOutput) {
			// The model signals "no meeting information" with output that
			// does not fit the schema; treat it as an empty record.
			w.logger.Printf("no extractable meeting information: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("meeting extraction failed: %w", err)
	}
	if fields.IsEmpty() {
		return nil, nil
	}
	return &fields, nil
}
