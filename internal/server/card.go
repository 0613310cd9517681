package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/larkbot/models"
)

// NewMeetingCard builds the interactive confirmation card for an extracted
// meeting. The rendered slot spans 30 minutes from the extracted start time.
func NewMeetingCard(fields models.MeetingFields) map[string]any {
	attendees := make([]map[string]any, 0, len(fields.Attendees))
	for _, name := range fields.Attendees {
		attendees = append(attendees, map[string]any{"id": name})
	}

	elements := []map[string]any{
		{
			"tag":        "markdown",
			"content":    fields.Title,
			"text_align": "left",
			"text_size":  "normal",
			"icon": map[string]any{
				"tag":   "standard_icon",
				"token": "submit-feedback_outlined",
				"color": "grey",
			},
		},
		{
			"tag":        "markdown",
			"content":    fmt.Sprintf("%s %s - %s (GMT+8)", fields.Date, fields.Time, endTime(fields.Time)),
			"text_align": "left",
			"text_size":  "normal",
			"icon": map[string]any{
				"tag":   "standard_icon",
				"token": "time_outlined",
				"color": "grey",
			},
		},
		{
			"tag":         "person_list",
			"persons":     attendees,
			"size":        "small",
			"lines":       1,
			"show_avatar": true,
			"show_name":   true,
			"icon": map[string]any{
				"tag":   "standard_icon",
				"token": "group_outlined",
				"color": "grey",
			},
		},
		{
			"tag":    "action",
			"layout": "default",
			"actions": []map[string]any{
				{
					"tag":   "button",
					"text":  map[string]any{"tag": "plain_text", "content": "编辑日程信息"},
					"type":  "default",
					"width": "default",
					"size":  "medium",
					"value": map[string]any{"action_type": "edit_meeting"},
				},
				{
					"tag":   "button",
					"text":  map[string]any{"tag": "plain_text", "content": "确认创建日程"},
					"type":  "primary",
					"width": "default",
					"size":  "medium",
					"value": map[string]any{
						"action_type": "create_meeting",
						"title":       fields.Title,
						"date":        fields.Date,
						"time":        fields.Time,
						"attendees":   fields.Attendees,
					},
				},
			},
		},
	}

	return map[string]any{
		"config":    map[string]any{"update_multi": true},
		"card_link": map[string]any{"url": ""},
		"i18n_elements": map[string]any{
			"zh_cn": elements,
		},
		"i18n_header": map[string]any{
			"zh_cn": map[string]any{
				"title":    map[string]any{"tag": "plain_text", "content": "为您智能创建了一个会议日程，请确认："},
				"subtitle": map[string]any{"tag": "plain_text", "content": ""},
				"template": "orange",
				"ud_icon":  map[string]any{"tag": "standard_icon", "token": "calendar_colorful"},
			},
		},
	}
}

// endTime adds 30 minutes to an HH:MM start time, carrying into the hour.
func endTime(start string) string {
	parts := strings.SplitN(start, ":", 2)
	if len(parts) != 2 {
		return start
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return start
	}
	minute += 30
	if minute >= 60 {
		minute -= 60
		hour = (hour + 1) % 24
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
