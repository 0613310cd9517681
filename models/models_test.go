package models

import "testing"

func TestParseRouteDecision(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in     string
		want   RouteDecision
		wantOK bool
	}{
		{"meeting", RouteMeeting, true},
		{"news", RouteNews, true},
		{"chitchat", RouteChitchat, true},
		{"finish", RouteFinish, true},
		{"FINISH", RouteFinish, true},
		{"  News  ", RouteNews, true},
		{"weather", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRouteDecision(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("ParseRouteDecision(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestMeetingFieldsIsEmpty(t *testing.T) {
	t.Parallel()

	if !(MeetingFields{}).IsEmpty() {
		t.Fatalf("zero value should be empty")
	}
	for _, f := range []MeetingFields{
		{Title: "standup"},
		{Date: "2026-08-30"},
		{Time: "10:00"},
		{Attendees: []string{"张三"}},
		{Location: "会议室A"},
	} {
		if f.IsEmpty() {
			t.Fatalf("%+v should not be empty", f)
		}
	}
}
