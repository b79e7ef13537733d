package model

import "time"

// EmailSummary is the per-message metadata shown in the list region.
// UIDs are unique within one fetched snapshot only.
type EmailSummary struct {
	UID     uint32 `json:"uid"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Unread  bool   `json:"unread"`
}

// Time parses Date. The zero time is returned when Date is empty or not
// a recognised timestamp.
func (s EmailSummary) Time() time.Time {
	return ParseDate(s.Date)
}

// EmailBody is the full content of one message.
type EmailBody struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Cc       string `json:"cc"`
	Subject  string `json:"subject"`
	Date     string `json:"date"`
	TextBody string `json:"text_body"`

	// HTMLBody is fetched but never rendered; only TextBody is shown.
	HTMLBody string `json:"html_body"`
}

// Time parses Date like EmailSummary.Time.
func (b EmailBody) Time() time.Time {
	return ParseDate(b.Date)
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// ParseDate parses an ISO 8601 timestamp, falling back to the RFC 822
// forms found in raw envelopes.
func ParseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
