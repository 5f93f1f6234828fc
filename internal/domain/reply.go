package domain

import "strings"

// ReplyCategory is the classification of an inbound reply.
type ReplyCategory string

const (
	CategoryInterested     ReplyCategory = "INTERESTED"
	CategoryNotInterested  ReplyCategory = "NOT_INTERESTED"
	CategoryMeetingRequest ReplyCategory = "MEETING_REQUEST"
	CategoryOutOfOffice    ReplyCategory = "OUT_OF_OFFICE"
	CategoryUnsubscribe    ReplyCategory = "UNSUBSCRIBE"
	CategoryQuestion       ReplyCategory = "QUESTION"
)

// ReplyCategories lists every category in prompt order.
var ReplyCategories = []ReplyCategory{
	CategoryInterested,
	CategoryNotInterested,
	CategoryMeetingRequest,
	CategoryOutOfOffice,
	CategoryUnsubscribe,
	CategoryQuestion,
}

// ParseReplyCategory upper-cases and trims a classifier token. Anything that
// is not one of the six categories becomes CategoryQuestion.
func ParseReplyCategory(token string) ReplyCategory {
	c := ReplyCategory(strings.ToUpper(strings.TrimSpace(token)))
	if c.Valid() {
		return c
	}
	return CategoryQuestion
}

// Valid reports whether c is one of the six categories.
func (c ReplyCategory) Valid() bool {
	for _, known := range ReplyCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ReplyAction is what the caller should do with a classified reply.
type ReplyAction string

const (
	ActionSlackAlert    ReplyAction = "slack_alert"
	ActionLogAndRemove  ReplyAction = "log_and_remove"
	ActionDraftResponse ReplyAction = "draft_response"
	ActionReschedule    ReplyAction = "reschedule"
	ActionSuppress      ReplyAction = "suppress"
)

// ActionFor maps a category to its action. Unknown categories route as QUESTION.
func ActionFor(c ReplyCategory) ReplyAction {
	switch c {
	case CategoryInterested, CategoryMeetingRequest:
		return ActionSlackAlert
	case CategoryNotInterested:
		return ActionLogAndRemove
	case CategoryOutOfOffice:
		return ActionReschedule
	case CategoryUnsubscribe:
		return ActionSuppress
	default:
		return ActionDraftResponse
	}
}

// ReplyClassification is a reply together with its category.
type ReplyClassification struct {
	Email     string        `json:"email"`
	ReplyText string        `json:"reply_text"`
	Category  ReplyCategory `json:"category"`
}

// RoutedAction is the routing decision for one reply.
type RoutedAction struct {
	Email    string        `json:"email"`
	Category ReplyCategory `json:"category"`
	Action   ReplyAction   `json:"action"`
	Draft    string        `json:"draft,omitempty"`
}
