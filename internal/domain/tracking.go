package domain

import "time"

// EmergencyContact emergency_contact 表
type EmergencyContact struct {
	ID             int64  `json:"id"`
	ImpairedUserID int64  `json:"-"`
	Name           string `json:"contact_name"`
	Phone          string `json:"contact_tel"`
}

// CurrentTrip current_trip 表；存在即表示 "on trip"
type CurrentTrip struct {
	ImpairedUserID int64  `json:"-"`
	From           string `json:"from_location"`
	To             string `json:"to_location"`
}

// PastTrip past_trips 表（append-only）
type PastTrip struct {
	ID             int64     `json:"id"`
	ImpairedUserID int64     `json:"-"`
	Destination    string    `json:"destination_location"`
	CompletedAt    time.Time `json:"complete_date"`
}

// TripStatus is reported by the status endpoints.
type TripStatus string

const (
	TripStatusActive   TripStatus = "active"
	TripStatusInactive TripStatus = "inactive"
)

// ActivityStatus notice_status
type ActivityStatus string

const (
	ActivityGood ActivityStatus = "Good"
	ActivityOkay ActivityStatus = "Okay"
	ActivityBad  ActivityStatus = "Bad"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityGood, ActivityOkay, ActivityBad:
		return true
	}
	return false
}

// Activity activity 表
type Activity struct {
	ID             int64          `json:"id"`
	ImpairedUserID int64          `json:"-"`
	Status         ActivityStatus `json:"notice_status"`
	Description    string         `json:"small_description"`
	OccurredAt     time.Time      `json:"notice_date"`
}

// Conversation current_caretaker_conversation 表
type Conversation struct {
	ID              int64 `json:"id"`
	ImpairedUserID  int64 `json:"impaired_user_id"`
	CaretakerUserID int64 `json:"caretaker_user_id"`
}

// ConversationMessage current_caretaker_conversation_messages 表
// SequenceNumber 在同一 conversation 内从 1 开始连续递增，写入后不可变
type ConversationMessage struct {
	ID             int64  `json:"-"`
	ConversationID int64  `json:"-"`
	SequenceNumber int64  `json:"msg_ordered_number"`
	AuthorRole     Role   `json:"user_type"`
	Body           string `json:"msg"`
}
