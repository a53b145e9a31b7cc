package repository

import (
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

const (
	TableUsers                = "users"
	TableCaretakerInfo        = "caretaker_info"
	TableEmergencyContact     = "emergency_contact"
	TableCurrentTrip          = "current_trip"
	TablePastTrips            = "past_trips"
	TableActivity             = "activity"
	TableConversation         = "current_caretaker_conversation"
	TableConversationMessages = "current_caretaker_conversation_messages"
)

// tableSchema is the static description of a table. Identifiers in
// generated statements may only come from here.
type tableSchema struct {
	name    string
	columns []string
	hasID   bool       // BIGSERIAL "id" returned on insert
	uniques [][]string // unique keys enforced by the schema (and by MemoryStore)
}

func (t *tableSchema) hasColumn(col string) bool {
	for _, c := range t.columns {
		if c == col {
			return true
		}
	}
	return false
}

var tables = map[string]*tableSchema{
	TableUsers: {
		name:    TableUsers,
		columns: []string{"id", "email", "password_hash", "firstname", "lastname", "user_type"},
		hasID:   true,
		uniques: [][]string{{"id"}, {"email"}},
	},
	TableCaretakerInfo: {
		name:    TableCaretakerInfo,
		columns: []string{"impaired_user_id", "caretaker_user_id"},
		uniques: [][]string{{"impaired_user_id"}},
	},
	TableEmergencyContact: {
		name:    TableEmergencyContact,
		columns: []string{"id", "impaired_user_id", "contact_name", "contact_tel"},
		hasID:   true,
		uniques: [][]string{{"id"}},
	},
	TableCurrentTrip: {
		name:    TableCurrentTrip,
		columns: []string{"impaired_user_id", "from_location", "to_location"},
		uniques: [][]string{{"impaired_user_id"}},
	},
	TablePastTrips: {
		name:    TablePastTrips,
		columns: []string{"id", "impaired_user_id", "destination_location", "complete_date"},
		hasID:   true,
		uniques: [][]string{{"id"}},
	},
	TableActivity: {
		name:    TableActivity,
		columns: []string{"id", "impaired_user_id", "notice_status", "small_description", "notice_date"},
		hasID:   true,
		uniques: [][]string{{"id"}},
	},
	TableConversation: {
		name:    TableConversation,
		columns: []string{"id", "impaired_user_id", "caretaker_user_id"},
		hasID:   true,
		uniques: [][]string{{"id"}},
	},
	TableConversationMessages: {
		name:    TableConversationMessages,
		columns: []string{"id", "ccc_id", "msg_ordered_number", "user_type", "msg"},
		hasID:   true,
		uniques: [][]string{{"id"}, {"ccc_id", "msg_ordered_number"}},
	},
}

func lookupTable(name string) (*tableSchema, error) {
	t, ok := tables[name]
	if !ok {
		return nil, domain.E(domain.KindValidation, "unknown table "+name)
	}
	return t, nil
}

func checkColumns(t *tableSchema, cols []string) error {
	for _, c := range cols {
		if !t.hasColumn(c) {
			return domain.E(domain.KindValidation, "unknown column "+c+" on "+t.name)
		}
	}
	return nil
}

func checkPredicates(t *tableSchema, preds []Predicate) error {
	for _, p := range preds {
		if !t.hasColumn(p.Column) {
			return domain.E(domain.KindValidation, "unknown column "+p.Column+" on "+t.name)
		}
	}
	return nil
}
