package service

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	// PreviousToken is destroyed once the new session exists.
	PreviousToken string `json:"-"`
	IPAddress     string `json:"-"`
	UserAgent     string `json:"-"`
}

// UpdateProfileRequest nil 字段保持不变
type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	Password  *string `json:"password" validate:"omitempty,min=1,max=128"`
	FirstName *string `json:"firstname" validate:"omitempty,max=100"`
	LastName  *string `json:"lastname" validate:"omitempty,max=100"`
}

// AssignCaretakerRequest identifies the caretaker by their credentials.
type AssignCaretakerRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AddContactRequest struct {
	ContactName string `json:"contact_name" validate:"required,max=200"`
	ContactTel  string `json:"contact_tel" validate:"required,max=50"`
}

type StartTripRequest struct {
	FromLocation string `json:"from_location" validate:"required,max=500"`
	ToLocation   string `json:"to_location" validate:"required,max=500"`
}

type AddPastTripRequest struct {
	DestinationLocation string `json:"destination_location" validate:"required,max=500"`
}

type AddActivityRequest struct {
	NoticeStatus     string `json:"notice_status" validate:"required,oneof=Good Okay Bad"`
	SmallDescription string `json:"small_description" validate:"required,max=1000"`
}

type AppendMessageRequest struct {
	Msg string `json:"msg" validate:"required,max=4000"`
}
