package chat

// Session is a named conversation owned by the logged-in employee.
type Session struct {
	ID          int64     `json:"id"`
	SessionName string    `json:"session_name"`
	UpdatedAt   Timestamp `json:"updated_at"`
	CreatedAt   Timestamp `json:"created_at,omitempty"`
}

// CreateSessionRequest is the body of POST /chat/sessions.
type CreateSessionRequest struct {
	SessionName string `json:"session_name"`
}
