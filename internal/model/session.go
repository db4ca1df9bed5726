package model

// Session is the authenticated identity stored in Redis under a
// bearer token.
type Session struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
