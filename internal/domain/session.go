package domain

// Session is the client-held view of who is logged in.
// AccessToken is either empty (unauthenticated) or a normalized, non-empty token.
type Session struct {
	AccessToken string
	TokenType   string

	UserID   string
	Username string
}

// TokenResponse is the body of a successful /auth/token call.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ProfileInfo mirrors /users/info and /users/info/me.
type ProfileInfo struct {
	Phone      string `json:"phone"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Country    string `json:"country"`

	TasksCompleted *int     `json:"tasksCompleted,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
}

// Fields returns the editable part of the profile, the body sent on save.
func (p ProfileInfo) Fields() map[string]any {
	return map[string]any{
		"phone":      p.Phone,
		"firstName":  p.FirstName,
		"lastName":   p.LastName,
		"middleName": p.MiddleName,
		"email":      p.Email,
		"address":    p.Address,
		"gender":     p.Gender,
		"age":        p.Age,
		"country":    p.Country,
	}
}
