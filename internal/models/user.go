package models

// User is the authenticated account profile.
type User struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Disabled    bool   `json:"disabled"`
	IsSuperuser bool   `json:"is_superuser"`
}

// Token is the response of the login endpoint.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Message is the generic acknowledgement body returned by mutation endpoints.
type Message struct {
	Message string `json:"message"`
}
