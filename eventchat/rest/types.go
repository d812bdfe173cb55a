package rest

// Profile is the current-user record from the profile store.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Email     string `json:"email,omitempty"`
}

// UnreadCountsResponse maps room id to the server-side unread count.
type UnreadCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
