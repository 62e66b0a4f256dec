package models

// UnknownUsername is rendered when an author's display name is empty.
const UnknownUsername = "(username not found)"

// ClientUser is the client-safe projection of an identity provider user.
// It is built per request and never persisted.
type ClientUser struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	ExternalUsername string `json:"externalUsername,omitempty"`
	ProfileImageURL  string `json:"profileImageUrl"`
}

// EnrichedPost pairs a post with its resolved author.
type EnrichedPost struct {
	Post   Post       `json:"post"`
	Author ClientUser `json:"author"`
}

// DisplayName returns the username to show, falling back to UnknownUsername when empty.
func (u ClientUser) DisplayName() string {
	if u.Username == "" {
		return UnknownUsername
	}
	return u.Username
}
