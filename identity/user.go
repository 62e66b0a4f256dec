package identity

import "github.com/cppla/chirp/models"

// githubProvider is the Clerk provider name of GitHub OAuth accounts.
const githubProvider = "oauth_github"

// User is the subset of a Clerk user object the application reads.
type User struct {
	ID               string            `json:"id"`
	Username         *string           `json:"username"`
	ImageURL         string            `json:"image_url"`
	ProfileImageURL  string            `json:"profile_image_url"`
	ExternalAccounts []ExternalAccount `json:"external_accounts"`
}

// ExternalAccount is an OAuth account linked to a Clerk user.
type ExternalAccount struct {
	Provider string  `json:"provider"`
	Username *string `json:"username"`
}

// FilterUserForClient strips a Clerk user down to the fields safe to send to browsers.
func FilterUserForClient(u User) models.ClientUser {
	image := u.ImageURL
	if image == "" {
		image = u.ProfileImageURL
	}
	return models.ClientUser{
		ID:               u.ID,
		Username:         deref(u.Username),
		ExternalUsername: externalUsername(u.ExternalAccounts),
		ProfileImageURL:  image,
	}
}

// externalUsername prefers the GitHub account, then any account that carries a username.
func externalUsername(accounts []ExternalAccount) string {
	for _, acc := range accounts {
		if acc.Provider == githubProvider && deref(acc.Username) != "" {
			return *acc.Username
		}
	}
	for _, acc := range accounts {
		if name := deref(acc.Username); name != "" {
			return name
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
