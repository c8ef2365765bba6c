package session

import "context"

// Credentials are exchanged for a token pair on login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the payload of the signup endpoint.
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Tokens is the token pair returned by the login and refresh endpoints.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// View is a navigation target the session layer asks the front end to show.
type View string

const (
	ViewLogin    View = "login"
	ViewProjects View = "projects"
)

type Navigator interface {
	Navigate(ctx context.Context, view View)
}

type NavigatorFunc func(ctx context.Context, view View)

func (f NavigatorFunc) Navigate(ctx context.Context, view View) {
	f(ctx, view)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, View) {}
