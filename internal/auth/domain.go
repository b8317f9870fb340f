package auth

import "github.com/freshmart/freshmart-pos/internal/shared"

// Account is a credential row from one of the three user tables.
type Account struct {
	Role         shared.Role
	ID           int64
	Username     string
	Name         string
	PasswordHash string
}

// Principal converts the account into the session principal.
func (a Account) Principal() shared.Principal {
	name := a.Name
	if name == "" {
		name = a.Username
	}
	return shared.Principal{Role: a.Role, ID: a.ID, Name: name}
}

// Registration is the customer sign-up payload.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Username string `json:"username" validate:"required,max=50"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

// Credentials is the login payload. user_id is accepted as an alias of username.
type Credentials struct {
	Username string `json:"username"`
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// Login returns the effective login name.
func (c Credentials) Login() string {
	if c.Username != "" {
		return c.Username
	}
	return c.UserID
}

var (
	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = shared.Validation("Missing credentials")
	// ErrMissingFields is returned when a registration field is blank.
	ErrMissingFields = shared.Validation("Missing required fields")
	// ErrEmailTaken is returned when the e-mail is already registered.
	ErrEmailTaken = shared.Conflict("Email already registered")
	// ErrUsernameTaken is returned when the username is in use.
	ErrUsernameTaken = shared.Conflict("Username already taken")
)
