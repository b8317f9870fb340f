package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// loginOrder is the sequence of tables checked on login.
var loginOrder = []shared.Role{shared.RoleAdmin, shared.RoleEmployee, shared.RoleCustomer}

// dummyHash keeps failed lookups as slow as failed password checks.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("freshmart-dummy"), bcrypt.DefaultCost)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
	cost     int
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// Authenticate checks administrators, employees, then customers.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (shared.Principal, error) {
	login := strings.TrimSpace(creds.Login())
	if login == "" || creds.Password == "" {
		return shared.Principal{}, ErrMissingCredentials
	}
	for _, role := range loginOrder {
		acc, err := s.repo.FindAccount(ctx, role, login)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return shared.Principal{}, err
		}
		if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(creds.Password)) == nil {
			return acc.Principal(), nil
		}
	}
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(creds.Password))
	return shared.Principal{}, shared.ErrInvalidCredentials
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, reg Registration) (int64, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Phone = strings.TrimSpace(reg.Phone)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" || reg.Username == "" {
		return 0, ErrMissingFields
	}
	if err := s.validate.Struct(reg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return 0, shared.Validation(fieldMessage(verrs[0]))
		}
		return 0, err
	}

	exists, err := s.repo.CustomerEmailExists(ctx, reg.Email)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrEmailTaken
	}
	exists, err = s.repo.CustomerUsernameExists(ctx, reg.Username)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateCustomer(ctx, reg, string(hash))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "Invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " is too long"
	}
	return "Invalid " + strings.ToLower(fe.Field())
}
