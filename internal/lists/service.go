package lists

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	EnsureDefault(ctx context.Context, owner shared.Owner) error
	Lists(ctx context.Context, owner shared.Owner) ([]List, error)
	Create(ctx context.Context, owner shared.Owner, name string) (List, error)
	Rename(ctx context.Context, owner shared.Owner, listID int64, name string) error
	Delete(ctx context.Context, owner shared.Owner, listID int64) error
	Items(ctx context.Context, owner shared.Owner, listID int64) ([]Item, error)
	UpsertItem(ctx context.Context, owner shared.Owner, listID, productID int64, qty int) error
	SetItemQuantity(ctx context.Context, owner shared.Owner, listID, productID int64, qty int) error
	RemoveItem(ctx context.Context, owner shared.Owner, listID, productID int64) error
	ClearItems(ctx context.Context, owner shared.Owner, listID int64) error
	AddToBag(ctx context.Context, owner shared.Owner, listID int64) (int, error)
}

// Service applies shopping list rules.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Lists returns the owner's lists, creating the default one on first access.
func (s *Service) Lists(ctx context.Context, owner shared.Owner) ([]List, error) {
	if err := s.repo.EnsureDefault(ctx, owner); err != nil {
		return nil, err
	}
	out, err := s.repo.Lists(ctx, owner)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []List{}
	}
	return out, nil
}

func (s *Service) name(in NameInput) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return "", ErrNameRequired
	}
	if err := s.validate.Struct(in); err != nil {
		return "", shared.Validation("List name is too long")
	}
	return in.Name, nil
}

// Create adds a list.
func (s *Service) Create(ctx context.Context, owner shared.Owner, in NameInput) (List, error) {
	name, err := s.name(in)
	if err != nil {
		return List{}, err
	}
	return s.repo.Create(ctx, owner, name)
}

// Rename renames a list.
func (s *Service) Rename(ctx context.Context, owner shared.Owner, listID int64, in NameInput) error {
	name, err := s.name(in)
	if err != nil {
		return err
	}
	return s.repo.Rename(ctx, owner, listID, name)
}

// Delete removes a list other than the default.
func (s *Service) Delete(ctx context.Context, owner shared.Owner, listID int64) error {
	return s.repo.Delete(ctx, owner, listID)
}

// Items lists a list's items.
func (s *Service) Items(ctx context.Context, owner shared.Owner, listID int64) ([]Item, error) {
	out, err := s.repo.Items(ctx, owner, listID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Item{}
	}
	return out, nil
}

// AddItem merges a product into the list.
func (s *Service) AddItem(ctx context.Context, owner shared.Owner, listID int64, in ItemInput) error {
	if err := s.validate.Struct(in); err != nil {
		return ErrInvalidItem
	}
	return s.repo.UpsertItem(ctx, owner, listID, in.ProductID, in.Quantity)
}

// SetQuantity sets an item quantity; zero or less removes it.
func (s *Service) SetQuantity(ctx context.Context, owner shared.Owner, listID, productID int64, in QuantityInput) error {
	return s.repo.SetItemQuantity(ctx, owner, listID, productID, in.Quantity)
}

// RemoveItem deletes one item.
func (s *Service) RemoveItem(ctx context.Context, owner shared.Owner, listID, productID int64) error {
	return s.repo.RemoveItem(ctx, owner, listID, productID)
}

// Clear empties a list.
func (s *Service) Clear(ctx context.Context, owner shared.Owner, listID int64) error {
	return s.repo.ClearItems(ctx, owner, listID)
}

// AddToBag copies every list item into the bag and returns how many were merged.
func (s *Service) AddToBag(ctx context.Context, owner shared.Owner, listID int64) (int, error) {
	return s.repo.AddToBag(ctx, owner, listID)
}
