package bag

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	List(ctx context.Context, owner shared.Owner) ([]Item, error)
	Add(ctx context.Context, owner shared.Owner, productID int64, qty int) (AddResult, error)
	SetQuantity(ctx context.Context, owner shared.Owner, bagID int64, qty int) error
	Remove(ctx context.Context, owner shared.Owner, bagID int64) error
	Clear(ctx context.Context, owner shared.Owner) error
	Count(ctx context.Context, owner shared.Owner) (int, error)
}

// Service applies bag rules for customers and employees.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// OwnerOf resolves the bag owner for p. Admins and anonymous users have none.
func OwnerOf(p shared.Principal, ok bool) (shared.Owner, error) {
	if !ok {
		return shared.Owner{}, shared.ErrUnauthorized
	}
	owner, has := p.Owner()
	if !has {
		return shared.Owner{}, shared.ErrUnauthorized
	}
	return owner, nil
}

// Items lists the bag.
func (s *Service) Items(ctx context.Context, owner shared.Owner) ([]Item, error) {
	items, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Add merges a product into the bag.
func (s *Service) Add(ctx context.Context, owner shared.Owner, in AddInput) (AddResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return AddResult{}, ErrInvalidProduct
	}
	return s.repo.Add(ctx, owner, in.ProductID, in.Quantity)
}

// Update sets a line quantity; zero or less removes the line.
func (s *Service) Update(ctx context.Context, owner shared.Owner, bagID int64, in UpdateInput) error {
	return s.repo.SetQuantity(ctx, owner, bagID, in.Quantity)
}

// Remove deletes a line.
func (s *Service) Remove(ctx context.Context, owner shared.Owner, bagID int64) error {
	return s.repo.Remove(ctx, owner, bagID)
}

// Clear empties the bag.
func (s *Service) Clear(ctx context.Context, owner shared.Owner) error {
	return s.repo.Clear(ctx, owner)
}

// Count returns the number of units in the bag.
func (s *Service) Count(ctx context.Context, owner shared.Owner) (int, error) {
	return s.repo.Count(ctx, owner)
}
