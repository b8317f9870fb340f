package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	DepartmentSummaries(ctx context.Context) ([]DepartmentSummary, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	DepartmentExists(ctx context.Context, id int64) (bool, error)
	CreateProduct(ctx context.Context, in NewProductInput) (int64, error)
	UpdateProduct(ctx context.Context, id int64, in UpdateProductInput) error
	DeactivateProduct(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached reports after catalog changes.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service coordinates catalog operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	cache    CacheInvalidator
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds Service. audit and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, validate: validator.New()}
}

// Departments lists departments.
func (s *Service) Departments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

// DepartmentSummaries returns the department overview rows.
func (s *Service) DepartmentSummaries(ctx context.Context) ([]DepartmentSummary, error) {
	return s.repo.DepartmentSummaries(ctx)
}

// Products lists active products.
func (s *Service) Products(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// Product returns one active product.
func (s *Service) Product(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	return s.repo.GetProduct(ctx, id)
}

// AddProduct validates and creates a product with its inventory row.
func (s *Service) AddProduct(ctx context.Context, actor shared.Principal, in NewProductInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := s.validate.Struct(in); err != nil {
		return 0, validationError(err)
	}
	if !in.Price.IsPositive() {
		return 0, ErrInvalidPrice
	}
	ok, err := s.repo.DepartmentExists(ctx, in.DepartmentID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnknownDepartment
	}

	id, err := s.repo.CreateProduct(ctx, in)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actor, "product.create", id, map[string]any{"name": in.Name, "barcode": in.Barcode, "price": in.Price.StringFixed(2)})
	s.invalidate(ctx)
	return id, nil
}

// UpdateProduct patches product fields.
func (s *Service) UpdateProduct(ctx context.Context, actor shared.Principal, id int64, in UpdateProductInput) error {
	if in.empty() {
		return ErrNothingToUpdate
	}
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	if in.Price != nil && !in.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if in.DepartmentID != nil {
		ok, err := s.repo.DepartmentExists(ctx, *in.DepartmentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownDepartment
		}
	}
	if err := s.repo.UpdateProduct(ctx, id, in); err != nil {
		return err
	}
	s.record(ctx, actor, "product.update", id, nil)
	s.invalidate(ctx)
	return nil
}

// DeleteProduct soft deletes a product.
func (s *Service) DeleteProduct(ctx context.Context, actor shared.Principal, id int64) error {
	if err := s.repo.DeactivateProduct(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "product.deactivate", id, nil)
	s.invalidate(ctx)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Action:    action,
		Entity:    "product",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
	})
	if err != nil {
		s.logger.Warn("audit product", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return shared.Validation("Missing required field: " + field)
	case "url":
		return shared.Validation("Invalid image URL")
	}
	return shared.Validation("Invalid " + field)
}
