package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/invoicing/internal/pkg/validator"
)

// Service handles customer business logic
type Service struct {
	repo     domain.CustomerRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates a new customer service
func NewService(repo domain.CustomerRepository, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: pkgvalidator.Get(),
		logger:   log.Component("customer"),
	}
}

// Create registers a new customer
func (s *Service) Create(ctx context.Context, customer *domain.Customer) error {
	if err := s.validate.Struct(customer); err != nil {
		s.logger.Error("Customer validation failed", err)
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		s.logger.Error("Failed to create customer", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"customer_id": customer.ID,
		"name":        customer.Name,
	}).Info("Customer created successfully")

	return nil
}

// GetByID retrieves a customer by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Customer not found: %s", id)
			return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, id)
		}
		s.logger.Error("Failed to get customer", err)
		return nil, err
	}

	return customer, nil
}

// List retrieves a paginated list of customers
func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Customer, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	customers, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list customers", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count customers", err)
		return nil, 0, err
	}

	return customers, total, nil
}
