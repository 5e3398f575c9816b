package catalog

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/invoicing/internal/domain"
	"github.com/Pesokrava/invoicing/internal/pkg/logger"
	"github.com/Pesokrava/invoicing/internal/repository/cache"
	"github.com/Pesokrava/invoicing/internal/repository/memory"
)

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepository) ListBelowReorderLevel(ctx context.Context) ([]*domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Retire(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCache records invalidations
type MockCache struct {
	cache.NopCache
	invalidated []string
}

func (m *MockCache) InvalidateProduct(ctx context.Context, productID string) error {
	m.invalidated = append(m.invalidated, productID)
	return nil
}

func newWidget() *domain.Product {
	return &domain.Product{
		ID:             "SKU-1",
		Name:           "Widget",
		Price:          decimal.NewFromInt(50),
		QuantityOnHand: 5,
		ReorderLevel:   domain.DefaultReorderLevel,
	}
}

func newMemoryService(t *testing.T) *Service {
	t.Helper()
	return NewService(memory.NewStore().Products(), cache.NopCache{}, logger.New("test"))
}

func TestService_RegisterProduct_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	c := &MockCache{}
	service := NewService(mockRepo, c, logger.New("test"))

	product := newWidget()
	mockRepo.On("Create", mock.Anything, product).Return(nil)

	err := service.RegisterProduct(context.Background(), product)

	assert.NoError(t, err)
	assert.Equal(t, []string{"SKU-1"}, c.invalidated)
	mockRepo.AssertExpectations(t)
}

func TestService_RegisterProduct_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.Product)
	}{
		{name: "missing name", mutate: func(p *domain.Product) { p.Name = "" }},
		{name: "missing id", mutate: func(p *domain.Product) { p.ID = "" }},
		{name: "bad sku", mutate: func(p *domain.Product) { p.ID = "has space" }},
		{name: "negative price", mutate: func(p *domain.Product) { p.Price = decimal.NewFromInt(-1) }},
		{name: "negative reorder level", mutate: func(p *domain.Product) { p.ReorderLevel = -1 }},
		{name: "negative quantity", mutate: func(p *domain.Product) { p.QuantityOnHand = -1 }},
		{name: "bad rule", mutate: func(p *domain.Product) {
			p.DiscountRules = domain.DiscountRules{{Kind: domain.DiscountBulk, Rate: decimal.NewFromInt(10)}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			service := NewService(mockRepo, cache.NopCache{}, logger.New("test"))

			product := newWidget()
			tt.mutate(product)

			err := service.RegisterProduct(context.Background(), product)

			assert.ErrorIs(t, err, domain.ErrValidation)
			mockRepo.AssertNotCalled(t, "Create")
		})
	}
}

func TestService_RegisterProduct_Duplicate(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()

	require.NoError(t, service.RegisterProduct(ctx, newWidget()))
	err := service.RegisterProduct(ctx, newWidget())

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestService_GetByID_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, cache.NopCache{}, logger.New("test"))

	mockRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	product, err := service.GetByID(context.Background(), "missing")

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestService_List_ClampsPagination(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, cache.NopCache{}, logger.New("test"))

	expected := domain.ProductFilter{Category: "tools", Limit: 20, Offset: 0}
	mockRepo.On("List", mock.Anything, expected).Return([]*domain.Product{newWidget()}, nil)
	mockRepo.On("Count", mock.Anything, expected).Return(1, nil)

	products, total, err := service.List(context.Background(), domain.ProductFilter{Category: "tools", Limit: 1000, Offset: -5})

	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, total)
	mockRepo.AssertExpectations(t)
}

func TestService_AdjustStock(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()
	require.NoError(t, service.RegisterProduct(ctx, newWidget()))

	product, err := service.AdjustStock(ctx, "SKU-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 15, product.QuantityOnHand)

	_, err = service.AdjustStock(ctx, "SKU-1", -16)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	product, err = service.GetByID(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 15, product.QuantityOnHand, "rejected adjustments leave stock untouched")

	_, err = service.AdjustStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_StockNeverNegative(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()
	require.NoError(t, service.RegisterProduct(ctx, newWidget()))

	deltas := []int{-3, 4, -7, -1, 2, -10, 5, -5, -1}
	expected := 5
	for _, delta := range deltas {
		product, err := service.AdjustStock(ctx, "SKU-1", delta)
		if expected+delta < 0 {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			continue
		}
		require.NoError(t, err)
		expected += delta
		assert.Equal(t, expected, product.QuantityOnHand)
		assert.GreaterOrEqual(t, product.QuantityOnHand, 0)
	}
}

func TestService_IsBelowReorderLevel(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()

	product := newWidget()
	product.ReorderLevel = 5
	require.NoError(t, service.RegisterProduct(ctx, product))

	below, err := service.IsBelowReorderLevel(ctx, "SKU-1")
	require.NoError(t, err)
	assert.False(t, below, "stock equal to the reorder level is not below it")

	_, err = service.AdjustStock(ctx, "SKU-1", -1)
	require.NoError(t, err)

	below, err = service.IsBelowReorderLevel(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, below)

	low, err := service.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "SKU-1", low[0].ID)
}

func TestService_UpdatePriceAndRules(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()
	require.NoError(t, service.RegisterProduct(ctx, newWidget()))

	product, err := service.UpdatePrice(ctx, "SKU-1", decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.Equal(t, "60", product.Price.String())
	assert.Equal(t, 2, product.Version)

	_, err = service.UpdatePrice(ctx, "SKU-1", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	pct, err := domain.NewPercentageDiscount(decimal.NewFromInt(10))
	require.NoError(t, err)
	product, err = service.SetDiscountRules(ctx, "SKU-1", domain.DiscountRules{pct})
	require.NoError(t, err)
	require.Len(t, product.DiscountRules, 1)

	_, err = service.SetDiscountRules(ctx, "SKU-1", domain.DiscountRules{{Kind: "mystery"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	product, err = service.SetDiscountRules(ctx, "SKU-1", nil)
	require.NoError(t, err)
	assert.Empty(t, product.DiscountRules)
}

func TestService_UpdateDetails(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()
	require.NoError(t, service.RegisterProduct(ctx, newWidget()))

	name := "Gadget"
	level := 2
	product, err := service.UpdateDetails(ctx, "SKU-1", Details{Name: &name, ReorderLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, "Gadget", product.Name)
	assert.Equal(t, 2, product.ReorderLevel)
	assert.Equal(t, 5, product.QuantityOnHand)

	empty := ""
	_, err = service.UpdateDetails(ctx, "SKU-1", Details{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_Retire(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()
	require.NoError(t, service.RegisterProduct(ctx, newWidget()))

	require.NoError(t, service.Retire(ctx, "SKU-1"))
	assert.ErrorIs(t, service.Retire(ctx, "SKU-1"), domain.ErrNotFound)

	_, err := service.UpdatePrice(ctx, "SKU-1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	product, err := service.AdjustStock(ctx, "SKU-1", 1)
	require.NoError(t, err, "retired products still take stock back")
	assert.Equal(t, 6, product.QuantityOnHand)
}

func TestService_RepositoryErrorPropagates(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, cache.NopCache{}, logger.New("test"))
	boom := errors.New("connection reset")

	mockRepo.On("AdjustStock", mock.Anything, "SKU-1", -1).Return(nil, boom)

	_, err := service.AdjustStock(context.Background(), "SKU-1", -1)

	assert.ErrorIs(t, err, boom)
	mockRepo.AssertExpectations(t)
}

func TestService_AdjustStock_DeltaOutOfRange(t *testing.T) {
	repo := new(MockProductRepository)
	service := NewService(repo, cache.NopCache{}, logger.New("test"))

	_, err := service.AdjustStock(context.Background(), "SKU-1", math.MaxInt)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.AdjustStock(context.Background(), "SKU-1", -domain.MaxQuantity-1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	repo.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_RegisterProduct_RejectsUnstorablePrice(t *testing.T) {
	service := newMemoryService(t)
	ctx := context.Background()

	p := newWidget()
	p.Price = decimal.RequireFromString("1.23456")
	assert.ErrorIs(t, service.RegisterProduct(ctx, p), domain.ErrValidation)

	p = newWidget()
	p.Price = decimal.RequireFromString("1.2345")
	require.NoError(t, service.RegisterProduct(ctx, p))

	_, err := service.UpdatePrice(ctx, p.ID, decimal.RequireFromString("0.00001"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := service.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.2345", got.Price.String())
}
