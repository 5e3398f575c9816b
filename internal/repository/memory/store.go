// Package memory keeps products, customers and invoices in process memory,
// optionally mirrored to a JSON file that is rewritten after every mutation.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/invoicing/internal/domain"
)

// Store is the shared state behind the memory repositories.
// A single RWMutex serializes writers, which also makes AdjustStock atomic per product.
type Store struct {
	mu        sync.RWMutex
	path      string
	products  map[string]*domain.Product
	customers map[uuid.UUID]*domain.Customer
	invoices  map[uuid.UUID]*domain.Invoice
	now       func() time.Time
}

type snapshot struct {
	Products  []*domain.Product  `json:"products"`
	Customers []*domain.Customer `json:"customers"`
	Invoices  []*domain.Invoice  `json:"invoices"`
	SavedAt   time.Time          `json:"saved_at"`
}

// NewStore creates a store without file persistence
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*domain.Product),
		customers: make(map[uuid.UUID]*domain.Customer),
		invoices:  make(map[uuid.UUID]*domain.Invoice),
		now:       time.Now,
	}
}

// Open creates a store persisted to path, loading existing state if the file exists
func Open(path string) (*Store, error) {
	s := NewStore()
	s.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode data file %s: %w", path, err)
	}

	for _, p := range snap.Products {
		s.products[p.ID] = p
	}
	for _, c := range snap.Customers {
		s.customers[c.ID] = c
	}
	for _, inv := range snap.Invoices {
		if inv.Items == nil {
			inv.Items = []domain.InvoiceItem{}
		}
		s.invoices[inv.ID] = inv
	}

	return s, nil
}

// Products returns the product repository view of the store
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{store: s}
}

// Customers returns the customer repository view of the store
func (s *Store) Customers() *CustomerRepository {
	return &CustomerRepository{store: s}
}

// Invoices returns the invoice repository view of the store
func (s *Store) Invoices() *InvoiceRepository {
	return &InvoiceRepository{store: s}
}

// commitLocked persists the current state. When saving fails, undo reverts the
// in-memory mutation so memory and file never diverge. Callers hold s.mu.
func (s *Store) commitLocked(undo func()) error {
	if s.path == "" {
		return nil
	}
	if err := s.saveLocked(); err != nil {
		undo()
		return err
	}
	return nil
}

func (s *Store) saveLocked() error {
	snap := snapshot{
		Products:  make([]*domain.Product, 0, len(s.products)),
		Customers: make([]*domain.Customer, 0, len(s.customers)),
		Invoices:  make([]*domain.Invoice, 0, len(s.invoices)),
		SavedAt:   s.now().UTC(),
	}
	for _, p := range s.products {
		snap.Products = append(snap.Products, p)
	}
	for _, c := range s.customers {
		snap.Customers = append(snap.Customers, c)
	}
	for _, inv := range s.invoices {
		snap.Invoices = append(snap.Invoices, inv)
	}
	sort.Slice(snap.Products, func(i, j int) bool { return snap.Products[i].ID < snap.Products[j].ID })
	sort.Slice(snap.Customers, func(i, j int) bool { return snap.Customers[i].ID.String() < snap.Customers[j].ID.String() })
	sort.Slice(snap.Invoices, func(i, j int) bool { return snap.Invoices[i].ID.String() < snap.Invoices[j].ID.String() })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

// paginate applies offset and limit; a zero limit means no limit
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
