// Package memory implementa los repositorios del dominio en memoria de proceso.
// Se usa con STORE_DRIVER=memory y como doble de pruebas de los casos de uso.
package memory

import (
	"context"
	"sync"

	"golang.org/x/text/cases"

	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
)

// Store estado compartido por los repositorios; un solo RWMutex protege todo.
type Store struct {
	mu sync.RWMutex

	warehouses     map[string]*entity.Warehouse
	warehouseOrder []string
	names          map[string]string // nombre normalizado -> id

	products     map[string]*entity.Product
	productOrder []string

	histories []*entity.History

	catalog      map[string]*entity.CatalogItem
	catalogOrder []string
	catalogKeys  map[int]string // CatalogID -> id

	fold cases.Caser
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		warehouses:  make(map[string]*entity.Warehouse),
		names:       make(map[string]string),
		products:    make(map[string]*entity.Product),
		catalog:     make(map[string]*entity.CatalogItem),
		catalogKeys: make(map[int]string),
		fold:        cases.Fold(),
	}
}

// Warehouses repositorio de bodegas sobre este almacén.
func (s *Store) Warehouses() *WarehouseRepo { return &WarehouseRepo{s: s} }

// Products repositorio de productos sobre este almacén.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Histories repositorio de historial sobre este almacén.
func (s *Store) Histories() *HistoryRepo { return &HistoryRepo{s: s} }

// Catalog repositorio del catálogo sobre este almacén.
func (s *Store) Catalog() *CatalogRepo { return &CatalogRepo{s: s} }

// TxRunner ejecuta la función sobre el repositorio compartido anotando cada escritura;
// si la función falla las deshace en orden inverso.
type TxRunner struct {
	products *ProductRepo
}

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{products: s.Products()}
}

// Run llama fn y revierte sus escrituras si devuelve error.
func (r *TxRunner) Run(_ context.Context, fn func(products repository.ProductRepository) error) error {
	tx := &txProductRepo{ProductRepo: r.products}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type txProductRepo struct {
	*ProductRepo
	undo []func(s *Store)
}

func (t *txProductRepo) Create(ctx context.Context, p *entity.Product) error {
	if err := t.ProductRepo.Create(ctx, p); err != nil {
		return err
	}
	id := p.ID
	t.undo = append(t.undo, func(s *Store) {
		delete(s.products, id)
		for i, pid := range s.productOrder {
			if pid == id {
				s.productOrder = append(s.productOrder[:i], s.productOrder[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (t *txProductRepo) UpdateWarehouse(ctx context.Context, productID, fromWarehouseID, toWarehouseID string) error {
	if err := t.ProductRepo.UpdateWarehouse(ctx, productID, fromWarehouseID, toWarehouseID); err != nil {
		return err
	}
	t.undo = append(t.undo, func(s *Store) {
		if p, ok := s.products[productID]; ok {
			p.WarehouseID = fromWarehouseID
		}
	})
	return nil
}

func (t *txProductRepo) MarkSent(ctx context.Context, productID, warehouseID string) error {
	if err := t.ProductRepo.MarkSent(ctx, productID, warehouseID); err != nil {
		return err
	}
	t.undo = append(t.undo, func(s *Store) {
		if p, ok := s.products[productID]; ok {
			p.Status = entity.ProductStatusInStore
		}
	})
	return nil
}

func (t *txProductRepo) rollback() {
	s := t.ProductRepo.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i](s)
	}
}

func (s *Store) normalize(name string) string {
	return s.fold.String(name)
}
