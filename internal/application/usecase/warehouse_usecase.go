package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Bodegas-api/internal/application/dto"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	domaininv "github.com/jhoicas/Bodegas-api/internal/domain/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

// Engine lecturas del motor de traslados que necesita la administración de bodegas.
type Engine interface {
	ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Product, error)
	GetCurrentCapacity(ctx context.Context, warehouseID string) (int, error)
}

// CapacityChecker oráculo de capacidad.
type CapacityChecker interface {
	CheckCapacity(ctx context.Context, warehouseID string, requested int) error
}

// HistoryReader lectura del historial por productos.
type HistoryReader interface {
	GetHistories(ctx context.Context, products []*entity.Product) ([]entity.HistoryView, error)
}

// WarehouseDeps colaboradores de WarehouseUseCase.
type WarehouseDeps struct {
	Repo      repository.WarehouseRepository
	Engine    Engine
	Oracle    CapacityChecker
	Histories HistoryReader
	Publisher inventory.Publisher
	Locker    inventory.Locker
	Logger    *logger.Logger
	Now       func() time.Time
}

// WarehouseUseCase administración de bodegas y controlador de su ciclo de vida.
type WarehouseUseCase struct {
	repo      repository.WarehouseRepository
	engine    Engine
	oracle    CapacityChecker
	histories HistoryReader
	publisher inventory.Publisher
	locker    inventory.Locker
	log       *logger.Logger
	now       func() time.Time
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(deps WarehouseDeps) *WarehouseUseCase {
	uc := &WarehouseUseCase{
		repo:      deps.Repo,
		engine:    deps.Engine,
		oracle:    deps.Oracle,
		histories: deps.Histories,
		publisher: deps.Publisher,
		locker:    deps.Locker,
		log:       deps.Logger,
		now:       deps.Now,
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	uc.log = uc.log.Named("warehouse")
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// Create crea una bodega abierta.
func (uc *WarehouseUseCase) Create(ctx context.Context, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.MaximumCapacity < 1 {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	warehouse := &entity.Warehouse{
		ID:              uuid.New().String(),
		Name:            name,
		Status:          entity.WarehouseStatusOpen,
		MaximumCapacity: in.MaximumCapacity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.repo.Create(ctx, warehouse); err != nil {
		return nil, storeError("crear bodega", err)
	}
	uc.log.WithContext(ctx).Info().
		Str("warehouse_id", warehouse.ID).
		Int("maximum_capacity", warehouse.MaximumCapacity).
		Msg("bodega creada")
	return toWarehouseResponse(warehouse, 0), nil
}

// GetByID obtiene una bodega con su ocupación actual.
func (uc *WarehouseUseCase) GetByID(ctx context.Context, id string) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	used, err := uc.engine.GetCurrentCapacity(ctx, id)
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse, used), nil
}

// Update cambia nombre o capacidad. La capacidad no puede quedar por debajo de lo que hay en tienda.
func (uc *WarehouseUseCase) Update(ctx context.Context, id string, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	unlock, err := uc.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	warehouse, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	used, err := uc.engine.GetCurrentCapacity(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		warehouse.Name = name
	}
	if in.MaximumCapacity != nil {
		if *in.MaximumCapacity < 1 {
			return nil, domain.ErrInvalidInput
		}
		// la nueva capacidad debe alojar lo que ya está en tienda
		if err := domaininv.CheckCapacity(id, *in.MaximumCapacity, 0, used); err != nil {
			return nil, err
		}
		warehouse.MaximumCapacity = *in.MaximumCapacity
	}
	warehouse.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, warehouse); err != nil {
		return nil, storeError("actualizar bodega", err)
	}
	return toWarehouseResponse(warehouse, used), nil
}

// List bodegas con ocupación y capacidad disponible calculadas al consultar.
func (uc *WarehouseUseCase) List(ctx context.Context) (*dto.WarehouseListResponse, error) {
	list, err := uc.repo.ListWithCapacity(ctx)
	if err != nil {
		return nil, domain.Persistence("listar bodegas", err)
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, c := range list {
		items = append(items, dto.NewWarehouseResponse(c))
	}
	return &dto.WarehouseListResponse{Items: items}, nil
}

// Show bodega con sus productos en tienda y el historial de cada uno.
func (uc *WarehouseUseCase) Show(ctx context.Context, id string) (*dto.WarehouseDetailResponse, error) {
	warehouse, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := uc.engine.ListByWarehouse(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := uc.histories.GetHistories(ctx, products)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[string][]dto.HistoryResponse, len(products))
	for _, v := range views {
		if v.ProductID == nil {
			continue
		}
		byProduct[*v.ProductID] = append(byProduct[*v.ProductID], dto.NewHistoryResponse(v))
	}

	items := make([]dto.ProductWithHistory, 0, len(products))
	for _, p := range products {
		h := byProduct[p.ID]
		if h == nil {
			h = []dto.HistoryResponse{}
		}
		items = append(items, dto.ProductWithHistory{ProductResponse: dto.NewProductResponse(p), Histories: h})
	}
	return &dto.WarehouseDetailResponse{
		Warehouse: *toWarehouseResponse(warehouse, len(products)),
		Products:  items,
	}, nil
}

// ChangeStatus aplica la máquina de estados de la bodega. Al cerrar exige una bodega destino
// abierta con capacidad para todo lo que hay en tienda; si no alcanza el estado no cambia.
// Los productos se mueven después, de forma asíncrona, al publicar el pedido de traslado por lotes.
func (uc *WarehouseUseCase) ChangeStatus(ctx context.Context, id string, in dto.ChangeStatusRequest) (*dto.WarehouseResponse, error) {
	if !entity.ValidWarehouseStatus(in.Status) {
		return nil, domain.ErrInvalidInput
	}
	unlock, err := uc.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	warehouse, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(warehouse.Status, in.Status) {
		return nil, domain.ErrInvalidTransition
	}

	closing := in.Status != entity.WarehouseStatusOpen
	var products []*entity.Product
	if closing {
		products, err = uc.checkClosure(ctx, warehouse, in.TransferWarehouseID)
		if err != nil {
			return nil, err
		}
	}

	from := warehouse.Status
	warehouse.Status = in.Status
	warehouse.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, warehouse); err != nil {
		return nil, storeError("cambiar estado de bodega", err)
	}

	if closing {
		uc.publisher.Publish(ctx, entity.TopicBatchTransferRequested, entity.BatchTransferRequested{
			FromWarehouseID: warehouse.ID,
			ToWarehouseID:   in.TransferWarehouseID,
		})
	}
	uc.log.WithContext(ctx).Info().
		Str("warehouse_id", warehouse.ID).
		Str("from", from).
		Str("to", in.Status).
		Str("transfer_warehouse_id", in.TransferWarehouseID).
		Int("products", len(products)).
		Msg("estado de bodega cambiado")

	used, err := uc.engine.GetCurrentCapacity(ctx, id)
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse, used), nil
}

// checkClosure valida la bodega destino y su capacidad para los productos en tienda de source.
func (uc *WarehouseUseCase) checkClosure(ctx context.Context, source *entity.Warehouse, targetID string) ([]*entity.Product, error) {
	if targetID == "" || targetID == source.ID {
		return nil, domain.ErrInvalidInput
	}
	target, err := uc.get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !target.IsOpen() {
		return nil, domain.ErrWarehouseClosed
	}
	products, err := uc.engine.ListByWarehouse(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	if err := uc.oracle.CheckCapacity(ctx, target.ID, len(products)); err != nil {
		uc.log.WithContext(ctx).Warn().
			Err(err).
			Str("warehouse_id", source.ID).
			Str("transfer_warehouse_id", target.ID).
			Msg("cierre rechazado por capacidad")
		return nil, err
	}
	return products, nil
}

func (uc *WarehouseUseCase) get(ctx context.Context, id string) (*entity.Warehouse, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	warehouse, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("obtener bodega", err)
	}
	if warehouse == nil {
		return nil, domain.ErrNotFound
	}
	return warehouse, nil
}

// storeError deja pasar los errores de dominio del repositorio y envuelve el resto.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrDuplicate) || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return domain.Persistence(op, err)
}

func toWarehouseResponse(w *entity.Warehouse, used int) *dto.WarehouseResponse {
	resp := dto.NewWarehouseResponse(entity.WarehouseCapacity{
		Warehouse:           w,
		CapacityUtilization: used,
		AvailableCapacity:   domaininv.Available(w.MaximumCapacity, used),
	})
	return &resp
}
