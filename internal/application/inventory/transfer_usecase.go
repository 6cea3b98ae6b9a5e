package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

var tracer = otel.Tracer("github.com/jhoicas/Bodegas-api/internal/application/inventory")

// TransferDeps colaboradores del motor de traslados.
type TransferDeps struct {
	TxRunner   TxRunner
	Products   repository.ProductRepository
	Warehouses repository.WarehouseRepository
	Catalog    CatalogReader // solo para CreateFromCatalog
	Locker     Locker
	Publisher  Publisher
	Metrics    Metrics        // opcional
	Logger     *logger.Logger // opcional
	Now        func() time.Time
}

// TransferUseCase motor de traslados con tope de capacidad: llegadas, traslados unitarios y por lotes, envíos.
// Toda mutación que suma unidades a una bodega toma el candado de esa bodega entre el chequeo y la escritura.
type TransferUseCase struct {
	tx         TxRunner
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	catalog    CatalogReader
	oracle     *CapacityOracle
	locker     Locker
	publisher  Publisher
	metrics    Metrics
	log        *logger.Logger
	now        func() time.Time
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(deps TransferDeps) *TransferUseCase {
	uc := &TransferUseCase{
		tx:         deps.TxRunner,
		products:   deps.Products,
		warehouses: deps.Warehouses,
		catalog:    deps.Catalog,
		oracle:     NewCapacityOracle(deps.Warehouses, deps.Products),
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		now:        deps.Now,
	}
	if uc.metrics == nil {
		uc.metrics = nopMetrics{}
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	uc.log = uc.log.Named("transfer")
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// Oracle expone el oráculo de capacidad para el controlador de ciclo de vida.
func (uc *TransferUseCase) Oracle() *CapacityOracle {
	return uc.oracle
}

// Create registra la llegada de una unidad a la bodega. Rechaza con CapacityError si está llena.
func (uc *TransferUseCase) Create(ctx context.Context, payload entity.ProductPayload, warehouseID string) (_ *entity.Product, err error) {
	ctx, span := tracer.Start(ctx, "inventory.Create", trace.WithAttributes(attribute.String("warehouse.id", warehouseID)))
	defer func() { endSpan(span, err) }()

	if warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	unlock, err := uc.locker.Lock(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := uc.openWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if err := uc.gate(ctx, uc.products, w, 1); err != nil {
		return nil, err
	}

	now := uc.now()
	product := &entity.Product{
		ID:          uuid.New().String(),
		WarehouseID: w.ID,
		Status:      entity.ProductStatusInStore,
		CatalogID:   payload.CatalogID,
		Title:       payload.Title,
		Category:    payload.Category,
		Description: payload.Description,
		Image:       payload.Image,
		Price:       payload.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.products.Create(ctx, product); err != nil {
		return nil, domain.Persistence("crear producto", err)
	}

	snapshot := *product
	uc.publish(ctx, entity.MovementEvent{
		Kind:        entity.MovementArrived,
		Product:     &snapshot,
		WarehouseID: w.ID,
		OccurredAt:  now,
	})
	uc.log.WithContext(ctx).Info().
		Str("product_id", product.ID).
		Str("warehouse_id", w.ID).
		Msg("producto recibido")
	return product, nil
}

// CreateMany registra amount llegadas del mismo producto de catálogo, cada una con su propio chequeo.
// Se detiene en el primer rechazo y devuelve las unidades ya creadas junto con el error.
func (uc *TransferUseCase) CreateMany(ctx context.Context, payload entity.ProductPayload, warehouseID string, amount int) ([]*entity.Product, error) {
	if amount < 1 {
		return nil, domain.ErrInvalidInput
	}
	created := make([]*entity.Product, 0, amount)
	for i := 0; i < amount; i++ {
		p, err := uc.Create(ctx, payload, warehouseID)
		if err != nil {
			return created, err
		}
		created = append(created, p)
	}
	return created, nil
}

// CreateFromCatalog recibe en la bodega, por cada ítem de catálogo (id -> cantidad), esa cantidad
// de unidades con los datos del ítem. Valida la bodega y resuelve todos los ítems antes de crear;
// después cada unidad pasa su propio chequeo y ante un rechazo se devuelven las ya creadas.
func (uc *TransferUseCase) CreateFromCatalog(ctx context.Context, warehouseID string, options map[string]int) ([]*entity.Product, error) {
	if warehouseID == "" || len(options) == 0 || uc.catalog == nil {
		return nil, domain.ErrInvalidInput
	}
	ids := make([]string, 0, len(options))
	for id, amount := range options {
		if amount < 1 {
			return nil, domain.ErrInvalidInput
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w, err := uc.warehouses.GetByID(ctx, warehouseID)
	if err != nil {
		return nil, domain.Persistence("obtener bodega", err)
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	items := make([]*entity.CatalogItem, 0, len(ids))
	for _, id := range ids {
		item, err := uc.catalog.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	var created []*entity.Product
	for i, item := range items {
		products, err := uc.CreateMany(ctx, item.Payload(), warehouseID, options[ids[i]])
		created = append(created, products...)
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

// TransferOne reasigna un producto a la bodega destino si tiene una unidad libre.
func (uc *TransferUseCase) TransferOne(ctx context.Context, productID, targetWarehouseID string) (_ *entity.Product, err error) {
	ctx, span := tracer.Start(ctx, "inventory.TransferOne", trace.WithAttributes(
		attribute.String("product.id", productID),
		attribute.String("warehouse.target", targetWarehouseID),
	))
	defer func() { endSpan(span, err) }()

	if productID == "" || targetWarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	unlock, err := uc.locker.Lock(ctx, targetWarehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	product, err := uc.movableProduct(ctx, uc.products, productID, targetWarehouseID)
	if err != nil {
		return nil, err
	}
	target, err := uc.openWarehouse(ctx, targetWarehouseID)
	if err != nil {
		return nil, err
	}
	if err := uc.gate(ctx, uc.products, target, 1); err != nil {
		return nil, err
	}

	// el origen no está bajo candado: la escritura falla si el producto se envió o movió entretanto
	from := product.WarehouseID
	if err := uc.products.UpdateWarehouse(ctx, product.ID, from, target.ID); err != nil {
		return nil, uc.writeErr(ctx, uc.products, "trasladar producto", product.ID, err)
	}
	product.WarehouseID = target.ID
	product.UpdatedAt = uc.now()

	uc.publish(ctx, transferredEvent(product, from, target.ID, product.UpdatedAt))
	uc.log.WithContext(ctx).Info().
		Str("product_id", product.ID).
		Str("from", from).
		Str("to", target.ID).
		Msg("producto trasladado")
	return product, nil
}

// TransferBatch traslada todos los productos a la bodega destino con un único chequeo por el total.
// Si el chequeo rechaza no se modifica ningún producto; los eventos salen en el orden de mutación.
func (uc *TransferUseCase) TransferBatch(ctx context.Context, products []*entity.Product, targetWarehouseID string) (_ []*entity.Product, err error) {
	ctx, span := tracer.Start(ctx, "inventory.TransferBatch", trace.WithAttributes(
		attribute.String("warehouse.target", targetWarehouseID),
		attribute.Int("batch.size", len(products)),
	))
	defer func() { endSpan(span, err) }()

	if targetWarehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(products) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p == nil || p.ID == "" {
			return nil, domain.ErrInvalidInput
		}
		if _, dup := seen[p.ID]; dup {
			return nil, domain.ErrInvalidInput
		}
		seen[p.ID] = struct{}{}
	}

	unlock, err := uc.locker.Lock(ctx, targetWarehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target, err := uc.openWarehouse(ctx, targetWarehouseID)
	if err != nil {
		return nil, err
	}

	moved := make([]*entity.Product, 0, len(products))
	origins := make([]string, 0, len(products))
	now := uc.now()
	err = uc.tx.Run(ctx, func(txProducts repository.ProductRepository) error {
		// lecturas y chequeo antes de cualquier escritura
		for _, p := range products {
			current, err := uc.movableProduct(ctx, txProducts, p.ID, target.ID)
			if err != nil {
				return err
			}
			moved = append(moved, current)
			origins = append(origins, current.WarehouseID)
		}
		if err := uc.gate(ctx, txProducts, target, len(moved)); err != nil {
			return err
		}
		for i, p := range moved {
			if err := txProducts.UpdateWarehouse(ctx, p.ID, origins[i], target.ID); err != nil {
				return uc.writeErr(ctx, txProducts, "trasladar lote", p.ID, err)
			}
			p.WarehouseID = target.ID
			p.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, p := range moved {
		uc.publish(ctx, transferredEvent(p, origins[i], target.ID, now))
	}
	uc.log.WithContext(ctx).Info().
		Str("to", target.ID).
		Int("count", len(moved)).
		Msg("lote trasladado")
	return moved, nil
}

// TransferSimilar traslada hasta amount productos en tienda con el mismo id de catálogo que productID
// y en su misma bodega.
func (uc *TransferUseCase) TransferSimilar(ctx context.Context, productID string, amount int, targetWarehouseID string) ([]*entity.Product, error) {
	if amount < 1 {
		return nil, domain.ErrInvalidInput
	}
	ref, err := uc.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	similar, err := uc.similar(ctx, ref, amount)
	if err != nil {
		return nil, err
	}
	if len(similar) == 0 {
		return nil, domain.ErrNotFound
	}
	return uc.TransferBatch(ctx, similar, targetWarehouseID)
}

// Send marca un producto como enviado; deja de contar para la capacidad de inmediato.
func (uc *TransferUseCase) Send(ctx context.Context, productID string) (_ *entity.Product, err error) {
	ctx, span := tracer.Start(ctx, "inventory.Send", trace.WithAttributes(attribute.String("product.id", productID)))
	defer func() { endSpan(span, err) }()

	product, err := uc.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	unlock, err := uc.locker.Lock(ctx, product.WarehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// releer bajo el candado: pudo trasladarse o enviarse mientras tanto
	current, err := uc.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if current.WarehouseID != product.WarehouseID {
		return nil, domain.ErrConflict
	}
	if !current.InStore() {
		return nil, domain.ErrProductSent
	}
	if err := uc.markSent(ctx, uc.products, current); err != nil {
		return nil, err
	}
	uc.publish(ctx, sentEvent(current))
	return current, nil
}

// SendByWarehouse envía hasta limit productos en tienda con el id de catálogo y la bodega del template.
func (uc *TransferUseCase) SendByWarehouse(ctx context.Context, template *entity.Product, limit int) (_ []*entity.Product, err error) {
	if template == nil || template.WarehouseID == "" || limit < 1 {
		return nil, domain.ErrInvalidInput
	}
	ctx, span := tracer.Start(ctx, "inventory.SendByWarehouse", trace.WithAttributes(
		attribute.String("warehouse.id", template.WarehouseID),
		attribute.Int("catalog.id", template.CatalogID),
		attribute.Int("limit", limit),
	))
	defer func() { endSpan(span, err) }()

	unlock, err := uc.locker.Lock(ctx, template.WarehouseID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var sent []*entity.Product
	err = uc.tx.Run(ctx, func(txProducts repository.ProductRepository) error {
		found, err := uc.similarIn(ctx, txProducts, template, limit)
		if err != nil {
			return err
		}
		sent = found
		for _, p := range sent {
			if err := uc.markSent(ctx, txProducts, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range sent {
		uc.publish(ctx, sentEvent(p))
	}
	uc.log.WithContext(ctx).Info().
		Str("warehouse_id", template.WarehouseID).
		Int("catalog_id", template.CatalogID).
		Int("count", len(sent)).
		Msg("productos enviados")
	return sent, nil
}

// SendCart envía por cada entrada (productID -> cantidad) hasta esa cantidad de productos similares.
// Las entradas se procesan en orden de id; ante un error se devuelve lo ya enviado.
func (uc *TransferUseCase) SendCart(ctx context.Context, cart map[string]int) ([]*entity.Product, error) {
	if len(cart) == 0 {
		return nil, domain.ErrInvalidInput
	}
	ids := make([]string, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var all []*entity.Product
	for _, id := range ids {
		ref, err := uc.Get(ctx, id)
		if err != nil {
			return all, err
		}
		sent, err := uc.SendByWarehouse(ctx, ref, cart[id])
		if err != nil {
			return all, err
		}
		all = append(all, sent...)
	}
	return all, nil
}

// GetCurrentCapacity cantidad de productos en tienda de la bodega (mismo predicado que el oráculo).
func (uc *TransferUseCase) GetCurrentCapacity(ctx context.Context, warehouseID string) (int, error) {
	return uc.oracle.CountInStore(ctx, warehouseID)
}

// ListByWarehouse productos en tienda de la bodega en orden de llegada.
func (uc *TransferUseCase) ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Product, error) {
	return uc.list(ctx, repository.ProductFilter{WarehouseID: warehouseID, Status: entity.ProductStatusInStore})
}

// ListByWarehouseAll productos de la bodega en cualquier estado.
func (uc *TransferUseCase) ListByWarehouseAll(ctx context.Context, warehouseID string) ([]*entity.Product, error) {
	return uc.list(ctx, repository.ProductFilter{WarehouseID: warehouseID})
}

// Get obtiene un producto por id.
func (uc *TransferUseCase) Get(ctx context.Context, productID string) (*entity.Product, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, domain.Persistence("obtener producto", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (uc *TransferUseCase) list(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	list, err := uc.products.Find(ctx, filter, 0)
	if err != nil {
		return nil, domain.Persistence("listar productos", err)
	}
	return list, nil
}

func (uc *TransferUseCase) similar(ctx context.Context, ref *entity.Product, limit int) ([]*entity.Product, error) {
	return uc.similarIn(ctx, uc.products, ref, limit)
}

func (uc *TransferUseCase) similarIn(ctx context.Context, products repository.ProductRepository, ref *entity.Product, limit int) ([]*entity.Product, error) {
	catalogID := ref.CatalogID
	list, err := products.Find(ctx, repository.ProductFilter{
		WarehouseID: ref.WarehouseID,
		Status:      entity.ProductStatusInStore,
		CatalogID:   &catalogID,
	}, limit)
	if err != nil {
		return nil, domain.Persistence("buscar productos similares", err)
	}
	return list, nil
}

// openWarehouse carga la bodega y exige que esté abierta para recibir unidades.
func (uc *TransferUseCase) openWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	w, err := uc.warehouses.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("obtener bodega", err)
	}
	if w == nil {
		return nil, domain.ErrNotFound
	}
	if !w.IsOpen() {
		return nil, domain.ErrWarehouseClosed
	}
	return w, nil
}

// movableProduct carga el producto y valida que pueda ir a targetID.
func (uc *TransferUseCase) movableProduct(ctx context.Context, products repository.ProductRepository, id, targetID string) (*entity.Product, error) {
	p, err := products.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("obtener producto", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if !p.InStore() {
		return nil, domain.ErrProductSent
	}
	if p.WarehouseID == targetID {
		return nil, domain.ErrInvalidInput
	}
	return p, nil
}

func (uc *TransferUseCase) gate(ctx context.Context, products repository.ProductRepository, w *entity.Warehouse, requested int) error {
	err := uc.oracle.check(ctx, products, w, requested)
	if errors.Is(err, domain.ErrCapacityExceeded) {
		uc.metrics.CapacityRejected(w.ID)
		uc.log.WithContext(ctx).Warn().
			Err(err).
			Str("warehouse_id", w.ID).
			Int("requested", requested).
			Msg("capacidad rechazada")
	}
	return err
}

func (uc *TransferUseCase) markSent(ctx context.Context, products repository.ProductRepository, p *entity.Product) error {
	if err := products.MarkSent(ctx, p.ID, p.WarehouseID); err != nil {
		return uc.writeErr(ctx, products, "enviar producto", p.ID, err)
	}
	p.Status = entity.ProductStatusSent
	p.UpdatedAt = uc.now()
	return nil
}

// writeErr traduce el rechazo de una escritura condicional: ErrProductSent si el producto
// ya salió, ErrConflict si cambió de bodega; cualquier otro error es de persistencia.
func (uc *TransferUseCase) writeErr(ctx context.Context, products repository.ProductRepository, op, productID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound
	case !errors.Is(err, domain.ErrConflict):
		return domain.Persistence(op, err)
	}
	if p, gerr := products.GetByID(ctx, productID); gerr == nil && p != nil && !p.InStore() {
		return domain.ErrProductSent
	}
	return domain.ErrConflict
}

func (uc *TransferUseCase) publish(ctx context.Context, event entity.MovementEvent) {
	uc.publisher.Publish(ctx, entity.TopicProductMovement, event)
	uc.metrics.MovementRecorded(event.Kind, 1)
}

func transferredEvent(p *entity.Product, from, to string, at time.Time) entity.MovementEvent {
	snapshot := *p
	return entity.MovementEvent{
		Kind:        entity.MovementTransferred,
		Product:     &snapshot,
		WarehouseID: to,
		From:        from,
		To:          to,
		OccurredAt:  at,
	}
}

func sentEvent(p *entity.Product) entity.MovementEvent {
	snapshot := *p
	return entity.MovementEvent{
		Kind:        entity.MovementSent,
		Product:     &snapshot,
		WarehouseID: p.WarehouseID,
		OccurredAt:  p.UpdatedAt,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
