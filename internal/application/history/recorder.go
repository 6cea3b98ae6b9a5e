package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

// Bus suscripción al bus de eventos interno.
type Bus interface {
	Subscribe(topic, name string, handler func(ctx context.Context, payload any) error) error
}

// Engine operaciones del motor de traslados que usa el recorder al cerrar una bodega.
type Engine interface {
	ListByWarehouse(ctx context.Context, warehouseID string) ([]*entity.Product, error)
	TransferBatch(ctx context.Context, products []*entity.Product, targetWarehouseID string) ([]*entity.Product, error)
}

// Metrics observa la escritura del historial y los cierres que no pudieron vaciarse. nil = sin métricas.
type Metrics interface {
	AuditRecorded(kind string)
	AuditFailed(kind string)
	ClosureStranded(warehouseID string)
}

const (
	defaultBatchRetries       = 5
	defaultBatchRetryInterval = 200 * time.Millisecond
)

// RecorderDeps colaboradores del recorder. BatchRetries y BatchRetryInterval acotan los
// reintentos del traslado por cierre; cero usa los valores por defecto.
type RecorderDeps struct {
	Histories          repository.HistoryRepository
	Warehouses         repository.WarehouseRepository
	Engine             Engine
	Metrics            Metrics
	Logger             *logger.Logger
	Now                func() time.Time
	BatchRetries       int
	BatchRetryInterval time.Duration
}

// Recorder convierte eventos de movimiento en registros de historial y ejecuta los traslados
// por lotes pedidos al cerrar una bodega.
type Recorder struct {
	histories  repository.HistoryRepository
	warehouses repository.WarehouseRepository
	engine     Engine
	metrics    Metrics
	log        *logger.Logger
	now        func() time.Time

	batchRetries       int
	batchRetryInterval time.Duration
}

// NewRecorder construye el recorder.
func NewRecorder(deps RecorderDeps) *Recorder {
	r := &Recorder{
		histories:  deps.Histories,
		warehouses: deps.Warehouses,
		engine:     deps.Engine,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		now:        deps.Now,

		batchRetries:       deps.BatchRetries,
		batchRetryInterval: deps.BatchRetryInterval,
	}
	if r.batchRetries <= 0 {
		r.batchRetries = defaultBatchRetries
	}
	if r.batchRetryInterval <= 0 {
		r.batchRetryInterval = defaultBatchRetryInterval
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	r.log = r.log.Named("history")
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Subscribe registra los handlers una sola vez al arrancar; no hay baja.
func (r *Recorder) Subscribe(bus Bus) error {
	if err := bus.Subscribe(entity.TopicProductMovement, "history.movement", func(ctx context.Context, payload any) error {
		event, ok := payload.(entity.MovementEvent)
		if !ok {
			return fmt.Errorf("payload %T inesperado en %s", payload, entity.TopicProductMovement)
		}
		return r.HandleMovement(ctx, event)
	}); err != nil {
		return err
	}
	return bus.Subscribe(entity.TopicBatchTransferRequested, "history.batch_transfer", func(ctx context.Context, payload any) error {
		event, ok := payload.(entity.BatchTransferRequested)
		if !ok {
			return fmt.Errorf("payload %T inesperado en %s", payload, entity.TopicBatchTransferRequested)
		}
		return r.HandleBatchTransfer(ctx, event)
	})
}

// HandleMovement persiste el evento. El error solo llega al bus, que lo registra;
// el movimiento ya está confirmado.
func (r *Recorder) HandleMovement(ctx context.Context, event entity.MovementEvent) error {
	h := &entity.History{
		ID:          uuid.New().String(),
		Kind:        event.Kind,
		WarehouseID: event.WarehouseID,
		CreatedAt:   event.OccurredAt,
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = r.now()
	}
	if event.Product != nil {
		id := event.Product.ID
		h.ProductID = &id
		if h.WarehouseID == "" {
			h.WarehouseID = event.Product.WarehouseID
		}
	}
	if event.Kind == entity.MovementTransferred {
		h.Details = entity.HistoryDetails{From: event.From, To: event.To}
		if h.WarehouseID == "" {
			h.WarehouseID = event.To
		}
	}

	if err := r.histories.Create(ctx, h); err != nil {
		r.observeFailure(event.Kind)
		return domain.Persistence("registrar historial", err)
	}
	if r.metrics != nil {
		r.metrics.AuditRecorded(event.Kind)
	}
	return nil
}

// HandleBatchTransfer traslada los productos en tienda de la bodega cerrada a la destino.
// La capacidad no queda reservada entre el cierre y este traslado: si el destino se llenó
// entretanto se reintenta con espera exponencial. Agotados los reintentos la bodega queda
// cerrada con sus productos, se registra en error y se cuenta en ClosureStranded.
func (r *Recorder) HandleBatchTransfer(ctx context.Context, event entity.BatchTransferRequested) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.batchRetryInterval
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.batchRetries)), ctx)

	attempt := 0
	var moved []*entity.Product
	err := backoff.Retry(func() error {
		attempt++
		products, err := r.engine.ListByWarehouse(ctx, event.FromWarehouseID)
		if err != nil {
			return fmt.Errorf("listar productos de %s: %w", event.FromWarehouseID, err)
		}
		moved, err = r.engine.TransferBatch(ctx, products, event.ToWarehouseID)
		if err == nil {
			return nil
		}
		if !retryableClosure(err) {
			return backoff.Permanent(err)
		}
		r.log.WithContext(ctx).Warn().
			Err(err).
			Str("from", event.FromWarehouseID).
			Str("to", event.ToWarehouseID).
			Int("attempt", attempt).
			Msg("traslado por cierre rechazado, se reintenta")
		return err
	}, retry)
	if err != nil {
		if r.metrics != nil {
			r.metrics.ClosureStranded(event.FromWarehouseID)
		}
		r.log.WithContext(ctx).Error().
			Err(err).
			Str("from", event.FromWarehouseID).
			Str("to", event.ToWarehouseID).
			Int("attempts", attempt).
			Msg("bodega cerrada con productos sin trasladar")
		return fmt.Errorf("traslado por cierre %s -> %s: %w", event.FromWarehouseID, event.ToWarehouseID, err)
	}
	r.log.WithContext(ctx).Info().
		Str("from", event.FromWarehouseID).
		Str("to", event.ToWarehouseID).
		Int("count", len(moved)).
		Msg("traslado por cierre completado")
	return nil
}

// retryableClosure errores que pueden desaparecer solos: espacio liberado por un envío,
// un producto movido entretanto o un fallo del almacén.
func retryableClosure(err error) bool {
	return errors.Is(err, domain.ErrCapacityExceeded) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrPersistence)
}

// GetHistories historial de los productos, del más reciente al más antiguo.
func (r *Recorder) GetHistories(ctx context.Context, products []*entity.Product) ([]entity.HistoryView, error) {
	if len(products) == 0 {
		return []entity.HistoryView{}, nil
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return r.find(ctx, repository.HistoryFilter{ProductIDs: ids})
}

// GetHistoriesByWarehouse historial donde la bodega es dueña del movimiento o extremo de un traslado.
func (r *Recorder) GetHistoriesByWarehouse(ctx context.Context, warehouseID string) ([]entity.HistoryView, error) {
	if warehouseID == "" {
		return nil, domain.ErrInvalidInput
	}
	return r.find(ctx, repository.HistoryFilter{WarehouseID: warehouseID})
}

func (r *Recorder) find(ctx context.Context, filter repository.HistoryFilter) ([]entity.HistoryView, error) {
	records, err := r.histories.Find(ctx, filter)
	if err != nil {
		return nil, domain.Persistence("leer historial", err)
	}
	resolve := r.resolver()
	views := make([]entity.HistoryView, 0, len(records))
	for _, h := range records {
		v := entity.HistoryView{History: *h}
		if h.Kind == entity.MovementTransferred {
			if v.From, err = resolve(ctx, h.Details.From); err != nil {
				return nil, err
			}
			if v.To, err = resolve(ctx, h.Details.To); err != nil {
				return nil, err
			}
		}
		views = append(views, v)
	}
	return views, nil
}

// resolver resuelve ids de bodega con caché por consulta. Una bodega inexistente
// se devuelve como referencia Missing en lugar de fallar el listado.
func (r *Recorder) resolver() func(ctx context.Context, id string) (*entity.WarehouseRef, error) {
	cache := make(map[string]*entity.WarehouseRef)
	return func(ctx context.Context, id string) (*entity.WarehouseRef, error) {
		if id == "" {
			return nil, nil
		}
		if ref, ok := cache[id]; ok {
			return ref, nil
		}
		w, err := r.warehouses.GetByID(ctx, id)
		if err != nil {
			return nil, domain.Persistence("resolver bodega", err)
		}
		ref := &entity.WarehouseRef{ID: id, Missing: w == nil}
		if w != nil {
			ref.Name = w.Name
		}
		cache[id] = ref
		return ref, nil
	}
}

func (r *Recorder) observeFailure(kind string) {
	if r.metrics != nil {
		r.metrics.AuditFailed(kind)
	}
}
