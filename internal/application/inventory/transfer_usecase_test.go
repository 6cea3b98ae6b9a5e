package inventory_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodegas-api/internal/application/catalog"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/lock"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/memory"
)

type published struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, payload: payload})
}

func (p *recordingPublisher) movements() []entity.MovementEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []entity.MovementEvent
	for _, e := range p.events {
		if ev, ok := e.payload.(entity.MovementEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

type countingMetrics struct {
	mu         sync.Mutex
	movements  map[string]int
	rejections int
}

func (m *countingMetrics) MovementRecorded(kind string, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.movements == nil {
		m.movements = map[string]int{}
	}
	m.movements[kind] += units
}

func (m *countingMetrics) CapacityRejected(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections++
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	metrics   *countingMetrics
	engine    *inventory.TransferUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	metrics := &countingMetrics{}
	engine := inventory.NewTransferUseCase(inventory.TransferDeps{
		TxRunner:   memory.NewTxRunner(store),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
		Locker:     lock.NewKeyedMutex(),
		Publisher:  pub,
		Metrics:    metrics,
	})
	return &fixture{store: store, publisher: pub, metrics: metrics, engine: engine}
}

func (f *fixture) warehouse(t *testing.T, id string, capacity int) {
	t.Helper()
	f.warehouseWithStatus(t, id, capacity, entity.WarehouseStatusOpen)
}

func (f *fixture) warehouseWithStatus(t *testing.T, id string, capacity int, status string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.store.Warehouses().Create(context.Background(), &entity.Warehouse{
		ID: id, Name: "bodega " + id, Status: status, MaximumCapacity: capacity,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) count(t *testing.T, warehouseID string) int {
	t.Helper()
	n, err := f.engine.GetCurrentCapacity(context.Background(), warehouseID)
	require.NoError(t, err)
	return n
}

func payload(catalogID int) entity.ProductPayload {
	return entity.ProductPayload{
		CatalogID: catalogID,
		Title:     "Camiseta",
		Category:  "ropa",
		Price:     decimal.RequireFromString("19.99"),
	}
}

func TestCreate_LlenaHastaCapacidadYRechaza(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 2)

	p1, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)
	assert.Equal(t, entity.ProductStatusInStore, p1.Status)
	assert.Equal(t, "w1", p1.WarehouseID)

	_, err = f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)

	_, err = f.engine.Create(ctx, payload(1), "w1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))
	var capErr *domain.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "w1", capErr.WarehouseID)
	assert.Equal(t, 1, capErr.Requested)
	assert.Equal(t, 0, capErr.Available)

	assert.Equal(t, 2, f.count(t, "w1"))
	events := f.publisher.movements()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, entity.MovementArrived, ev.Kind)
		assert.Equal(t, "w1", ev.WarehouseID)
	}
	assert.Equal(t, 1, f.metrics.rejections)
}

func TestCreate_BodegaInexistenteOCerrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouseWithStatus(t, "closed", 5, entity.WarehouseStatusTemporaryClosed)

	_, err := f.engine.Create(ctx, payload(1), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.Create(ctx, payload(1), "closed")
	assert.ErrorIs(t, err, domain.ErrWarehouseClosed)

	_, err = f.engine.Create(ctx, payload(1), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.publisher.movements())
}

func TestCreateMany_SeDetieneEnElPrimerRechazo(t *testing.T) {
	f := newFixture(t)
	f.warehouse(t, "w1", 3)

	created, err := f.engine.CreateMany(context.Background(), payload(9), "w1", 5)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Len(t, created, 3)
	assert.Equal(t, 3, f.count(t, "w1"))

	_, err = f.engine.CreateMany(context.Background(), payload(9), "w1", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferOne_ReasignaYPublicaOrigenDestino(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 2)
	f.warehouse(t, "w2", 1)
	p1, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)

	moved, err := f.engine.TransferOne(ctx, p1.ID, "w2")
	require.NoError(t, err)
	assert.Equal(t, "w2", moved.WarehouseID)
	assert.Equal(t, 1, f.count(t, "w1"))
	assert.Equal(t, 1, f.count(t, "w2"))

	events := f.publisher.movements()
	last := events[len(events)-1]
	assert.Equal(t, entity.MovementTransferred, last.Kind)
	assert.Equal(t, "w1", last.From)
	assert.Equal(t, "w2", last.To)
	assert.Equal(t, p1.ID, last.Product.ID)
}

func TestTransferOne_Errores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 5)
	f.warehouse(t, "full", 1)
	f.warehouseWithStatus(t, "closed", 5, entity.WarehouseStatusPermanentlyClosed)
	p1, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, payload(1), "full")
	require.NoError(t, err)

	_, err = f.engine.TransferOne(ctx, "nope", "w1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "producto inexistente")

	_, err = f.engine.TransferOne(ctx, p1.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound, "bodega inexistente")

	_, err = f.engine.TransferOne(ctx, p1.ID, "full")
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = f.engine.TransferOne(ctx, p1.ID, "closed")
	assert.ErrorIs(t, err, domain.ErrWarehouseClosed)

	_, err = f.engine.TransferOne(ctx, p1.ID, "w1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "misma bodega")

	current, err := f.engine.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "w1", current.WarehouseID, "ningún rechazo mueve el producto")
}

func TestTransferBatch_RechazoNoMutaNada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 3)
	f.warehouse(t, "w2", 2)
	created, err := f.engine.CreateMany(ctx, payload(1), "w1", 3)
	require.NoError(t, err)
	before := len(f.publisher.movements())

	_, err = f.engine.TransferBatch(ctx, created, "w2")
	var capErr *domain.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 3, capErr.Requested)
	assert.Equal(t, 2, capErr.Available)

	assert.Equal(t, 3, f.count(t, "w1"))
	assert.Equal(t, 0, f.count(t, "w2"))
	assert.Len(t, f.publisher.movements(), before, "sin eventos si el lote se rechaza")
}

func TestTransferBatch_EventosEnOrdenDeMutacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 3)
	f.warehouse(t, "w2", 3)
	f.warehouse(t, "w3", 5)
	a, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)
	b, err := f.engine.Create(ctx, payload(1), "w2")
	require.NoError(t, err)
	c, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)
	before := len(f.publisher.movements())

	moved, err := f.engine.TransferBatch(ctx, []*entity.Product{c, a, b}, "w3")
	require.NoError(t, err)
	require.Len(t, moved, 3)
	assert.Equal(t, 3, f.count(t, "w3"))

	events := f.publisher.movements()[before:]
	require.Len(t, events, 3)
	assert.Equal(t, c.ID, events[0].Product.ID)
	assert.Equal(t, "w1", events[0].From)
	assert.Equal(t, a.ID, events[1].Product.ID)
	assert.Equal(t, b.ID, events[2].Product.ID)
	assert.Equal(t, "w2", events[2].From)
	for _, ev := range events {
		assert.Equal(t, "w3", ev.To)
	}
}

func TestTransferBatch_EntradasInvalidas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 3)
	f.warehouse(t, "w2", 3)
	p, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)

	moved, err := f.engine.TransferBatch(ctx, nil, "w2")
	assert.NoError(t, err, "lote vacío no hace nada")
	assert.Empty(t, moved)

	_, err = f.engine.TransferBatch(ctx, []*entity.Product{p, p}, "w2")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "duplicados")

	_, err = f.engine.TransferBatch(ctx, []*entity.Product{{ID: "ghost"}}, "w2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, f.count(t, "w1"))
}

func TestTransferSimilar_MueveHastaLaCantidad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 10)
	f.warehouse(t, "w2", 10)
	shirts, err := f.engine.CreateMany(ctx, payload(1), "w1", 4)
	require.NoError(t, err)
	_, err = f.engine.CreateMany(ctx, payload(2), "w1", 2)
	require.NoError(t, err)

	moved, err := f.engine.TransferSimilar(ctx, shirts[0].ID, 3, "w2")
	require.NoError(t, err)
	require.Len(t, moved, 3)
	for _, p := range moved {
		assert.Equal(t, 1, p.CatalogID)
		assert.Equal(t, "w2", p.WarehouseID)
	}
	assert.Equal(t, 3, f.count(t, "w1"))
	assert.Equal(t, 3, f.count(t, "w2"))
}

// Un producto enviado sale del conteo y del flujo de traslados.
func TestSend_ExcluyeDelConteoYDeTraslados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 2)
	f.warehouse(t, "w2", 2)
	p1, err := f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, payload(1), "w1")
	require.NoError(t, err)

	sent, err := f.engine.Send(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProductStatusSent, sent.Status)
	assert.Equal(t, 1, f.count(t, "w1"))

	_, err = f.engine.TransferOne(ctx, p1.ID, "w2")
	assert.ErrorIs(t, err, domain.ErrProductSent)
	_, err = f.engine.Send(ctx, p1.ID)
	assert.ErrorIs(t, err, domain.ErrProductSent)

	// el lugar liberado se puede ocupar de inmediato
	_, err = f.engine.Create(ctx, payload(1), "w1")
	assert.NoError(t, err)

	all, err := f.engine.ListByWarehouseAll(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	inStore, err := f.engine.ListByWarehouse(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, inStore, 2)

	events := f.publisher.movements()
	assert.Equal(t, entity.MovementSent, events[2].Kind)
	assert.Equal(t, "w1", events[2].WarehouseID)
}

func TestSendByWarehouse_RespetaLimiteYCatalogo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 10)
	f.warehouse(t, "w2", 10)
	shirts, err := f.engine.CreateMany(ctx, payload(1), "w1", 3)
	require.NoError(t, err)
	_, err = f.engine.CreateMany(ctx, payload(1), "w2", 2)
	require.NoError(t, err)
	_, err = f.engine.CreateMany(ctx, payload(2), "w1", 2)
	require.NoError(t, err)

	sent, err := f.engine.SendByWarehouse(ctx, shirts[0], 2)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	for _, p := range sent {
		assert.Equal(t, "w1", p.WarehouseID)
		assert.Equal(t, 1, p.CatalogID)
		assert.Equal(t, entity.ProductStatusSent, p.Status)
	}
	assert.Equal(t, 3, f.count(t, "w1"))
	assert.Equal(t, 2, f.count(t, "w2"))
	assert.Equal(t, 2, f.metrics.movements[entity.MovementSent])

	_, err = f.engine.SendByWarehouse(ctx, shirts[0], 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSendCart_EnviaCadaEntrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.warehouse(t, "w1", 10)
	shirts, err := f.engine.CreateMany(ctx, payload(1), "w1", 3)
	require.NoError(t, err)
	pants, err := f.engine.CreateMany(ctx, payload(2), "w1", 3)
	require.NoError(t, err)

	sent, err := f.engine.SendCart(ctx, map[string]int{shirts[0].ID: 2, pants[0].ID: 1})
	require.NoError(t, err)
	assert.Len(t, sent, 3)
	assert.Equal(t, 3, f.count(t, "w1"))

	_, err = f.engine.SendCart(ctx, map[string]int{"nope": 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCurrentCapacity_Idempotente(t *testing.T) {
	f := newFixture(t)
	f.warehouse(t, "w1", 5)
	_, err := f.engine.CreateMany(context.Background(), payload(1), "w1", 3)
	require.NoError(t, err)
	assert.Equal(t, f.count(t, "w1"), f.count(t, "w1"))
}

// Con el candado por bodega, llegadas concurrentes nunca superan la capacidad.
func TestCreate_ConcurrenteNoSuperaCapacidad(t *testing.T) {
	f := newFixture(t)
	f.warehouse(t, "w1", 5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, rejected := 0, 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Create(context.Background(), payload(1), "w1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrCapacityExceeded) {
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, ok)
	assert.Equal(t, 35, rejected)
	assert.Equal(t, 5, f.count(t, "w1"))
}

// Secuencia aleatoria de operaciones: después de cada una ninguna bodega supera su capacidad.
func TestInvariante_CapacidadNuncaExcedida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caps := map[string]int{"w1": 3, "w2": 2, "w3": 4}
	ids := []string{"w1", "w2", "w3"}
	for _, id := range ids {
		f.warehouse(t, id, caps[id])
	}

	rng := rand.New(rand.NewSource(42))
	var products []*entity.Product
	for step := 0; step < 300; step++ {
		target := ids[rng.Intn(len(ids))]
		switch op := rng.Intn(4); {
		case op == 0 || len(products) == 0:
			if p, err := f.engine.Create(ctx, payload(rng.Intn(3)), target); err == nil {
				products = append(products, p)
			}
		case op == 1:
			p := products[rng.Intn(len(products))]
			_, _ = f.engine.TransferOne(ctx, p.ID, target)
		case op == 2:
			source := ids[rng.Intn(len(ids))]
			list, err := f.engine.ListByWarehouse(ctx, source)
			require.NoError(t, err)
			_, _ = f.engine.TransferBatch(ctx, list, target)
		default:
			p := products[rng.Intn(len(products))]
			_, _ = f.engine.Send(ctx, p.ID)
		}
		for _, id := range ids {
			assert.LessOrEqual(t, f.count(t, id), caps[id], "paso %d bodega %s", step, id)
		}
	}
}

// sendsOnRead confirma un envío justo después de que el motor lee el producto.
type sendsOnRead struct {
	*memory.ProductRepo
	once sync.Once
}

func (r *sendsOnRead) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := r.ProductRepo.GetByID(ctx, id)
	if err == nil && p != nil {
		r.once.Do(func() { _ = r.ProductRepo.MarkSent(ctx, id, p.WarehouseID) })
	}
	return p, err
}

func TestTransferOne_EnvioConcurrenteGanaAlTraslado(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	engine := inventory.NewTransferUseCase(inventory.TransferDeps{
		TxRunner:   memory.NewTxRunner(store),
		Products:   &sendsOnRead{ProductRepo: store.Products()},
		Warehouses: store.Warehouses(),
		Locker:     lock.NewKeyedMutex(),
		Publisher:  pub,
	})
	now := time.Now()
	for _, id := range []string{"w1", "w2"} {
		require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{
			ID: id, Name: "bodega " + id, Status: entity.WarehouseStatusOpen, MaximumCapacity: 5,
			CreatedAt: now, UpdatedAt: now,
		}))
	}
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: "p1", WarehouseID: "w1", Status: entity.ProductStatusInStore, CreatedAt: now, UpdatedAt: now,
	}))

	_, err := engine.TransferOne(ctx, "p1", "w2")
	assert.ErrorIs(t, err, domain.ErrProductSent)

	got, err := store.Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "w1", got.WarehouseID, "el enviado no cambia de dueño")
	assert.Equal(t, entity.ProductStatusSent, got.Status)
	assert.Empty(t, pub.movements(), "sin evento transferred tras el envío")
}

func catalogEngine(t *testing.T, capacity int) (*inventory.TransferUseCase, []*entity.CatalogItem) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	items := []*entity.CatalogItem{
		{ID: "c-mochila", CatalogID: 1, Title: "Mochila", Category: "ropa", Price: decimal.RequireFromString("109.95")},
		{ID: "c-anillo", CatalogID: 5, Title: "Anillo", Category: "joyería", Price: decimal.RequireFromString("695")},
	}
	require.NoError(t, store.Catalog().CreateMany(ctx, items))
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{
		ID: "w1", Name: "Norte", Status: entity.WarehouseStatusOpen, MaximumCapacity: capacity,
	}))
	engine := inventory.NewTransferUseCase(inventory.TransferDeps{
		TxRunner:   memory.NewTxRunner(store),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
		Catalog:    catalog.NewService(catalog.ServiceDeps{Repo: store.Catalog()}),
		Locker:     lock.NewKeyedMutex(),
		Publisher:  &recordingPublisher{},
	})
	return engine, items
}

func TestCreateFromCatalog_CopiaDatosDelItem(t *testing.T) {
	engine, _ := catalogEngine(t, 10)
	ctx := context.Background()

	created, err := engine.CreateFromCatalog(ctx, "w1", map[string]int{"c-mochila": 2, "c-anillo": 1})
	require.NoError(t, err)
	require.Len(t, created, 3)
	// orden por id de ítem: c-anillo antes que c-mochila
	assert.Equal(t, 5, created[0].CatalogID)
	assert.Equal(t, "Anillo", created[0].Title)
	assert.Equal(t, "joyería", created[0].Category)
	assert.True(t, decimal.RequireFromString("695").Equal(created[0].Price))
	assert.Equal(t, 1, created[1].CatalogID)
	assert.Equal(t, "Mochila", created[2].Title)
	for _, p := range created {
		assert.Equal(t, "w1", p.WarehouseID)
		assert.Equal(t, entity.ProductStatusInStore, p.Status)
	}
}

func TestCreateFromCatalog_ItemInexistenteNoCreaNada(t *testing.T) {
	engine, _ := catalogEngine(t, 10)
	ctx := context.Background()

	_, err := engine.CreateFromCatalog(ctx, "w1", map[string]int{"c-mochila": 2, "no-existe": 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	n, err := engine.GetCurrentCapacity(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = engine.CreateFromCatalog(ctx, "nope", map[string]int{"c-mochila": 1})
	assert.ErrorIs(t, err, domain.ErrNotFound, "bodega inexistente")

	_, err = engine.CreateFromCatalog(ctx, "w1", map[string]int{"c-mochila": 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.CreateFromCatalog(ctx, "w1", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateFromCatalog_RespetaCapacidad(t *testing.T) {
	engine, _ := catalogEngine(t, 2)

	created, err := engine.CreateFromCatalog(context.Background(), "w1", map[string]int{"c-mochila": 3})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Len(t, created, 2)
}
