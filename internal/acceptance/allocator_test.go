package acceptance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/jhoicas/Bodegas-api/internal/application/dto"
	"github.com/jhoicas/Bodegas-api/internal/application/history"
	"github.com/jhoicas/Bodegas-api/internal/application/inventory"
	"github.com/jhoicas/Bodegas-api/internal/application/usecase"
	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/eventbus"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/lock"
	"github.com/jhoicas/Bodegas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

const eventuallyTimeout = 2 * time.Second

type allocatorTestContext struct {
	bus        *eventbus.Bus
	engine     *inventory.TransferUseCase
	recorder   *history.Recorder
	warehouses *usecase.WarehouseUseCase

	warehouseIDs map[string]string
	products     map[string]*entity.Product
	closing      map[string][]*entity.Product
	err          error
}

func (c *allocatorTestContext) reset() {
	if c.bus != nil {
		_ = c.bus.Close(context.Background())
	}
	store := memory.NewStore()
	bus := eventbus.New(logger.Nop(), nil)
	locker := lock.NewKeyedMutex()
	engine := inventory.NewTransferUseCase(inventory.TransferDeps{
		TxRunner:   memory.NewTxRunner(store),
		Products:   store.Products(),
		Warehouses: store.Warehouses(),
		Locker:     locker,
		Publisher:  bus,
	})
	recorder := history.NewRecorder(history.RecorderDeps{
		Histories:  store.Histories(),
		Warehouses: store.Warehouses(),
		Engine:     engine,
	})
	_ = recorder.Subscribe(bus)

	c.bus = bus
	c.engine = engine
	c.recorder = recorder
	c.warehouses = usecase.NewWarehouseUseCase(usecase.WarehouseDeps{
		Repo:      store.Warehouses(),
		Engine:    engine,
		Oracle:    engine.Oracle(),
		Histories: recorder,
		Publisher: bus,
		Locker:    locker,
	})
	c.warehouseIDs = map[string]string{}
	c.products = map[string]*entity.Product{}
	c.closing = map[string][]*entity.Product{}
	c.err = nil
}

func (c *allocatorTestContext) warehouseID(name string) (string, error) {
	id, ok := c.warehouseIDs[name]
	if !ok {
		return "", fmt.Errorf("bodega %q no definida en el escenario", name)
	}
	return id, nil
}

func (c *allocatorTestContext) product(name string) (*entity.Product, error) {
	p, ok := c.products[name]
	if !ok {
		return nil, fmt.Errorf("producto %q no definido en el escenario", name)
	}
	return p, nil
}

func (c *allocatorTestContext) aWarehouseWithCapacity(name string, capacity int) error {
	w, err := c.warehouses.Create(context.Background(), dto.CreateWarehouseRequest{Name: name, MaximumCapacity: capacity})
	if err != nil {
		return err
	}
	c.warehouseIDs[name] = w.ID
	return nil
}

func (c *allocatorTestContext) productArrives(productName, warehouseName string) error {
	id, err := c.warehouseID(warehouseName)
	if err != nil {
		return err
	}
	p, err := c.engine.Create(context.Background(), entity.ProductPayload{CatalogID: 1, Title: productName}, id)
	c.err = err
	if err == nil {
		c.products[productName] = p
	}
	return nil
}

func (c *allocatorTestContext) warehouseHoldsProducts(warehouseName string, n int) error {
	id, err := c.warehouseID(warehouseName)
	if err != nil {
		return err
	}
	_, err = c.engine.CreateMany(context.Background(), entity.ProductPayload{CatalogID: 1, Title: "lote"}, id, n)
	return err
}

func (c *allocatorTestContext) productIsTransferred(productName, warehouseName string) error {
	p, err := c.product(productName)
	if err != nil {
		return err
	}
	id, err := c.warehouseID(warehouseName)
	if err != nil {
		return err
	}
	_, c.err = c.engine.TransferOne(context.Background(), p.ID, id)
	return nil
}

func (c *allocatorTestContext) warehouseIsTemporarilyClosed(source, target string) error {
	sourceID, err := c.warehouseID(source)
	if err != nil {
		return err
	}
	targetID, err := c.warehouseID(target)
	if err != nil {
		return err
	}
	before, err := c.engine.ListByWarehouse(context.Background(), sourceID)
	if err != nil {
		return err
	}
	c.closing[source] = before
	_, c.err = c.warehouses.ChangeStatus(context.Background(), sourceID, dto.ChangeStatusRequest{
		Status:              entity.WarehouseStatusTemporaryClosed,
		TransferWarehouseID: targetID,
	})
	return nil
}

func (c *allocatorTestContext) productIsSent(productName string) error {
	p, err := c.product(productName)
	if err != nil {
		return err
	}
	_, c.err = c.engine.Send(context.Background(), p.ID)
	return nil
}

func (c *allocatorTestContext) theOperationIsAccepted() error {
	if c.err != nil {
		return fmt.Errorf("se esperaba éxito, se obtuvo: %v", c.err)
	}
	return nil
}

func (c *allocatorTestContext) theOperationFailsWith(target error) func() error {
	return func() error {
		if c.err == nil {
			return fmt.Errorf("se esperaba %v y la operación tuvo éxito", target)
		}
		if !errors.Is(c.err, target) {
			return fmt.Errorf("se esperaba %v, se obtuvo: %v", target, c.err)
		}
		return nil
	}
}

func (c *allocatorTestContext) warehouseHasInStore(warehouseName string, n int) error {
	id, err := c.warehouseID(warehouseName)
	if err != nil {
		return err
	}
	got, err := c.engine.GetCurrentCapacity(context.Background(), id)
	if err != nil {
		return err
	}
	if got != n {
		return fmt.Errorf("bodega %s: se esperaban %d en tienda, hay %d", warehouseName, n, got)
	}
	return nil
}

func (c *allocatorTestContext) warehouseStatusIs(warehouseName, status string) error {
	id, err := c.warehouseID(warehouseName)
	if err != nil {
		return err
	}
	w, err := c.warehouses.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	if w.Status != status {
		return fmt.Errorf("bodega %s: estado %q, se esperaba %q", warehouseName, w.Status, status)
	}
	return nil
}

func (c *allocatorTestContext) productStatusIs(productName, status string) error {
	p, err := c.product(productName)
	if err != nil {
		return err
	}
	current, err := c.engine.Get(context.Background(), p.ID)
	if err != nil {
		return err
	}
	if current.Status != status {
		return fmt.Errorf("producto %s: estado %q, se esperaba %q", productName, current.Status, status)
	}
	return nil
}

func (c *allocatorTestContext) eventuallyTransferRecord(productName, from, to string) error {
	p, err := c.product(productName)
	if err != nil {
		return err
	}
	fromID, err := c.warehouseID(from)
	if err != nil {
		return err
	}
	toID, err := c.warehouseID(to)
	if err != nil {
		return err
	}
	return eventually(func() error {
		return c.hasTransferRecords([]*entity.Product{p}, fromID, toID)
	})
}

func (c *allocatorTestContext) eventuallyAllProductsMoved(source, target string) error {
	products := c.closing[source]
	if len(products) == 0 {
		return fmt.Errorf("no hay productos registrados al cerrar %s", source)
	}
	sourceID, err := c.warehouseID(source)
	if err != nil {
		return err
	}
	targetID, err := c.warehouseID(target)
	if err != nil {
		return err
	}
	return eventually(func() error {
		for _, p := range products {
			current, err := c.engine.Get(context.Background(), p.ID)
			if err != nil {
				return err
			}
			if current.WarehouseID != targetID {
				return fmt.Errorf("producto %s sigue en %s", p.ID, current.WarehouseID)
			}
		}
		return c.hasTransferRecords(products, sourceID, targetID)
	})
}

func (c *allocatorTestContext) hasTransferRecords(products []*entity.Product, fromID, toID string) error {
	views, err := c.recorder.GetHistories(context.Background(), products)
	if err != nil {
		return err
	}
	found := map[string]bool{}
	for _, v := range views {
		if v.Kind == entity.MovementTransferred && v.ProductID != nil &&
			v.From != nil && v.From.ID == fromID && v.To != nil && v.To.ID == toID {
			found[*v.ProductID] = true
		}
	}
	for _, p := range products {
		if !found[p.ID] {
			return fmt.Errorf("sin registro de traslado para %s", p.ID)
		}
	}
	return nil
}

func eventually(check func() error) error {
	deadline := time.Now().Add(eventuallyTimeout)
	for {
		err := check()
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &allocatorTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		return ctx, tc.bus.Close(ctx)
	})

	// Dado
	ctx.Step(`^una bodega "([^"]*)" con capacidad (\d+)$`, tc.aWarehouseWithCapacity)
	ctx.Step(`^la bodega "([^"]*)" contiene (\d+) productos$`, tc.warehouseHoldsProducts)

	// Cuando
	ctx.Step(`^llega el producto "([^"]*)" a la bodega "([^"]*)"$`, tc.productArrives)
	ctx.Step(`^se traslada "([^"]*)" a la bodega "([^"]*)"$`, tc.productIsTransferred)
	ctx.Step(`^se cierra temporalmente la bodega "([^"]*)" hacia "([^"]*)"$`, tc.warehouseIsTemporarilyClosed)
	ctx.Step(`^se envía "([^"]*)"$`, tc.productIsSent)

	// Entonces
	ctx.Step(`^la operación es aceptada$`, tc.theOperationIsAccepted)
	ctx.Step(`^la operación falla por capacidad excedida$`, tc.theOperationFailsWith(domain.ErrCapacityExceeded))
	ctx.Step(`^la operación falla porque el producto ya fue enviado$`, tc.theOperationFailsWith(domain.ErrProductSent))
	ctx.Step(`^la bodega "([^"]*)" tiene (\d+) productos en tienda$`, tc.warehouseHasInStore)
	ctx.Step(`^el estado de la bodega "([^"]*)" es "([^"]*)"$`, tc.warehouseStatusIs)
	ctx.Step(`^el producto "([^"]*)" está "([^"]*)"$`, tc.productStatusIs)
	ctx.Step(`^eventualmente existe un registro de traslado de "([^"]*)" desde "([^"]*)" hacia "([^"]*)"$`, tc.eventuallyTransferRecord)
	ctx.Step(`^eventualmente todos los productos que estaban en "([^"]*)" están en "([^"]*)" con su registro de traslado$`, tc.eventuallyAllProductsMoved)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/allocator.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
