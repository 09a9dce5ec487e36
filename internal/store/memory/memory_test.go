package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/store"
)

func TestOrderLifecycleTransitions(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	created, err := repo.CreateOrder(ctx, domain.Order{
		ClientID:  "c1",
		Product:   domain.ProductIce,
		Quantity:  5,
		UnitPrice: 26,
		Amount:    130,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if created.Status != domain.OrderPending {
		t.Fatalf("expected new order to be PENDING, got %s", created.Status)
	}

	accepted, err := repo.MarkOrderInProgress(ctx, created.ID, "worker-ice")
	if err != nil {
		t.Fatalf("accept order: %v", err)
	}
	if accepted.Status != domain.OrderInProgress || accepted.WorkerID != "worker-ice" {
		t.Fatalf("unexpected accepted order: %+v", accepted)
	}

	if _, err := repo.MarkOrderInProgress(ctx, created.ID, "worker-ice"); !errors.Is(err, store.ErrOrderState) {
		t.Fatalf("expected ErrOrderState on double accept, got %v", err)
	}

	deliveredAt := time.Now().UTC()
	finalized := *accepted
	finalized.Status = domain.OrderDelivered
	finalized.DeliveredAt = &deliveredAt

	completed, err := repo.CompleteOrder(ctx, finalized)
	if err != nil {
		t.Fatalf("complete order: %v", err)
	}
	if completed.Status != domain.OrderDelivered || completed.DeliveredAt == nil {
		t.Fatalf("unexpected completed order: %+v", completed)
	}

	// Delivered orders never reopen.
	if _, err := repo.CompleteOrder(ctx, finalized); !errors.Is(err, store.ErrOrderState) {
		t.Fatalf("expected ErrOrderState completing a delivered order, got %v", err)
	}
	if _, err := repo.MarkOrderInProgress(ctx, created.ID, "worker-ice"); !errors.Is(err, store.ErrOrderState) {
		t.Fatalf("expected ErrOrderState accepting a delivered order, got %v", err)
	}
}

func TestCompleteOrderStraightFromPending(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	created, err := repo.CreateOrder(ctx, domain.Order{
		ClientID:  "c2",
		Product:   domain.ProductWater,
		Quantity:  3,
		UnitPrice: 35,
		Amount:    105,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	deliveredAt := time.Now().UTC()
	finalized := *created
	finalized.Status = domain.OrderDelivered
	finalized.WorkerID = "worker-water"
	finalized.DeliveredAt = &deliveredAt

	completed, err := repo.CompleteOrder(ctx, finalized)
	if err != nil {
		t.Fatalf("complete pending order: %v", err)
	}
	if completed.Status != domain.OrderDelivered {
		t.Fatalf("expected DELIVERED, got %s", completed.Status)
	}
}

func TestCreateOrderRequiresKnownClient(t *testing.T) {
	repo := NewSeeded()

	_, err := repo.CreateOrder(context.Background(), domain.Order{
		ClientID: "c-unknown",
		Product:  domain.ProductIce,
		Quantity: 1,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown client, got %v", err)
	}
}

func TestInventoryLedgerStock(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	entries := []domain.InventoryLog{
		{Quantity: 100, Type: domain.InventoryProduction},
		{Quantity: 50, Type: domain.InventoryProduction},
		{Quantity: 30, Type: domain.InventorySale, Reason: "Venta: Hotel"},
		{Quantity: 10, Type: domain.InventoryWaste},
	}
	for _, entry := range entries {
		if _, err := repo.AppendInventoryLog(ctx, entry); err != nil {
			t.Fatalf("append %s: %v", entry.Type, err)
		}
	}

	stock, err := repo.CurrentStock(ctx)
	if err != nil {
		t.Fatalf("current stock: %v", err)
	}
	if stock != 110 {
		t.Fatalf("expected stock 110, got %d", stock)
	}
}

func TestAppendInventoryRejectsBadEntries(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	if _, err := repo.AppendInventoryLog(ctx, domain.InventoryLog{Quantity: 0, Type: domain.InventoryProduction}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero quantity, got %v", err)
	}
	if _, err := repo.AppendInventoryLog(ctx, domain.InventoryLog{Quantity: 5, Type: "ADJUSTMENT"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown type, got %v", err)
	}
}

func TestSpecialPriceRoundTrip(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	prices, err := repo.SetSpecialPrice(ctx, "c1", domain.ProductIce, 20)
	if err != nil {
		t.Fatalf("set special price: %v", err)
	}
	if got := prices.Resolve("c1", domain.ProductIce); got != 20 {
		t.Fatalf("expected override 20, got %d", got)
	}
	if got := prices.Resolve("c1", domain.ProductWater); got != 35 {
		t.Fatalf("expected water fallback 35, got %d", got)
	}
	if got := prices.Resolve("c2", domain.ProductIce); got != 26 {
		t.Fatalf("expected general price 26 for other client, got %d", got)
	}

	prices, err = repo.ClearSpecialPrice(ctx, "c1", domain.ProductIce)
	if err != nil {
		t.Fatalf("clear special price: %v", err)
	}
	if got := prices.Resolve("c1", domain.ProductIce); got != 26 {
		t.Fatalf("expected fallback to 26 after clear, got %d", got)
	}
	if _, ok := prices.SpecialPrices["c1"]; ok {
		t.Fatalf("expected empty client override map to be removed")
	}
}

func TestSetSpecialPriceRequiresKnownClient(t *testing.T) {
	repo := NewSeeded()

	_, err := repo.SetSpecialPrice(context.Background(), "c-unknown", domain.ProductIce, 20)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindClientByBusiness(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	client, err := repo.FindClientByBusiness(ctx, "  hotel ")
	if err != nil {
		t.Fatalf("find by business: %v", err)
	}
	if client.ID != "c2" {
		t.Fatalf("expected c2 for hotel, got %s", client.ID)
	}

	if _, err := repo.FindClientByBusiness(ctx, "farmacia"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown business, got %v", err)
	}
	if _, err := repo.FindClientByBusiness(ctx, "  "); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank query, got %v", err)
	}
}

func TestAccumulateClientUnits(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	updated, err := repo.AccumulateClientUnits(ctx, "c3", 25)
	if err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if updated.AccumulatedUnits != 425 {
		t.Fatalf("expected 425 accumulated units, got %d", updated.AccumulatedUnits)
	}

	if _, err := repo.AccumulateClientUnits(ctx, "c3", 0); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero units, got %v", err)
	}
}

func TestRestorePartialSnapshotKeepsSeedData(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	err := repo.Restore(ctx, domain.StateSnapshot{
		Orders: []domain.Order{
			{ID: "ord-1", ClientID: "c1", Product: domain.ProductIce, Quantity: 2, Status: domain.OrderPending, CreatedAt: time.Now().UTC()},
		},
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	clients, err := repo.ListClients(ctx)
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 4 {
		t.Fatalf("expected seeded clients to survive a partial restore, got %d", len(clients))
	}

	orders, err := repo.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "ord-1" {
		t.Fatalf("expected restored order list, got %+v", orders)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo := NewSeeded()
	ctx := context.Background()

	if _, err := repo.CreateOrder(ctx, domain.Order{ClientID: "c2", Product: domain.ProductWater, Quantity: 3, UnitPrice: 35, Amount: 105}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := repo.AppendInventoryLog(ctx, domain.InventoryLog{Quantity: 40, Type: domain.InventoryProduction}); err != nil {
		t.Fatalf("append inventory: %v", err)
	}

	snap, err := repo.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	fresh := NewSeeded()
	if err := fresh.Restore(ctx, snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	orders, err := fresh.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 restored order, got %d", len(orders))
	}
	stock, err := fresh.CurrentStock(ctx)
	if err != nil {
		t.Fatalf("current stock: %v", err)
	}
	if stock != 40 {
		t.Fatalf("expected restored stock 40, got %d", stock)
	}
}
