package service

import (
	"testing"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
)

func timeZero() time.Time {
	return time.Time{}
}

func delivered(id string, clientID string, product domain.ProductType, qty int, amount int64, method domain.PaymentMethod, at time.Time) domain.Order {
	deliveredAt := at
	return domain.Order{
		ID:            id,
		ClientID:      clientID,
		Product:       product,
		Quantity:      qty,
		PaymentMethod: method,
		Status:        domain.OrderDelivered,
		CreatedAt:     at.Add(-30 * time.Minute),
		DeliveredAt:   &deliveredAt,
		Amount:        amount,
	}
}

func TestComputeTrendUnmeasurableWithoutPriorRevenue(t *testing.T) {
	trend := computeTrend(5000, 0)
	if trend.Measurable {
		t.Fatalf("expected unmeasurable trend with zero prior revenue, got %+v", trend)
	}
}

func TestComputeTrendPercent(t *testing.T) {
	trend := computeTrend(1500, 1000)
	if !trend.Measurable {
		t.Fatalf("expected measurable trend")
	}
	if trend.Percent != 50 {
		t.Fatalf("expected +50%%, got %v", trend.Percent)
	}

	down := computeTrend(500, 1000)
	if down.Percent != -50 {
		t.Fatalf("expected -50%%, got %v", down.Percent)
	}
}

func TestBuildDashboardStockAndWaste(t *testing.T) {
	asOf := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	inventory := []domain.InventoryLog{
		{ID: "i1", Quantity: 100, Type: domain.InventoryProduction, OccurredAt: asOf.Add(-3 * time.Hour)},
		{ID: "i2", Quantity: 50, Type: domain.InventoryProduction, OccurredAt: asOf.Add(-2 * time.Hour)},
		{ID: "i3", Quantity: 30, Type: domain.InventorySale, OccurredAt: asOf.Add(-time.Hour)},
		{ID: "i4", Quantity: 10, Type: domain.InventoryWaste, OccurredAt: asOf.Add(-time.Hour)},
	}

	report := buildDashboard(asOf, nil, inventory, nil)
	if report.Stock != 110 {
		t.Fatalf("expected stock 110, got %d", report.Stock)
	}
	if report.WasteUnits != 10 {
		t.Fatalf("expected 10 waste units, got %d", report.WasteUnits)
	}
	want := float64(10) / float64(150) * 100
	if report.WasteRatioPercent != want {
		t.Fatalf("expected waste ratio %v, got %v", want, report.WasteRatioPercent)
	}
}

func TestBuildDashboardPeriodsAndPayments(t *testing.T) {
	asOf := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		delivered("o1", "c1", domain.ProductIce, 10, 260, domain.PaymentCash, asOf.Add(-2*time.Hour)),
		delivered("o2", "c2", domain.ProductWater, 4, 140, "", asOf.Add(-4*time.Hour)),
		delivered("o3", "c1", domain.ProductIce, 20, 520, domain.PaymentTransfer, asOf.AddDate(0, 0, -10)),
		delivered("o4", "c3", domain.ProductIce, 5, 130, domain.PaymentCard, asOf.AddDate(0, 0, -45)),
		// Pending orders never count toward revenue.
		{ID: "o5", ClientID: "c1", Product: domain.ProductIce, Quantity: 3, Status: domain.OrderPending, CreatedAt: asOf},
	}

	report := buildDashboard(asOf, orders, nil, []domain.Client{{ID: "c1", Business: "Restaurante"}})

	if report.Today.Total != 400 {
		t.Fatalf("expected today total 400, got %d", report.Today.Total)
	}
	if report.Today.Ice != 260 || report.Today.Water != 140 {
		t.Fatalf("unexpected product split: ice %d water %d", report.Today.Ice, report.Today.Water)
	}
	if report.Today.ByPayment.Unspecified != 140 {
		t.Fatalf("expected unspecified bucket 140, got %d", report.Today.ByPayment.Unspecified)
	}
	if report.Trailing30Days.Total != 920 {
		t.Fatalf("expected trailing total 920, got %d", report.Trailing30Days.Total)
	}
	if !report.Trend.Measurable {
		t.Fatalf("expected measurable trend with prior-window revenue")
	}

	if report.TopClient == nil || report.TopClient.ClientID != "c1" {
		t.Fatalf("expected c1 as top client, got %+v", report.TopClient)
	}
	if report.TopClient.Units != 30 {
		t.Fatalf("expected top client volume 30, got %d", report.TopClient.Units)
	}
	if report.TopClient.Business != "Restaurante" {
		t.Fatalf("expected business name on top client, got %q", report.TopClient.Business)
	}
}

func TestWindowBoundaryDeliveryCountsOnce(t *testing.T) {
	asOf := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	trailingStart := asOf.AddDate(0, 0, -30)
	orders := []domain.Order{
		// Delivered exactly at the window boundary: trailing only.
		delivered("o1", "c1", domain.ProductIce, 4, 100, domain.PaymentCash, trailingStart),
		delivered("o2", "c1", domain.ProductIce, 4, 100, domain.PaymentCash, asOf.AddDate(0, 0, -40)),
	}

	report := buildDashboard(asOf, orders, nil, nil)
	if report.Trailing30Days.Total != 100 {
		t.Fatalf("expected trailing total 100, got %d", report.Trailing30Days.Total)
	}
	// Equal trailing and prior revenue means a flat trend; a boundary
	// delivery leaking into both windows would skew it to -50%.
	if !report.Trend.Measurable || report.Trend.Percent != 0 {
		t.Fatalf("expected flat measurable trend, got %+v", report.Trend)
	}
}

func TestTopClientDeterministicTieBreak(t *testing.T) {
	asOf := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		delivered("o1", "c2", domain.ProductIce, 10, 260, domain.PaymentCash, asOf.Add(-time.Hour)),
		delivered("o2", "c1", domain.ProductIce, 10, 260, domain.PaymentCash, asOf.Add(-2*time.Hour)),
	}

	report := buildDashboard(asOf, orders, nil, nil)
	if report.TopClient == nil || report.TopClient.ClientID != "c1" {
		t.Fatalf("expected tie to resolve to the lower client id, got %+v", report.TopClient)
	}
}

func TestDailySeriesZeroFilled(t *testing.T) {
	asOf := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		delivered("o1", "c1", domain.ProductIce, 10, 260, domain.PaymentCash, asOf.Add(-time.Hour)),
		delivered("o2", "c1", domain.ProductIce, 2, 52, domain.PaymentCash, asOf.AddDate(0, 0, -3)),
		delivered("o3", "c1", domain.ProductIce, 1, 26, domain.PaymentCash, asOf.AddDate(0, 0, -20)),
	}

	report := buildDashboard(asOf, orders, nil, nil)
	if len(report.DailySeries) != 7 {
		t.Fatalf("expected 7 daily buckets, got %d", len(report.DailySeries))
	}
	if report.DailySeries[6].Date != "2026-08-15" || report.DailySeries[6].Total != 260 {
		t.Fatalf("unexpected last bucket: %+v", report.DailySeries[6])
	}
	if report.DailySeries[3].Date != "2026-08-12" || report.DailySeries[3].Total != 52 {
		t.Fatalf("unexpected bucket for -3 days: %+v", report.DailySeries[3])
	}
	if report.DailySeries[0].Total != 0 {
		t.Fatalf("expected zero-filled oldest bucket, got %+v", report.DailySeries[0])
	}
}

func TestDashboardTrendSentinelEndToEnd(t *testing.T) {
	svc, _ := newTestService()

	order, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{ClientID: "c1", Product: domain.ProductIce, Quantity: 10})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.AcceptOrder(workerCtx(domain.ProductIce), order.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.CompleteDelivery(workerCtx(domain.ProductIce), order.ID, domain.DeliveryCompletionRequest{
		PaymentMethod: domain.PaymentCash,
		Signature:     "sig",
		PhotoRef:      "photo",
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	report, err := svc.Dashboard(adminCtx(), time.Time{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if report.Trend.Measurable {
		t.Fatalf("expected unmeasurable trend with no prior-window sales, got %+v", report.Trend)
	}
	if report.Trailing30Days.Total != 260 {
		t.Fatalf("expected trailing total 260, got %d", report.Trailing30Days.Total)
	}
}
