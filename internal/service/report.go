package service

import (
	"math"
	"slices"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
)

const trailingWindowDays = 30

// buildDashboard aggregates delivered orders and the inventory ledger into
// the admin report. Only DELIVERED orders count toward revenue, bucketed by
// their delivery time. Window bounds are inclusive.
func buildDashboard(asOf time.Time, orders []domain.Order, inventory []domain.InventoryLog, clients []domain.Client) domain.DashboardReport {
	asOf = asOf.UTC()
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	trailingStart := asOf.AddDate(0, 0, -trailingWindowDays)
	priorStart := asOf.AddDate(0, 0, -2*trailingWindowDays)

	today := sumPeriod(orders, dayStart, asOf)
	trailing := sumPeriod(orders, trailingStart, asOf)
	// The boundary instant belongs to the trailing window; the prior window
	// ends just before it so no delivery is counted twice.
	prior := sumPeriod(orders, priorStart, trailingStart.Add(-time.Nanosecond))

	report := domain.DashboardReport{
		AsOf:           asOf,
		Today:          today,
		Trailing30Days: trailing,
		Trend:          computeTrend(trailing.Total, prior.Total),
		TopClient:      topClient(orders, clients, trailingStart, asOf),
		DailySeries:    dailySeries(orders, asOf, 7),
	}

	production := 0
	waste := 0
	stock := 0
	for _, entry := range inventory {
		stock += entry.Effect()
		switch entry.Type {
		case domain.InventoryProduction:
			production += entry.Quantity
		case domain.InventoryWaste:
			waste += entry.Quantity
		}
	}
	report.Stock = stock
	report.WasteUnits = waste
	if production > 0 {
		report.WasteRatioPercent = float64(waste) / float64(production) * 100
	}

	return report
}

func sumPeriod(orders []domain.Order, from time.Time, to time.Time) domain.PeriodTotals {
	var totals domain.PeriodTotals
	for _, order := range orders {
		if !deliveredWithin(order, from, to) {
			continue
		}

		totals.Total += order.Amount
		totals.Units += order.Quantity
		if order.Product == domain.ProductIce {
			totals.Ice += order.Amount
		} else {
			totals.Water += order.Amount
		}

		switch order.PaymentMethod {
		case domain.PaymentCash:
			totals.ByPayment.Cash += order.Amount
		case domain.PaymentCredit:
			totals.ByPayment.Credit += order.Amount
		case domain.PaymentCard:
			totals.ByPayment.Card += order.Amount
		case domain.PaymentTransfer:
			totals.ByPayment.Transfer += order.Amount
		default:
			totals.ByPayment.Unspecified += order.Amount
		}
	}
	return totals
}

// computeTrend compares the trailing window against the prior one. With no
// prior revenue there is no baseline to compare against, so the figure is
// marked unmeasurable rather than forced to a fake 100%.
func computeTrend(trailing int64, prior int64) domain.Trend {
	if prior == 0 {
		return domain.Trend{Measurable: false}
	}
	percent := (float64(trailing) - float64(prior)) / float64(prior) * 100
	return domain.Trend{Percent: math.Round(percent*10) / 10, Measurable: true}
}

func topClient(orders []domain.Order, clients []domain.Client, from time.Time, to time.Time) *domain.TopClient {
	unitsByClient := make(map[string]int)
	for _, order := range orders {
		if !deliveredWithin(order, from, to) {
			continue
		}
		unitsByClient[order.ClientID] += order.Quantity
	}
	if len(unitsByClient) == 0 {
		return nil
	}

	ids := make([]string, 0, len(unitsByClient))
	for id := range unitsByClient {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	best := ids[0]
	for _, id := range ids[1:] {
		if unitsByClient[id] > unitsByClient[best] {
			best = id
		}
	}

	top := &domain.TopClient{ClientID: best, Units: unitsByClient[best]}
	for _, c := range clients {
		if c.ID == best {
			top.Business = c.Business
			break
		}
	}
	return top
}

// dailySeries returns one bucket per calendar day ending on asOf's day,
// oldest first, zero-filled for days without deliveries.
func dailySeries(orders []domain.Order, asOf time.Time, days int) []domain.DailySales {
	series := make([]domain.DailySales, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := asOf.AddDate(0, 0, i-days+1)
		date := day.Format("2006-01-02")
		series[i] = domain.DailySales{Date: date}
		index[date] = i
	}

	for _, order := range orders {
		if order.Status != domain.OrderDelivered || order.DeliveredAt == nil {
			continue
		}
		if i, ok := index[order.DeliveredAt.UTC().Format("2006-01-02")]; ok {
			series[i].Total += order.Amount
		}
	}
	return series
}

func deliveredWithin(order domain.Order, from time.Time, to time.Time) bool {
	if order.Status != domain.OrderDelivered || order.DeliveredAt == nil {
		return false
	}
	at := order.DeliveredAt.UTC()
	return !at.Before(from) && !at.After(to)
}
