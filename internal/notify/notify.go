package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
)

// DeliverySummary is the structured payload handed to notification sinks
// when a delivery completes.
type DeliverySummary struct {
	OrderID       string
	ClientID      string
	Business      string
	Product       domain.ProductType
	Quantity      int
	PaymentMethod domain.PaymentMethod
	Amount        int64
	DeliveredAt   time.Time
}

// DeliveryNotifier receives lifecycle events. Implementations must not
// block the calling command; delivery of the notification is best effort.
type DeliveryNotifier interface {
	OrderCreated(ctx context.Context, order domain.Order, business string)
	OrderAccepted(ctx context.Context, order domain.Order)
	DeliveryCompleted(ctx context.Context, summary DeliverySummary)
}

// FormatSummary renders the one-line text forwarded to humans.
func FormatSummary(s DeliverySummary) string {
	payment := string(s.PaymentMethod)
	if payment == "" {
		payment = "sin especificar"
	}
	return fmt.Sprintf("ENTREGADO: %s | %d x %s | $%d MXN | pago %s", s.Business, s.Quantity, s.Product, s.Amount, payment)
}

// LogNotifier writes events to the process log.
type LogNotifier struct{}

func (LogNotifier) OrderCreated(_ context.Context, order domain.Order, business string) {
	log.Printf("[notify] NUEVO PEDIDO: %s (%d x %s)", business, order.Quantity, order.Product)
}

func (LogNotifier) OrderAccepted(_ context.Context, order domain.Order) {
	log.Printf("[notify] PEDIDO EN CAMINO: %s (worker %s)", order.ID, order.WorkerID)
}

func (LogNotifier) DeliveryCompleted(_ context.Context, summary DeliverySummary) {
	log.Printf("[notify] %s", FormatSummary(summary))
}

// NoopNotifier discards all events; tests use it to keep output quiet.
type NoopNotifier struct{}

func (NoopNotifier) OrderCreated(_ context.Context, _ domain.Order, _ string) {}

func (NoopNotifier) OrderAccepted(_ context.Context, _ domain.Order) {}

func (NoopNotifier) DeliveryCompleted(_ context.Context, _ DeliverySummary) {}
