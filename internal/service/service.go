package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/notify"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Persister mirrors repository state to durable storage after each command.
type Persister interface {
	Persist(ctx context.Context) error
}

type Service struct {
	repo      store.Repository
	notifier  notify.DeliveryNotifier
	persister Persister
	now       func() time.Time
}

func New(repo store.Repository, notifier notify.DeliveryNotifier, persister Persister) *Service {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}

	return &Service{
		repo:      repo,
		notifier:  notifier,
		persister: persister,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// persistState runs the snapshot mirror after a successful command. A failed
// save must not undo the command, so failures are logged and swallowed.
func (s *Service) persistState(ctx context.Context) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Persist(ctx); err != nil {
		log.Printf("[service] WARN: failed to persist state snapshot: %v", err)
	}
}

func (s *Service) ListClients(ctx context.Context) ([]domain.Client, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authentication required")
	}

	if actor.Role == domain.RoleCustomer {
		client, err := s.repo.GetClientByID(ctx, actor.ClientID)
		if err != nil {
			return nil, err
		}
		return []domain.Client{*client}, nil
	}

	return s.repo.ListClients(ctx)
}

func (s *Service) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Client{}, fmt.Errorf("authentication required")
	}
	if actor.Role == domain.RoleCustomer && actor.ClientID != clientID {
		return domain.Client{}, fmt.Errorf("customer role required for own records only")
	}

	client, err := s.repo.GetClientByID(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	return *client, nil
}

func (s *Service) RegisterClient(ctx context.Context, req domain.ClientCreateRequest) (domain.Client, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Client{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Business = strings.TrimSpace(req.Business)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Business == "" {
		return domain.Client{}, store.ErrInvalidInput
	}
	if req.AvgMonthlyPurchase < 0 {
		return domain.Client{}, store.ErrInvalidInput
	}
	if req.Classification == "" {
		req.Classification = domain.ClientGood
	}
	if !req.Classification.Valid() {
		return domain.Client{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateClient(ctx, domain.Client{
		Name:               req.Name,
		Business:           req.Business,
		Phone:              req.Phone,
		Lat:                req.Lat,
		Lng:                req.Lng,
		AvgMonthlyPurchase: req.AvgMonthlyPurchase,
		Classification:     req.Classification,
	})
	if err != nil {
		return domain.Client{}, err
	}

	s.persistState(ctx)
	return *created, nil
}

// Loyalty reports progress toward the free-month goal. Progress is clamped
// to [0, 100] even when the accumulated total has passed the goal.
func (s *Service) Loyalty(ctx context.Context, clientID string) (domain.LoyaltyProgress, error) {
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return domain.LoyaltyProgress{}, err
	}

	progress := float64(client.AccumulatedUnits) / float64(domain.LoyaltyGoalUnits) * 100
	progress = math.Min(100, math.Max(0, progress))
	remaining := domain.LoyaltyGoalUnits - client.AccumulatedUnits
	if remaining < 0 {
		remaining = 0
	}

	return domain.LoyaltyProgress{
		ClientID:         client.ID,
		Business:         client.Business,
		AccumulatedUnits: client.AccumulatedUnits,
		GoalUnits:        domain.LoyaltyGoalUnits,
		ProgressPercent:  progress,
		RemainingUnits:   remaining,
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Order{}, fmt.Errorf("authentication required")
	}

	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleCustomer:
		// Customers order for themselves regardless of the submitted ID.
		req.ClientID = actor.ClientID
	default:
		return domain.Order{}, fmt.Errorf("admin or customer role required")
	}

	if !req.Product.Valid() || req.Quantity < 1 {
		return domain.Order{}, store.ErrInvalidInput
	}

	client, err := s.repo.GetClientByID(ctx, req.ClientID)
	if err != nil {
		return domain.Order{}, err
	}

	prices, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	unitPrice := prices.Resolve(client.ID, req.Product)

	created, err := s.repo.CreateOrder(ctx, domain.Order{
		ClientID:  client.ID,
		Product:   req.Product,
		Quantity:  req.Quantity,
		Status:    domain.OrderPending,
		CreatedAt: s.now(),
		UnitPrice: unitPrice,
		Amount:    unitPrice * int64(req.Quantity),
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.notifier.OrderCreated(ctx, *created, client.Business)
	s.persistState(ctx)
	return *created, nil
}

func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authentication required")
	}

	if actor.Role == domain.RoleWorker {
		// Workers see only their own route.
		filter.Product = actor.Route
	}
	if filter.Status != "" {
		switch filter.Status {
		case domain.OrderPending, domain.OrderInProgress, domain.OrderDelivered:
		default:
			return nil, store.ErrInvalidInput
		}
	}

	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	if actor.Role == domain.RoleCustomer {
		own := make([]domain.Order, 0, len(orders))
		for _, o := range orders {
			if o.ClientID == actor.ClientID {
				own = append(own, o)
			}
		}
		return own, nil
	}
	return orders, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Order{}, fmt.Errorf("authentication required")
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if actor.Role == domain.RoleCustomer && order.ClientID != actor.ClientID {
		return domain.Order{}, store.ErrNotFound
	}
	if actor.Role == domain.RoleWorker && order.Product != actor.Route {
		return domain.Order{}, store.ErrNotFound
	}
	return *order, nil
}

// AcceptOrder moves a pending order to IN_PROGRESS and assigns the calling
// worker. Workers can only take orders on their own product route.
func (s *Service) AcceptOrder(ctx context.Context, orderID string) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleWorker {
		return domain.Order{}, fmt.Errorf("worker role required")
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Product != actor.Route {
		return domain.Order{}, fmt.Errorf("order is outside worker route %s", actor.Route)
	}

	accepted, err := s.repo.MarkOrderInProgress(ctx, orderID, actor.ID)
	if err != nil {
		return domain.Order{}, err
	}

	s.notifier.OrderAccepted(ctx, *accepted)
	s.persistState(ctx)
	return *accepted, nil
}

// CompleteDelivery finalizes an in-progress order. The unit price is
// re-resolved against the current price config so a price change between
// creation and delivery is billed at delivery-time rates. Ice deliveries
// draw down factory stock; water is resold from purchased garrafones and
// never touches the ledger. Either way the client's accumulated units grow.
func (s *Service) CompleteDelivery(ctx context.Context, orderID string, req domain.DeliveryCompletionRequest) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleWorker {
		return domain.Order{}, fmt.Errorf("worker role required")
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Product != actor.Route {
		return domain.Order{}, fmt.Errorf("order is outside worker route %s", actor.Route)
	}
	// A worker may finalize straight from PENDING (skipping the explicit
	// accept), but never reopen a delivered order.
	if order.Status == domain.OrderDelivered {
		return domain.Order{}, store.ErrOrderState
	}

	if strings.TrimSpace(req.Signature) == "" || strings.TrimSpace(req.PhotoRef) == "" {
		return domain.Order{}, store.ErrProofRequired
	}
	if req.Quantity < 0 {
		return domain.Order{}, store.ErrInvalidInput
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.Valid() {
		return domain.Order{}, store.ErrInvalidInput
	}

	quantity := order.Quantity
	if req.Quantity > 0 {
		quantity = req.Quantity
	}

	prices, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	unitPrice := prices.Resolve(order.ClientID, order.Product)

	deliveredAt := s.now()
	// Whole minutes, floored: 90 seconds on the road reports as 1 minute.
	duration := int(deliveredAt.Sub(order.CreatedAt).Minutes())
	if duration < 0 {
		duration = 0
	}

	finalized := *order
	finalized.Status = domain.OrderDelivered
	finalized.WorkerID = actor.ID
	finalized.Quantity = quantity
	finalized.PaymentMethod = req.PaymentMethod
	finalized.Signature = req.Signature
	finalized.PhotoRef = req.PhotoRef
	finalized.DeliveredAt = &deliveredAt
	finalized.DurationMinutes = duration
	finalized.UnitPrice = unitPrice
	finalized.Amount = unitPrice * int64(quantity)

	completed, err := s.repo.CompleteOrder(ctx, finalized)
	if err != nil {
		return domain.Order{}, err
	}

	client := s.settleDelivery(ctx, *completed)
	s.notifier.DeliveryCompleted(ctx, notify.DeliverySummary{
		OrderID:       completed.ID,
		ClientID:      completed.ClientID,
		Business:      client.Business,
		Product:       completed.Product,
		Quantity:      completed.Quantity,
		PaymentMethod: completed.PaymentMethod,
		Amount:        completed.Amount,
		DeliveredAt:   deliveredAt,
	})
	s.persistState(ctx)
	return *completed, nil
}

// DirectSale records a walk-up delivery with no prior order. The order is
// created already delivered with the same proof requirements as the normal
// completion path.
func (s *Service) DirectSale(ctx context.Context, req domain.DirectSaleRequest) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleWorker {
		return domain.Order{}, fmt.Errorf("worker role required")
	}

	if !req.Product.Valid() || req.Quantity < 1 {
		return domain.Order{}, store.ErrInvalidInput
	}
	if req.Product != actor.Route {
		return domain.Order{}, fmt.Errorf("sale is outside worker route %s", actor.Route)
	}
	if strings.TrimSpace(req.Signature) == "" || strings.TrimSpace(req.PhotoRef) == "" {
		return domain.Order{}, store.ErrProofRequired
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.Valid() {
		return domain.Order{}, store.ErrInvalidInput
	}

	client, err := s.repo.GetClientByID(ctx, req.ClientID)
	if err != nil {
		return domain.Order{}, err
	}

	prices, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	unitPrice := prices.Resolve(client.ID, req.Product)

	soldAt := s.now()
	created, err := s.repo.CreateOrder(ctx, domain.Order{
		ClientID:      client.ID,
		Product:       req.Product,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.OrderDelivered,
		WorkerID:      actor.ID,
		Signature:     req.Signature,
		PhotoRef:      req.PhotoRef,
		CreatedAt:     soldAt,
		DeliveredAt:   &soldAt,
		UnitPrice:     unitPrice,
		Amount:        unitPrice * int64(req.Quantity),
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.settleDelivery(ctx, *created)
	s.notifier.DeliveryCompleted(ctx, notify.DeliverySummary{
		OrderID:       created.ID,
		ClientID:      created.ClientID,
		Business:      client.Business,
		Product:       created.Product,
		Quantity:      created.Quantity,
		PaymentMethod: created.PaymentMethod,
		Amount:        created.Amount,
		DeliveredAt:   soldAt,
	})
	s.persistState(ctx)
	return *created, nil
}

// settleDelivery applies the side effects of a delivered order: the ice
// ledger entry and the loyalty accumulation. Failures are logged, not
// returned; the delivery itself already happened.
func (s *Service) settleDelivery(ctx context.Context, order domain.Order) domain.Client {
	var client domain.Client
	if found, err := s.repo.GetClientByID(ctx, order.ClientID); err == nil {
		client = *found
	}

	if order.Product == domain.ProductIce {
		entry := domain.InventoryLog{
			OccurredAt: s.now(),
			Quantity:   order.Quantity,
			Type:       domain.InventorySale,
			Reason:     fmt.Sprintf("Venta: %s", client.Business),
		}
		if order.DeliveredAt != nil {
			entry.OccurredAt = *order.DeliveredAt
		}
		if _, err := s.repo.AppendInventoryLog(ctx, entry); err != nil {
			log.Printf("[service] WARN: failed to record sale in inventory ledger order=%s: %v", order.ID, err)
		}
	}

	updated, err := s.repo.AccumulateClientUnits(ctx, order.ClientID, order.Quantity)
	if err != nil {
		log.Printf("[service] WARN: failed to accumulate loyalty units client=%s: %v", order.ClientID, err)
		return client
	}
	return *updated
}

// RecordInventoryEntry appends a production or waste movement. Sale entries
// only come from the delivery flow and are rejected here.
func (s *Service) RecordInventoryEntry(ctx context.Context, req domain.InventoryEntryRequest) (domain.InventoryLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.InventoryLog{}, fmt.Errorf("admin role required")
	}

	if req.Type != domain.InventoryProduction && req.Type != domain.InventoryWaste {
		return domain.InventoryLog{}, store.ErrInvalidInput
	}
	if req.Quantity < 1 {
		return domain.InventoryLog{}, store.ErrInvalidInput
	}

	created, err := s.repo.AppendInventoryLog(ctx, domain.InventoryLog{
		OccurredAt: s.now(),
		Quantity:   req.Quantity,
		Type:       req.Type,
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return domain.InventoryLog{}, err
	}

	log.Printf("[service] inventory %s qty=%d", created.Type, created.Quantity)
	s.persistState(ctx)
	return *created, nil
}

func (s *Service) ListInventory(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListInventoryLogs(ctx, from, to, limit)
}

func (s *Service) StockLevel(ctx context.Context) (int, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || (actor.Role != domain.RoleAdmin && actor.Role != domain.RoleWorker) {
		return 0, fmt.Errorf("admin or worker role required")
	}
	return s.repo.CurrentStock(ctx)
}

func (s *Service) GetPrices(ctx context.Context) (domain.PriceConfig, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.PriceConfig{}, fmt.Errorf("admin role required")
	}
	return s.repo.GetPriceConfig(ctx)
}

func (s *Service) SetGeneralPrice(ctx context.Context, req domain.GeneralPriceRequest) (domain.PriceConfig, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.PriceConfig{}, fmt.Errorf("admin role required")
	}
	if !req.Product.Valid() || req.Price < 1 {
		return domain.PriceConfig{}, store.ErrInvalidInput
	}

	prices, err := s.repo.SetGeneralPrice(ctx, req.Product, req.Price)
	if err != nil {
		return domain.PriceConfig{}, err
	}

	s.persistState(ctx)
	return prices, nil
}

// SetSpecialPrice sets a per-client override; a zero price clears it.
func (s *Service) SetSpecialPrice(ctx context.Context, req domain.SpecialPriceRequest) (domain.PriceConfig, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.PriceConfig{}, fmt.Errorf("admin role required")
	}
	if req.ClientID == "" || !req.Product.Valid() || req.Price < 0 {
		return domain.PriceConfig{}, store.ErrInvalidInput
	}

	var (
		prices domain.PriceConfig
		err    error
	)
	if req.Price == 0 {
		prices, err = s.repo.ClearSpecialPrice(ctx, req.ClientID, req.Product)
	} else {
		prices, err = s.repo.SetSpecialPrice(ctx, req.ClientID, req.Product, req.Price)
	}
	if err != nil {
		return domain.PriceConfig{}, err
	}

	s.persistState(ctx)
	return prices, nil
}

// ResolvePrice answers "what would this client pay per unit right now".
// Customers may only ask about themselves.
func (s *Service) ResolvePrice(ctx context.Context, clientID string, product domain.ProductType) (int64, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("authentication required")
	}
	if actor.Role == domain.RoleCustomer {
		clientID = actor.ClientID
	}
	if !product.Valid() {
		return 0, store.ErrInvalidInput
	}
	if _, err := s.repo.GetClientByID(ctx, clientID); err != nil {
		return 0, err
	}

	prices, err := s.repo.GetPriceConfig(ctx)
	if err != nil {
		return 0, err
	}
	return prices.Resolve(clientID, product), nil
}

// Dashboard aggregates the admin report as of the given instant. A zero
// asOf means "now".
func (s *Service) Dashboard(ctx context.Context, asOf time.Time) (domain.DashboardReport, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.DashboardReport{}, fmt.Errorf("admin role required")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	orders, err := s.repo.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		return domain.DashboardReport{}, err
	}
	inventory, err := s.repo.ListInventoryLogs(ctx, time.Time{}, time.Time{}, 0)
	if err != nil {
		return domain.DashboardReport{}, err
	}
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}

	return buildDashboard(asOf, orders, inventory, clients), nil
}
