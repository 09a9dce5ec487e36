package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/store"
	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	clientsByID     map[string]domain.Client
	ordersByID      map[string]domain.Order
	inventoryLogs   []domain.InventoryLog
	prices          domain.PriceConfig
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial staff accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD, SEED_ICE_WORKER_PASSWORD
// and SEED_WATER_WORKER_PASSWORD. If unset, hardcoded dev defaults are used
// with a warning printed to stdout.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	icePwd := envOr("SEED_ICE_WORKER_PASSWORD", "hielo123")
	waterPwd := envOr("SEED_WATER_WORKER_PASSWORD", "agua123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ICE_WORKER_PASSWORD") == "" || os.Getenv("SEED_WATER_WORKER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD, SEED_ICE_WORKER_PASSWORD and SEED_WATER_WORKER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		route    domain.ProductType
	}{
		{"admin", adminPwd, domain.RoleAdmin, ""},
		{"worker-ice", icePwd, domain.RoleWorker, domain.ProductIce},
		{"worker-water", waterPwd, domain.RoleWorker, domain.ProductWater},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Route:     u.route,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	clients := []domain.Client{
		{ID: "c1", Name: "Restaurante El Muelle", Business: "Restaurante", Phone: "9841234567", Lat: 21.524, Lng: -87.378, AvgMonthlyPurchase: 450, Classification: domain.ClientGood, AccumulatedUnits: 1250},
		{ID: "c2", Name: "Hotel Punta Caliza", Business: "Hotel", Phone: "9848765432", Lat: 21.530, Lng: -87.370, AvgMonthlyPurchase: 800, Classification: domain.ClientGood, AccumulatedUnits: 1480},
		{ID: "c3", Name: "Tienda La Esquina", Business: "Mini Super", Phone: "9845554444", Lat: 21.521, Lng: -87.382, AvgMonthlyPurchase: 120, Classification: domain.ClientRegular, AccumulatedUnits: 400},
		{ID: "c4", Name: "Bar Los Compas", Business: "Bar", Phone: "9843332222", Lat: 21.528, Lng: -87.375, AvgMonthlyPurchase: 300, Classification: domain.ClientBad, AccumulatedUnits: 2200},
	}

	clientMap := make(map[string]domain.Client, len(clients))
	for _, c := range clients {
		clientMap[c.ID] = c
	}

	return &Store{
		clientsByID:   clientMap,
		ordersByID:    make(map[string]domain.Order),
		inventoryLogs: make([]domain.InventoryLog, 0, 128),
		prices: domain.PriceConfig{
			General: map[domain.ProductType]int64{
				domain.ProductIce:   26,
				domain.ProductWater: 35,
			},
			SpecialPrices: make(map[string]map[domain.ProductType]int64),
		},
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListClients(_ context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]domain.Client, 0, len(s.clientsByID))
	for _, c := range s.clientsByID {
		clients = append(clients, c)
	}

	slices.SortFunc(clients, func(a, b domain.Client) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})

	return clients, nil
}

func (s *Store) GetClientByID(_ context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, exists := s.clientsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyClient := client
	return &copyClient, nil
}

// FindClientByBusiness matches the business kind case-insensitively; the
// query may be a substring ("hotel" finds "Hotel"). The first match in Name
// order wins.
func (s *Store) FindClientByBusiness(_ context.Context, business string) (*domain.Client, error) {
	query := strings.ToLower(strings.TrimSpace(business))
	if query == "" {
		return nil, store.ErrInvalidInput
	}

	clients, err := s.ListClients(context.Background())
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		if strings.Contains(strings.ToLower(c.Business), query) {
			match := c
			return &match, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateClient(_ context.Context, client domain.Client) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(client.Name) == "" || strings.TrimSpace(client.Business) == "" {
		return nil, store.ErrInvalidInput
	}
	if client.Classification == "" {
		client.Classification = domain.ClientRegular
	}
	if !client.Classification.Valid() {
		return nil, store.ErrInvalidInput
	}
	if client.ID == "" {
		client.ID = xid.New("cl")
	}
	if _, exists := s.clientsByID[client.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	s.clientsByID[client.ID] = client
	created := client
	return &created, nil
}

func (s *Store) AccumulateClientUnits(_ context.Context, clientID string, units int) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if units < 1 {
		return nil, store.ErrInvalidInput
	}
	client, exists := s.clientsByID[clientID]
	if !exists {
		return nil, store.ErrNotFound
	}
	client.AccumulatedUnits += units
	s.clientsByID[clientID] = client
	updated := client
	return &updated, nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, o := range s.ordersByID {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Product != "" && o.Product != filter.Product {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}

	slices.SortFunc(orders, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	return orders, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyOrder := cloneOrder(order)
	return &copyOrder, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ClientID == "" || !order.Product.Valid() || order.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.clientsByID[order.ClientID]; !exists {
		return nil, store.ErrNotFound
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	s.ordersByID[order.ID] = cloneOrder(order)
	created := order
	return &created, nil
}

func (s *Store) MarkOrderInProgress(_ context.Context, id string, workerID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if order.Status != domain.OrderPending {
		return nil, store.ErrOrderState
	}
	order.Status = domain.OrderInProgress
	order.WorkerID = workerID
	s.ordersByID[id] = order
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) CompleteOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ordersByID[order.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status == domain.OrderDelivered {
		return nil, store.ErrOrderState
	}
	if order.Status != domain.OrderDelivered || order.DeliveredAt == nil {
		return nil, store.ErrOrderState
	}

	s.ordersByID[order.ID] = cloneOrder(order)
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) AppendInventoryLog(_ context.Context, entry domain.InventoryLog) (*domain.InventoryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch entry.Type {
	case domain.InventoryProduction, domain.InventoryWaste, domain.InventorySale:
	default:
		return nil, store.ErrInvalidInput
	}
	if entry.Quantity < 1 {
		return nil, store.ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = xid.New("inv")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	s.inventoryLogs = append(s.inventoryLogs, entry)
	created := entry
	return &created, nil
}

func (s *Store) ListInventoryLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryLog, 0, len(s.inventoryLogs))
	for _, entry := range s.inventoryLogs {
		if !from.IsZero() && entry.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.OccurredAt.After(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.InventoryLog) int {
		if a.OccurredAt.Equal(b.OccurredAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.OccurredAt.After(b.OccurredAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CurrentStock(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock := 0
	for _, entry := range s.inventoryLogs {
		stock += entry.Effect()
	}
	return stock, nil
}

func (s *Store) GetPriceConfig(_ context.Context) (domain.PriceConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.prices.Clone(), nil
}

func (s *Store) SetGeneralPrice(_ context.Context, product domain.ProductType, price int64) (domain.PriceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !product.Valid() || price < 1 {
		return domain.PriceConfig{}, store.ErrInvalidInput
	}
	s.prices.General[product] = price
	return s.prices.Clone(), nil
}

func (s *Store) SetSpecialPrice(_ context.Context, clientID string, product domain.ProductType, price int64) (domain.PriceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !product.Valid() || price < 1 {
		return domain.PriceConfig{}, store.ErrInvalidInput
	}
	if _, exists := s.clientsByID[clientID]; !exists {
		return domain.PriceConfig{}, store.ErrNotFound
	}
	byProduct, exists := s.prices.SpecialPrices[clientID]
	if !exists {
		byProduct = make(map[domain.ProductType]int64, 2)
		s.prices.SpecialPrices[clientID] = byProduct
	}
	byProduct[product] = price
	return s.prices.Clone(), nil
}

func (s *Store) ClearSpecialPrice(_ context.Context, clientID string, product domain.ProductType) (domain.PriceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !product.Valid() {
		return domain.PriceConfig{}, store.ErrInvalidInput
	}
	byProduct, exists := s.prices.SpecialPrices[clientID]
	if exists {
		delete(byProduct, product)
		if len(byProduct) == 0 {
			delete(s.prices.SpecialPrices, clientID)
		}
	}
	return s.prices.Clone(), nil
}

func (s *Store) Snapshot(_ context.Context) (domain.StateSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]domain.Client, 0, len(s.clientsByID))
	for _, c := range s.clientsByID {
		clients = append(clients, c)
	}
	slices.SortFunc(clients, func(a, b domain.Client) int {
		return cmpString(a.ID, b.ID)
	})

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, o := range s.ordersByID {
		orders = append(orders, cloneOrder(o))
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})

	inventory := make([]domain.InventoryLog, len(s.inventoryLogs))
	copy(inventory, s.inventoryLogs)

	return domain.StateSnapshot{
		Clients:   clients,
		Orders:    orders,
		Inventory: inventory,
		Prices:    s.prices.Clone(),
	}, nil
}

// Restore replaces each collection that is present in the snapshot. A nil
// section keeps the current (seeded) data, so a fresh deployment with a
// partial snapshot still starts in a usable state.
func (s *Store) Restore(_ context.Context, snapshot domain.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.Clients != nil {
		clientMap := make(map[string]domain.Client, len(snapshot.Clients))
		for _, c := range snapshot.Clients {
			if c.ID == "" {
				return store.ErrInvalidInput
			}
			clientMap[c.ID] = c
		}
		s.clientsByID = clientMap
	}
	if snapshot.Orders != nil {
		orderMap := make(map[string]domain.Order, len(snapshot.Orders))
		for _, o := range snapshot.Orders {
			if o.ID == "" {
				return store.ErrInvalidInput
			}
			orderMap[o.ID] = cloneOrder(o)
		}
		s.ordersByID = orderMap
	}
	if snapshot.Inventory != nil {
		inventory := make([]domain.InventoryLog, len(snapshot.Inventory))
		copy(inventory, snapshot.Inventory)
		s.inventoryLogs = inventory
	}
	if snapshot.Prices.General != nil {
		prices := snapshot.Prices.Clone()
		if prices.SpecialPrices == nil {
			prices.SpecialPrices = make(map[string]map[domain.ProductType]int64)
		}
		s.prices = prices
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleWorker
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	if src.DeliveredAt != nil {
		delivered := src.DeliveredAt.UTC()
		dup.DeliveredAt = &delivered
	}
	return dup
}
