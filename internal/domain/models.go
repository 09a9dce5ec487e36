package domain

import "time"

type ProductType string

const (
	ProductIce   ProductType = "ICE"
	ProductWater ProductType = "WATER"
)

func (p ProductType) Valid() bool {
	return p == ProductIce || p == ProductWater
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCredit   PaymentMethod = "CREDIT"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderDelivered  OrderStatus = "DELIVERED"
)

type Classification string

const (
	ClientGood    Classification = "GOOD"
	ClientRegular Classification = "REGULAR"
	ClientBad     Classification = "BAD"
)

func (c Classification) Valid() bool {
	return c == ClientGood || c == ClientRegular || c == ClientBad
}

const (
	RoleAdmin    = "admin"
	RoleWorker   = "worker"
	RoleCustomer = "customer"
)

// LoyaltyGoalUnits is the delivered-unit threshold for the loyalty reward.
const LoyaltyGoalUnits = 1500

type Client struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Business           string         `json:"business"`
	Phone              string         `json:"phone"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	AvgMonthlyPurchase int            `json:"avg_monthly_purchase"`
	Classification     Classification `json:"classification"`
	AccumulatedUnits   int            `json:"accumulated_units"`
}

type ClientCreateRequest struct {
	Name               string         `json:"name"`
	Business           string         `json:"business"`
	Phone              string         `json:"phone"`
	Lat                float64        `json:"lat"`
	Lng                float64        `json:"lng"`
	AvgMonthlyPurchase int            `json:"avg_monthly_purchase"`
	Classification     Classification `json:"classification"`
}

// Order amounts are whole MXN pesos. UnitPrice is captured at creation and
// re-resolved when the delivery completes, so Amount == Quantity * UnitPrice
// holds in both states.
type Order struct {
	ID              string        `json:"id"`
	ClientID        string        `json:"client_id"`
	Product         ProductType   `json:"product"`
	Quantity        int           `json:"quantity"`
	PaymentMethod   PaymentMethod `json:"payment_method,omitempty"`
	Status          OrderStatus   `json:"status"`
	WorkerID        string        `json:"worker_id,omitempty"`
	Signature       string        `json:"signature,omitempty"`
	PhotoRef        string        `json:"photo_ref,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	UnitPrice       int64         `json:"unit_price"`
	Amount          int64         `json:"amount"`
}

type OrderCreateRequest struct {
	ClientID string      `json:"client_id"`
	Product  ProductType `json:"product"`
	Quantity int         `json:"quantity"`
}

// DeliveryCompletionRequest carries the proof-of-delivery payload. Quantity,
// when positive, overrides the ordered quantity (the worker can correct the
// count at the door). Signature and PhotoRef are opaque markers; both must be
// present for the transition to DELIVERED.
type DeliveryCompletionRequest struct {
	Quantity      int           `json:"quantity,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Signature     string        `json:"signature"`
	PhotoRef      string        `json:"photo_ref"`
}

type DirectSaleRequest struct {
	ClientID      string        `json:"client_id"`
	Product       ProductType   `json:"product"`
	Quantity      int           `json:"quantity"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Signature     string        `json:"signature"`
	PhotoRef      string        `json:"photo_ref"`
}

type OrderFilter struct {
	Status  OrderStatus
	Product ProductType
}

type InventoryType string

const (
	InventoryProduction InventoryType = "PRODUCTION"
	InventoryWaste      InventoryType = "WASTE"
	// InventorySale entries are appended by the order lifecycle when an ice
	// delivery completes; they are never accepted from user input.
	InventorySale InventoryType = "SALE"
)

type InventoryLog struct {
	ID         string        `json:"id"`
	OccurredAt time.Time     `json:"occurred_at"`
	Quantity   int           `json:"quantity"`
	Type       InventoryType `json:"type"`
	Reason     string        `json:"reason,omitempty"`
}

// Effect returns the signed stock impact of the entry.
func (l InventoryLog) Effect() int {
	if l.Type == InventoryProduction {
		return l.Quantity
	}
	return -l.Quantity
}

type InventoryEntryRequest struct {
	Type     InventoryType `json:"type"`
	Quantity int           `json:"quantity"`
	Reason   string        `json:"reason,omitempty"`
}

// PriceConfig holds the island-wide base prices plus per-client overrides.
// An absent override always falls back to the general price.
type PriceConfig struct {
	General       map[ProductType]int64            `json:"general"`
	SpecialPrices map[string]map[ProductType]int64 `json:"special_prices"`
}

// Resolve returns the effective unit price for a client/product pair.
func (p PriceConfig) Resolve(clientID string, product ProductType) int64 {
	if byProduct, ok := p.SpecialPrices[clientID]; ok {
		if price, ok := byProduct[product]; ok {
			return price
		}
	}
	return p.General[product]
}

func (p PriceConfig) Clone() PriceConfig {
	dup := PriceConfig{
		General:       make(map[ProductType]int64, len(p.General)),
		SpecialPrices: make(map[string]map[ProductType]int64, len(p.SpecialPrices)),
	}
	for product, price := range p.General {
		dup.General[product] = price
	}
	for clientID, byProduct := range p.SpecialPrices {
		inner := make(map[ProductType]int64, len(byProduct))
		for product, price := range byProduct {
			inner[product] = price
		}
		dup.SpecialPrices[clientID] = inner
	}
	return dup
}

type GeneralPriceRequest struct {
	Product ProductType `json:"product"`
	Price   int64       `json:"price"`
}

// SpecialPriceRequest sets a per-client override when Price > 0 and clears
// it when Price == 0.
type SpecialPriceRequest struct {
	ClientID string      `json:"client_id"`
	Product  ProductType `json:"product"`
	Price    int64       `json:"price"`
}

type LoyaltyProgress struct {
	ClientID         string  `json:"client_id"`
	Business         string  `json:"business"`
	AccumulatedUnits int     `json:"accumulated_units"`
	GoalUnits        int     `json:"goal_units"`
	ProgressPercent  float64 `json:"progress_percent"`
	RemainingUnits   int     `json:"remaining_units"`
}

type PaymentBuckets struct {
	Cash        int64 `json:"cash"`
	Credit      int64 `json:"credit"`
	Card        int64 `json:"card"`
	Transfer    int64 `json:"transfer"`
	Unspecified int64 `json:"unspecified"`
}

type PeriodTotals struct {
	Total     int64          `json:"total"`
	Ice       int64          `json:"ice"`
	Water     int64          `json:"water"`
	Units     int            `json:"units"`
	ByPayment PaymentBuckets `json:"by_payment"`
}

// Trend is the percent change of the trailing period against the prior
// equal-length period. Measurable is false when the prior period had no
// revenue; Percent is meaningless then and callers should render a
// "new business" marker instead of a number.
type Trend struct {
	Percent    float64 `json:"percent"`
	Measurable bool    `json:"measurable"`
}

type TopClient struct {
	ClientID string `json:"client_id"`
	Business string `json:"business"`
	Units    int    `json:"units"`
}

type DailySales struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

type DashboardReport struct {
	AsOf              time.Time    `json:"as_of"`
	Today             PeriodTotals `json:"today"`
	Trailing30Days    PeriodTotals `json:"trailing_30_days"`
	Trend             Trend        `json:"trend"`
	TopClient         *TopClient   `json:"top_client,omitempty"`
	DailySeries       []DailySales `json:"daily_series"`
	Stock             int          `json:"stock"`
	WasteUnits        int          `json:"waste_units"`
	WasteRatioPercent float64      `json:"waste_ratio_percent"`
}

type LoginRequest struct {
	Role     string      `json:"role"`
	Route    ProductType `json:"route,omitempty"`
	Password string      `json:"password"`
}

type CustomerLoginRequest struct {
	Business string `json:"business"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	Role        string      `json:"role"`
	Route       ProductType `json:"route,omitempty"`
	ClientID    string      `json:"client_id,omitempty"`
	ExpiresAt   string      `json:"expires_at"`
}

// Actor is the authenticated principal attached to request contexts.
// Route is set for workers, ClientID for customers.
type Actor struct {
	ID       string
	Role     string
	Route    ProductType
	ClientID string
}

type StaffCreateRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     string      `json:"role"`
	Route    ProductType `json:"route,omitempty"`
}

type StaffUser struct {
	Username  string      `json:"username"`
	Role      string      `json:"role"`
	Route     ProductType `json:"route,omitempty"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Route     ProductType
	Active    bool
	CreatedAt time.Time
}

// StateSnapshot is the unit of persistence: the four collections that make
// up the whole application state.
type StateSnapshot struct {
	Clients   []Client       `json:"clients"`
	Orders    []Order        `json:"orders"`
	Inventory []InventoryLog `json:"inventory"`
	Prices    PriceConfig    `json:"prices"`
}
