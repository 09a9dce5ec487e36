package store

import (
	"context"
	"errors"
	"time"

	"github.com/cmiliandi-arch/Mayan-CARIBBEAN/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrOrderState    = errors.New("invalid order state")
	ErrProofRequired = errors.New("delivery proof required")
)

type Repository interface {
	ListClients(ctx context.Context) ([]domain.Client, error)
	GetClientByID(ctx context.Context, id string) (*domain.Client, error)
	FindClientByBusiness(ctx context.Context, business string) (*domain.Client, error)
	CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error)
	AccumulateClientUnits(ctx context.Context, clientID string, units int) (*domain.Client, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	MarkOrderInProgress(ctx context.Context, id string, workerID string) (*domain.Order, error)
	CompleteOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	AppendInventoryLog(ctx context.Context, entry domain.InventoryLog) (*domain.InventoryLog, error)
	ListInventoryLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.InventoryLog, error)
	CurrentStock(ctx context.Context) (int, error)
	GetPriceConfig(ctx context.Context) (domain.PriceConfig, error)
	SetGeneralPrice(ctx context.Context, product domain.ProductType, price int64) (domain.PriceConfig, error)
	SetSpecialPrice(ctx context.Context, clientID string, product domain.ProductType, price int64) (domain.PriceConfig, error)
	ClearSpecialPrice(ctx context.Context, clientID string, product domain.ProductType) (domain.PriceConfig, error)
	Snapshot(ctx context.Context) (domain.StateSnapshot, error)
	Restore(ctx context.Context, snapshot domain.StateSnapshot) error
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
