// Package store persists orders, order pairs and completed trade history.
// Ported in structure from web3guy0-polybot's internal/database package:
// plain gorm models, AutoMigrate on startup, a postgres-vs-sqlite branch
// keyed off the DSN prefix.
package store

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OrderRow is the persisted form of model.Order, one row per leg.
type OrderRow struct {
	UUID         string `gorm:"primaryKey"`
	Pair         string `gorm:"index"`
	Side         string
	OrderType    string
	Status       string `gorm:"index"`
	VenueName    string
	VenueOrderID string
	Price        float64
	QuoteAmount  decimal.Decimal `gorm:"type:decimal(28,10)"`
	BaseAmount   decimal.Decimal `gorm:"type:decimal(28,10)"`
	// ExecutedAt/ExpiredAt mirror model.Order's own fields (§3/§6):
	// ExecutedAt is stamped when the order reaches a closed status and
	// drives the reversal queue's forced-reversal-by-deadline check;
	// ExpiredAt is carried for schema completeness, unset like its
	// Python source counterpart.
	ExecutedAt time.Time
	ExpiredAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderPairRow links the two legs of an arbitrage trade: LeftOrderUUID is
// the buy leg and RightOrderUUID the sell leg. Ported from
// cryptotrader.models.order.Order's order_pairs table, the one the
// reversal queue's atomic pop reads from.
type OrderPairRow struct {
	UUID          string `gorm:"primaryKey"`
	LeftOrderUUID string `gorm:"index"`
	RightOrderUUID string `gorm:"index"`
	Time          time.Time `gorm:"index"`
}

// TradeHistoryRow records a completed (both legs resolved) arbitrage
// trade for reporting, independent of the live orders/order_pairs tables.
type TradeHistoryRow struct {
	ID         uint `gorm:"primaryKey;autoIncrement"`
	Pair       string `gorm:"index"`
	BuyVenue   string
	SellVenue  string
	Profit     decimal.Decimal `gorm:"type:decimal(28,10)"`
	Reversed   bool
	ClosedAt   time.Time
	CreatedAt  time.Time
}

func (OrderRow) TableName() string        { return "orders" }
func (OrderPairRow) TableName() string    { return "order_pairs" }
func (TradeHistoryRow) TableName() string { return "trade_history" }

// Store wraps the gorm handle and exposes the operations the scheduler,
// strategy and reversal queue need.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn, picking the postgres or sqlite driver by prefix,
// and runs AutoMigrate for every model this package owns.
func Open(dsn string) (*Store, error) {
	var db *gorm.DB
	var err error

	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&OrderRow{}, &OrderPairRow{}, &TradeHistoryRow{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying gorm handle for packages (queue) that need
// transactional access beyond these convenience methods.
func (s *Store) DB() *gorm.DB { return s.db }

// SaveOrder upserts an order row.
func (s *Store) SaveOrder(row OrderRow) error {
	return s.db.Save(&row).Error
}

// GetOrder looks up a single order by uuid.
func (s *Store) GetOrder(uuid string) (OrderRow, error) {
	var row OrderRow
	err := s.db.First(&row, "uuid = ?", uuid).Error
	return row, err
}

// OrdersByStatus lists every order currently in the given status, used at
// startup to find dangling "placed" orders left behind by a crash.
func (s *Store) OrdersByStatus(status string) ([]OrderRow, error) {
	var rows []OrderRow
	err := s.db.Where("status = ?", status).Find(&rows).Error
	return rows, err
}

// SaveOrderPair records a new order pair.
func (s *Store) SaveOrderPair(row OrderPairRow) error {
	return s.db.Create(&row).Error
}

// DeleteOrderPair removes an order pair once both legs have resolved.
func (s *Store) DeleteOrderPair(uuid string) error {
	return s.db.Delete(&OrderPairRow{}, "uuid = ?", uuid).Error
}

// RecordTrade appends a completed trade to the history table.
func (s *Store) RecordTrade(row TradeHistoryRow) error {
	return s.db.Create(&row).Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
