package models

import "gorm.io/gorm"

// TradeRecord is the local journal of trades submitted from this desk.
// The server ledger is authoritative; this is a convenience log only.
type TradeRecord struct {
	gorm.Model
	Type       string  `json:"type"` // "buy" or "sell"
	Amount     float64 `json:"amount"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Timestamp  int64   `json:"timestamp"`
	Pending    bool    `json:"pending"` // buys stay pending until an admin approves
}
