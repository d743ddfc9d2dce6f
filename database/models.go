package database

import (
	"time"
)

// SessionRow 会话持久化行
type SessionRow struct {
	ID          int64     `db:"id"`
	Token       string    `db:"token"`
	ChannelName string    `db:"channel_name"`
	Locale      string    `db:"locale"`
	Tier        int       `db:"tier"`
	BetsEnabled bool      `db:"bets_enabled"`
	Disabled    bool      `db:"disabled"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PredictionRecord 预测动作记录
type PredictionRecord struct {
	ID           int64     `db:"id" json:"id"`
	Token        string    `db:"token" json:"token"`
	MatchID      string    `db:"match_id" json:"match_id"`
	PredictionID *string   `db:"prediction_id" json:"prediction_id,omitempty"`
	Action       string    `db:"action" json:"action"` // open, lock, resolve, refund
	Outcome      *string   `db:"outcome" json:"outcome,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
