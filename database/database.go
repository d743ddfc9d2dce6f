package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 会话表 (持久化身份字段, 每个 GSI token 一行)
		`CREATE TABLE IF NOT EXISTS sessions (
			id BIGSERIAL PRIMARY KEY,
			token VARCHAR(100) UNIQUE NOT NULL,
			channel_name VARCHAR(100) NOT NULL,
			locale VARCHAR(10) DEFAULT 'en',
			tier INTEGER DEFAULT 0,
			bets_enabled BOOLEAN DEFAULT false,
			disabled BOOLEAN DEFAULT false,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_channel_name ON sessions(channel_name)`,

		// 预测记录表 (每次开盘/结算/退款写一行, 用于对账)
		`CREATE TABLE IF NOT EXISTS prediction_records (
			id BIGSERIAL PRIMARY KEY,
			token VARCHAR(100) NOT NULL,
			match_id VARCHAR(50) NOT NULL,
			prediction_id VARCHAR(100),
			action VARCHAR(20) NOT NULL,
			outcome VARCHAR(50),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_records_token ON prediction_records(token)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_records_match_id ON prediction_records(match_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
