package services

import (
	"database/sql"
	"fmt"

	"gsi-service/database"
)

// SessionStore 会话身份和预测记录的持久化访问
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore 创建 SessionStore
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// GetByToken 按 token 读取会话身份, 不存在返回 (nil, nil)
func (s *SessionStore) GetByToken(token string) (*database.SessionRow, error) {
	row := s.db.QueryRow(`
		SELECT id, token, channel_name, locale, tier, bets_enabled, disabled
		FROM sessions WHERE token = $1`, token)

	var sr database.SessionRow
	err := row.Scan(&sr.ID, &sr.Token, &sr.ChannelName, &sr.Locale, &sr.Tier, &sr.BetsEnabled, &sr.Disabled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &sr, nil
}

// Upsert 写入会话身份 (首次握手建档, 设置变更覆盖)
func (s *SessionStore) Upsert(token, channelName, locale string, tier int, betsEnabled bool) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (token, channel_name, locale, tier, bets_enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token) DO UPDATE SET
			channel_name = EXCLUDED.channel_name,
			locale = EXCLUDED.locale,
			tier = EXCLUDED.tier,
			bets_enabled = EXCLUDED.bets_enabled,
			updated_at = CURRENT_TIMESTAMP`,
		token, channelName, locale, tier, betsEnabled)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// SetDisabled 更新禁用标记
func (s *SessionStore) SetDisabled(token string, disabled bool) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET disabled = $2, updated_at = CURRENT_TIMESTAMP
		WHERE token = $1`, token, disabled)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// DeleteByToken 删除会话档案
func (s *SessionStore) DeleteByToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListPredictions 按时间倒序读取某会话最近的预测动作记录
func (s *SessionStore) ListPredictions(token string, limit int) ([]database.PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, token, match_id, prediction_id, action, outcome, created_at
		FROM prediction_records
		WHERE token = $1
		ORDER BY created_at DESC
		LIMIT $2`, token, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction records: %w", err)
	}
	defer rows.Close()

	var records []database.PredictionRecord
	for rows.Next() {
		var rec database.PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Token, &rec.MatchID, &rec.PredictionID, &rec.Action, &rec.Outcome, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordPrediction 写一条预测动作记录 (对账用)
func (s *SessionStore) RecordPrediction(token, matchID, predictionID, action, outcome string) error {
	var pid, out *string
	if predictionID != "" {
		pid = &predictionID
	}
	if outcome != "" {
		out = &outcome
	}

	_, err := s.db.Exec(`
		INSERT INTO prediction_records (token, match_id, prediction_id, action, outcome)
		VALUES ($1, $2, $3, $4, $5)`,
		token, matchID, pid, action, out)
	if err != nil {
		return fmt.Errorf("failed to record prediction action: %w", err)
	}
	return nil
}
