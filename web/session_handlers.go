package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gsi-service/logger"
	"gsi-service/services"
)

// sessionSummary 会话列表项
type sessionSummary struct {
	Token        string `json:"token"`
	ChannelName  string `json:"channel_name"`
	Disabled     bool   `json:"disabled"`
	StreamOnline bool   `json:"stream_online"`
	MatchID      string `json:"match_id,omitempty"`
	LastSeenAt   int64  `json:"last_seen_at"`
}

// handleListSessions 列出所有在线会话
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	tokens := s.registry.Tokens()
	summaries := make([]sessionSummary, 0, len(tokens))

	for _, token := range tokens {
		sess := s.registry.Get(token)
		if sess == nil {
			continue
		}
		sess.Lock()
		summaries = append(summaries, sessionSummary{
			Token:        sess.Token,
			ChannelName:  sess.ChannelName,
			Disabled:     sess.Disabled,
			StreamOnline: sess.StreamOnline,
			MatchID:      sess.MatchID,
			LastSeenAt:   sess.LastSeenAt.Unix(),
		})
		sess.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":    len(summaries),
		"sessions": summaries,
	})
}

// handleSessionState 查看单个会话的实时状态 (Aegis剩余/Roshan窗口/预测状态等)
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess := s.registry.Get(mux.Vars(r)["token"])
	if sess == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	now := time.Now()
	sess.Lock()

	state := map[string]interface{}{
		"token":          sess.Token,
		"channel_name":   sess.ChannelName,
		"disabled":       sess.Disabled,
		"stream_online":  sess.StreamOnline,
		"bets_enabled":   sess.BetsEnabled,
		"match_id":       sess.MatchID,
		"player_team":    sess.PlayerTeam,
		"game_state":     sess.GameState,
		"paused":         sess.Paused,
		"win_team":       sess.WinTeam,
		"pending_timers": sess.PendingTimers(),
		"last_seen_at":   sess.LastSeenAt.Unix(),
	}

	if sess.Aegis != nil && !sess.Aegis.Expired(now) {
		state["aegis"] = map[string]interface{}{
			"holder_player_id":  sess.Aegis.HolderPlayerID,
			"remaining_seconds": sess.Aegis.RemainingSeconds(now),
			"snatched":          sess.Aegis.Snatched,
		}
	}

	if sess.Roshan != nil {
		state["roshan"] = map[string]interface{}{
			"killed_at":      sess.Roshan.KilledAt.Unix(),
			"min_respawn_at": sess.Roshan.MinRespawnAt.Unix(),
			"max_respawn_at": sess.Roshan.MaxRespawnAt.Unix(),
			"alive":          !now.Before(sess.Roshan.MaxRespawnAt),
		}
	}

	state["prediction"] = map[string]interface{}{
		"status":   string(sess.Prediction.Status),
		"match_id": sess.Prediction.MatchID,
	}

	state["treads"] = sess.Treads

	sess.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(state)
}

// handleEnableSession 恢复会话事件投递
func (s *Server) handleEnableSession(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if !s.registry.Enable(token) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.writeOK(w, token, "enabled")
}

// handleDisableSession 静默会话: 之后的事件全部抑制, 已排定的定时器取消
func (s *Server) handleDisableSession(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if !s.registry.Disable(token) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.writeOK(w, token, "disabled")
}

// handleRemoveSession 摘除会话、清空临时状态并删除持久化档案
// 这是彻底注销; 闲置清理只摘内存会话, 档案保留等下次握手回装
func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if !s.registry.Remove(token) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if s.sessionStore != nil {
		if err := s.sessionStore.DeleteByToken(token); err != nil {
			logger.Errorf("[Web] Failed to delete session record for %s: %v", token, err)
		}
	}

	s.writeOK(w, token, "removed")
}

// handleSessionPredictions 查询会话最近的预测动作记录 (对账接口)
func (s *Server) handleSessionPredictions(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if s.sessionStore == nil {
		http.Error(w, "persistence not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := s.sessionStore.ListPredictions(token, limit)
	if err != nil {
		logger.Errorf("[Web] Failed to list prediction records for %s: %v", token, err)
		http.Error(w, "failed to query prediction records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":   token,
		"count":   len(records),
		"records": records,
	})
}

// handleRefreshSession 通知该 token 房间内的覆盖层客户端重新拉取状态
func (s *Server) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	if s.registry.Get(token) == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	s.wsHub.Publish(token, services.BroadcastRefresh, nil)
	s.writeOK(w, token, "refreshed")
}

// handleStreamFlag 更新直播在线标记 (平台侧的上下播 webhook 调用)
func (s *Server) handleStreamFlag(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	sess := s.registry.Get(token)
	if sess == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess.Lock()
	sess.StreamOnline = req.Online
	sess.Unlock()

	s.writeOK(w, token, "stream flag updated")
}

// handleSessionSettings 更新会话身份设置并落库
func (s *Server) handleSessionSettings(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	sess := s.registry.Get(token)
	if sess == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req struct {
		ChannelName *string `json:"channel_name"`
		Locale      *string `json:"locale"`
		Tier        *int    `json:"tier"`
		BetsEnabled *bool   `json:"bets_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess.Lock()
	if req.ChannelName != nil {
		sess.ChannelName = *req.ChannelName
	}
	if req.Locale != nil {
		sess.Locale = *req.Locale
	}
	if req.Tier != nil {
		sess.Tier = *req.Tier
	}
	if req.BetsEnabled != nil {
		sess.BetsEnabled = *req.BetsEnabled
	}
	channelName := sess.ChannelName
	locale := sess.Locale
	tier := sess.Tier
	betsEnabled := sess.BetsEnabled
	sess.Unlock()

	if s.sessionStore != nil {
		if err := s.sessionStore.Upsert(token, channelName, locale, tier, betsEnabled); err != nil {
			http.Error(w, "failed to persist settings", http.StatusInternalServerError)
			return
		}
	}

	s.writeOK(w, token, "settings updated")
}

func (s *Server) writeOK(w http.ResponseWriter, token, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":   token,
		"message": message,
	})
}
