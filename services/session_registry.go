package services

import (
	"encoding/json"
	"sync"
	"time"

	"gsi-service/logger"
)

// SessionRegistry token 到会话的唯一属主
// 其他组件一律通过这里查会话, 不各自持有会话引用
// 没有跨进程锁保护同一个 token 被两个实例同时接管, 这是已知的
// 一致性缺口; 金融动作只依赖实时会话状态, 不依赖共享缓存
type SessionRegistry struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	store        EphemeralStore
	sessionStore *SessionStore // 可为 nil (测试/无数据库运行)
	idleTTL      time.Duration
	done         chan bool
}

// NewSessionRegistry 创建会话注册表
func NewSessionRegistry(store EphemeralStore, sessionStore *SessionStore, idleTTL time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions:     make(map[string]*Session),
		store:        store,
		sessionStore: sessionStore,
		idleTTL:      idleTTL,
		done:         make(chan bool),
	}
}

// Register 首次握手建会话, 已存在则直接返回
// 身份字段从数据库加载, 比赛内展示状态从短时存储回填 (进程重启恢复)
func (r *SessionRegistry) Register(token string) *Session {
	r.mu.RLock()
	if sess, ok := r.sessions[token]; ok {
		r.mu.RUnlock()
		return sess
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// double check: 两个并发首帖只建一个会话
	if sess, ok := r.sessions[token]; ok {
		return sess
	}

	sess := NewSession(token)

	// GSI 客户端只在游戏运行时上报, 注册即视为开播;
	// 下播由外部开关 (stream 接口) 显式关闭
	sess.StreamOnline = true

	// 加载持久化身份
	if r.sessionStore != nil {
		row, err := r.sessionStore.GetByToken(token)
		if err != nil {
			logger.Errorf("[SessionRegistry] Failed to load identity for %s: %v", token, err)
		} else if row != nil {
			sess.ChannelName = row.ChannelName
			sess.Locale = row.Locale
			sess.Tier = row.Tier
			sess.BetsEnabled = row.BetsEnabled
			sess.Disabled = row.Disabled
		}
	}

	// 回填短时存储里的展示状态
	r.recoverEphemeralState(sess)

	r.sessions[token] = sess
	logger.Printf("[SessionRegistry] Registered session %s (channel=%s)", token, sess.ChannelName)
	return sess
}

// recoverEphemeralState 从短时存储回填 aegis/roshan/match_id
// 读失败只记日志: 这些数据只影响展示
func (r *SessionRegistry) recoverEphemeralState(sess *Session) {
	if r.store == nil {
		return
	}

	if v, ok, err := r.store.Get(sess.Token, StoreKeyMatchID); err != nil {
		logger.Errorf("[SessionRegistry] Failed to recover match_id for %s: %v", sess.Token, err)
	} else if ok {
		sess.MatchID = v
	}

	if v, ok, err := r.store.Get(sess.Token, StoreKeyAegis); err != nil {
		logger.Errorf("[SessionRegistry] Failed to recover aegis for %s: %v", sess.Token, err)
	} else if ok {
		var aegis AegisState
		if err := json.Unmarshal([]byte(v), &aegis); err == nil && !aegis.Expired(time.Now()) {
			sess.Aegis = &aegis
		}
	}

	if v, ok, err := r.store.Get(sess.Token, StoreKeyRoshan); err != nil {
		logger.Errorf("[SessionRegistry] Failed to recover roshan for %s: %v", sess.Token, err)
	} else if ok {
		var roshan RoshanState
		if err := json.Unmarshal([]byte(v), &roshan); err == nil {
			sess.Roshan = &roshan
		}
	}
}

// Get 查会话, 不存在返回 nil
func (r *SessionRegistry) Get(token string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[token]
}

// Tokens 当前全部会话 token
func (r *SessionRegistry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.sessions))
	for token := range r.sessions {
		tokens = append(tokens, token)
	}
	return tokens
}

// Enable 重新接入事件路由, 不回放禁用期间错过的事件
func (r *SessionRegistry) Enable(token string) bool {
	sess := r.Get(token)
	if sess == nil {
		return false
	}

	sess.Lock()
	sess.Disabled = false
	sess.Unlock()

	if r.sessionStore != nil {
		if err := r.sessionStore.SetDisabled(token, false); err != nil {
			logger.Errorf("[SessionRegistry] Failed to persist enable for %s: %v", token, err)
		}
	}

	logger.Printf("[SessionRegistry] Enabled session %s", token)
	return true
}

// Disable 停止事件路由并同步取消全部未触发定时器
// 身份字段 (token/locale/tier) 不动, enable 之后可以继续用
func (r *SessionRegistry) Disable(token string) bool {
	sess := r.Get(token)
	if sess == nil {
		return false
	}

	sess.Lock()
	sess.Disabled = true
	sess.CancelAllTimers()
	sess.Unlock()

	if r.sessionStore != nil {
		if err := r.sessionStore.SetDisabled(token, true); err != nil {
			logger.Errorf("[SessionRegistry] Failed to persist disable for %s: %v", token, err)
		}
	}

	logger.Printf("[SessionRegistry] Disabled session %s", token)
	return true
}

// Remove 销毁会话: 取消定时器、清掉短时存储条目、从注册表摘除
func (r *SessionRegistry) Remove(token string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[token]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.sessions, token)
	r.mu.Unlock()

	sess.Lock()
	sess.Disabled = true
	sess.CancelAllTimers()
	sess.Unlock()

	if r.store != nil {
		for _, key := range []string{StoreKeyAegis, StoreKeyRoshan, StoreKeyMatchID} {
			if err := r.store.Delete(token, key); err != nil {
				logger.Errorf("[SessionRegistry] Failed to clear store key %s for %s: %v", key, token, err)
			}
		}
	}

	logger.Printf("[SessionRegistry] Removed session %s", token)
	return true
}

// Count 当前会话数量
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StartJanitor 启动闲置会话清理协程
// 超过 idleTTL 没有快照的会话视为客户端已退出, 整体销毁
func (r *SessionRegistry) StartJanitor() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
				r.sweepIdle()
			}
		}
	}()
}

// sweepIdle 清理闲置会话
func (r *SessionRegistry) sweepIdle() {
	now := time.Now()

	r.mu.RLock()
	var idle []string
	for token, sess := range r.sessions {
		sess.Lock()
		lastSeen := sess.LastSeenAt
		sess.Unlock()
		if now.Sub(lastSeen) > r.idleTTL {
			idle = append(idle, token)
		}
	}
	r.mu.RUnlock()

	for _, token := range idle {
		logger.Printf("[SessionRegistry] Session %s idle for over %v, removing", token, r.idleTTL)
		r.Remove(token)
	}
}

// Stop 停止清理协程
func (r *SessionRegistry) Stop() {
	close(r.done)
}
