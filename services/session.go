package services

import (
	"sync"
	"time"
)

// AegisState 不朽之守护持有状态
// 过期是读取时计算的谓词 (now >= ExpireAt), 不落任何定时器,
// 避免墙钟漂移和泄漏的定时器
type AegisState struct {
	HolderPlayerID int       `json:"holder_player_id"`
	ExpireAt       time.Time `json:"expire_at"`
	Snatched       bool      `json:"snatched"`
}

// RemainingSeconds 剩余秒数, 随墙钟单调不增且永不为负
func (a *AegisState) RemainingSeconds(now time.Time) float64 {
	if a == nil {
		return 0
	}
	remaining := a.ExpireAt.Sub(now).Seconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired 是否已过期
func (a *AegisState) Expired(now time.Time) bool {
	return a == nil || !now.Before(a.ExpireAt)
}

// RoshanState Roshan 刷新窗口, 死亡事件写入后只读, 直到下一次死亡覆盖
type RoshanState struct {
	KilledAt     time.Time `json:"killed_at"`
	MinRespawnAt time.Time `json:"min_respawn_at"`
	MaxRespawnAt time.Time `json:"max_respawn_at"`
}

// healthSample 一次血量采样
type healthSample struct {
	Health  float64
	Percent float64
}

// GankWindow 固定容量 3 的血量采样环, 只由血量采样处理器修改
type GankWindow struct {
	samples [3]healthSample
	filled  int
}

// Push 左移窗口并写入最新采样
func (w *GankWindow) Push(s healthSample) {
	w.samples[0] = w.samples[1]
	w.samples[1] = w.samples[2]
	w.samples[2] = s
	if w.filled < 3 {
		w.filled++
	}
}

// Latest 最新采样; Prior 上一条采样
func (w *GankWindow) Latest() (healthSample, bool) {
	if w.filled < 1 {
		return healthSample{}, false
	}
	return w.samples[2], true
}

func (w *GankWindow) Prior() (healthSample, bool) {
	if w.filled < 2 {
		return healthSample{}, false
	}
	return w.samples[1], true
}

// Reset 清空窗口 (换比赛时调用, 避免开局伪采样触发信号)
func (w *GankWindow) Reset() {
	*w = GankWindow{}
}

// MidasCounter 点金手就绪计数器
// 触发后被压到负值, 需要重新积累足够的就绪 tick 才能再次触发
type MidasCounter struct {
	ConsecutiveReadyTicks int
}

// TreadsState 假腿切换省蓝统计
type TreadsState struct {
	ToggleCount      int     `json:"toggle_count"`
	ManaAtLastToggle float64 `json:"mana_at_last_toggle"`
	ManaSaved        float64 `json:"mana_saved"`
	ToggleActive     bool    `json:"toggle_active"`
}

// PredictionStatus 预测生命周期状态
type PredictionStatus string

const (
	PredictionNone      PredictionStatus = "none"
	PredictionOpen      PredictionStatus = "open"
	PredictionLocking   PredictionStatus = "locking"
	PredictionResolving PredictionStatus = "resolving"
	PredictionRefunding PredictionStatus = "refunding"
)

// PredictionOutcome 平台侧结果选项
type PredictionOutcome struct {
	ID    string
	Title string
}

// PredictionState 每会话最多一个非 none 的预测
type PredictionState struct {
	Status               PredictionStatus
	PlatformPredictionID string
	MatchID              string
	Outcomes             []PredictionOutcome
}

// timerHandle 可取消的定时回调, 回调触发前校验句柄仍然登记在会话上,
// 保证 disable/remove 取消后回调一定不再执行
type timerHandle struct {
	timer *time.Timer
}

// Session 一个直播会话, token 是稳定标识, 身份字段来自数据库,
// 比赛内字段在新比赛开始时重置 (会话可以跨多场比赛)
type Session struct {
	Token string

	// 身份字段 (disable 不清除)
	ChannelName string
	Locale      string
	Tier        int
	BetsEnabled bool

	// 路由开关
	StreamOnline bool
	Disabled     bool

	// 比赛内字段
	MatchID    string
	PlayerTeam string // radiant / dire
	GameState  string
	Paused     bool
	WinTeam    string
	Activity   string // playing / spectating
	CustomGame bool

	Aegis      *AegisState
	Roshan     *RoshanState
	Gank       GankWindow
	Midas      MidasCounter
	Treads     TreadsState
	Prediction PredictionState

	// 差异基线, 仅由摄入协程替换
	LastSnapshot *Snapshot
	LastSeenAt   time.Time

	// mu 是会话级处理锁: 分发器处理一条快照、定时器回调、外部读取
	// 都先拿它, 会话内的状态变更因此完全串行。timerMu 只保护定时器表,
	// 锁序固定为 mu -> timerMu, 不允许反向
	mu      sync.Mutex
	timerMu sync.Mutex
	timers  map[string]*timerHandle
}

// NewSession 创建会话
func NewSession(token string) *Session {
	return &Session{
		Token:      token,
		Locale:     "en",
		LastSeenAt: time.Now(),
		timers:     make(map[string]*timerHandle),
		Prediction: PredictionState{Status: PredictionNone},
	}
}

// Lock / Unlock 会话级处理锁
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// AddTimer 登记一个按名字唯一的定时回调, 同名旧定时器先被取消
// 所有定时器都挂在会话上, disable/remove 能一次性取消干净
// 回调在持有会话处理锁的状态下执行, 执行前校验句柄仍然登记在表里:
// 在处理锁内完成的取消 (disable/remove) 之后回调绝不会再执行
func (s *Session) AddTimer(name string, d time.Duration, fn func()) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.timer.Stop()
		delete(s.timers, name)
	}

	h := &timerHandle{}
	h.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.timerMu.Lock()
		cur, ok := s.timers[name]
		if !ok || cur != h {
			// 已被取消或被同名定时器替换, 不执行回调
			s.timerMu.Unlock()
			return
		}
		delete(s.timers, name)
		s.timerMu.Unlock()

		fn()
	})
	s.timers[name] = h
}

// CancelTimer 取消指定定时器, 返回是否存在
func (s *Session) CancelTimer(name string) bool {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	h, ok := s.timers[name]
	if !ok {
		return false
	}
	h.timer.Stop()
	delete(s.timers, name)
	return true
}

// CancelAllTimers 同步取消全部未触发的定时器
func (s *Session) CancelAllTimers() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	for name, h := range s.timers {
		h.timer.Stop()
		delete(s.timers, name)
	}
}

// PendingTimers 当前登记的定时器数量
func (s *Session) PendingTimers() int {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	return len(s.timers)
}

// ResetMatchState 新比赛开始时重置比赛内字段, 身份字段保持不变
// 注意预测状态不在这里清除: 上一场未收尾的预测由预测管理器先退款
func (s *Session) ResetMatchState(matchID string) {
	s.MatchID = matchID
	s.PlayerTeam = ""
	s.GameState = ""
	s.Paused = false
	s.WinTeam = ""
	s.Aegis = nil
	s.Roshan = nil
	s.Gank.Reset()
	s.Midas = MidasCounter{}
	s.Treads = TreadsState{}
}

// InTrackedMatch 是否处于被跟踪的真实比赛中
// 观战、街机 (自定义游戏) 或无 matchid 的状态都不算
func (s *Session) InTrackedMatch() bool {
	if s.MatchID == "" || s.MatchID == "0" {
		return false
	}
	if s.CustomGame {
		return false
	}
	if s.Activity != "" && s.Activity != "playing" {
		return false
	}
	return s.PlayerTeam == "radiant" || s.PlayerTeam == "dire"
}

// Routable 事件是否应当路由到该会话
func (s *Session) Routable() bool {
	return !s.Disabled && s.StreamOnline
}
