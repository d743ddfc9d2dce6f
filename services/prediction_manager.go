package services

import (
	"fmt"
	"time"

	"gsi-service/logger"
)

const (
	// predictionLockTimer 锁盘定时器在会话上的注册名
	predictionLockTimer = "prediction-lock"

	// predictionNudgeTimer 锁盘前聊天提醒定时器
	predictionNudgeTimer = "prediction-nudge"
)

// PredictionManager 预测生命周期管理
// 状态流转: NONE -> OPEN -> LOCKING -> RESOLVING -> NONE,
// 退款路径 NONE -> OPEN -> REFUNDING -> NONE
// 每会话同一时刻最多一个非 NONE 的预测; 重复 open 是 no-op 不是错误
// 平台调用失败时状态停在当前非终态值, 等下一次触发重试; 不做自动重试
// 所有方法都假定调用方已持有会话处理锁 (分发器或定时器回调)
type PredictionManager struct {
	platform     PredictionPlatform
	resolver     *OutcomeResolver
	chat         ChatNotifier
	broadcaster  Broadcaster
	sessionStore *SessionStore // 可为 nil, 对账记录尽力而为
	windowSec    int
}

// NewPredictionManager 创建预测管理器
func NewPredictionManager(platform PredictionPlatform, resolver *OutcomeResolver, chat ChatNotifier, broadcaster Broadcaster, sessionStore *SessionStore, windowSec int) *PredictionManager {
	return &PredictionManager{
		platform:     platform,
		resolver:     resolver,
		chat:         chat,
		broadcaster:  broadcaster,
		sessionStore: sessionStore,
		windowSec:    windowSec,
	}
}

// HandleNewMatch 处理新比赛开始
// 上一场还挂着的预测先按结果不明退款, 再尝试为新比赛开盘
func (m *PredictionManager) HandleNewMatch(sess *Session, ev Event) {
	if sess.Prediction.Status != PredictionNone && sess.Prediction.MatchID != sess.MatchID {
		m.Refund(sess, "previous match ended without a tracked result")
	}

	m.Open(sess)
}

// HandleWinTeam 处理获胜方出现
func (m *PredictionManager) HandleWinTeam(sess *Session, ev Event) {
	if ev.StrValue != "radiant" && ev.StrValue != "dire" {
		return
	}
	m.Resolve(sess, ev.StrValue)
}

// HandleGameState 处理对局状态变化
// 进入赛后但从未出现获胜方时结果不明, 退款
func (m *PredictionManager) HandleGameState(sess *Session, ev Event) {
	if ev.StrValue != "DOTA_GAMERULES_STATE_POST_GAME" {
		return
	}
	if sess.WinTeam != "" {
		return
	}
	if sess.Prediction.Status == PredictionNone {
		return
	}
	m.Refund(sess, "match reached post game without a winner")
}

// Open 开盘
// 前置校验: 开播中、真实比赛、功能开启、当前没有未收尾的预测
// 状态先置 OPEN 再调平台 (并发的第二次 open 看见 OPEN 直接 no-op,
// 恰好产生一次平台调用); 调用失败回到 NONE 等下次触发
func (m *PredictionManager) Open(sess *Session) {
	if m.platform == nil || !sess.BetsEnabled || !sess.StreamOnline || sess.ChannelName == "" {
		return
	}
	if !sess.InTrackedMatch() {
		return
	}
	if sess.Prediction.Status != PredictionNone {
		// 已有预测在途, no-op
		return
	}

	matchID := sess.MatchID
	sess.Prediction = PredictionState{Status: PredictionOpen, MatchID: matchID}

	title := "Will we win this match?"
	prediction, err := m.platform.CreatePrediction(sess.ChannelName, title, []string{"Yes", "No"}, m.windowSec)
	if err != nil {
		logger.Errorf("[Prediction] %s: open failed: %v", sess.Token, err)
		sess.Prediction = PredictionState{Status: PredictionNone}
		return
	}

	sess.Prediction.PlatformPredictionID = prediction.ID
	sess.Prediction.Outcomes = prediction.Outcomes

	logger.Printf("[Prediction] %s: opened prediction %s for match %s", sess.Token, prediction.ID, matchID)
	m.record(sess, "open", "")
	m.broadcaster.Publish(sess.Token, BroadcastRefresh, nil)
	m.say(sess, fmt.Sprintf("Bets are open for the next %d minutes!", m.windowSec/60))

	// 下注窗口结束后锁盘; 锁盘前一分钟提醒
	sess.AddTimer(predictionLockTimer, time.Duration(m.windowSec)*time.Second, func() {
		m.Lock(sess)
	})
	if m.windowSec > 60 {
		sess.AddTimer(predictionNudgeTimer, time.Duration(m.windowSec-60)*time.Second, func() {
			m.say(sess, "Bets close in 1 minute!")
		})
	}
}

// Lock 锁盘, 仅在 OPEN 状态下有效
func (m *PredictionManager) Lock(sess *Session) {
	if sess.Prediction.Status != PredictionOpen {
		return
	}

	sess.Prediction.Status = PredictionLocking
	err := m.platform.LockPrediction(sess.ChannelName, sess.Prediction.PlatformPredictionID)
	if err == ErrPredictionNotFound {
		// 平台上已不存在, 视为已结算
		logger.Printf("[Prediction] %s: lock found no prediction, treating as settled", sess.Token)
		m.finish(sess)
		return
	}
	if err != nil {
		// 停在 OPEN 等重试
		logger.Errorf("[Prediction] %s: lock failed: %v", sess.Token, err)
		sess.Prediction.Status = PredictionOpen
		return
	}

	logger.Printf("[Prediction] %s: locked prediction %s", sess.Token, sess.Prediction.PlatformPredictionID)
	m.record(sess, "lock", "")
}

// Resolve 结算, 仅在 OPEN/LOCKING 状态下有效
// winningTeam 是比赛获胜方; 映射到平台 outcome 时优先语义匹配文案,
// 匹配不上回退位置约定
func (m *PredictionManager) Resolve(sess *Session, winningTeam string) {
	status := sess.Prediction.Status
	if status != PredictionOpen && status != PredictionLocking {
		return
	}

	playerWon := winningTeam == sess.PlayerTeam
	outcomeID, err := m.resolver.ResolveWinningOutcome(sess.Prediction.Outcomes, playerWon)
	if err != nil {
		// 结果无法映射, 退款比错误结算安全
		logger.Errorf("[Prediction] %s: outcome mapping failed: %v", sess.Token, err)
		m.Refund(sess, "could not map winning outcome")
		return
	}

	sess.Prediction.Status = PredictionResolving
	err = m.platform.ResolvePrediction(sess.ChannelName, sess.Prediction.PlatformPredictionID, outcomeID)
	if err == ErrPredictionNotFound {
		logger.Printf("[Prediction] %s: resolve found no prediction, treating as settled", sess.Token)
		m.finish(sess)
		return
	}
	if err != nil {
		// 停在调用前的状态等重试
		logger.Errorf("[Prediction] %s: resolve failed: %v", sess.Token, err)
		sess.Prediction.Status = status
		return
	}

	logger.Printf("[Prediction] %s: resolved prediction %s (playerWon=%v)", sess.Token, sess.Prediction.PlatformPredictionID, playerWon)
	m.record(sess, "resolve", winningTeam)
	if playerWon {
		m.say(sess, "We won! Paying out the believers.")
	} else {
		m.say(sess, "We lost. Better luck next game.")
	}
	m.finish(sess)
}

// Refund 退款, 任何非 NONE 状态下都有效
// 用于结果不明的场合 (提前掉线、换比赛), 避免错误地奖惩下注观众
func (m *PredictionManager) Refund(sess *Session, reason string) {
	status := sess.Prediction.Status
	if status == PredictionNone {
		return
	}

	sess.Prediction.Status = PredictionRefunding
	err := m.platform.CancelPrediction(sess.ChannelName, sess.Prediction.PlatformPredictionID)
	if err == ErrPredictionNotFound {
		logger.Printf("[Prediction] %s: refund found no prediction, treating as settled", sess.Token)
		m.finish(sess)
		return
	}
	if err != nil {
		logger.Errorf("[Prediction] %s: refund failed: %v", sess.Token, err)
		sess.Prediction.Status = status
		return
	}

	logger.Printf("[Prediction] %s: refunded prediction %s (%s)", sess.Token, sess.Prediction.PlatformPredictionID, reason)
	m.record(sess, "refund", reason)
	m.finish(sess)
}

// finish 收尾: 清状态、取消盘口相关定时器、通知覆盖层刷新
func (m *PredictionManager) finish(sess *Session) {
	sess.Prediction = PredictionState{Status: PredictionNone}
	sess.CancelTimer(predictionLockTimer)
	sess.CancelTimer(predictionNudgeTimer)
	m.broadcaster.Publish(sess.Token, BroadcastRefresh, nil)
}

// record 写对账记录, 失败只记日志
func (m *PredictionManager) record(sess *Session, action, outcome string) {
	if m.sessionStore == nil {
		return
	}
	if err := m.sessionStore.RecordPrediction(sess.Token, sess.Prediction.MatchID, sess.Prediction.PlatformPredictionID, action, outcome); err != nil {
		logger.Errorf("[Prediction] %s: failed to record %s: %v", sess.Token, action, err)
	}
}

// say 聊天输出, 失败只记日志
func (m *PredictionManager) say(sess *Session, text string) {
	if m.chat == nil || sess.ChannelName == "" {
		return
	}
	if err := m.chat.Say(sess.ChannelName, text, SayOptions{SessionTier: sess.Tier}); err != nil {
		logger.Errorf("[Prediction] %s: chat failed: %v", sess.Token, err)
	}
}
