package services

import (
	"encoding/json"
	"time"

	"gsi-service/logger"
)

const (
	// AegisWindow 不朽之守护的固定持有窗口
	AegisWindow = 5 * time.Minute

	// aegisReminderLead 过期前多久发聊天提醒
	aegisReminderLead = time.Minute

	// aegisReminderTimer 提醒定时器在会话上的注册名
	aegisReminderTimer = "aegis-reminder"
)

// AegisTracker 不朽之守护子状态机
// 状态流转: NONE -> HELD -> {EXPIRED | SNATCHED | CONSUMED} -> NONE
// 过期不落定时器: 剩余秒数每次读取时按墙钟重新计算, 归零即视为 NONE
type AegisTracker struct {
	broadcaster Broadcaster
	store       EphemeralStore
	chat        ChatNotifier
}

// NewAegisTracker 创建 aegis 追踪器
func NewAegisTracker(broadcaster Broadcaster, store EphemeralStore, chat ChatNotifier) *AegisTracker {
	return &AegisTracker{
		broadcaster: broadcaster,
		store:       store,
		chat:        chat,
	}
}

// HandlePickup 处理 aegis_picked_up 事件
// 已有持有者时是被抢 (snatch): 直接进入新持有者的 HELD, 不经过 NONE
func (t *AegisTracker) HandlePickup(sess *Session, ev Event) {
	now := time.Now()
	snatched := sess.Aegis != nil && !sess.Aegis.Expired(now) && sess.Aegis.HolderPlayerID != ev.PlayerID

	sess.Aegis = &AegisState{
		HolderPlayerID: ev.PlayerID,
		ExpireAt:       now.Add(AegisWindow),
		Snatched:       snatched,
	}

	logger.Printf("[Aegis] %s: player %d picked up aegis (snatched=%v)", sess.Token, ev.PlayerID, snatched)

	t.persist(sess)
	t.broadcastState(sess, now)

	// 过期前的聊天提醒; 过期本身不走定时器
	token := sess.Token
	sess.AddTimer(aegisReminderTimer, AegisWindow-aegisReminderLead, func() {
		if t.chat != nil && sess.ChannelName != "" {
			if err := t.chat.Say(sess.ChannelName, "Aegis expires in 1 minute!", SayOptions{SessionTier: sess.Tier}); err != nil {
				logger.Errorf("[Aegis] %s: reminder chat failed: %v", token, err)
			}
		}
	})
}

// HandleDenied 处理 aegis_denied 事件 (盾被补掉, 无人持有)
func (t *AegisTracker) HandleDenied(sess *Session, ev Event) {
	if sess.Aegis == nil {
		return
	}

	logger.Printf("[Aegis] %s: aegis denied", sess.Token)
	t.clear(sess, time.Now())
}

// HandleKillList 处理击杀列表变化
// 持有者出现在受害者里时在同一 tick 内转入 CONSUMED -> NONE,
// 并立即广播清除覆盖层指示
func (t *AegisTracker) HandleKillList(sess *Session, ev Event) {
	now := time.Now()
	if sess.Aegis == nil || sess.Aegis.Expired(now) {
		return
	}

	for _, victim := range ev.Victims {
		if victim == sess.Aegis.HolderPlayerID {
			logger.Printf("[Aegis] %s: holder %d died, aegis consumed", sess.Token, victim)
			t.clear(sess, now)
			return
		}
	}
}

// Payload 当前 aegis 状态的广播载荷
// 剩余秒数按墙钟现算, 随时间单调不增且永不为负
func (t *AegisTracker) Payload(sess *Session, now time.Time) map[string]interface{} {
	if sess.Aegis == nil || sess.Aegis.Expired(now) {
		return map[string]interface{}{"held": false}
	}
	return map[string]interface{}{
		"held":              true,
		"holder_player_id":  sess.Aegis.HolderPlayerID,
		"remaining_seconds": sess.Aegis.RemainingSeconds(now),
		"snatched":          sess.Aegis.Snatched,
	}
}

// clear 清除持有状态并广播覆盖层清屏
func (t *AegisTracker) clear(sess *Session, now time.Time) {
	sess.Aegis = nil
	sess.CancelTimer(aegisReminderTimer)

	if t.store != nil {
		if err := t.store.Delete(sess.Token, StoreKeyAegis); err != nil {
			logger.Errorf("[Aegis] %s: failed to clear store: %v", sess.Token, err)
		}
	}

	t.broadcaster.Publish(sess.Token, BroadcastAegisChanged, map[string]interface{}{"held": false})
}

// broadcastState 广播当前状态; 剩余秒数已经归零时抑制广播
func (t *AegisTracker) broadcastState(sess *Session, now time.Time) {
	if sess.Aegis != nil && sess.Aegis.RemainingSeconds(now) <= 0 {
		return
	}
	t.broadcaster.Publish(sess.Token, BroadcastAegisChanged, t.Payload(sess, now))
}

// persist 把持有状态写入短时存储 (崩溃恢复和跨进程展示用)
func (t *AegisTracker) persist(sess *Session) {
	if t.store == nil || sess.Aegis == nil {
		return
	}

	data, err := json.Marshal(sess.Aegis)
	if err != nil {
		logger.Errorf("[Aegis] %s: failed to marshal state: %v", sess.Token, err)
		return
	}
	if err := t.store.Set(sess.Token, StoreKeyAegis, string(data), AegisWindow); err != nil {
		logger.Errorf("[Aegis] %s: failed to persist state: %v", sess.Token, err)
	}
}
