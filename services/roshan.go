package services

import (
	"encoding/json"
	"time"

	"gsi-service/logger"
)

const (
	// Roshan 死亡后的随机刷新窗口, 以死亡时刻为锚点
	RoshanMinRespawn = 8 * time.Minute
	RoshanMaxRespawn = 11 * time.Minute
)

// RoshanTracker Roshan 刷新窗口追踪
// 死亡事件写入窗口, 之后只读, 直到下一次死亡覆盖; 和 aegis 一样
// 纯读取时计算, 不落定时器
type RoshanTracker struct {
	broadcaster Broadcaster
	store       EphemeralStore
}

// NewRoshanTracker 创建 Roshan 追踪器
func NewRoshanTracker(broadcaster Broadcaster, store EphemeralStore) *RoshanTracker {
	return &RoshanTracker{
		broadcaster: broadcaster,
		store:       store,
	}
}

// HandleKilled 处理 roshan_killed 事件
func (t *RoshanTracker) HandleKilled(sess *Session, ev Event) {
	now := time.Now()
	sess.Roshan = &RoshanState{
		KilledAt:     now,
		MinRespawnAt: now.Add(RoshanMinRespawn),
		MaxRespawnAt: now.Add(RoshanMaxRespawn),
	}

	logger.Printf("[Roshan] %s: roshan killed, respawn window %s - %s",
		sess.Token,
		sess.Roshan.MinRespawnAt.Format("15:04:05"),
		sess.Roshan.MaxRespawnAt.Format("15:04:05"))

	t.persist(sess)
	t.broadcaster.Publish(sess.Token, BroadcastRoshanChanged, t.Payload(sess, now))
}

// Payload 当前刷新窗口的广播载荷, 剩余秒数按墙钟现算
func (t *RoshanTracker) Payload(sess *Session, now time.Time) map[string]interface{} {
	if sess.Roshan == nil {
		return map[string]interface{}{"alive": true}
	}

	minRemaining := sess.Roshan.MinRespawnAt.Sub(now).Seconds()
	maxRemaining := sess.Roshan.MaxRespawnAt.Sub(now).Seconds()
	if maxRemaining <= 0 {
		// 窗口已完全过去, Roshan 必定已刷新
		return map[string]interface{}{"alive": true}
	}
	if minRemaining < 0 {
		minRemaining = 0
	}

	return map[string]interface{}{
		"alive":                 false,
		"min_remaining_seconds": minRemaining,
		"max_remaining_seconds": maxRemaining,
	}
}

// persist 写入短时存储, TTL 取最大刷新时间
func (t *RoshanTracker) persist(sess *Session) {
	if t.store == nil || sess.Roshan == nil {
		return
	}

	data, err := json.Marshal(sess.Roshan)
	if err != nil {
		logger.Errorf("[Roshan] %s: failed to marshal state: %v", sess.Token, err)
		return
	}
	if err := t.store.Set(sess.Token, StoreKeyRoshan, string(data), RoshanMaxRespawn); err != nil {
		logger.Errorf("[Roshan] %s: failed to persist state: %v", sess.Token, err)
	}
}
