package services

import (
	"fmt"

	"gsi-service/logger"
)

const (
	// MidasItemName GSI 物品名
	MidasItemName = "item_hand_of_midas"

	// MidasReadyThreshold 连续就绪 tick 数达到该值时触发提醒
	MidasReadyThreshold = 25

	// MidasFirePenalty 触发后计数器被压到的负值, 需要重新积累
	// 足够的就绪 tick 才能再次触发, 近似真实冷却而不用记时间
	MidasFirePenalty = -50

	// midasActiveSlots 主物品栏格数 (背包和储藏处不算)
	midasActiveSlots = 6
)

// MidasTracker 点金手就绪提醒
// 每 tick 扫描主物品栏: 点金手在位且冷却结束则计数加一,
// 缺失、冷却中或放错格子都把计数清零
type MidasTracker struct {
	broadcaster Broadcaster
	chat        ChatNotifier
}

// NewMidasTracker 创建点金手追踪器
func NewMidasTracker(broadcaster Broadcaster, chat ChatNotifier) *MidasTracker {
	return &MidasTracker{
		broadcaster: broadcaster,
		chat:        chat,
	}
}

// HandleTick 处理每 tick 的物品栏扫描
func (t *MidasTracker) HandleTick(sess *Session, ev Event) {
	items := GetMap(ev.Snapshot.Data, "items")
	if items == nil {
		return
	}

	if !midasReady(items) {
		sess.Midas.ConsecutiveReadyTicks = 0
		return
	}

	sess.Midas.ConsecutiveReadyTicks++
	if sess.Midas.ConsecutiveReadyTicks < MidasReadyThreshold {
		return
	}

	// 恰好达到阈值时触发一次, 随即压到负值防止连发
	logger.Printf("[Midas] %s: midas ready for %d ticks, firing reminder", sess.Token, MidasReadyThreshold)
	sess.Midas.ConsecutiveReadyTicks = MidasFirePenalty

	t.broadcaster.Publish(sess.Token, BroadcastMidasReady, map[string]interface{}{"ready": true})

	if t.chat != nil && sess.ChannelName != "" {
		if err := t.chat.Say(sess.ChannelName, "Use your midas!", SayOptions{SessionTier: sess.Tier}); err != nil {
			logger.Errorf("[Midas] %s: chat failed: %v", sess.Token, err)
		}
	}
}

// midasReady 点金手是否在主物品栏且冷却结束
// 背包 (slot6-8) 和储藏处 (stash) 都算放错位置
func midasReady(items map[string]interface{}) bool {
	for i := 0; i < midasActiveSlots; i++ {
		slot := GetMap(items, fmt.Sprintf("slot%d", i))
		if slot == nil {
			continue
		}
		name, _ := GetString(slot, "name")
		if name != MidasItemName {
			continue
		}
		cooldown, _ := GetFloat(slot, "cooldown")
		canCast, hasCanCast := GetBool(slot, "can_cast")
		if cooldown == 0 && (!hasCanCast || canCast) {
			return true
		}
		return false
	}
	return false
}
