package services

import (
	"math"

	"gsi-service/logger"
)

const (
	// TreadsManaDelta 切换属性鞋产生的最大蓝量变化量 (签名特征)
	TreadsManaDelta = 120.0

	// TreadsManaOverhead 一次完整切换本身损耗的蓝量
	TreadsManaOverhead = 120.0

	// treadsDeltaEpsilon 浮点比较容差
	treadsDeltaEpsilon = 0.5
)

// TreadsTracker 假腿切换省蓝统计
// 最大蓝量出现 +delta 开始积累 (记录切换时的当前蓝量),
// 匹配的 -delta 结束积累并把省下的蓝计入累计; 其他幅度的变化
// (升级、装备增减) 不触发任何事件
type TreadsTracker struct {
	broadcaster Broadcaster
}

// NewTreadsTracker 创建假腿追踪器
func NewTreadsTracker(broadcaster Broadcaster) *TreadsTracker {
	return &TreadsTracker{broadcaster: broadcaster}
}

// HandleMaxManaChanged 处理最大蓝量变化
func (t *TreadsTracker) HandleMaxManaChanged(sess *Session, ev Event) {
	delta := ev.Value - ev.Prev
	curMana, _ := GetFloat(GetMap(ev.Snapshot.Data, "hero"), "mana")

	switch {
	case math.Abs(delta-TreadsManaDelta) < treadsDeltaEpsilon:
		// 切到智力: 开始积累
		sess.Treads.ToggleActive = true
		sess.Treads.ManaAtLastToggle = curMana
		sess.Treads.ToggleCount++

	case math.Abs(delta+TreadsManaDelta) < treadsDeltaEpsilon:
		// 切回: 结束积累
		if !sess.Treads.ToggleActive {
			return
		}
		sess.Treads.ToggleActive = false

		saved := sess.Treads.ManaAtLastToggle - curMana - TreadsManaOverhead
		if saved <= 0 {
			return
		}
		sess.Treads.ManaSaved += saved

		logger.Debugf("[Treads] %s: toggle saved %.0f mana (total %.0f)", sess.Token, saved, sess.Treads.ManaSaved)

		t.broadcaster.Publish(sess.Token, BroadcastTreadsChanged, map[string]interface{}{
			"toggle_count": sess.Treads.ToggleCount,
			"mana_saved":   sess.Treads.ManaSaved,
		})

	default:
		// 其他幅度的变化与属性鞋无关
	}
}
