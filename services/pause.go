package services

import (
	"gsi-service/logger"
)

// PauseTracker 暂停状态的无状态边沿广播
// 只在被跟踪的真实比赛中生效 (观战和街机模式不广播)
type PauseTracker struct {
	broadcaster Broadcaster
	chat        ChatNotifier
}

// NewPauseTracker 创建暂停追踪器
func NewPauseTracker(broadcaster Broadcaster, chat ChatNotifier) *PauseTracker {
	return &PauseTracker{
		broadcaster: broadcaster,
		chat:        chat,
	}
}

// HandlePausedChanged 处理 map.paused 边沿变化
func (t *PauseTracker) HandlePausedChanged(sess *Session, ev Event) {
	if !sess.InTrackedMatch() {
		return
	}

	t.broadcaster.Publish(sess.Token, BroadcastPausedChanged, map[string]interface{}{
		"paused": ev.BoolVal,
	})

	if ev.BoolVal && t.chat != nil && sess.ChannelName != "" {
		if err := t.chat.Say(sess.ChannelName, "Game paused", SayOptions{SessionTier: sess.Tier}); err != nil {
			logger.Errorf("[Pause] %s: chat failed: %v", sess.Token, err)
		}
	}
}
