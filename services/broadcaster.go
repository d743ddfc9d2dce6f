package services

// 覆盖层事件名 (封闭集合)
const (
	BroadcastAegisChanged  = "aegis-state-changed"
	BroadcastRoshanChanged = "roshan-state-changed"
	BroadcastPausedChanged = "paused-changed"
	BroadcastGankSignal    = "gank-signal"
	BroadcastMidasReady    = "midas-ready"
	BroadcastTreadsChanged = "treads-state-changed"
	BroadcastRefresh       = "session-refresh"
)

// Broadcaster 向观众侧覆盖层发布事件的抽象, 按 token 寻址逻辑房间
// WebSocket Hub 是主要实现, AMQP/MQTT 中继是可选的外部转发实现
type Broadcaster interface {
	Publish(token, event string, payload interface{})
}

// MultiBroadcaster 把一次发布扇出到多个下游
type MultiBroadcaster struct {
	sinks []Broadcaster
}

// NewMultiBroadcaster 创建扇出广播器
func NewMultiBroadcaster(sinks ...Broadcaster) *MultiBroadcaster {
	return &MultiBroadcaster{sinks: sinks}
}

// Publish 实现 Broadcaster 接口
func (m *MultiBroadcaster) Publish(token, event string, payload interface{}) {
	for _, sink := range m.sinks {
		sink.Publish(token, event, payload)
	}
}
