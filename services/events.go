package services

// EventType 派生事件类型 (封闭集合, 路由按类型查表, 不做字符串动态分发)
type EventType string

const (
	// EvtNewMatch map.matchid 变化, 表示新比赛开始
	EvtNewMatch EventType = "new_match"

	// EvtGameStateChanged map.game_state 变化 (选人/进行中/赛后等)
	EvtGameStateChanged EventType = "game_state_changed"

	// EvtPausedChanged map.paused 变化
	EvtPausedChanged EventType = "paused_changed"

	// EvtWinTeamChanged map.win_team 出现获胜方
	EvtWinTeamChanged EventType = "win_team_changed"

	// EvtAegisPickedUp 客户端事件流中出现 aegis_picked_up
	EvtAegisPickedUp EventType = "aegis_picked_up"

	// EvtAegisDenied 客户端事件流中出现 aegis_denied
	EvtAegisDenied EventType = "aegis_denied"

	// EvtRoshanKilled 客户端事件流中出现 roshan_killed
	EvtRoshanKilled EventType = "roshan_killed"

	// EvtHealthSample 每 tick 的英雄血量采样 (非边沿, gank 检测用)
	EvtHealthSample EventType = "health_sample"

	// EvtKillListChanged 击杀列表新增受害者
	EvtKillListChanged EventType = "kill_list_changed"

	// EvtMaxManaChanged 最大蓝量变化 (鞋子切换检测用)
	EvtMaxManaChanged EventType = "max_mana_changed"

	// EvtInventoryTick 每 tick 的物品栏扫描 (非边沿, midas 检测用)
	EvtInventoryTick EventType = "inventory_tick"
)

// Event 一次派生事件, 按 (Type, Token) 路由
// 数值字段按事件类型选用, 未用到的保持零值
type Event struct {
	Type     EventType
	Token    string
	Snapshot *Snapshot

	PlayerID int     // aegis/roshan 事件的触发玩家
	StrValue string  // 字符串型字段的新值
	StrPrev  string  // 字符串型字段的旧值
	Value    float64 // 数字型字段的新值
	Prev     float64 // 数字型字段的旧值
	Pct      float64 // 血量采样的百分比值
	BoolVal  bool    // 布尔型字段的新值
	Victims  []int   // kill_list 新增的受害者
}
