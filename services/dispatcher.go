package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gsi-service/logger"
)

// HandlerFunc 事件处理函数, 调用时已持有会话处理锁
type HandlerFunc func(sess *Session, ev Event)

// Dispatcher 把快照差异转换为具名的边沿事件并路由到属主会话
// 事件只在被监控字段与上一条快照不同的时候触发 (边沿触发),
// 绝不按 tick 电平重复触发; 路由按 (事件类型, token) 查表
type Dispatcher struct {
	registry *SessionRegistry
	store    EphemeralStore
	handlers map[EventType][]HandlerFunc
}

// NewDispatcher 创建分发器
func NewDispatcher(registry *SessionRegistry, store EphemeralStore) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		handlers: make(map[EventType][]HandlerFunc),
	}
}

// On 注册事件处理器
func (d *Dispatcher) On(t EventType, h HandlerFunc) {
	d.handlers[t] = append(d.handlers[t], h)
}

// HandleSnapshot 处理一条原始快照
// 完全抑制 (不排队、不记丢弃) 的情形: token 没有注册会话、会话被
// 禁用、或者主播不在线。被抑制时差异基线照常前进, enable 之后
// 不会把禁用期间的变化当成新边沿回放
func (d *Dispatcher) HandleSnapshot(token string, data map[string]interface{}) {
	sess := d.registry.Get(token)
	if sess == nil {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	sess.LastSeenAt = time.Now()

	snap := DiffSnapshot(token, data, sess.LastSnapshot)
	events := d.extractEvents(sess, snap)

	// 差异基线永远前进 (坏 tick 在 web 层已经被丢掉, 不会走到这里)
	sess.LastSnapshot = snap

	if !sess.Routable() {
		return
	}

	for _, ev := range events {
		for _, h := range d.handlers[ev.Type] {
			d.safeInvoke(sess, ev, h)
		}
	}
}

// safeInvoke 处理器故障隔离: 单个处理器 panic 只记日志,
// 不影响同会话其他处理器, 状态停在故障前 (不做部分迁移)
func (d *Dispatcher) safeInvoke(sess *Session, ev Event, h HandlerFunc) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Dispatcher] Handler for %s panicked on session %s: %v", ev.Type, sess.Token, r)
		}
	}()
	h(sess, ev)
}

// extractEvents 从快照的差异视图中提取边沿事件
// 变化判断读 snap.Previous/snap.Added (差异引擎的输出), 会话镜像
// 字段 (GameState/WinTeam/...) 只为下游处理器保留当前值;
// 比赛边界是例外: matchid 对比会话记录的比赛而不是上一条快照,
// 这样进程重启后 (基线丢失但比赛 ID 已从短时存储回填) 仍能识别换场
// 新比赛事件排在最前, 它的处理器会先重置比赛内状态
func (d *Dispatcher) extractEvents(sess *Session, snap *Snapshot) []Event {
	var events []Event

	mapData := GetMap(snap.Data, "map")
	heroData := GetMap(snap.Data, "hero")
	playerData := GetMap(snap.Data, "player")

	// 比赛边界: matchid 变化
	if matchID, ok := GetString(mapData, "matchid"); ok && matchID != sess.MatchID {
		events = append(events, Event{
			Type: EvtNewMatch, Token: sess.Token, Snapshot: snap,
			StrValue: matchID, StrPrev: sess.MatchID,
		})
		sess.ResetMatchState(matchID)
		d.persistMatchID(sess)
	}

	// 玩家侧镜像 (新比赛重置后需要尽快重建)
	if team, ok := GetString(playerData, "team_name"); ok {
		sess.PlayerTeam = team
	}
	if activity, ok := GetString(playerData, "activity"); ok {
		sess.Activity = activity
	}
	if custom, ok := GetString(mapData, "customgamename"); ok {
		sess.CustomGame = custom != ""
	}

	// 对局状态: 差异视图里出现变化才是边沿, 首条快照只建立基线
	if gameState, ok := GetString(mapData, "game_state"); ok {
		if snap.FieldChanged("map", "game_state") {
			events = append(events, Event{
				Type: EvtGameStateChanged, Token: sess.Token, Snapshot: snap,
				StrValue: gameState, StrPrev: sess.GameState,
			})
		}
		sess.GameState = gameState
	}

	// 暂停
	if paused, ok := GetBool(mapData, "paused"); ok {
		if snap.FieldChanged("map", "paused") {
			events = append(events, Event{
				Type: EvtPausedChanged, Token: sess.Token, Snapshot: snap,
				BoolVal: paused,
			})
		}
		sess.Paused = paused
	}

	// 获胜方 (镜像只记录真实胜方, "none" 不算)
	if winTeam, ok := GetString(mapData, "win_team"); ok {
		if winTeam != "none" && winTeam != "" && snap.FieldChanged("map", "win_team") {
			events = append(events, Event{
				Type: EvtWinTeamChanged, Token: sess.Token, Snapshot: snap,
				StrValue: winTeam, StrPrev: sess.WinTeam,
			})
			sess.WinTeam = winTeam
		}
	}

	// 客户端事件流 (aegis/roshan): 只取上一条快照里没有的
	events = append(events, d.extractClientEvents(sess, snap)...)

	// 击杀列表: 差异视图里新出现或计数增加的受害者
	if victims := extractNewVictims(snap, playerData); len(victims) > 0 {
		events = append(events, Event{
			Type: EvtKillListChanged, Token: sess.Token, Snapshot: snap,
			Victims: victims,
		})
	}

	// 最大蓝量边沿 (假腿检测): 旧值取自差异视图, 英雄首次出现不算边沿
	if maxMana, ok := GetFloat(heroData, "max_mana"); ok {
		if prevMax, changed := GetFloat(GetMap(snap.Previous, "hero"), "max_mana"); changed {
			events = append(events, Event{
				Type: EvtMaxManaChanged, Token: sess.Token, Snapshot: snap,
				Value: maxMana, Prev: prevMax,
			})
		}
	}

	// 血量采样 (每 tick, 非边沿)
	if health, ok := GetFloat(heroData, "health"); ok {
		pct, _ := GetFloat(heroData, "health_percent")
		events = append(events, Event{
			Type: EvtHealthSample, Token: sess.Token, Snapshot: snap,
			Value: health, Pct: pct,
		})
	}

	// 物品栏扫描 (每 tick, 非边沿)
	if GetMap(snap.Data, "items") != nil {
		events = append(events, Event{Type: EvtInventoryTick, Token: sess.Token, Snapshot: snap})
	}

	return events
}

// extractClientEvents 提取客户端事件流里新出现的事件
// 差异视图里 events 没有变化时整体跳过; 数组本身是累积的,
// 变化时用 (类型, 游戏时间, 玩家) 对上一条快照去重取新增项
// 首条快照没有比较基线, 整体跳过, 避免重启后把陈旧事件当成新边沿
func (d *Dispatcher) extractClientEvents(sess *Session, snap *Snapshot) []Event {
	if sess.LastSnapshot == nil {
		return nil
	}
	if !snap.FieldChanged("events") {
		return nil
	}

	rawEvents, ok := GetSlice(snap.Data, "events")
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	if sess.LastSnapshot != nil {
		if prevEvents, ok := GetSlice(sess.LastSnapshot.Data, "events"); ok {
			for _, raw := range prevEvents {
				if key, ok := clientEventKey(raw); ok {
					seen[key] = true
				}
			}
		}
	}

	var events []Event
	for _, raw := range rawEvents {
		entry, isMap := raw.(map[string]interface{})
		if !isMap {
			continue
		}
		key, ok := clientEventKey(raw)
		if !ok || seen[key] {
			continue
		}

		eventType, _ := GetString(entry, "event_type")
		playerID, _ := GetFloat(entry, "player_id")

		switch eventType {
		case "aegis_picked_up":
			events = append(events, Event{
				Type: EvtAegisPickedUp, Token: sess.Token, Snapshot: snap,
				PlayerID: int(playerID),
			})
		case "aegis_denied":
			events = append(events, Event{
				Type: EvtAegisDenied, Token: sess.Token, Snapshot: snap,
				PlayerID: int(playerID),
			})
		case "roshan_killed":
			events = append(events, Event{
				Type: EvtRoshanKilled, Token: sess.Token, Snapshot: snap,
				PlayerID: int(playerID),
			})
		}
	}

	return events
}

// clientEventKey 客户端事件去重键
func clientEventKey(raw interface{}) (string, bool) {
	entry, ok := raw.(map[string]interface{})
	if !ok {
		return "", false
	}
	eventType, ok := GetString(entry, "event_type")
	if !ok {
		return "", false
	}
	gameTime, _ := GetFloat(entry, "game_time")
	playerID, _ := GetFloat(entry, "player_id")
	return fmt.Sprintf("%s:%0.f:%0.f", eventType, gameTime, playerID), true
}

// extractNewVictims 从差异视图提取 player.kill_list 的新增受害者
// kill_list 形如 {"victimid_4": 2}, 数字键是受害者槽位, 值是击杀数
// 新出现的键 (added) 和计数增加的键 (previous 里有旧值) 都算新击杀;
// 键整体消失 (新比赛清空) 不算
func extractNewVictims(snap *Snapshot, playerData map[string]interface{}) []int {
	killList := GetMap(playerData, "kill_list")
	if killList == nil {
		return nil
	}

	var victims []int

	for key := range GetMap(snap.Added, "player", "kill_list") {
		if victimID, ok := victimIDFromKey(key); ok {
			victims = append(victims, victimID)
		}
	}

	for key, raw := range GetMap(snap.Previous, "player", "kill_list") {
		oldCount, isNum := raw.(float64)
		if !isNum {
			continue
		}
		newCount, exists := GetFloat(killList, key)
		if !exists || newCount <= oldCount {
			continue
		}
		if victimID, ok := victimIDFromKey(key); ok {
			victims = append(victims, victimID)
		}
	}

	return victims
}

// victimIDFromKey 解析 victimid_N 键
func victimIDFromKey(key string) (int, bool) {
	idStr := strings.TrimPrefix(key, "victimid_")
	victimID, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, false
	}
	return victimID, true
}

// persistMatchID 把当前比赛 ID 写入短时存储
func (d *Dispatcher) persistMatchID(sess *Session) {
	if d.store == nil || sess.MatchID == "" {
		return
	}
	if err := d.store.Set(sess.Token, StoreKeyMatchID, sess.MatchID, 6*time.Hour); err != nil {
		logger.Errorf("[Dispatcher] Failed to persist match id for %s: %v", sess.Token, err)
	}
}
