package services

import (
	"reflect"
	"time"
)

// DiffSnapshot 用最新的原始状态和上一条快照生成带差异视图的新快照
// prev 为 nil 时 (首条快照) Previous/Added 为空, 不产生任何边沿事件
func DiffSnapshot(token string, data map[string]interface{}, prev *Snapshot) *Snapshot {
	snap := &Snapshot{
		Token:      token,
		Data:       data,
		ReceivedAt: time.Now(),
	}

	if prev != nil && prev.Data != nil {
		snap.Previous = diffPrevious(data, prev.Data)
		snap.Added = diffAdded(data, prev.Data)
	}

	return snap
}

// diffPrevious 计算变化字段的旧值树: 对每个在旧快照中存在、且值发生
// 变化或已消失的字段, 记录旧值。与 Dota 客户端自带的 "previously" 视图
// 语义一致, 下游据此做边沿判断而不是每 tick 重复触发
func diffPrevious(newData, oldData map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for key, oldVal := range oldData {
		newVal, exists := newData[key]
		if !exists {
			// 字段消失, 旧值整体记入 previous
			result[key] = oldVal
			continue
		}

		oldMap, oldIsMap := oldVal.(map[string]interface{})
		newMap, newIsMap := newVal.(map[string]interface{})
		if oldIsMap && newIsMap {
			// 嵌套子树递归比较
			sub := diffPrevious(newMap, oldMap)
			if len(sub) > 0 {
				result[key] = sub
			}
			continue
		}

		if !reflect.DeepEqual(oldVal, newVal) {
			result[key] = oldVal
		}
	}

	return result
}

// diffAdded 计算新出现字段树: 旧快照中不存在、本条出现的字段记录新值
func diffAdded(newData, oldData map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for key, newVal := range newData {
		oldVal, exists := oldData[key]
		if !exists {
			result[key] = newVal
			continue
		}

		oldMap, oldIsMap := oldVal.(map[string]interface{})
		newMap, newIsMap := newVal.(map[string]interface{})
		if oldIsMap && newIsMap {
			sub := diffAdded(newMap, oldMap)
			if len(sub) > 0 {
				result[key] = sub
			}
		}
	}

	return result
}
