package services

import (
	"time"
)

// Snapshot 一次 GSI 上报的完整游戏状态, 附带与上一条快照的差异视图
// Data 是原始 JSON 解析结果; Previous/Added 由 DiffSnapshot 计算得出
// 一旦生成后不再修改, 下一条快照到达时被整体替换
type Snapshot struct {
	Token      string
	Data       map[string]interface{}
	Previous   map[string]interface{} // 与上一条快照相比发生变化的字段 (保存旧值)
	Added      map[string]interface{} // 上一条快照中不存在、本条新出现的字段
	ReceivedAt time.Time
}

// FieldChanged 指定路径的字段在本条快照中是否发生了变化:
// 值变了或消失了 (在 previous 里) 或是新出现的 (在 added 里)
// 首条快照两棵差异树都为空, 任何字段都不算变化
func (s *Snapshot) FieldChanged(path ...string) bool {
	return diffTreeHas(s.Previous, path) || diffTreeHas(s.Added, path)
}

// diffTreeHas 差异树里是否存在指定路径
func diffTreeHas(tree map[string]interface{}, path []string) bool {
	for i, key := range path {
		val, ok := tree[key]
		if !ok {
			return false
		}
		if i == len(path)-1 {
			return true
		}
		tree, ok = val.(map[string]interface{})
		if !ok {
			return false
		}
	}
	return false
}

// GetMap 沿路径取出嵌套的 map, 任何一级缺失或类型不符都返回 nil
// GSI 不同游戏模式暴露的子树不同, 所有读取必须容忍字段缺失
func GetMap(data map[string]interface{}, path ...string) map[string]interface{} {
	cur := data
	for _, key := range path {
		if cur == nil {
			return nil
		}
		next, ok := cur[key].(map[string]interface{})
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// GetString 取字符串字段, 缺失或类型不符返回 ("", false)
func GetString(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok
}

// GetFloat 取数字字段 (encoding/json 把所有数字解析为 float64)
func GetFloat(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m[key].(float64)
	return v, ok
}

// GetBool 取布尔字段
func GetBool(m map[string]interface{}, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	v, ok := m[key].(bool)
	return v, ok
}

// GetSlice 取数组字段
func GetSlice(m map[string]interface{}, key string) ([]interface{}, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].([]interface{})
	return v, ok
}
