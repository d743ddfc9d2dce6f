package services

import (
	"fmt"
	"time"
)

// 约定的存储键: 按 token 存放比赛内可恢复状态, 进程重启后用于回填
// 覆盖层展示数据。这些数据只做展示用途, 金融动作 (开盘/结算) 一律
// 以实时会话状态为准, 不信任缓存
const (
	StoreKeyAegis   = "aegis"
	StoreKeyRoshan  = "roshan"
	StoreKeyMatchID = "match_id"
)

// EphemeralStore 以 (token, key) 寻址的短时键值存储抽象
// Redis 实现用于多进程部署, 内存实现用于单进程和测试
type EphemeralStore interface {
	// Get 读取值, 不存在或已过期返回 ("", false, nil)
	Get(token, key string) (string, bool, error)
	// Set 写入值并设置过期时间
	Set(token, key, value string, ttl time.Duration) error
	// Delete 删除值
	Delete(token, key string) error
	// Close 关闭存储连接
	Close() error
}

// storeKey 生成统一的存储键
func storeKey(token, key string) string {
	return fmt.Sprintf("gsi:%s:%s", token, key)
}
