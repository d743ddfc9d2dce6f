package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// GSI 配置
	GSIAuthToken string // 客户端 cfg 文件里配置的共享 token (为空则不校验)

	// Twitch 配置
	TwitchClientID   string
	TwitchToken      string
	TwitchAPIBaseURL string

	// 聊天中继配置
	ChatRelayWebhook string

	// 数据库配置
	DatabaseURL string

	// Redis 配置 (为空则使用内存存储)
	RedisURL string

	// 广播中继配置 (可选)
	AMQPURL       string
	MQTTBrokerURL string

	// 服务器配置
	Port string

	// 其他配置
	Environment string

	// 会话配置
	SessionIdleTTL time.Duration // 超过该时长没有快照则销毁会话

	// Gank 信号配置
	GankSignalChance   float64 // 概率闸门 (防刷屏节流, 1.0=每次满足条件都触发)
	GankMinHealthDrop  float64 // 绝对掉血阈值
	GankMinPercentDrop float64 // 百分比掉血阈值

	// 预测配置
	PredictionWindowSec int // 开盘后多久锁盘
}

func Load() *Config {
	return &Config{
		// GSI 配置
		GSIAuthToken: getEnv("GSI_AUTH_TOKEN", ""),

		// Twitch 配置
		TwitchClientID:   getEnv("TWITCH_CLIENT_ID", ""),
		TwitchToken:      getEnv("TWITCH_TOKEN", ""),
		TwitchAPIBaseURL: getEnv("TWITCH_API_BASE_URL", "https://api.twitch.tv/helix"),

		// 聊天中继配置
		ChatRelayWebhook: getEnv("CHAT_RELAY_WEBHOOK", ""),

		// 数据库配置
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/gsi?sslmode=disable"),

		// Redis 配置
		RedisURL: getEnv("REDIS_URL", ""),

		// 广播中继配置
		AMQPURL:       getEnv("AMQP_URL", ""),
		MQTTBrokerURL: getEnv("MQTT_BROKER_URL", ""),

		// 服务器配置
		Port: getEnv("PORT", "8080"),

		// 其他配置
		Environment: getEnv("ENVIRONMENT", "development"),

		// 会话配置
		SessionIdleTTL: time.Duration(getEnvInt("SESSION_IDLE_TTL_MINUTES", 30)) * time.Minute,

		// Gank 信号配置
		GankSignalChance:   getEnvFloat("GANK_SIGNAL_CHANCE", 0.33),
		GankMinHealthDrop:  getEnvFloat("GANK_MIN_HEALTH_DROP", 200),
		GankMinPercentDrop: getEnvFloat("GANK_MIN_PERCENT_DROP", 20),

		// 预测配置
		PredictionWindowSec: getEnvInt("PREDICTION_WINDOW_SEC", 240),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return result
}
