package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gsi-service/config"
	"gsi-service/database"
	"gsi-service/services"
	"gsi-service/web"
)

func main() {
	log.Println("Starting Dota GSI Service...")

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	// 选择临时状态存储 (配置了 Redis 则跨进程重启可恢复)
	var store services.EphemeralStore
	if cfg.RedisURL != "" {
		redisStore, err := services.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		store = redisStore
		log.Println("Using Redis ephemeral store")
	} else {
		store = services.NewMemoryStore()
		log.Println("Using in-memory ephemeral store")
	}
	defer store.Close()

	// 创建WebSocket Hub (覆盖层广播)
	wsHub := web.NewHub()
	go wsHub.Run()

	// 组装广播链: Hub 必选, AMQP/MQTT 中继可选
	sinks := []services.Broadcaster{wsHub}

	var amqpRelay *services.AMQPRelay
	if cfg.AMQPURL != "" {
		amqpRelay, err = services.NewAMQPRelay(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("Failed to connect AMQP relay: %v", err)
		}
		sinks = append(sinks, amqpRelay)
		log.Println("AMQP overlay relay connected")
	}

	var mqttRelay *services.MQTTRelay
	if cfg.MQTTBrokerURL != "" {
		mqttRelay, err = services.NewMQTTRelay(cfg.MQTTBrokerURL)
		if err != nil {
			log.Fatalf("Failed to connect MQTT relay: %v", err)
		}
		sinks = append(sinks, mqttRelay)
		log.Println("MQTT overlay relay connected")
	}

	broadcaster := services.NewMultiBroadcaster(sinks...)

	// 聊天中继 (webhook 为空则所有发送静默跳过)
	chat := services.NewChatRelay(cfg.ChatRelayWebhook)

	// 预测平台客户端 (未配置凭据则预测功能整体关闭)
	var platform services.PredictionPlatform
	if cfg.TwitchClientID != "" && cfg.TwitchToken != "" {
		platform = services.NewTwitchClient(cfg.TwitchAPIBaseURL, cfg.TwitchClientID, cfg.TwitchToken)
		log.Println("Twitch prediction platform configured")
	} else {
		log.Println("Twitch credentials missing, predictions disabled")
	}

	// 会话持久层与注册表
	sessionStore := services.NewSessionStore(db)
	registry := services.NewSessionRegistry(store, sessionStore, cfg.SessionIdleTTL)
	registry.StartJanitor()

	// 各状态机处理器
	aegisTracker := services.NewAegisTracker(broadcaster, store, chat)
	roshanTracker := services.NewRoshanTracker(broadcaster, store)
	gankDetector := services.NewGankDetector(broadcaster, chat, cfg.GankSignalChance, cfg.GankMinHealthDrop, cfg.GankMinPercentDrop)
	midasTracker := services.NewMidasTracker(broadcaster, chat)
	treadsTracker := services.NewTreadsTracker(broadcaster)
	pauseTracker := services.NewPauseTracker(broadcaster, chat)
	resolver := services.NewOutcomeResolver()
	predictionManager := services.NewPredictionManager(platform, resolver, chat, broadcaster, sessionStore, cfg.PredictionWindowSec)

	// 事件分发注册
	dispatcher := services.NewDispatcher(registry, store)
	dispatcher.On(services.EvtNewMatch, predictionManager.HandleNewMatch)
	dispatcher.On(services.EvtWinTeamChanged, predictionManager.HandleWinTeam)
	dispatcher.On(services.EvtGameStateChanged, predictionManager.HandleGameState)
	dispatcher.On(services.EvtAegisPickedUp, aegisTracker.HandlePickup)
	dispatcher.On(services.EvtAegisDenied, aegisTracker.HandleDenied)
	dispatcher.On(services.EvtKillListChanged, aegisTracker.HandleKillList)
	dispatcher.On(services.EvtRoshanKilled, roshanTracker.HandleKilled)
	dispatcher.On(services.EvtPausedChanged, pauseTracker.HandlePausedChanged)
	dispatcher.On(services.EvtHealthSample, gankDetector.HandleHealthSample)
	dispatcher.On(services.EvtMaxManaChanged, treadsTracker.HandleMaxManaChanged)
	dispatcher.On(services.EvtInventoryTick, midasTracker.HandleTick)

	// 启动Web服务器
	server := web.NewServer(cfg, db, wsHub, registry, dispatcher, sessionStore)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Web server error: %v", err)
		}
	}()

	log.Printf("Web server started on port %s", cfg.Port)
	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down service...")

	// 清理资源
	server.Stop()
	registry.Stop()
	if amqpRelay != nil {
		amqpRelay.Close()
	}
	if mqttRelay != nil {
		mqttRelay.Close()
	}

	log.Println("Service stopped")
}
