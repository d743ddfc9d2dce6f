package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"gsi-service/config"
	"gsi-service/logger"
	"gsi-service/services"
)

type Server struct {
	config       *config.Config
	db           *sql.DB
	wsHub        *Hub
	registry     *services.SessionRegistry
	dispatcher   *services.Dispatcher
	sessionStore *services.SessionStore
	httpServer   *http.Server
	upgrader     websocket.Upgrader
}

func NewServer(cfg *config.Config, db *sql.DB, hub *Hub, registry *services.SessionRegistry, dispatcher *services.Dispatcher, sessionStore *services.SessionStore) *Server {
	return &Server{
		config:       cfg,
		db:           db,
		wsHub:        hub,
		registry:     registry,
		dispatcher:   dispatcher,
		sessionStore: sessionStore,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// GSI 摄入路由 (游戏客户端的 ~1Hz 快照 POST)
	router.HandleFunc("/gsi/{token}", s.handleGSI).Methods("POST")

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{token}/state", s.handleSessionState).Methods("GET")
	api.HandleFunc("/sessions/{token}/predictions", s.handleSessionPredictions).Methods("GET")
	api.HandleFunc("/sessions/{token}/enable", s.handleEnableSession).Methods("POST")
	api.HandleFunc("/sessions/{token}/disable", s.handleDisableSession).Methods("POST")
	api.HandleFunc("/sessions/{token}/refresh", s.handleRefreshSession).Methods("POST")
	api.HandleFunc("/sessions/{token}/stream", s.handleStreamFlag).Methods("PATCH")
	api.HandleFunc("/sessions/{token}/settings", s.handleSessionSettings).Methods("PATCH")
	api.HandleFunc("/sessions/{token}", s.handleRemoveSession).Methods("DELETE")

	// WebSocket路由 (覆盖层客户端)
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"sessions": s.registry.Count(),
		"time":     time.Now().Unix(),
	})
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	// 发送欢迎消息
	welcomeMsg := &OverlayMessage{
		Type:      "connected",
		Timestamp: time.Now().Unix(),
	}
	welcomeData, _ := json.Marshal(welcomeMsg)
	client.send <- welcomeData

	go client.writePump()
	go client.readPump()
}
