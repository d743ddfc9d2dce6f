package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"gsi-service/logger"
	"gsi-service/services"
)

// gsiMaxBodySize GSI 快照体积上限 (1MB)
const gsiMaxBodySize = 1 << 20

// handleGSI 接收游戏客户端的状态快照
// 坏请求 (空体/非法JSON) 只返回 400 诊断, 不触碰会话差异基线
func (s *Server) handleGSI(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	token := vars["token"]
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, gsiMaxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		logger.Errorf("[GSI] Malformed snapshot for token %s: %v", token, err)
		http.Error(w, "malformed JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 配置了共享密钥时校验 auth.token
	if s.config.GSIAuthToken != "" {
		authMap := services.GetMap(data, "auth")
		authToken, _ := services.GetString(authMap, "token")
		if authToken != s.config.GSIAuthToken {
			http.Error(w, "invalid auth token", http.StatusUnauthorized)
			return
		}
	}

	// 未注册的 token 在首条快照时自动注册
	if s.registry.Get(token) == nil {
		s.registry.Register(token)
	}

	s.dispatcher.HandleSnapshot(token, data)

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
