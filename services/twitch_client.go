package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gsi-service/logger"
)

// ErrPredictionNotFound 平台上不存在匹配的预测
// 调用方把它当作"已经结算过", 不当作错误 (接口幂等的关键)
var ErrPredictionNotFound = errors.New("prediction not found on platform")

// PlatformPrediction 平台侧预测
type PlatformPrediction struct {
	ID       string
	Outcomes []PredictionOutcome
}

// PredictionPlatform 外部预测平台抽象
// 每个调用都是网络请求, 都可能瞬时失败; 上游没有限流退避约定
type PredictionPlatform interface {
	CreatePrediction(channelID, title string, outcomeTitles []string, windowSec int) (*PlatformPrediction, error)
	LockPrediction(channelID, predictionID string) error
	ResolvePrediction(channelID, predictionID, outcomeID string) error
	CancelPrediction(channelID, predictionID string) error
}

// TwitchClient Twitch Helix 预测 API 客户端
type TwitchClient struct {
	baseURL    string
	clientID   string
	token      string
	httpClient *http.Client
}

// NewTwitchClient 创建 Twitch 客户端
func NewTwitchClient(baseURL, clientID, token string) *TwitchClient {
	return &TwitchClient{
		baseURL:    baseURL,
		clientID:   clientID,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// helix 响应结构 (只取用到的字段)
type helixPredictionResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Outcomes []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"outcomes"`
	} `json:"data"`
}

// CreatePrediction 创建预测
func (c *TwitchClient) CreatePrediction(channelID, title string, outcomeTitles []string, windowSec int) (*PlatformPrediction, error) {
	outcomes := make([]map[string]string, 0, len(outcomeTitles))
	for _, t := range outcomeTitles {
		outcomes = append(outcomes, map[string]string{"title": t})
	}

	body := map[string]interface{}{
		"broadcaster_id":    channelID,
		"title":             title,
		"outcomes":          outcomes,
		"prediction_window": windowSec,
	}

	respBody, err := c.do("POST", "/predictions", body)
	if err != nil {
		return nil, err
	}

	var resp helixPredictionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("prediction response contains no data")
	}

	prediction := &PlatformPrediction{ID: resp.Data[0].ID}
	for _, o := range resp.Data[0].Outcomes {
		prediction.Outcomes = append(prediction.Outcomes, PredictionOutcome{ID: o.ID, Title: o.Title})
	}

	logger.Printf("[TwitchClient] Created prediction %s for channel %s", prediction.ID, channelID)
	return prediction, nil
}

// LockPrediction 锁定预测 (停止下注)
func (c *TwitchClient) LockPrediction(channelID, predictionID string) error {
	body := map[string]interface{}{
		"broadcaster_id": channelID,
		"id":             predictionID,
		"status":         "LOCKED",
	}
	_, err := c.do("PATCH", "/predictions", body)
	return err
}

// ResolvePrediction 结算预测
func (c *TwitchClient) ResolvePrediction(channelID, predictionID, outcomeID string) error {
	body := map[string]interface{}{
		"broadcaster_id":     channelID,
		"id":                 predictionID,
		"status":             "RESOLVED",
		"winning_outcome_id": outcomeID,
	}
	_, err := c.do("PATCH", "/predictions", body)
	return err
}

// CancelPrediction 取消预测并退还积分
func (c *TwitchClient) CancelPrediction(channelID, predictionID string) error {
	body := map[string]interface{}{
		"broadcaster_id": channelID,
		"id":             predictionID,
		"status":         "CANCELED",
	}
	_, err := c.do("PATCH", "/predictions", body)
	return err
}

// do 发送请求并统一处理认证和错误
func (c *TwitchClient) do(method, path string, body interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequest(method, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// 404: 平台上没有这个预测 (已被手动结算或过期清理)
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPredictionNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
