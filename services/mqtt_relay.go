package services

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"gsi-service/logger"
)

// QoSAtMostOnce MQTT QoS 0: 覆盖层展示丢一条无所谓, 不做投递保证
const QoSAtMostOnce = 0

// MQTTRelay 把覆盖层事件转发到 MQTT broker 的可选广播实现
// topic 为 overlay/<token>/<event>, 覆盖层客户端按 token 订阅
type MQTTRelay struct {
	client mqtt.Client
}

// NewMQTTRelay 创建 MQTT 转发器
func NewMQTTRelay(brokerURL string) (*MQTTRelay, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("gsi_service_%d", time.Now().Unix()))

	// 自动重连
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)

	// 保活
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Errorf("[MQTTRelay] Connection lost: %v", err)
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Println("[MQTTRelay] Connected")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("MQTT connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	return &MQTTRelay{client: client}, nil
}

// Publish 实现 Broadcaster 接口
// 转发失败只记日志, 不影响事件处理
func (r *MQTTRelay) Publish(sessionToken, event string, payload interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"token":     sessionToken,
		"event":     event,
		"data":      payload,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		logger.Errorf("[MQTTRelay] Failed to marshal payload: %v", err)
		return
	}

	topic := fmt.Sprintf("overlay/%s/%s", sessionToken, event)
	pubToken := r.client.Publish(topic, QoSAtMostOnce, false, body)

	// 异步等待结果, 只为记录失败
	go func() {
		if pubToken.WaitTimeout(5*time.Second) && pubToken.Error() != nil {
			logger.Errorf("[MQTTRelay] Failed to publish %s: %v", topic, pubToken.Error())
		}
	}()
}

// Close 断开连接
func (r *MQTTRelay) Close() error {
	r.client.Disconnect(250)
	return nil
}
