package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"gsi-service/logger"
)

// OverlayExchange 覆盖层事件转发用的 topic exchange
const OverlayExchange = "gsi-overlay"

// AMQPRelay 把覆盖层事件转发到 AMQP exchange 的可选广播实现
// routing key 为 <token>.<event>, 外部覆盖层网关按 token 绑定队列消费
type AMQPRelay struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPRelay 创建 AMQP 转发器
func NewAMQPRelay(amqpURL string) (*AMQPRelay, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	// 声明 exchange
	if err := channel.ExchangeDeclare(
		OverlayExchange, // name
		"topic",         // type
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Printf("[AMQPRelay] Connected, exchange: %s", OverlayExchange)

	return &AMQPRelay{conn: conn, channel: channel}, nil
}

// Publish 实现 Broadcaster 接口
// 转发失败只记日志: 覆盖层展示是尽力而为, 不能影响事件处理
func (r *AMQPRelay) Publish(token, event string, payload interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"token":     token,
		"event":     event,
		"data":      payload,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		logger.Errorf("[AMQPRelay] Failed to marshal payload: %v", err)
		return
	}

	routingKey := fmt.Sprintf("%s.%s", token, event)
	if err := r.channel.Publish(
		OverlayExchange, // exchange
		routingKey,      // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	); err != nil {
		logger.Errorf("[AMQPRelay] Failed to publish %s: %v", routingKey, err)
	}
}

// Close 关闭连接
func (r *AMQPRelay) Close() error {
	if err := r.channel.Close(); err != nil {
		logger.Errorf("[AMQPRelay] Failed to close channel: %v", err)
	}
	return r.conn.Close()
}
