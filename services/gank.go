package services

import (
	"math/rand"
	"time"

	"gsi-service/logger"
)

// GankDetector gank 信号检测
// 四个条件全部满足才触发: 绝对掉血超阈值、上一条采样血量非零
// (排除开局伪采样)、百分比掉血超阈值、概率闸门通过
// 概率闸门是刻意的防刷屏节流, 不是缺陷; 参数可配置
type GankDetector struct {
	broadcaster Broadcaster
	chat        ChatNotifier

	Chance         float64 // 概率闸门 (0-1], 1.0 = 关闭节流
	MinHealthDrop  float64 // 绝对掉血阈值
	MinPercentDrop float64 // 百分比掉血阈值

	// randFn 可注入, 测试时固定
	randFn func() float64
}

// NewGankDetector 创建 gank 检测器
func NewGankDetector(broadcaster Broadcaster, chat ChatNotifier, chance, minHealthDrop, minPercentDrop float64) *GankDetector {
	return &GankDetector{
		broadcaster:    broadcaster,
		chat:           chat,
		Chance:         chance,
		MinHealthDrop:  minHealthDrop,
		MinPercentDrop: minPercentDrop,
		randFn:         rand.Float64,
	}
}

// HandleHealthSample 处理每 tick 的血量采样
func (d *GankDetector) HandleHealthSample(sess *Session, ev Event) {
	sample := healthSample{Health: ev.Value, Percent: ev.Pct}

	prior, hasPrior := sess.Gank.Latest()
	sess.Gank.Push(sample)

	if !hasPrior {
		return
	}

	// (a) 绝对掉血超阈值
	if prior.Health-sample.Health <= d.MinHealthDrop {
		return
	}
	// (b) 上一条采样血量非零 (排除比赛开始/重生产生的伪采样)
	if prior.Health <= 0 {
		return
	}
	// (c) 百分比掉血超阈值
	if prior.Percent-sample.Percent <= d.MinPercentDrop {
		return
	}
	// (d) 概率闸门
	if d.randFn() >= d.Chance {
		return
	}

	logger.Printf("[Gank] %s: health %0.f -> %0.f (%.0f%% -> %.0f%%), firing signal",
		sess.Token, prior.Health, sample.Health, prior.Percent, sample.Percent)

	d.broadcaster.Publish(sess.Token, BroadcastGankSignal, map[string]interface{}{
		"health":       sample.Health,
		"prior_health": prior.Health,
		"percent":      sample.Percent,
	})

	if d.chat != nil && sess.ChannelName != "" {
		if err := d.chat.Say(sess.ChannelName, "They're coming for you! Watch out!", SayOptions{
			Delay:       10 * time.Second,
			SessionTier: sess.Tier,
		}); err != nil {
			logger.Errorf("[Gank] %s: chat failed: %v", sess.Token, err)
		}
	}
}
