package services

import (
	"errors"
	"sync"
)

// fakeBroadcaster 记录发布的事件
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Token   string
	Event   string
	Payload interface{}
}

func (b *fakeBroadcaster) Publish(token, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Token: token, Event: event, Payload: payload})
}

func (b *fakeBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (b *fakeBroadcaster) last(event string) (publishedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Event == event {
			return b.events[i], true
		}
	}
	return publishedEvent{}, false
}

// fakeChat 记录聊天输出
type fakeChat struct {
	mu       sync.Mutex
	messages []string
}

func (c *fakeChat) Say(channel, text string, opts SayOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, text)
	return nil
}

func (c *fakeChat) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// fakePlatform 预测平台的可编程替身
type fakePlatform struct {
	mu sync.Mutex

	createErr  error
	lockErr    error
	resolveErr error
	cancelErr  error

	createCalls  int
	lockCalls    int
	resolveCalls int
	cancelCalls  int

	lastResolvedOutcome string
}

func (p *fakePlatform) CreatePrediction(channelID, title string, outcomeTitles []string, windowSec int) (*PlatformPrediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	outcomes := make([]PredictionOutcome, len(outcomeTitles))
	for i, title := range outcomeTitles {
		outcomes[i] = PredictionOutcome{ID: "outcome-" + title, Title: title}
	}
	return &PlatformPrediction{ID: "pred-1", Outcomes: outcomes}, nil
}

func (p *fakePlatform) LockPrediction(channelID, predictionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lockCalls++
	return p.lockErr
}

func (p *fakePlatform) ResolvePrediction(channelID, predictionID, outcomeID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolveCalls++
	if p.resolveErr != nil {
		return p.resolveErr
	}
	p.lastResolvedOutcome = outcomeID
	return nil
}

func (p *fakePlatform) CancelPrediction(channelID, predictionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelCalls++
	return p.cancelErr
}

var errPlatformDown = errors.New("platform unavailable")

// newLiveSession 构造一个处于可下注比赛中的会话
func newLiveSession(token string) *Session {
	sess := NewSession(token)
	sess.StreamOnline = true
	sess.BetsEnabled = true
	sess.ChannelName = "teststreamer"
	sess.MatchID = "7421337001"
	sess.PlayerTeam = "radiant"
	return sess
}
