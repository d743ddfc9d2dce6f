package services

import (
	"testing"
)

func newTestGankDetector(broadcaster Broadcaster, chat ChatNotifier) *GankDetector {
	d := NewGankDetector(broadcaster, chat, 0.33, 200, 20)
	d.randFn = func() float64 { return 0 } // 概率闸门必过
	return d
}

func sampleEvent(health, pct float64) Event {
	return Event{Type: EvtHealthSample, Value: health, Pct: pct}
}

func TestGankSignalFiresWhenAllConditionsMet(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	chat := &fakeChat{}
	d := newTestGankDetector(broadcaster, chat)

	sess := newLiveSession("tok-gank")
	sess.Lock()
	d.HandleHealthSample(sess, sampleEvent(1000, 90))
	d.HandleHealthSample(sess, sampleEvent(600, 54))
	sess.Unlock()

	if broadcaster.count(BroadcastGankSignal) != 1 {
		t.Errorf("Expected 1 gank signal, got %d", broadcaster.count(BroadcastGankSignal))
	}
	if chat.count() != 1 {
		t.Errorf("Expected 1 chat warning, got %d", chat.count())
	}
}

func TestGankSignalNeedsAbsoluteDrop(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	d := newTestGankDetector(broadcaster, &fakeChat{})

	sess := newLiveSession("tok-absg")
	sess.Lock()
	// 掉血 150, 不超过 200 的绝对阈值
	d.HandleHealthSample(sess, sampleEvent(500, 90))
	d.HandleHealthSample(sess, sampleEvent(350, 60))
	sess.Unlock()

	if broadcaster.count(BroadcastGankSignal) != 0 {
		t.Errorf("Expected no signal below absolute threshold, got %d", broadcaster.count(BroadcastGankSignal))
	}
}

func TestGankSignalNeedsPercentDrop(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	d := newTestGankDetector(broadcaster, &fakeChat{})

	sess := newLiveSession("tok-pctg")
	sess.Lock()
	// 高血量英雄掉 300 点但百分比只变 10
	d.HandleHealthSample(sess, sampleEvent(3000, 100))
	d.HandleHealthSample(sess, sampleEvent(2700, 90))
	sess.Unlock()

	if broadcaster.count(BroadcastGankSignal) != 0 {
		t.Errorf("Expected no signal below percent threshold, got %d", broadcaster.count(BroadcastGankSignal))
	}
}

func TestGankSignalIgnoresRespawnFromZero(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	d := newTestGankDetector(broadcaster, &fakeChat{})

	sess := newLiveSession("tok-respawn")
	sess.Lock()
	// 死亡后的 0 血采样不能作为比较基线
	d.HandleHealthSample(sess, sampleEvent(0, 0))
	d.HandleHealthSample(sess, sampleEvent(-500, -45))
	sess.Unlock()

	if broadcaster.count(BroadcastGankSignal) != 0 {
		t.Errorf("Expected no signal from zero-health baseline, got %d", broadcaster.count(BroadcastGankSignal))
	}
}

func TestGankSignalGatedByChance(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	d := NewGankDetector(broadcaster, &fakeChat{}, 0.33, 200, 20)
	d.randFn = func() float64 { return 0.99 } // 概率闸门必不过

	sess := newLiveSession("tok-chance")
	sess.Lock()
	d.HandleHealthSample(sess, sampleEvent(1000, 90))
	d.HandleHealthSample(sess, sampleEvent(600, 54))
	sess.Unlock()

	if broadcaster.count(BroadcastGankSignal) != 0 {
		t.Errorf("Expected chance gate to suppress signal, got %d", broadcaster.count(BroadcastGankSignal))
	}
}

func TestGankFirstSampleNeverFires(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	d := newTestGankDetector(broadcaster, &fakeChat{})

	sess := newLiveSession("tok-first")
	sess.Lock()
	d.HandleHealthSample(sess, sampleEvent(100, 10))
	sess.Unlock()

	if broadcaster.count(BroadcastGankSignal) != 0 {
		t.Errorf("Expected no signal without a prior sample, got %d", broadcaster.count(BroadcastGankSignal))
	}
}
