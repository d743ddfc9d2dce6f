package services

import (
	"testing"
)

func treadsEvent(newMax, prevMax, curMana float64) Event {
	return Event{
		Type:  EvtMaxManaChanged,
		Value: newMax,
		Prev:  prevMax,
		Snapshot: &Snapshot{
			Data: map[string]interface{}{
				"hero": map[string]interface{}{"mana": curMana},
			},
		},
	}
}

func TestTreadsToggleAccumulatesSavedMana(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	tracker := NewTreadsTracker(broadcaster)

	sess := newLiveSession("tok-treads")
	sess.Lock()
	// 切到智力: +120 最大蓝, 当前蓝 500
	tracker.HandleMaxManaChanged(sess, treadsEvent(820, 700, 500))
	// 施法后切回: -120 最大蓝, 当前蓝 100
	tracker.HandleMaxManaChanged(sess, treadsEvent(700, 820, 100))
	sess.Unlock()

	// 省下的蓝 = 500 - 100 - 120 = 280
	if sess.Treads.ManaSaved != 280 {
		t.Errorf("Expected 280 mana saved, got %f", sess.Treads.ManaSaved)
	}
	if sess.Treads.ToggleCount != 1 {
		t.Errorf("Expected 1 toggle counted, got %d", sess.Treads.ToggleCount)
	}
	if broadcaster.count(BroadcastTreadsChanged) != 1 {
		t.Errorf("Expected 1 treads broadcast, got %d", broadcaster.count(BroadcastTreadsChanged))
	}
}

func TestTreadsNegativeSavingsNotCounted(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	tracker := NewTreadsTracker(broadcaster)

	sess := newLiveSession("tok-negtreads")
	sess.Lock()
	tracker.HandleMaxManaChanged(sess, treadsEvent(820, 700, 500))
	// 切换期间蓝几乎没动, 省的不够覆盖切换损耗
	tracker.HandleMaxManaChanged(sess, treadsEvent(700, 820, 450))
	sess.Unlock()

	if sess.Treads.ManaSaved != 0 {
		t.Errorf("Expected 0 mana saved for unprofitable toggle, got %f", sess.Treads.ManaSaved)
	}
	if broadcaster.count(BroadcastTreadsChanged) != 0 {
		t.Errorf("Expected no broadcast for unprofitable toggle, got %d", broadcaster.count(BroadcastTreadsChanged))
	}
}

func TestTreadsUnrelatedManaChangeIgnored(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	tracker := NewTreadsTracker(broadcaster)

	sess := newLiveSession("tok-levelup")
	sess.Lock()
	// 升级带来的 +36 最大蓝不是鞋子切换
	tracker.HandleMaxManaChanged(sess, treadsEvent(736, 700, 500))
	sess.Unlock()

	if sess.Treads.ToggleActive {
		t.Error("Expected level-up mana change not to start a toggle")
	}
	if sess.Treads.ToggleCount != 0 {
		t.Errorf("Expected 0 toggles, got %d", sess.Treads.ToggleCount)
	}
}

func TestTreadsDownDeltaWithoutActiveToggleIgnored(t *testing.T) {
	tracker := NewTreadsTracker(&fakeBroadcaster{})

	sess := newLiveSession("tok-selltreads")
	sess.Lock()
	// 没有进行中的切换时出现 -120 (例如卖鞋), 不计省蓝
	tracker.HandleMaxManaChanged(sess, treadsEvent(700, 820, 300))
	sess.Unlock()

	if sess.Treads.ManaSaved != 0 {
		t.Errorf("Expected 0 mana saved, got %f", sess.Treads.ManaSaved)
	}
}
