package services

import (
	"testing"
)

func midasSnapshot(slot string, cooldown float64, canCast bool) *Snapshot {
	return &Snapshot{
		Token: "tok-midas",
		Data: map[string]interface{}{
			"items": map[string]interface{}{
				slot: map[string]interface{}{
					"name":     MidasItemName,
					"cooldown": cooldown,
					"can_cast": canCast,
				},
			},
		},
	}
}

func TestMidasFiresAfterThresholdTicks(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	chat := &fakeChat{}
	tracker := NewMidasTracker(broadcaster, chat)

	sess := newLiveSession("tok-midas")
	snap := midasSnapshot("slot2", 0, true)

	sess.Lock()
	for i := 0; i < MidasReadyThreshold; i++ {
		tracker.HandleTick(sess, Event{Type: EvtInventoryTick, Snapshot: snap})
	}
	sess.Unlock()

	if broadcaster.count(BroadcastMidasReady) != 1 {
		t.Errorf("Expected exactly 1 midas reminder, got %d", broadcaster.count(BroadcastMidasReady))
	}
	if chat.count() != 1 {
		t.Errorf("Expected 1 chat message, got %d", chat.count())
	}
	if sess.Midas.ConsecutiveReadyTicks != MidasFirePenalty {
		t.Errorf("Expected counter depressed to %d after firing, got %d", MidasFirePenalty, sess.Midas.ConsecutiveReadyTicks)
	}
}

func TestMidasDoesNotRefireImmediately(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	tracker := NewMidasTracker(broadcaster, &fakeChat{})

	sess := newLiveSession("tok-refire")
	snap := midasSnapshot("slot0", 0, true)

	sess.Lock()
	// 触发一次, 再继续 30 个就绪 tick (不足以越过负值惩罚)
	for i := 0; i < MidasReadyThreshold+30; i++ {
		tracker.HandleTick(sess, Event{Type: EvtInventoryTick, Snapshot: snap})
	}
	sess.Unlock()

	if broadcaster.count(BroadcastMidasReady) != 1 {
		t.Errorf("Expected penalty to prevent refire, got %d reminders", broadcaster.count(BroadcastMidasReady))
	}
}

func TestMidasOnCooldownResetsCounter(t *testing.T) {
	tracker := NewMidasTracker(&fakeBroadcaster{}, &fakeChat{})

	sess := newLiveSession("tok-cd")
	ready := midasSnapshot("slot1", 0, true)
	onCooldown := midasSnapshot("slot1", 45, false)

	sess.Lock()
	for i := 0; i < 10; i++ {
		tracker.HandleTick(sess, Event{Type: EvtInventoryTick, Snapshot: ready})
	}
	tracker.HandleTick(sess, Event{Type: EvtInventoryTick, Snapshot: onCooldown})
	sess.Unlock()

	if sess.Midas.ConsecutiveReadyTicks != 0 {
		t.Errorf("Expected counter reset on cooldown, got %d", sess.Midas.ConsecutiveReadyTicks)
	}
}

func TestMidasInBackpackNotReady(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	tracker := NewMidasTracker(broadcaster, &fakeChat{})

	sess := newLiveSession("tok-backpack")
	// slot6 是背包, 不算主物品栏
	snap := midasSnapshot("slot6", 0, true)

	sess.Lock()
	for i := 0; i < MidasReadyThreshold; i++ {
		tracker.HandleTick(sess, Event{Type: EvtInventoryTick, Snapshot: snap})
	}
	sess.Unlock()

	if broadcaster.count(BroadcastMidasReady) != 0 {
		t.Errorf("Expected no reminder for backpacked midas, got %d", broadcaster.count(BroadcastMidasReady))
	}
	if sess.Midas.ConsecutiveReadyTicks != 0 {
		t.Errorf("Expected counter to stay 0 for backpacked midas, got %d", sess.Midas.ConsecutiveReadyTicks)
	}
}

func TestMidasMissingItemsSubtreeLeavesCounter(t *testing.T) {
	tracker := NewMidasTracker(&fakeBroadcaster{}, &fakeChat{})

	sess := newLiveSession("tok-noitems")
	sess.Midas.ConsecutiveReadyTicks = 7

	sess.Lock()
	tracker.HandleTick(sess, Event{
		Type:     EvtInventoryTick,
		Snapshot: &Snapshot{Data: map[string]interface{}{}},
	})
	sess.Unlock()

	if sess.Midas.ConsecutiveReadyTicks != 7 {
		t.Errorf("Expected counter untouched without items data, got %d", sess.Midas.ConsecutiveReadyTicks)
	}
}
