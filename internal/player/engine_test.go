package player

import (
	"context"
	"errors"
	"testing"
	"time"
)

func instantSource(_ context.Context, trackID string, _ bool) (string, error) {
	return "stream://" + trackID, nil
}

func items(ids ...string) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{TrackID: id, Duration: 3 * time.Minute}
	}
	return out
}

func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", e.State(), want)
}

func waitEvent(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event stream closed")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestEngineSetItemsEmitsTransition(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()

	e.SetItems(items("t1", "t2"), 1, 0)

	ev := waitEvent(t, e.Events(), func(ev Event) bool {
		_, ok := ev.(ItemTransition)
		return ok
	})
	tr := ev.(ItemTransition)
	if tr.Index != 1 || tr.Reason != TransitionItemsChanged {
		t.Errorf("transition = %+v, want index 1, items-changed", tr)
	}
	if cur, _ := e.CurrentItem(); cur.TrackID != "t2" {
		t.Errorf("current = %s, want t2", cur.TrackID)
	}
}

func TestEnginePrepareResolves(t *testing.T) {
	e := NewEngine(instantSource)
	defer e.Close()

	e.SetItems(items("t1"), 0, 0)
	e.Prepare()
	waitState(t, e, Ready)
}

func TestEnginePrepareErrorGoesIdle(t *testing.T) {
	resolveErr := errors.New("resolve failed")
	e := NewEngine(func(context.Context, string, bool) (string, error) {
		return "", resolveErr
	})
	defer e.Close()

	e.SetItems(items("t1"), 0, 0)
	e.Prepare()

	ev := waitEvent(t, e.Events(), func(ev Event) bool {
		_, ok := ev.(PlayerError)
		return ok
	})
	pe := ev.(PlayerError)
	if pe.Index != 0 || !errors.Is(pe.Err, resolveErr) {
		t.Errorf("error event = %+v", pe)
	}
	waitState(t, e, Idle)
}

func TestEngineStaleResolutionDiscarded(t *testing.T) {
	release := make(chan struct{})
	e := NewEngine(func(context.Context, string, bool) (string, error) {
		<-release
		return "stream://stale", nil
	})

	e.SetItems(items("t1"), 0, 0)
	e.Prepare()
	// Invalidate the in-flight resolution before it completes.
	e.Stop()
	close(release)

	time.Sleep(100 * time.Millisecond)
	if got := e.State(); got != Idle {
		t.Errorf("state = %v, want Idle (stale resolution applied)", got)
	}
	e.Close()
}

func TestEngineReplaceItemsShiftsIndex(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()

	e.SetItems(items("a", "b", "c"), 2, 0)
	e.ReplaceItems(0, 1, items("x", "y"))

	if got := e.CurrentIndex(); got != 3 {
		t.Errorf("index = %d, want 3 (shifted by splice delta)", got)
	}
	if cur, _ := e.CurrentItem(); cur.TrackID != "c" {
		t.Errorf("current = %s, want c", cur.TrackID)
	}
	if got := e.ItemCount(); got != 4 {
		t.Errorf("count = %d, want 4", got)
	}
}

func TestEngineReplaceCurrentResetsPlayback(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()

	e.SetItems(items("a", "b", "c"), 1, 0)
	e.SeekTo(1, 30*time.Second)
	e.ReplaceItems(1, 2, items("x"))

	if cur, _ := e.CurrentItem(); cur.TrackID != "x" {
		t.Errorf("current = %s, want x", cur.TrackID)
	}
	if got := e.Position(); got != 0 {
		t.Errorf("position = %v, want 0 after replacing the playing item", got)
	}
}

func TestEngineInsertItems(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()

	e.SetItems(items("a", "b"), 1, 0)
	e.InsertItems(0, items("x"))
	if got := e.CurrentIndex(); got != 2 {
		t.Errorf("index = %d, want 2 after insert before current", got)
	}
	e.InsertItems(3, items("y"))
	if got := e.CurrentIndex(); got != 2 {
		t.Errorf("index = %d, want 2 after insert after current", got)
	}

	got := e.Items()
	want := []string{"x", "a", "b", "y"}
	for i := range want {
		if got[i].TrackID != want[i] {
			t.Errorf("item %d = %s, want %s", i, got[i].TrackID, want[i])
		}
	}
}

func TestEngineRemoveItems(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()

	e.SetItems(items("a", "b", "c", "d"), 2, 0)
	e.RemoveItems(0, 1)
	if got := e.CurrentIndex(); got != 1 {
		t.Errorf("index = %d, want 1 after removing before current", got)
	}

	// Removing the current item clamps to the next one.
	e.RemoveItems(1, 2)
	if cur, _ := e.CurrentItem(); cur.TrackID != "d" {
		t.Errorf("current = %s, want d", cur.TrackID)
	}

	e.RemoveItems(0, e.ItemCount())
	if got := e.ItemCount(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	if got := e.State(); got != Idle {
		t.Errorf("state = %v, want Idle with no items", got)
	}
}

func TestEngineSeekToOtherItem(t *testing.T) {
	e := NewEngine(nil)
	defer e.Close()

	e.SetItems(items("a", "b"), 0, 0)
	e.SeekTo(1, 5*time.Second)

	ev := waitEvent(t, e.Events(), func(ev Event) bool {
		tr, ok := ev.(ItemTransition)
		return ok && tr.Reason == TransitionSeek
	})
	if tr := ev.(ItemTransition); tr.Index != 1 {
		t.Errorf("transition index = %d, want 1", tr.Index)
	}
	if got := e.Position(); got != 5*time.Second {
		t.Errorf("position = %v, want 5s", got)
	}
}

func TestEngineAutoAdvanceAndEnd(t *testing.T) {
	e := NewEngine(instantSource)
	defer e.Close()

	short := []Item{
		{TrackID: "a", Duration: 50 * time.Millisecond},
		{TrackID: "b", Duration: 50 * time.Millisecond},
	}
	e.SetItems(short, 0, 0)
	e.Play()

	waitEvent(t, e.Events(), func(ev Event) bool {
		tr, ok := ev.(ItemTransition)
		return ok && tr.Reason == TransitionAuto && tr.Index == 1
	})
	waitState(t, e, Ended)
}

func TestEngineRepeatAllWraps(t *testing.T) {
	e := NewEngine(instantSource)
	defer e.Close()

	short := []Item{
		{TrackID: "a", Duration: 50 * time.Millisecond},
		{TrackID: "b", Duration: 50 * time.Millisecond},
	}
	e.SetItems(short, 0, 0)
	e.SetRepeatMode(RepeatAll)
	e.Play()

	waitEvent(t, e.Events(), func(ev Event) bool {
		tr, ok := ev.(ItemTransition)
		return ok && tr.Reason == TransitionAuto && tr.Index == 0
	})
}

func TestEngineRepeatOneReplays(t *testing.T) {
	e := NewEngine(instantSource)
	defer e.Close()

	e.SetItems([]Item{{TrackID: "a", Duration: 50 * time.Millisecond}}, 0, 0)
	e.SetRepeatMode(RepeatOne)
	e.Play()

	waitEvent(t, e.Events(), func(ev Event) bool {
		tr, ok := ev.(ItemTransition)
		return ok && tr.Reason == TransitionAuto && tr.Index == 0
	})
	if got := e.CurrentIndex(); got != 0 {
		t.Errorf("index = %d, want 0 under repeat-one", got)
	}
}
