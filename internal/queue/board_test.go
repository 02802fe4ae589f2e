package queue

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lcrosetto/aria/internal/player"
)

func testTracks(ids ...string) []*Track {
	out := make([]*Track, len(ids))
	for i, id := range ids {
		out[i] = &Track{ID: id, Title: "Track " + id, Duration: 3 * time.Minute}
	}
	return out
}

func testBoard(maxQueues int) *Board {
	return NewBoard(maxQueues, nil, log.New(io.Discard))
}

func checkPosBounds(t *testing.T, q *Queue) {
	t.Helper()
	if q.Size() == 0 {
		return
	}
	if q.QueuePos < 0 || q.QueuePos >= q.Size() {
		t.Errorf("QueuePos = %d, want in [0, %d)", q.QueuePos, q.Size())
	}
}

func checkDensePermutation(t *testing.T, q *Queue) {
	t.Helper()
	seen := make(map[int]bool, q.Size())
	for _, tr := range q.Tracks {
		if tr.ShuffleIndex < 0 || tr.ShuffleIndex >= q.Size() {
			t.Errorf("ShuffleIndex %d out of range [0, %d)", tr.ShuffleIndex, q.Size())
		}
		if seen[tr.ShuffleIndex] {
			t.Errorf("duplicate ShuffleIndex %d", tr.ShuffleIndex)
		}
		seen[tr.ShuffleIndex] = true
	}
}

func queueIDs(q *Queue) []string {
	ids := make([]string, len(q.Tracks))
	for i, tr := range q.Tracks {
		ids[i] = tr.ID
	}
	return ids
}

func TestAddQueueNew(t *testing.T) {
	b := testBoard(0)

	q, reload := b.AddQueue("Album A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 1})
	if !reload {
		t.Error("reload = false, want true for a new queue")
	}
	if q.Kind != Primary {
		t.Errorf("Kind = %v, want Primary", q.Kind)
	}
	if q.QueuePos != 1 {
		t.Errorf("QueuePos = %d, want 1", q.QueuePos)
	}
	if b.CurrentQueue() != q {
		t.Error("new queue should be current")
	}
	checkPosBounds(t, q)
	checkDensePermutation(t, q)
}

func TestAddQueueSubsetJumps(t *testing.T) {
	b := testBoard(0)
	b.AddQueue("Album A", testTracks("t1", "t2", "t3"), AddOptions{})

	q, reload := b.AddQueue("Album A", testTracks("t2"), AddOptions{})
	if !reload {
		t.Error("reload = false, want true for a jump")
	}
	if got := queueIDs(q); len(got) != 3 {
		t.Fatalf("contents changed: %v", got)
	}
	if q.QueuePos != 1 {
		t.Errorf("QueuePos = %d, want 1 (pointing at t2)", q.QueuePos)
	}
	if b.Len() != 1 {
		t.Errorf("queue count = %d, want 1", b.Len())
	}
}

func TestAddQueueSubsetIsIdempotent(t *testing.T) {
	b := testBoard(0)
	q, _ := b.AddQueue("Album A", testTracks("t1", "t2", "t3"), AddOptions{})
	before := queueIDs(q)

	for i := 0; i < 3; i++ {
		b.AddQueue("Album A", testTracks("t1", "t3"), AddOptions{})
	}
	after := queueIDs(q)
	if len(before) != len(after) {
		t.Fatalf("contents changed: %v -> %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("track %d changed: %s -> %s", i, before[i], after[i])
		}
	}
}

func TestAddQueueReplace(t *testing.T) {
	b := testBoard(0)
	q1, _ := b.AddQueue("Album A", testTracks("t1", "t2"), AddOptions{})

	q2, reload := b.AddQueue("Album A", testTracks("t3", "t4", "t5"), AddOptions{Replace: true, StartIndex: 2})
	if !reload {
		t.Error("reload = false, want true for replace")
	}
	if q2 != q1 {
		t.Error("replace should reuse the existing queue")
	}
	want := []string{"t3", "t4", "t5"}
	got := queueIDs(q2)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("track %d = %s, want %s", i, got[i], want[i])
		}
	}
	if q2.QueuePos != 2 {
		t.Errorf("QueuePos = %d, want 2", q2.QueuePos)
	}
}

func TestAddQueueDelta(t *testing.T) {
	b := testBoard(0)
	b.AddQueue("Liked", testTracks("t1", "t2"), AddOptions{})

	q, reload := b.AddQueue("Liked", testTracks("t2", "t3"), AddOptions{Delta: true})
	if !reload {
		t.Error("reload = false, want true for delta")
	}
	want := []string{"t1", "t2", "t3"}
	got := queueIDs(q)
	if len(got) != len(want) {
		t.Fatalf("contents = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("track %d = %s, want %s", i, got[i], want[i])
		}
	}
	if q.QueuePos != 1 {
		t.Errorf("QueuePos = %d, want 1 (pointing at t2)", q.QueuePos)
	}
}

func TestAddQueueDeltaEmptyTracks(t *testing.T) {
	b := testBoard(0)
	q1, _ := b.AddQueue("Liked", testTracks("t1", "t2"), AddOptions{})
	q1.QueuePos = 1

	q, reload := b.AddQueue("Liked", nil, AddOptions{Delta: true})
	if !reload {
		t.Error("reload = false, want true for delta")
	}
	if q != q1 {
		t.Error("empty delta should reuse the existing queue")
	}
	if got := q.Size(); got != 2 {
		t.Errorf("size = %d, want 2", got)
	}
	if q.QueuePos != 1 {
		t.Errorf("QueuePos = %d, want 1 (unchanged)", q.QueuePos)
	}
}

func TestAddQueueSpawnsExtension(t *testing.T) {
	b := testBoard(0)
	base, _ := b.AddQueue("Album A", testTracks("t1", "t2", "t3"), AddOptions{})

	ext, reload := b.AddQueue("Album A", testTracks("t9"), AddOptions{ForceInsert: true})
	if !reload {
		t.Error("reload = false, want true when spawning an extension")
	}
	if ext.Kind != Extension {
		t.Errorf("Kind = %v, want Extension", ext.Kind)
	}
	if ext.ParentID != base.ID {
		t.Errorf("ParentID = %q, want %q", ext.ParentID, base.ID)
	}
	if got := ext.Size(); got != 4 {
		t.Fatalf("extension size = %d, want 4", got)
	}
	if ext.CurrentTrack().ID != "t9" {
		t.Errorf("current = %s, want t9", ext.CurrentTrack().ID)
	}
	if base.Size() != 3 {
		t.Errorf("base queue mutated: size %d", base.Size())
	}

	// Further additions pile onto the existing extension without a reload.
	ext2, reload := b.AddQueue("Album A", testTracks("t10"), AddOptions{ForceInsert: true})
	if reload {
		t.Error("reload = true, want false when appending to extension")
	}
	if ext2 != ext {
		t.Error("append should reuse the extension queue")
	}
	if got := ext.Size(); got != 5 {
		t.Errorf("extension size = %d, want 5", got)
	}
	if ext.CurrentTrack().ID != "t9" {
		t.Errorf("current changed to %s during append", ext.CurrentTrack().ID)
	}
}

func TestAddTracks(t *testing.T) {
	t.Run("before current shifts position", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 1})

		b.AddTracks(q, 0, testTracks("t4"), false)
		if q.CurrentTrack().ID != "t2" {
			t.Errorf("current = %s, want t2", q.CurrentTrack().ID)
		}
		if q.QueuePos != 2 {
			t.Errorf("QueuePos = %d, want 2", q.QueuePos)
		}
		checkPosBounds(t, q)
		checkDensePermutation(t, q)
	})

	t.Run("after current keeps position", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 1})

		b.AddTracks(q, 3, testTracks("t4", "t5"), false)
		if q.QueuePos != 1 {
			t.Errorf("QueuePos = %d, want 1", q.QueuePos)
		}
		if got := q.Size(); got != 5 {
			t.Errorf("size = %d, want 5", got)
		}
	})

	t.Run("shuffled splices into permutation", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{Shuffled: true})

		b.AddTracks(q, 1, testTracks("t4", "t5"), false)
		checkDensePermutation(t, q)
		ordered := q.TracksInOrder()
		if ordered[1].ID != "t4" || ordered[2].ID != "t5" {
			t.Errorf("traversal order = %s,%s at 1,2, want t4,t5", ordered[1].ID, ordered[2].ID)
		}
	})
}

func TestRemoveTrack(t *testing.T) {
	t.Run("before current", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 2})

		if !b.RemoveTrack(q, 0) {
			t.Fatal("RemoveTrack returned false")
		}
		if q.QueuePos != 1 {
			t.Errorf("QueuePos = %d, want 1", q.QueuePos)
		}
		want := []string{"t2", "t3"}
		got := queueIDs(q)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("track %d = %s, want %s", i, got[i], want[i])
			}
		}
		checkDensePermutation(t, q)
	})

	t.Run("after current", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{})

		b.RemoveTrack(q, 2)
		if q.QueuePos != 0 {
			t.Errorf("QueuePos = %d, want 0", q.QueuePos)
		}
		checkPosBounds(t, q)
		checkDensePermutation(t, q)
	})

	t.Run("last remaining track", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1"), AddOptions{})

		b.RemoveTrack(q, 0)
		if q.Size() != 0 {
			t.Errorf("size = %d, want 0", q.Size())
		}
	})

	t.Run("out of range", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1"), AddOptions{})
		if b.RemoveTrack(q, 5) {
			t.Error("RemoveTrack(5) = true, want false")
		}
	})

	t.Run("shuffled keeps permutation dense", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3", "t4"), AddOptions{Shuffled: true})

		b.RemoveTrack(q, 1)
		checkPosBounds(t, q)
		checkDensePermutation(t, q)
	})
}

func TestShufflePreservesCurrent(t *testing.T) {
	b := testBoard(0)
	q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 1})

	b.Shuffle(q, true)
	if !q.Shuffled {
		t.Error("Shuffled = false after Shuffle")
	}
	cur := q.CurrentTrack()
	if cur.ID != "t2" {
		t.Errorf("current = %s, want t2", cur.ID)
	}
	if cur.ShuffleIndex != 0 {
		t.Errorf("current ShuffleIndex = %d, want 0", cur.ShuffleIndex)
	}
	checkDensePermutation(t, q)
}

func TestShuffleFreshPass(t *testing.T) {
	b := testBoard(0)
	q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 2})

	b.Shuffle(q, false)
	checkDensePermutation(t, q)
	if got := q.CurrentTrack().ShuffleIndex; got != 0 {
		t.Errorf("current ShuffleIndex = %d, want 0 (start of the pass)", got)
	}
	checkPosBounds(t, q)
}

func TestUnShuffleKeepsStorageOrder(t *testing.T) {
	b := testBoard(0)
	q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{Shuffled: true, StartIndex: 1})

	b.UnShuffle(q)
	if q.Shuffled {
		t.Error("Shuffled = true after UnShuffle")
	}
	want := []string{"t1", "t2", "t3"}
	ordered := q.TracksInOrder()
	for i := range want {
		if ordered[i].ID != want[i] {
			t.Errorf("track %d = %s, want %s", i, ordered[i].ID, want[i])
		}
	}
}

func TestEvictionDropsOldest(t *testing.T) {
	b := testBoard(3)
	q1, _ := b.AddQueue("A", testTracks("a1"), AddOptions{})
	q2, _ := b.AddQueue("B", testTracks("b1"), AddOptions{})
	q3, _ := b.AddQueue("C", testTracks("c1"), AddOptions{})
	_ = q3

	// q1 was bubbled least recently; adding a fourth queue evicts it.
	q4, _ := b.AddQueue("D", testTracks("d1"), AddOptions{})

	if b.Len() != 3 {
		t.Fatalf("queue count = %d, want 3", b.Len())
	}
	qs := b.Queues()
	if qs[0] != q2 || qs[2] != q4 {
		t.Error("eviction changed relative order of survivors")
	}
	for _, q := range qs {
		if q == q1 {
			t.Error("oldest queue survived eviction")
		}
	}
	if b.CurrentQueue() != q4 {
		t.Error("new queue should be current after eviction")
	}
}

func TestBubbleUp(t *testing.T) {
	b := testBoard(0)
	q1, _ := b.AddQueue("A", testTracks("a1"), AddOptions{})
	b.AddQueue("B", testTracks("b1"), AddOptions{})
	q3, _ := b.AddQueue("C", testTracks("c1"), AddOptions{})

	b.BubbleUp(q1)
	qs := b.Queues()
	if qs[len(qs)-1] != q1 {
		t.Error("bubbled queue is not last")
	}
	// masterIndex still points at q3.
	if b.CurrentQueue() != q3 {
		t.Errorf("current queue changed by BubbleUp")
	}
}

func TestMoveMasterList(t *testing.T) {
	b := testBoard(0)
	q1, _ := b.AddQueue("A", testTracks("a1"), AddOptions{})
	q2, _ := b.AddQueue("B", testTracks("b1"), AddOptions{})
	q3, _ := b.AddQueue("C", testTracks("c1"), AddOptions{})

	// current is q3 at index 2; move it to the front.
	if !b.Move(2, 0) {
		t.Fatal("Move returned false")
	}
	if b.CurrentQueue() != q3 {
		t.Error("current should follow the moved queue")
	}
	qs := b.Queues()
	if qs[0] != q3 || qs[1] != q1 || qs[2] != q2 {
		t.Error("master order wrong after move")
	}

	// Move a non-current queue across the current one.
	if !b.Move(1, 2) {
		t.Fatal("Move returned false")
	}
	if b.CurrentQueue() != q3 {
		t.Error("current should be unaffected by moving others")
	}

	if b.Move(0, 9) {
		t.Error("Move out of range = true, want false")
	}
}

func TestMoveTrack(t *testing.T) {
	t.Run("moving current follows it", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 0})

		b.MoveTrack(q, 0, 2)
		if q.CurrentTrack().ID != "t1" {
			t.Errorf("current = %s, want t1", q.CurrentTrack().ID)
		}
		if q.QueuePos != 2 {
			t.Errorf("QueuePos = %d, want 2", q.QueuePos)
		}
	})

	t.Run("moving across current shifts it", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 1})

		b.MoveTrack(q, 2, 0)
		if q.CurrentTrack().ID != "t2" {
			t.Errorf("current = %s, want t2", q.CurrentTrack().ID)
		}
		if q.QueuePos != 2 {
			t.Errorf("QueuePos = %d, want 2", q.QueuePos)
		}
	})

	t.Run("shuffled moves in traversal space", func(t *testing.T) {
		b := testBoard(0)
		q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3", "t4"), AddOptions{Shuffled: true})
		before := q.CurrentTrack().ID

		b.MoveTrack(q, 3, 1)
		checkDensePermutation(t, q)
		if q.CurrentTrack().ID != before {
			t.Errorf("current changed: %s -> %s", before, q.CurrentTrack().ID)
		}
	})
}

func TestSetCurrentQueueSeamlessSplice(t *testing.T) {
	b := testBoard(0)
	q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{StartIndex: 1})

	p := player.NewMock()
	b.SetCurrentQueue(p, q, true)
	if p.SetItemsCalls() != 1 {
		t.Fatalf("SetItems calls = %d, want 1 for initial load", p.SetItemsCalls())
	}

	// Same current track after a mutation: splice around it, no full reload.
	b.AddTracks(q, 3, testTracks("t4"), false)
	b.SetCurrentQueue(p, q, false)
	if p.SetItemsCalls() != 1 {
		t.Errorf("SetItems calls = %d, want 1 (splice, not reload)", p.SetItemsCalls())
	}
	if got := len(p.ReplaceCalls()); got != 2 {
		t.Errorf("ReplaceItems calls = %d, want 2", got)
	}
	items := p.Items()
	if len(items) != 4 {
		t.Fatalf("player items = %d, want 4", len(items))
	}
	if cur, _ := p.CurrentItem(); cur.TrackID != "t2" {
		t.Errorf("player current = %s, want t2", cur.TrackID)
	}

	// Different target track forces a reload.
	q.QueuePos = 0
	b.SetCurrentQueue(p, q, true)
	if p.SetItemsCalls() != 2 {
		t.Errorf("SetItems calls = %d, want 2 after target change", p.SetItemsCalls())
	}
}

func TestSyncPosition(t *testing.T) {
	b := testBoard(0)
	q, _ := b.AddQueue("A", testTracks("t1", "t2", "t3"), AddOptions{Shuffled: true})

	b.SyncPosition(q, 2)
	want := q.StorageIndex(2)
	if q.QueuePos != want {
		t.Errorf("QueuePos = %d, want %d", q.QueuePos, want)
	}
	if q.CurrentTrack().ShuffleIndex != 2 {
		t.Errorf("current ShuffleIndex = %d, want 2", q.CurrentTrack().ShuffleIndex)
	}
}

func TestDeleteQueue(t *testing.T) {
	b := testBoard(0)
	q1, _ := b.AddQueue("A", testTracks("a1"), AddOptions{})
	q2, _ := b.AddQueue("B", testTracks("b1"), AddOptions{})

	b.DeleteQueue(q2)
	if b.Len() != 1 {
		t.Fatalf("queue count = %d, want 1", b.Len())
	}
	if b.CurrentQueue() != q1 {
		t.Error("current should fall back to the remaining queue")
	}

	b.DeleteQueue(q1)
	if b.CurrentQueue() != nil {
		t.Error("current should be nil on an empty board")
	}
	if b.MasterIndex() != -1 {
		t.Errorf("MasterIndex = %d, want -1", b.MasterIndex())
	}
}
