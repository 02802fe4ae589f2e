package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lcrosetto/aria/internal/catalog"
	"github.com/lcrosetto/aria/internal/queue"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestQueueRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	q := &queue.Queue{
		ID:         "q1",
		Title:      "Album A",
		Kind:       queue.Extension,
		ParentID:   "q0",
		PlaylistID: "cont-token",
		QueuePos:   1,
		Shuffled:   true,
		Tracks: []*queue.Track{
			{ID: "t1", Title: "One", Artists: []string{"A", "B"}, Album: "X", Duration: 3 * time.Minute, ShuffleIndex: 2},
			{ID: "t2", Title: "Two", Duration: 4 * time.Minute, IsLocal: true, ShuffleIndex: 0},
			{ID: "t3", Title: "Three", ShuffleIndex: 1},
		},
	}
	if err := s.RewriteQueue(ctx, q, 0); err != nil {
		t.Fatalf("RewriteQueue: %v", err)
	}
	if err := s.UpdateAllQueues(ctx, []*queue.Queue{q}, 0); err != nil {
		t.Fatalf("UpdateAllQueues: %v", err)
	}

	qs, masterIndex, err := s.ReadQueues(ctx)
	if err != nil {
		t.Fatalf("ReadQueues: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("queues = %d, want 1", len(qs))
	}
	if masterIndex != 0 {
		t.Errorf("masterIndex = %d, want 0", masterIndex)
	}

	got := qs[0]
	if got.ID != "q1" || got.Title != "Album A" {
		t.Errorf("identity = %s/%s", got.ID, got.Title)
	}
	if got.Kind != queue.Extension || got.ParentID != "q0" {
		t.Errorf("kind = %v parent = %q", got.Kind, got.ParentID)
	}
	if got.PlaylistID != "cont-token" {
		t.Errorf("PlaylistID = %q", got.PlaylistID)
	}
	if got.QueuePos != 1 || !got.Shuffled {
		t.Errorf("QueuePos = %d Shuffled = %v", got.QueuePos, got.Shuffled)
	}
	if len(got.Tracks) != 3 {
		t.Fatalf("tracks = %d, want 3", len(got.Tracks))
	}
	for i, want := range q.Tracks {
		tr := got.Tracks[i]
		if tr.ID != want.ID || tr.Title != want.Title {
			t.Errorf("track %d = %s/%s, want %s/%s", i, tr.ID, tr.Title, want.ID, want.Title)
		}
		if tr.ShuffleIndex != want.ShuffleIndex {
			t.Errorf("track %d ShuffleIndex = %d, want %d", i, tr.ShuffleIndex, want.ShuffleIndex)
		}
		if tr.Duration != want.Duration {
			t.Errorf("track %d Duration = %v, want %v", i, tr.Duration, want.Duration)
		}
		if tr.IsLocal != want.IsLocal {
			t.Errorf("track %d IsLocal = %v, want %v", i, tr.IsLocal, want.IsLocal)
		}
	}
	if got.Tracks[0].Artists[0] != "A" || got.Tracks[0].Artists[1] != "B" {
		t.Errorf("artists = %v", got.Tracks[0].Artists)
	}
}

func TestRewriteQueueReplacesTracks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	q := &queue.Queue{ID: "q1", Title: "A", Tracks: []*queue.Track{{ID: "t1", Title: "One"}, {ID: "t2", Title: "Two"}}}
	if err := s.RewriteQueue(ctx, q, 0); err != nil {
		t.Fatalf("RewriteQueue: %v", err)
	}

	q.Tracks = q.Tracks[:1]
	if err := s.RewriteQueue(ctx, q, 0); err != nil {
		t.Fatalf("RewriteQueue: %v", err)
	}

	qs, _, err := s.ReadQueues(ctx)
	if err != nil {
		t.Fatalf("ReadQueues: %v", err)
	}
	if len(qs[0].Tracks) != 1 {
		t.Errorf("tracks = %d, want 1 after rewrite", len(qs[0].Tracks))
	}
}

func TestDeleteQueue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	q := &queue.Queue{ID: "q1", Title: "A", Tracks: []*queue.Track{{ID: "t1", Title: "One"}}}
	if err := s.RewriteQueue(ctx, q, 0); err != nil {
		t.Fatalf("RewriteQueue: %v", err)
	}
	if err := s.DeleteQueue(ctx, "q1"); err != nil {
		t.Fatalf("DeleteQueue: %v", err)
	}
	qs, _, err := s.ReadQueues(ctx)
	if err != nil {
		t.Fatalf("ReadQueues: %v", err)
	}
	if len(qs) != 0 {
		t.Errorf("queues = %d, want 0", len(qs))
	}
}

func TestReadQueuesEmpty(t *testing.T) {
	s := testStore(t)
	qs, masterIndex, err := s.ReadQueues(context.Background())
	if err != nil {
		t.Fatalf("ReadQueues: %v", err)
	}
	if len(qs) != 0 || masterIndex != -1 {
		t.Errorf("got %d queues, masterIndex %d; want 0, -1", len(qs), masterIndex)
	}
}

func TestMasterOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	q1 := &queue.Queue{ID: "q1", Title: "A"}
	q2 := &queue.Queue{ID: "q2", Title: "B"}
	if err := s.RewriteQueue(ctx, q1, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.RewriteQueue(ctx, q2, 1); err != nil {
		t.Fatal(err)
	}

	// Swap the order, keep contents.
	if err := s.UpdateAllQueues(ctx, []*queue.Queue{q2, q1}, 1); err != nil {
		t.Fatal(err)
	}

	qs, masterIndex, err := s.ReadQueues(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if qs[0].ID != "q2" || qs[1].ID != "q1" {
		t.Errorf("order = %s,%s; want q2,q1", qs[0].ID, qs[1].ID)
	}
	if masterIndex != 1 {
		t.Errorf("masterIndex = %d, want 1", masterIndex)
	}
}

func TestFormats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Format(ctx, "t1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	f := catalog.Format{Itag: 251, MimeType: "audio/webm", Codec: "opus", Bitrate: 160000, SampleRate: 48000, ContentLength: 1 << 20, Loudness: -3.5, TrackingURL: "https://t"}
	if err := s.UpsertFormat(ctx, "t1", f); err != nil {
		t.Fatalf("UpsertFormat: %v", err)
	}
	got, err := s.Format(ctx, "t1")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if got != f {
		t.Errorf("Format = %+v, want %+v", got, f)
	}

	// Upsert refreshes in place.
	f.Bitrate = 128000
	if err := s.UpsertFormat(ctx, "t1", f); err != nil {
		t.Fatalf("UpsertFormat: %v", err)
	}
	got, _ = s.Format(ctx, "t1")
	if got.Bitrate != 128000 {
		t.Errorf("Bitrate = %d, want 128000", got.Bitrate)
	}
}

func TestSongFlagsAndCounters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Song(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := s.SetLiked(ctx, "t1", "One", true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetInLibrary(ctx, "t1", "One", true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.IncrementPlayCount(ctx, "t1", "One"); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.IncrementTotalPlayTime(ctx, "t1", 90*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementTotalPlayTime(ctx, "t1", 30*time.Second); err != nil {
		t.Fatal(err)
	}

	song, err := s.Song(ctx, "t1")
	if err != nil {
		t.Fatalf("Song: %v", err)
	}
	if !song.Liked || !song.InLibrary {
		t.Errorf("flags = liked %v, library %v", song.Liked, song.InLibrary)
	}
	if song.PlayCount != 3 {
		t.Errorf("PlayCount = %d, want 3", song.PlayCount)
	}
	if song.TotalPlayTime != 2*time.Minute {
		t.Errorf("TotalPlayTime = %v, want 2m", song.TotalPlayTime)
	}

	if err := s.SetLiked(ctx, "t1", "One", false); err != nil {
		t.Fatal(err)
	}
	song, _ = s.Song(ctx, "t1")
	if song.Liked {
		t.Error("Liked = true after unlike")
	}
}

func TestDownloads(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.Download(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := s.CreateDownload(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	d, err := s.Download(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != DownloadPending {
		t.Errorf("Status = %s, want pending", d.Status)
	}
	if !d.CompletedAt.IsZero() {
		t.Errorf("CompletedAt = %v, want zero", d.CompletedAt)
	}

	if err := s.UpdateDownloadStatus(ctx, "t1", DownloadCompleted); err != nil {
		t.Fatal(err)
	}
	d, _ = s.Download(ctx, "t1")
	if d.Status != DownloadCompleted {
		t.Errorf("Status = %s, want completed", d.Status)
	}
	if d.CompletedAt.IsZero() {
		t.Error("CompletedAt not stamped")
	}

	if err := s.RemoveDownload(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Download(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after remove", err)
	}
}

func TestPlaybackEvents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.InsertEvent(ctx, Event{TrackID: "t1", PlaylistID: "p1", PlayTime: time.Minute}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertEvent(ctx, Event{TrackID: "t1"}); err != nil {
		t.Fatal(err)
	}
	n, err := s.EventCount(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("EventCount = %d, want 2", n)
	}
}

func TestPosition(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pos, err := s.LastPosition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Errorf("LastPosition = %v, want 0", pos)
	}

	if err := s.SavePosition(ctx, 42*time.Second); err != nil {
		t.Fatal(err)
	}
	pos, err = s.LastPosition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 42*time.Second {
		t.Errorf("LastPosition = %v, want 42s", pos)
	}
}
