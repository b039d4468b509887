package application_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/modelcache/application"
	"github.com/felixgeelhaar/modelcache/domain/cache"
)

func TestVideoCache_RoundTrip(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	video := application.NewVideoCache(m)
	ctx := context.Background()

	seg := application.VideoSegment{
		VideoID:    "vid-7",
		SegmentID:  "00:30-01:00",
		FrameTimes: []float64{30.0, 30.5, 31.0},
		Features:   []float32{0.25, -1.5},
		Metadata:   map[string]string{"codec": "h264"},
	}
	if _, err := video.CacheVideoSegment(ctx, seg); err != nil {
		t.Fatalf("CacheVideoSegment: %v", err)
	}

	got, found, err := video.GetVideoSegment(ctx, "vid-7", "00:30-01:00")
	if err != nil {
		t.Fatalf("GetVideoSegment: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if got.VideoID != seg.VideoID || got.SegmentID != seg.SegmentID {
		t.Errorf("ids = %s/%s", got.VideoID, got.SegmentID)
	}
	if len(got.FrameTimes) != 3 || got.FrameTimes[1] != 30.5 {
		t.Errorf("frame times = %v", got.FrameTimes)
	}
	if len(got.Features) != 2 || got.Features[0] != 0.25 {
		t.Errorf("features = %v", got.Features)
	}
}

func TestVideoCache_SegmentsAreDistinct(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	video := application.NewVideoCache(m)
	ctx := context.Background()

	if _, err := video.CacheVideoSegment(ctx, application.VideoSegment{
		VideoID:   "vid-7",
		SegmentID: "a",
		Features:  []float32{1},
	}); err != nil {
		t.Fatalf("CacheVideoSegment: %v", err)
	}

	_, found, err := video.GetVideoSegment(ctx, "vid-7", "b")
	if err != nil {
		t.Fatalf("GetVideoSegment: %v", err)
	}
	if found {
		t.Fatal("segments must not collide")
	}
}

func TestVideoCache_InvalidInput(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	video := application.NewVideoCache(m)
	ctx := context.Background()

	if _, err := video.CacheVideoSegment(ctx, application.VideoSegment{SegmentID: "a"}); err != cache.ErrInvalidKey {
		t.Errorf("missing video id err = %v, want ErrInvalidKey", err)
	}
	if _, _, err := video.GetVideoSegment(ctx, "vid-7", ""); err != cache.ErrInvalidKey {
		t.Errorf("missing segment id err = %v, want ErrInvalidKey", err)
	}
}
