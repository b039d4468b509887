package application

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// VideoSegment is a cached block of per-frame features for one segment
// of a video.
type VideoSegment struct {
	VideoID    string            `json:"video_id"`
	SegmentID  string            `json:"segment_id"`
	FrameTimes []float64         `json:"frame_times,omitempty"`
	Features   []float32         `json:"features"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// VideoCache caches video segment features keyed by video and segment ID.
type VideoCache struct {
	m *Manager
}

// NewVideoCache wraps a manager for video segment caching.
func NewVideoCache(m *Manager) *VideoCache {
	return &VideoCache{m: m}
}

// CacheVideoSegment stores frame times and features for one segment.
func (v *VideoCache) CacheVideoSegment(ctx context.Context, seg VideoSegment) (cache.Key, error) {
	if seg.VideoID == "" || seg.SegmentID == "" {
		return "", cache.ErrInvalidKey
	}
	payload, err := json.Marshal(seg)
	if err != nil {
		return "", err
	}
	req := Request{
		Key:      v.m.keyer.VideoKey(seg.VideoID, seg.SegmentID),
		Modality: cache.ModalityVideo,
		Metadata: seg.Metadata,
	}
	return v.m.Put(ctx, req, payload)
}

// GetVideoSegment retrieves a segment. A miss returns found == false
// with a nil error.
func (v *VideoCache) GetVideoSegment(ctx context.Context, videoID, segmentID string) (*VideoSegment, bool, error) {
	if videoID == "" || segmentID == "" {
		return nil, false, cache.ErrInvalidKey
	}
	res, err := v.m.Get(ctx, Request{
		Key:      v.m.keyer.VideoKey(videoID, segmentID),
		Modality: cache.ModalityVideo,
	})
	if err != nil {
		return nil, false, err
	}
	if !res.Hit {
		return nil, false, nil
	}
	var seg VideoSegment
	if err := json.Unmarshal(res.Entry.Payload, &seg); err != nil {
		return nil, false, errors.Join(cache.ErrCorruptEntry, err)
	}
	return &seg, true, nil
}

// GetStats returns manager-level statistics.
func (v *VideoCache) GetStats(ctx context.Context) Stats {
	return v.m.Stats(ctx)
}
