package application

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/fingerprint"
)

// AudioCache caches extracted audio feature blocks keyed by audio ID and
// feature type (e.g. "mfcc", "spectrogram").
type AudioCache struct {
	m *Manager
}

// NewAudioCache wraps a manager for audio feature caching.
func NewAudioCache(m *Manager) *AudioCache {
	return &AudioCache{m: m}
}

// encodeFeatures packs float32 features little-endian.
func encodeFeatures(features []float32) []byte {
	buf := make([]byte, len(features)*4)
	for i, f := range features {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFeatures unpacks a little-endian float32 payload. A payload
// whose length is not a multiple of four is corrupt.
func decodeFeatures(payload []byte) ([]float32, error) {
	if len(payload)%4 != 0 {
		return nil, cache.ErrCorruptEntry
	}
	features := make([]float32, len(payload)/4)
	for i := range features {
		features[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return features, nil
}

// CacheAudioFeatures stores a feature block for the given audio and
// feature type.
func (a *AudioCache) CacheAudioFeatures(ctx context.Context, audioID, featureType string, features []float32, metadata map[string]string) (cache.Key, error) {
	if audioID == "" || featureType == "" {
		return "", cache.ErrInvalidKey
	}
	req := Request{
		Key:      a.m.keyer.AudioKey(audioID, featureType),
		Modality: cache.ModalityAudio,
		Metadata: metadata,
	}
	return a.m.Put(ctx, req, encodeFeatures(features))
}

// GetAudioFeatures retrieves a feature block. A miss returns a nil slice
// with found == false and a nil error.
func (a *AudioCache) GetAudioFeatures(ctx context.Context, audioID, featureType string) ([]float32, bool, error) {
	if audioID == "" || featureType == "" {
		return nil, false, cache.ErrInvalidKey
	}
	res, err := a.m.Get(ctx, Request{
		Key:      a.m.keyer.AudioKey(audioID, featureType),
		Modality: cache.ModalityAudio,
	})
	if err != nil {
		return nil, false, err
	}
	if !res.Hit {
		return nil, false, nil
	}
	features, err := decodeFeatures(res.Entry.Payload)
	if err != nil {
		return nil, false, err
	}
	return features, true, nil
}

// CacheDerivedFeatures stores a feature block addressed by its own
// content, for blocks with no stable upstream audio ID. The key
// quantizes the features, so a re-extracted block that differs only by
// float noise lands on the same entry.
func (a *AudioCache) CacheDerivedFeatures(ctx context.Context, features []float32, kctx fingerprint.Context, metadata map[string]string) (cache.Key, error) {
	if len(features) == 0 {
		return "", cache.ErrInvalidKey
	}
	req := Request{
		Key:      a.m.keyer.FeatureKey(features, cache.ModalityAudio, kctx),
		Modality: cache.ModalityAudio,
		Metadata: metadata,
	}
	return a.m.Put(ctx, req, encodeFeatures(features))
}

// GetDerivedFeatures looks a feature block up by content and returns
// the canonical stored copy. A miss returns found == false and a nil
// error.
func (a *AudioCache) GetDerivedFeatures(ctx context.Context, features []float32, kctx fingerprint.Context) ([]float32, bool, error) {
	if len(features) == 0 {
		return nil, false, cache.ErrInvalidKey
	}
	res, err := a.m.Get(ctx, Request{
		Key:      a.m.keyer.FeatureKey(features, cache.ModalityAudio, kctx),
		Modality: cache.ModalityAudio,
	})
	if err != nil {
		return nil, false, err
	}
	if !res.Hit {
		return nil, false, nil
	}
	stored, err := decodeFeatures(res.Entry.Payload)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// GetStats returns manager-level statistics.
func (a *AudioCache) GetStats(ctx context.Context) Stats {
	return a.m.Stats(ctx)
}
