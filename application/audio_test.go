package application_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/modelcache/application"
	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/fingerprint"
)

func TestAudioCache_RoundTrip(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	audio := application.NewAudioCache(m)
	ctx := context.Background()

	features := []float32{0.1, -2.5, 3.75, 0}
	if _, err := audio.CacheAudioFeatures(ctx, "ep-42", "mfcc", features, map[string]string{"sr": "16000"}); err != nil {
		t.Fatalf("CacheAudioFeatures: %v", err)
	}

	got, found, err := audio.GetAudioFeatures(ctx, "ep-42", "mfcc")
	if err != nil {
		t.Fatalf("GetAudioFeatures: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if len(got) != len(features) {
		t.Fatalf("features = %d, want %d", len(got), len(features))
	}
	for i := range features {
		if got[i] != features[i] {
			t.Errorf("feature[%d] = %v, want %v", i, got[i], features[i])
		}
	}
}

func TestAudioCache_FeatureTypesAreDistinct(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	audio := application.NewAudioCache(m)
	ctx := context.Background()

	if _, err := audio.CacheAudioFeatures(ctx, "ep-42", "mfcc", []float32{1}, nil); err != nil {
		t.Fatalf("CacheAudioFeatures: %v", err)
	}

	_, found, err := audio.GetAudioFeatures(ctx, "ep-42", "spectrogram")
	if err != nil {
		t.Fatalf("GetAudioFeatures: %v", err)
	}
	if found {
		t.Fatal("feature types must not collide")
	}
}

func TestAudioCache_DerivedFeatures(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	audio := application.NewAudioCache(m)
	ctx := context.Background()
	kctx := fingerprint.Context{Model: "whisper-small"}

	features := []float32{0.5, -2.25, 3.125}
	if _, err := audio.CacheDerivedFeatures(ctx, features, kctx, map[string]string{"hop": "160"}); err != nil {
		t.Fatalf("CacheDerivedFeatures: %v", err)
	}

	// A re-extracted block with noise below the key's quantization
	// resolution lands on the same entry.
	noisy := []float32{0.5001, -2.2501, 3.1251}
	got, found, err := audio.GetDerivedFeatures(ctx, noisy, kctx)
	if err != nil {
		t.Fatalf("GetDerivedFeatures: %v", err)
	}
	if !found {
		t.Fatal("near-identical block should deduplicate onto the cached one")
	}
	for i := range features {
		if got[i] != features[i] {
			t.Errorf("feature[%d] = %v, want the canonical %v", i, got[i], features[i])
		}
	}

	// Another model's context scopes to a different address.
	if _, found, _ := audio.GetDerivedFeatures(ctx, features, fingerprint.Context{Model: "whisper-large"}); found {
		t.Error("contexts must not collide")
	}

	if _, err := audio.CacheDerivedFeatures(ctx, nil, kctx, nil); err != cache.ErrInvalidKey {
		t.Errorf("empty block err = %v, want ErrInvalidKey", err)
	}
}

func TestAudioCache_InvalidInput(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	audio := application.NewAudioCache(m)
	ctx := context.Background()

	if _, err := audio.CacheAudioFeatures(ctx, "", "mfcc", []float32{1}, nil); err != cache.ErrInvalidKey {
		t.Errorf("empty audio id err = %v, want ErrInvalidKey", err)
	}
	if _, _, err := audio.GetAudioFeatures(ctx, "ep-42", ""); err != cache.ErrInvalidKey {
		t.Errorf("empty feature type err = %v, want ErrInvalidKey", err)
	}
}
