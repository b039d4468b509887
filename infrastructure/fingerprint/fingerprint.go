// Package fingerprint derives deterministic content-addressable keys
// from canonicalized input. Keys are SHA-256 over length-prefixed
// fields so that no two field layouts can collide on concatenation.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/felixgeelhaar/modelcache/domain/cache"
)

// Context carries the scoping fields mixed into a key. Entries cached
// for one user/session/model never collide with another's.
type Context struct {
	UserID    string
	SessionID string
	Model     string
}

// Keyer derives cache keys. It is stateless and safe for concurrent use.
type Keyer struct{}

// New creates a Keyer.
func New() *Keyer {
	return &Keyer{}
}

// Key derives a key from raw payload bytes, the modality tag, and the
// scoping context. Pure: same input always yields the same key.
func (k *Keyer) Key(payload []byte, modality cache.Modality, kctx Context) cache.Key {
	h := sha256.New()
	writeField(h, []byte(modality))
	writeField(h, payload)
	writeContext(h, kctx)
	return finish(h)
}

// SegmentKey derives a key for a chat segment from its normalized
// content and scoping fields.
func (k *Keyer) SegmentKey(content string, kctx Context) cache.Key {
	h := sha256.New()
	writeField(h, []byte(cache.ModalityText))
	writeField(h, []byte(NormalizeText(content)))
	writeContext(h, kctx)
	return finish(h)
}

// TokenKey derives a key for a KV-cache entry from its token sequence.
func (k *Keyer) TokenKey(tokens []int, kctx Context) cache.Key {
	h := sha256.New()
	writeField(h, []byte(cache.ModalityKVCache))
	writeTokens(h, tokens)
	writeContext(h, kctx)
	return finish(h)
}

// AudioKey derives a key for cached audio features.
func (k *Keyer) AudioKey(audioID, featureType string) cache.Key {
	h := sha256.New()
	writeField(h, []byte(cache.ModalityAudio))
	writeField(h, []byte(audioID))
	writeField(h, []byte(featureType))
	return finish(h)
}

// VideoKey derives a key for a cached video segment.
func (k *Keyer) VideoKey(videoID, segmentID string) cache.Key {
	h := sha256.New()
	writeField(h, []byte(cache.ModalityVideo))
	writeField(h, []byte(videoID))
	writeField(h, []byte(segmentID))
	return finish(h)
}

// ChunkKey derives a key for one chunk of a document.
func (k *Keyer) ChunkKey(documentID string, index int) cache.Key {
	h := sha256.New()
	writeField(h, []byte(cache.ModalityDocumentChunk))
	writeField(h, []byte(documentID))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(index)) // #nosec G115 -- chunk indices are small non-negative ints
	writeField(h, buf[:])
	return finish(h)
}

// FeatureKey derives a key from a quantized feature tensor. Features
// are quantized to three decimal places before hashing so that
// float noise below that resolution maps to the same key.
func (k *Keyer) FeatureKey(features []float32, modality cache.Modality, kctx Context) cache.Key {
	h := sha256.New()
	writeField(h, []byte(modality))
	var buf [8]byte
	for _, f := range features {
		q := int64(f * 1000)
		binary.BigEndian.PutUint64(buf[:], uint64(q)) // #nosec G115 -- two's complement round-trip is intentional
		h.Write(buf[:])
	}
	writeContext(h, kctx)
	return finish(h)
}

// NormalizeText canonicalizes text for keying: leading/trailing
// whitespace is trimmed and internal runs collapse to one space.
// Case is preserved; "Hello" and "hello" are different prompts.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func writeField(h hash.Hash, field []byte) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(field)))
	h.Write(buf[:])
	h.Write(field)
}

func writeTokens(h hash.Hash, tokens []int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(len(tokens)))
	h.Write(buf[:])
	for _, t := range tokens {
		binary.BigEndian.PutUint64(buf[:], uint64(t)) // #nosec G115 -- token ids are non-negative
		h.Write(buf[:])
	}
}

func writeContext(h hash.Hash, kctx Context) {
	writeField(h, []byte(kctx.UserID))
	writeField(h, []byte(kctx.SessionID))
	writeField(h, []byte(kctx.Model))
}

func finish(h hash.Hash) cache.Key {
	return cache.Key(hex.EncodeToString(h.Sum(nil)))
}
