package application

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/modelcache/domain/cache"
	"github.com/felixgeelhaar/modelcache/infrastructure/fingerprint"
)

// ErrEmptyTokens indicates a prefill operation was given no tokens.
var ErrEmptyTokens = errors.New("empty token sequence")

// PrefillResult is the outcome of a prefill lookup. Full means the
// complete response was cached; otherwise MatchedTokens covers the
// prefix the KV payload can replay, and the caller computes the suffix.
type PrefillResult struct {
	Hit           bool
	Full          bool
	Response      []byte
	KV            []byte
	MatchedTokens int
	Source        string
}

// PrefillCache pairs text response caching with KV attention prefixes,
// so a miss on the full response can still skip recomputing the matched
// token prefix.
type PrefillCache struct {
	m *Manager
}

// NewPrefillCache wraps a manager for prefill caching.
func NewPrefillCache(m *Manager) *PrefillCache {
	return &PrefillCache{m: m}
}

// CacheTextWithPrefill stores the full response under the prompt's
// fingerprint and the KV blob under the token prefix. Priority drives
// the predicted TTL for both entries.
func (p *PrefillCache) CacheTextWithPrefill(ctx context.Context, prompt, response string, tokens []int, kvBlob []byte, userID, sessionID string, priority int, metadata map[string]string) (textKey, kvKey cache.Key, err error) {
	if prompt == "" {
		return "", "", cache.ErrInvalidKey
	}
	if len(tokens) == 0 {
		return "", "", ErrEmptyTokens
	}
	kctx := fingerprint.Context{UserID: userID, SessionID: sessionID}

	textKey, err = p.m.Put(ctx, Request{
		Text:     prompt,
		Modality: cache.ModalityText,
		Context:  kctx,
		Priority: priority,
		Metadata: metadata,
	}, []byte(response))
	if err != nil {
		return "", "", err
	}

	kvKey, err = p.m.Put(ctx, Request{
		Tokens:   tokens,
		Modality: cache.ModalityKVCache,
		Context:  kctx,
		Priority: priority,
		Metadata: metadata,
	}, kvBlob)
	if err != nil {
		_ = p.m.Delete(ctx, textKey)
		return "", "", err
	}
	return textKey, kvKey, nil
}

// GetTextWithPrefill looks the prompt up for a full response first, then
// falls back to the longest cached token prefix with its KV payload.
func (p *PrefillCache) GetTextWithPrefill(ctx context.Context, prompt string, tokens []int, userID, sessionID string) (*PrefillResult, error) {
	kctx := fingerprint.Context{UserID: userID, SessionID: sessionID}

	if prompt != "" {
		res, err := p.m.Get(ctx, Request{
			Text:     prompt,
			Modality: cache.ModalityText,
			Context:  kctx,
		})
		if err != nil {
			return nil, err
		}
		if res.Hit {
			return &PrefillResult{
				Hit:      true,
				Full:     true,
				Response: res.Entry.Payload,
				Source:   res.Source,
			}, nil
		}
	}

	if len(tokens) == 0 {
		return &PrefillResult{}, nil
	}
	res, err := p.m.Get(ctx, Request{
		Tokens:   tokens,
		Modality: cache.ModalityKVCache,
		Context:  kctx,
	})
	if err != nil {
		return nil, err
	}
	if !res.Hit {
		return &PrefillResult{}, nil
	}
	matched := res.MatchedTokens
	if res.Source == SourceExact {
		matched = len(tokens)
	}
	return &PrefillResult{
		Hit:           true,
		KV:            res.Entry.Payload,
		MatchedTokens: matched,
		Source:        res.Source,
	}, nil
}

// GetStats returns manager-level statistics.
func (p *PrefillCache) GetStats(ctx context.Context) Stats {
	return p.m.Stats(ctx)
}
