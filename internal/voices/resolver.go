// Package voices resolves the configured voice setting (a provider voice ID
// or a human-typed display name) against the synthesis backend's voice
// catalogue.
//
// Users paste "Rachel" into the settings page at least as often as the actual
// ElevenLabs voice ID, so resolution falls back from exact ID, to exact name,
// to phonetic/fuzzy name matching (Double Metaphone + Jaro-Winkler). The
// catalogue is cached with a TTL to keep speak latency off the voices API.
package voices

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a name match
// without phonetic agreement.
const fuzzyThreshold = 0.88

// phoneticThreshold is the (laxer) minimum similarity when the Double
// Metaphone codes of the query and the voice name overlap.
const phoneticThreshold = 0.72

// defaultTTL is how long a fetched catalogue stays fresh.
const defaultTTL = 10 * time.Minute

// Resolver maps a configured voice string onto a catalogue entry.
type Resolver struct {
	synth tts.Synthesizer
	ttl   time.Duration

	mu        sync.Mutex
	catalogue []tts.Voice
	fetchedAt time.Time

	// now is stubbed in tests.
	now func() time.Time
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithTTL overrides the catalogue cache TTL.
func WithTTL(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// NewResolver creates a Resolver on top of the given synthesizer's catalogue.
func NewResolver(synth tts.Synthesizer, opts ...Option) *Resolver {
	r := &Resolver{
		synth: synth,
		ttl:   defaultTTL,
		now:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the voice ID to use for query. Resolution order:
//
//  1. Exact voice ID match.
//  2. Exact display name match (case-insensitive).
//  3. Phonetic + fuzzy name match.
//
// An empty query and a query that matches nothing are returned unchanged;
// the backend is the final authority on whether an ID is valid.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	catalogue, err := r.voices(ctx)
	if err != nil {
		return "", err
	}

	for _, v := range catalogue {
		if v.ID == query {
			return v.ID, nil
		}
	}

	queryLower := strings.ToLower(query)
	for _, v := range catalogue {
		if strings.ToLower(v.Name) == queryLower {
			return v.ID, nil
		}
	}

	if id, ok := fuzzyMatch(queryLower, catalogue); ok {
		return id, nil
	}
	return query, nil
}

// Voices returns the cached catalogue, refreshing it when stale.
func (r *Resolver) Voices(ctx context.Context) ([]tts.Voice, error) {
	return r.voices(ctx)
}

// Invalidate drops the cached catalogue so the next call refetches it.
// Called when the API key changes.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogue = nil
	r.fetchedAt = time.Time{}
}

func (r *Resolver) voices(ctx context.Context) ([]tts.Voice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.catalogue != nil && r.now().Sub(r.fetchedAt) < r.ttl {
		return r.catalogue, nil
	}

	catalogue, err := r.synth.ListVoices(ctx)
	if err != nil {
		if r.catalogue != nil {
			// Serve the stale catalogue rather than failing the utterance.
			return r.catalogue, nil
		}
		return nil, fmt.Errorf("voices: fetch catalogue: %w", err)
	}
	r.catalogue = catalogue
	r.fetchedAt = r.now()
	return r.catalogue, nil
}

// fuzzyMatch finds the best-scoring catalogue entry for the lowercased query.
// Phonetic agreement (shared Double Metaphone code) lowers the similarity bar.
func fuzzyMatch(queryLower string, catalogue []tts.Voice) (string, bool) {
	qPrimary, qSecondary := matchr.DoubleMetaphone(queryLower)

	bestID := ""
	bestScore := 0.0
	for _, v := range catalogue {
		nameLower := strings.ToLower(v.Name)
		if nameLower == "" {
			continue
		}

		score := matchr.JaroWinkler(queryLower, nameLower, false)

		threshold := fuzzyThreshold
		if phoneticOverlap(qPrimary, qSecondary, nameLower) {
			threshold = phoneticThreshold
		}
		if score >= threshold && score > bestScore {
			bestID = v.ID
			bestScore = score
		}
	}
	return bestID, bestID != ""
}

// phoneticOverlap reports whether the query's metaphone codes share a code
// with the candidate name.
func phoneticOverlap(qPrimary, qSecondary, name string) bool {
	nPrimary, nSecondary := matchr.DoubleMetaphone(name)
	for _, q := range []string{qPrimary, qSecondary} {
		if q == "" {
			continue
		}
		if q == nPrimary || (nSecondary != "" && q == nSecondary) {
			return true
		}
	}
	return false
}
