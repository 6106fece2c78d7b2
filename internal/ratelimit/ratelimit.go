// Package ratelimit implements admission control for vote submissions:
// a per-channel cooldown, a global per-address frequency cap, and a
// penalty block for addresses that repeatedly fail validation.
//
// The limiter is an explicitly owned component (constructed once and
// injected into the request path, never a package singleton) and every
// method takes the current time as a parameter, so tests can drive the
// clock deterministically.
package ratelimit

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orthrauku-dev/yt-sus/pkg/hash"
)

// Window and threshold constants for the three admission rules.
const (
	VoteCooldown    = 24 * time.Hour // min interval between votes from one address for one channel
	FrequencyWindow = time.Hour      // window for the global per-address cap
	MaxVotesPerHour = 10             // votes per address per FrequencyWindow, any channel
	FailureWindow   = time.Hour      // window for validation-failure penalties
	MaxFailures     = 3              // failures per address per FailureWindow before blocking
)

// Denial reasons, used as metric labels and for tests.
const (
	ReasonPenalty   = "penalty"
	ReasonCooldown  = "cooldown"
	ReasonFrequency = "frequency"
)

// Denial explains why a vote attempt was not admitted.
type Denial struct {
	Reason  string // one of the Reason* constants
	Message string // human-readable, safe to return to the client
}

// Limiter is an in-memory, time-windowed record of recent vote and
// validation-failure activity per client address. Safe for concurrent
// use; all state is guarded by a single mutex.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{entries: make(map[string]time.Time)}
}

// Check decides whether a vote attempt from addr for channelID may
// proceed. It returns nil to admit, or a Denial naming the first rule
// that matched: penalty block, per-channel cooldown, then frequency
// cap. Expired entries are swept before the decision is made.
func (l *Limiter) Check(addr, channelID string, now time.Time) *Denial {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	if l.countPrefix(failPrefix(addr), now, FailureWindow) >= MaxFailures {
		return &Denial{
			Reason:  ReasonPenalty,
			Message: "Too many invalid requests. You are temporarily blocked.",
		}
	}

	if ts, ok := l.entries[voteKey(addr, channelID)]; ok {
		if elapsed := now.Sub(ts); elapsed < VoteCooldown {
			hours := int(math.Ceil((VoteCooldown - elapsed).Hours()))
			return &Denial{
				Reason:  ReasonCooldown,
				Message: fmt.Sprintf("You already voted for this channel. Try again in %d hours.", hours),
			}
		}
	}

	if l.countPrefix(votePrefix(addr), now, FrequencyWindow) >= MaxVotesPerHour {
		return &Denial{
			Reason:  ReasonFrequency,
			Message: "Too many votes this hour. Please slow down.",
		}
	}

	return nil
}

// RecordVote notes a committed vote from addr for channelID. It must
// only be called after the counter write has been confirmed; a failed
// or timed-out write leaves no record, so the client may retry. Only
// the most recent vote time per (addr, channel) pair is kept.
func (l *Limiter) RecordVote(addr, channelID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[voteKey(addr, channelID)] = now
}

// RecordValidationFailure notes that addr submitted input the validator
// rejected, for the given reason. Each failure gets a unique key so
// repeated failures inside the window accumulate rather than overwrite.
// The reason is logged (against the hashed address) for abuse triage;
// only the timestamp feeds the penalty decision.
func (l *Limiter) RecordValidationFailure(addr, reason string, now time.Time) {
	log.Printf("ratelimit: validation failure from %s: %s", hash.ShortHash(addr), reason)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[failPrefix(addr)+uuid.NewString()] = now
}

// Len reports the number of live entries (for tests and metrics).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep drops vote entries older than the cooldown window and failure
// markers older than the failure window. Caller must hold l.mu. There
// is no background timer; Check sweeps lazily, which bounds the map by
// request volume.
func (l *Limiter) sweep(now time.Time) {
	for key, ts := range l.entries {
		retention := VoteCooldown
		if strings.HasPrefix(key, "fail:") {
			retention = FailureWindow
		}
		if now.Sub(ts) >= retention {
			delete(l.entries, key)
		}
	}
}

// countPrefix counts entries under prefix newer than now-window.
// Caller must hold l.mu.
func (l *Limiter) countPrefix(prefix string, now time.Time, window time.Duration) int {
	n := 0
	for key, ts := range l.entries {
		if strings.HasPrefix(key, prefix) && now.Sub(ts) < window {
			n++
		}
	}
	return n
}

// Keys use "|" as the address separator because IPv6 addresses
// contain ":".
func voteKey(addr, channelID string) string {
	return votePrefix(addr) + channelID
}

func votePrefix(addr string) string {
	return "vote:" + addr + "|"
}

func failPrefix(addr string) string {
	return "fail:" + addr + "|"
}
