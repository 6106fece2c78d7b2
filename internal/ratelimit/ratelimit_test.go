package ratelimit

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

var base = time.Date(2025, 11, 17, 12, 0, 0, 0, time.UTC)

func TestCheck_EmptyLimiterAdmits(t *testing.T) {
	l := New()
	if d := l.Check("1.2.3.4", "@somechannel", base); d != nil {
		t.Fatalf("empty limiter should admit, got denial: %+v", d)
	}
}

func TestCheck_FrequencyCap(t *testing.T) {
	l := New()
	addr := "1.2.3.4"

	// 10 votes for 10 distinct channels within the hour are all admitted.
	for i := 0; i < 10; i++ {
		ch := fmt.Sprintf("@channel%02d", i)
		now := base.Add(time.Duration(i) * time.Minute)
		if d := l.Check(addr, ch, now); d != nil {
			t.Fatalf("vote %d should be admitted, got %+v", i+1, d)
		}
		l.RecordVote(addr, ch, now)
	}

	// The 11th within that hour is denied, whatever the channel.
	d := l.Check(addr, "@channel99", base.Add(30*time.Minute))
	if d == nil {
		t.Fatal("11th vote within the hour should be denied")
	}
	if d.Reason != ReasonFrequency {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonFrequency)
	}

	// Another address is unaffected.
	if d := l.Check("5.6.7.8", "@channel99", base.Add(30*time.Minute)); d != nil {
		t.Fatalf("other address should be admitted, got %+v", d)
	}

	// Once the hour has passed, the cap no longer applies.
	if d := l.Check(addr, "@channel99", base.Add(70*time.Minute)); d != nil {
		t.Fatalf("vote after window should be admitted, got %+v", d)
	}
}

func TestCheck_PerChannelCooldown(t *testing.T) {
	l := New()
	addr := "1.2.3.4"
	ch := "UC" + strings.Repeat("x", 22)

	l.RecordVote(addr, ch, base)

	d := l.Check(addr, ch, base.Add(time.Hour))
	if d == nil {
		t.Fatal("re-vote within 24h should be denied")
	}
	if d.Reason != ReasonCooldown {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonCooldown)
	}
	if !strings.Contains(d.Message, "23 hours") {
		t.Fatalf("message should quote the remaining wait, got %q", d.Message)
	}

	// A different channel from the same address is fine.
	if d := l.Check(addr, "@otherchannel", base.Add(time.Hour)); d != nil {
		t.Fatalf("different channel should be admitted, got %+v", d)
	}

	// After the cooldown the same channel is admitted again.
	if d := l.Check(addr, ch, base.Add(25*time.Hour)); d != nil {
		t.Fatalf("vote after cooldown should be admitted, got %+v", d)
	}
}

func TestCheck_PenaltyBlock(t *testing.T) {
	l := New()
	addr := "1.2.3.4"

	l.RecordValidationFailure(addr, "channelId is required", base)
	l.RecordValidationFailure(addr, "channelId is required", base.Add(time.Minute))

	// Two failures are not enough to block.
	if d := l.Check(addr, "@somechannel", base.Add(2*time.Minute)); d != nil {
		t.Fatalf("two failures should not block, got %+v", d)
	}

	l.RecordValidationFailure(addr, "channelName contains disallowed content", base.Add(2*time.Minute))

	d := l.Check(addr, "@somechannel", base.Add(3*time.Minute))
	if d == nil {
		t.Fatal("three failures within the hour should block")
	}
	if d.Reason != ReasonPenalty {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonPenalty)
	}

	// The block is per address.
	if d := l.Check("5.6.7.8", "@somechannel", base.Add(3*time.Minute)); d != nil {
		t.Fatalf("other address should be admitted, got %+v", d)
	}

	// Failures expire after an hour.
	if d := l.Check(addr, "@somechannel", base.Add(65*time.Minute)); d != nil {
		t.Fatalf("block should lift after the failure window, got %+v", d)
	}
}

func TestCheck_PenaltyPrecedesCooldown(t *testing.T) {
	l := New()
	addr := "1.2.3.4"
	ch := "@somechannel"

	l.RecordVote(addr, ch, base)
	for i := 0; i < 3; i++ {
		l.RecordValidationFailure(addr, "channelId is required", base.Add(time.Duration(i)*time.Minute))
	}

	d := l.Check(addr, ch, base.Add(5*time.Minute))
	if d == nil || d.Reason != ReasonPenalty {
		t.Fatalf("penalty should win over cooldown, got %+v", d)
	}
}

func TestRecordVote_OverwritesPriorEntry(t *testing.T) {
	l := New()
	addr := "1.2.3.4"
	ch := "@somechannel"

	l.RecordVote(addr, ch, base)
	l.RecordVote(addr, ch, base.Add(25*time.Hour))

	if got := l.Len(); got != 1 {
		t.Fatalf("entries = %d, want 1 (same pair overwrites)", got)
	}

	// Cooldown is measured from the most recent vote.
	if d := l.Check(addr, ch, base.Add(26*time.Hour)); d == nil {
		t.Fatal("re-vote 1h after latest vote should be denied")
	}
}

func TestSweep_EvictsExpiredEntries(t *testing.T) {
	l := New()
	l.RecordVote("1.2.3.4", "@channelone", base)
	l.RecordValidationFailure("1.2.3.4", "channelId is required", base)

	// Past the failure window but inside the cooldown window: only the
	// failure marker goes away.
	l.Check("9.9.9.9", "@other", base.Add(2*time.Hour))
	if got := l.Len(); got != 1 {
		t.Fatalf("entries = %d, want 1 after failure marker expires", got)
	}

	// Past the cooldown window everything is gone.
	l.Check("9.9.9.9", "@other", base.Add(25*time.Hour))
	if got := l.Len(); got != 0 {
		t.Fatalf("entries = %d, want 0 after full retention", got)
	}
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("10.0.0.%d", i%8)
			ch := fmt.Sprintf("@channel%02d", i%5)
			now := base.Add(time.Duration(i) * time.Second)
			l.Check(addr, ch, now)
			l.RecordVote(addr, ch, now)
			l.RecordValidationFailure(addr, "channelId is required", now)
		}(i)
	}
	wg.Wait()

	// 8 addresses x 5 channels of vote entries plus 50 unique failure
	// markers survive within the window.
	want := 8*5 + 50
	if got := l.Len(); got != want {
		t.Fatalf("entries = %d, want %d", got, want)
	}
}
