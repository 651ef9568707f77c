package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brownstone/rent-engine/engine"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type capturedNotice struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	sent []capturedNotice
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, capturedNotice{To: to, Subject: subject, Body: body})
	return nil
}

type fakeHistory struct {
	levels map[engine.InvoiceID]engine.NoticeLevel
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{levels: make(map[engine.InvoiceID]engine.NoticeLevel)}
}

func (f *fakeHistory) LastNoticeLevel(_ context.Context, id engine.InvoiceID) (engine.NoticeLevel, error) {
	return f.levels[id], nil
}

func (f *fakeHistory) RecordNotice(_ context.Context, id engine.InvoiceID, level engine.NoticeLevel, _ time.Time) error {
	f.levels[id] = level
	return nil
}

func dunningInput(daysLate int) engine.DunningInput {
	due := date(2024, time.April, 1)
	return engine.DunningInput{
		InvoiceID:   "inv-1",
		LeaseID:     "lease-1",
		TenantName:  "Jordan Avery",
		TenantEmail: "jordan@example.com",
		Amount:      120000,
		DueDate:     due,
		Settings:    engine.DefaultDunningSettings(),
		Now:         due.AddDate(0, 0, daysLate),
	}
}

// =============================================================================
// LEVEL EVALUATION
// =============================================================================

func TestEvaluate_DefaultThresholds(t *testing.T) {
	// Settings {3,7,14,30}: each band maps to its level, boundaries inclusive.
	s := engine.DefaultDunningSettings()

	cases := []struct {
		daysLate int
		level    engine.NoticeLevel
		notice   engine.NoticeType
	}{
		{-5, engine.LevelNone, engine.NoticeNone},
		{0, engine.LevelNone, engine.NoticeNone},
		{2, engine.LevelNone, engine.NoticeNone},
		{3, engine.LevelFirst, engine.NoticeFirst},
		{6, engine.LevelFirst, engine.NoticeFirst},
		{7, engine.LevelSecond, engine.NoticeSecond},
		{8, engine.LevelSecond, engine.NoticeSecond},
		{14, engine.LevelThird, engine.NoticeThird},
		{29, engine.LevelThird, engine.NoticeThird},
		{30, engine.LevelFinal, engine.NoticeFinal},
		{365, engine.LevelFinal, engine.NoticeFinal},
	}

	for _, tc := range cases {
		level := s.Evaluate(tc.daysLate)
		assert.Equal(t, tc.level, level, "daysLate=%d", tc.daysLate)
		assert.Equal(t, tc.notice, level.Type(), "daysLate=%d", tc.daysLate)
	}
}

func TestEvaluate_MonotonicInDaysLate(t *testing.T) {
	// For increasing thresholds the level never decreases as daysLate grows.
	s := engine.DunningSettings{FirstNoticeDays: 5, SecondNoticeDays: 10, ThirdNoticeDays: 20, FinalNoticeDays: 45}

	prev := engine.LevelNone
	for daysLate := 0; daysLate <= 60; daysLate++ {
		level := s.Evaluate(daysLate)
		assert.GreaterOrEqual(t, int(level), int(prev), "daysLate=%d", daysLate)
		prev = level
	}
}

func TestEvaluate_NonMonotonicThresholds_ShortCircuitOrderWins(t *testing.T) {
	// GIVEN: Misconfigured settings where secondNoticeDays < firstNoticeDays
	// WHEN: Evaluating days late in the inverted band
	// THEN: Behavior follows the documented final->first evaluation order,
	//       even though it may not match administrator intent

	s := engine.DunningSettings{FirstNoticeDays: 10, SecondNoticeDays: 5, ThirdNoticeDays: 14, FinalNoticeDays: 30}

	// 5..9 days: >= second(5) but < third(14), so level 2 despite being
	// below the "first" threshold.
	assert.Equal(t, engine.LevelSecond, s.Evaluate(5))
	assert.Equal(t, engine.LevelSecond, s.Evaluate(9))
	// 10..13 still lands on second: the second check runs before first.
	assert.Equal(t, engine.LevelSecond, s.Evaluate(12))
	assert.Equal(t, engine.LevelThird, s.Evaluate(14))
}

// =============================================================================
// ESCALATOR DISPATCH
// =============================================================================

func TestProcess_EightDaysLate_SecondNoticeDispatched(t *testing.T) {
	// GIVEN: Default settings {3,7,14,30}
	// WHEN: An invoice is 8 days late
	// THEN: Level 2 "second", and a notice goes out with tenant name,
	//       major-unit amount, and days late

	sender := &fakeSender{}
	esc := &engine.Escalator{Sender: sender}

	result := esc.Process(context.Background(), dunningInput(8))

	assert.Equal(t, engine.LevelSecond, result.NoticeLevel)
	assert.Equal(t, engine.NoticeSecond, result.NoticeType)
	assert.Equal(t, 8, result.DaysLate)
	assert.True(t, result.Dispatched)
	assert.NoError(t, result.DispatchErr)

	require.Len(t, sender.sent, 1)
	notice := sender.sent[0]
	assert.Equal(t, "jordan@example.com", notice.To)
	assert.Contains(t, notice.Subject, "Second Notice")
	assert.Contains(t, notice.Body, "Jordan Avery")
	assert.Contains(t, notice.Body, "1200.00")
	assert.Contains(t, notice.Body, "8 days past due")
	assert.Equal(t, notice.Body, result.Message)
}

func TestProcess_NoAddress_DryEvaluation(t *testing.T) {
	// GIVEN: No tenant email on file
	// WHEN: Processing a badly overdue invoice
	// THEN: The level is still computed; nothing is dispatched

	sender := &fakeSender{}
	esc := &engine.Escalator{Sender: sender}

	in := dunningInput(40)
	in.TenantEmail = ""
	result := esc.Process(context.Background(), in)

	assert.Equal(t, engine.LevelFinal, result.NoticeLevel)
	assert.False(t, result.Dispatched)
	assert.Empty(t, sender.sent)
}

func TestProcess_NotYetEscalated_NoNotice(t *testing.T) {
	sender := &fakeSender{}
	esc := &engine.Escalator{Sender: sender}

	result := esc.Process(context.Background(), dunningInput(1))

	assert.Equal(t, engine.LevelNone, result.NoticeLevel)
	assert.Equal(t, engine.NoticeNone, result.NoticeType)
	assert.Empty(t, result.Message)
	assert.Empty(t, sender.sent)
}

func TestProcess_SenderFailure_ResultStillReturned(t *testing.T) {
	// GIVEN: A notification collaborator that is unreachable
	// WHEN: Processing an overdue invoice
	// THEN: The computed result is returned; the failure is reported
	//       separately and does not alter the numbers

	sender := &fakeSender{err: errors.New("smtp: connection refused")}
	esc := &engine.Escalator{Sender: sender}

	result := esc.Process(context.Background(), dunningInput(8))

	assert.Equal(t, engine.LevelSecond, result.NoticeLevel)
	assert.Equal(t, 8, result.DaysLate)
	assert.False(t, result.Dispatched)
	assert.ErrorIs(t, result.DispatchErr, engine.ErrNoticeDispatchFailed)
}

func TestProcess_RepeatedCalls_SameResult(t *testing.T) {
	// Stateless recomputation: unchanged inputs produce the same level.
	esc := &engine.Escalator{}
	first := esc.Process(context.Background(), dunningInput(15))
	second := esc.Process(context.Background(), dunningInput(15))

	assert.Equal(t, first.DunningEvent, second.DunningEvent)
	assert.Equal(t, engine.LevelThird, first.NoticeLevel)
}

// =============================================================================
// HISTORY GATING
// =============================================================================

func TestProcess_WithHistory_OnlyDispatchesOnLevelIncrease(t *testing.T) {
	// GIVEN: A history collaborator tracking the last level sent
	// WHEN: Processing the same invoice at 8, 9, then 15 days late
	// THEN: Notices go out at 8 (level 2) and 15 (level 3), but not at 9

	sender := &fakeSender{}
	esc := &engine.Escalator{Sender: sender, History: newFakeHistory()}
	ctx := context.Background()

	r1 := esc.Process(ctx, dunningInput(8))
	assert.True(t, r1.Dispatched)

	r2 := esc.Process(ctx, dunningInput(9))
	assert.Equal(t, engine.LevelSecond, r2.NoticeLevel)
	assert.False(t, r2.Dispatched, "level unchanged, no re-send")

	r3 := esc.Process(ctx, dunningInput(15))
	assert.Equal(t, engine.LevelThird, r3.NoticeLevel)
	assert.True(t, r3.Dispatched)

	assert.Len(t, sender.sent, 2)
}
