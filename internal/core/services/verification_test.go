package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowguard/internal/core/domain"
	"crowguard/internal/core/integrity"
	"crowguard/internal/core/ports"
)

type verificationFixture struct {
	svc         *Verification
	ledger      *fakeLedger
	activityLog *fakeActivityLog
	eventLog    *fakeEventLog
	blockLog    *fakeBlockLog
	bus         *fakeBus
	now         time.Time
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	f := &verificationFixture{
		ledger:      newFakeLedger(),
		activityLog: &fakeActivityLog{},
		eventLog:    &fakeEventLog{},
		blockLog:    &fakeBlockLog{},
		bus:         &fakeBus{},
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	nop := zerolog.Nop()
	f.svc = NewVerification(f.ledger, f.activityLog, f.eventLog, f.blockLog, f.bus, DefaultPolicy(), &nop).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *verificationFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestReportActivity_CoinManipulationCorrectsResources(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 2_000_000_000, 50, 10)

	action, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindCoinManipulation, map[string]any{"observed": 2_000_000_000}, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCorrectResources, action)

	state, err := f.ledger.GetByExternalID(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(999_999_999), state.Coins)
	assert.Equal(t, int64(50), state.Tickets)
	assert.False(t, state.IsBlocked)

	recs := f.activityLog.byKind(domain.KindCoinManipulation)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.SeverityHigh, recs[0].Severity)
	assert.Equal(t, "1.2.3.4", recs[0].SourceIP)
}

func TestReportActivity_TimeManipulationBlocksUser(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	action, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindTimeManipulation, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBlockUser, action)

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.True(t, state.IsBlocked)
	require.NotNil(t, state.BlockedUntil)
	assert.Equal(t, f.now.Add(time.Hour), *state.BlockedUntil)

	require.Len(t, f.blockLog.records, 1)
	rec := f.blockLog.records[0]
	assert.Equal(t, "cheating_detected", rec.Reason)
	assert.Equal(t, domain.BlockTemporary, rec.BlockType)
	assert.Equal(t, f.now.Add(time.Hour), rec.BlockedUntil)
	assert.Nil(t, rec.UnblockedAt)
}

func TestReportActivity_BotDetectedAppliesCooldownWithoutBlockRecord(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	action, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindBotDetected, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionApplyCooldown, action)

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.False(t, state.IsBlocked)
	assert.True(t, state.IsCooldown)
	require.NotNil(t, state.CooldownUntil)
	assert.Equal(t, f.now.Add(5*time.Minute), *state.CooldownUntil)
	assert.Empty(t, f.blockLog.records)
}

func TestReportActivity_UnknownUserIsLoggedNoOp(t *testing.T) {
	f := newVerificationFixture(t)

	action, err := f.svc.ReportActivity(context.Background(), "99999", domain.KindCoinManipulation, nil, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNone, action)

	assert.Empty(t, f.activityLog.records)
	assert.Empty(t, f.bus.published)
	events := f.eventLog.byType("unknown_user_report")
	require.Len(t, events, 1)
	assert.Equal(t, "99999", events[0].Details["user_id"])
}

func TestReportActivity_InvalidInputs(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	_, err := f.svc.ReportActivity(context.Background(), "12345", domain.ActivityKind("wallhack"), nil, "")
	assert.ErrorIs(t, err, ErrInvalidActivityKind)

	_, err = f.svc.ReportActivity(context.Background(), "<script>", domain.KindCoinManipulation, nil, "")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	huge := map[string]any{"blob": strings.Repeat("x", 20_000)}
	_, err = f.svc.ReportActivity(context.Background(), "12345", domain.KindCoinManipulation, huge, "")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	assert.Empty(t, f.activityLog.records)
}

func TestReportActivity_Idempotent(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 2_000_000_000, 5, 3)

	for i := 0; i < 3; i++ {
		_, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindCoinManipulation, nil, "")
		require.NoError(t, err)
	}

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.Equal(t, int64(999_999_999), state.Coins)
	assert.Len(t, f.activityLog.records, 3)
}

func TestReportActivity_PublishesDetectionEvents(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	_, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindTimeManipulation, nil, "5.6.7.8")
	require.NoError(t, err)

	require.Len(t, f.bus.published, 2)
	assert.Equal(t, ports.TopicDetection, f.bus.published[0].Topic)
	assert.Equal(t, ports.TopicBlock, f.bus.published[1].Topic)

	payload, ok := f.bus.published[0].Data.(ports.DetectionEvent)
	require.True(t, ok)
	assert.Equal(t, domain.KindTimeManipulation, payload.Kind)
	assert.Equal(t, domain.SeverityHigh, payload.Severity)
	assert.Equal(t, domain.ActionBlockUser, payload.Action)
	assert.Equal(t, "5.6.7.8", payload.SourceIP)
}

func TestVerifyIntegrity_SuccessStampsLastCheck(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)
	payload := `{"coins":100,"tickets":5}`

	verifiedAt, err := f.svc.VerifyIntegrity(context.Background(), "12345", integrity.Checksum(payload), "1.0.0", payload)
	require.NoError(t, err)
	assert.Equal(t, f.now, verifiedAt)

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.Equal(t, int64(1), state.IntegrityChecksPassed)
	assert.Equal(t, int64(0), state.IntegrityChecksFailed)
	require.NotNil(t, state.LastIntegrityCheckAt)
	assert.Equal(t, f.now, *state.LastIntegrityCheckAt)
}

func TestVerifyIntegrity_FrequencyGate(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)
	payload := `{"coins":100}`
	sum := integrity.Checksum(payload)

	_, err := f.svc.VerifyIntegrity(context.Background(), "12345", sum, "1.0.0", payload)
	require.NoError(t, err)

	f.advance(30 * time.Minute)
	_, err = f.svc.VerifyIntegrity(context.Background(), "12345", sum, "1.0.0", payload)
	assert.ErrorIs(t, err, ErrCheckTooFrequent)

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.Equal(t, int64(1), state.IntegrityChecksPassed)
	assert.Equal(t, int64(0), state.IntegrityChecksFailed)

	// Exactly one interval later the gate opens again.
	f.advance(30 * time.Minute)
	_, err = f.svc.VerifyIntegrity(context.Background(), "12345", sum, "1.0.0", payload)
	require.NoError(t, err)
	state, _ = f.ledger.GetByExternalID(context.Background(), "12345")
	assert.Equal(t, int64(2), state.IntegrityChecksPassed)
}

func TestVerifyIntegrity_OutdatedVersion(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)
	payload := `{"coins":100}`

	_, err := f.svc.VerifyIntegrity(context.Background(), "12345", integrity.Checksum(payload), "0.9.0", payload)
	assert.ErrorIs(t, err, ErrOutdatedVersion)

	recs := f.activityLog.byKind(domain.KindOutdatedVersion)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.SeverityLow, recs[0].Severity)

	// Neither counter moves for a version rejection.
	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.Equal(t, int64(0), state.IntegrityChecksPassed)
	assert.Equal(t, int64(0), state.IntegrityChecksFailed)
	assert.Nil(t, state.LastIntegrityCheckAt)
}

func TestVerifyIntegrity_ChecksumMismatchLogsWithoutBlocking(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	_, err := f.svc.VerifyIntegrity(context.Background(), "12345", "deadbeef", "1.0.0", `{"coins":100}`)
	assert.ErrorIs(t, err, ErrIntegrityCompromised)

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.Equal(t, int64(1), state.IntegrityChecksFailed)
	assert.Equal(t, int64(0), state.IntegrityChecksPassed)
	assert.False(t, state.IsBlocked)
	assert.Nil(t, state.LastIntegrityCheckAt)

	recs := f.activityLog.byKind(domain.KindIntegrityFailure)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.SeverityMedium, recs[0].Severity)

	require.Len(t, f.bus.published, 1)
	assert.Equal(t, ports.TopicDetection, f.bus.published[0].Topic)
}

func TestVerifyIntegrity_UnknownUser(t *testing.T) {
	f := newVerificationFixture(t)

	_, err := f.svc.VerifyIntegrity(context.Background(), "99999", "0", "1.0.0", "{}")
	assert.ErrorIs(t, err, ErrUnknownUser)
	require.Len(t, f.eventLog.byType("unknown_user_report"), 1)
}

func TestBlockedNow_LazyExpiry(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	_, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindMemoryTampering, nil, "")
	require.NoError(t, err)

	blocked, err := f.svc.BlockedNow(context.Background(), "12345")
	require.NoError(t, err)
	assert.True(t, blocked)

	// Past the deadline the block no longer bites, even though the
	// stored flag is still set.
	f.advance(time.Hour + time.Second)
	blocked, err = f.svc.BlockedNow(context.Background(), "12345")
	require.NoError(t, err)
	assert.False(t, blocked)

	state, _ := f.ledger.GetByExternalID(context.Background(), "12345")
	assert.True(t, state.IsBlocked)
}

func TestUserStatus(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	// bot_detected only cools the account down, so the status stays
	// unblocked.
	_, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindBotDetected, nil, "")
	require.NoError(t, err)

	status, err := f.svc.UserStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", status.UserID)
	assert.False(t, status.IsBlocked)
	assert.Nil(t, status.BlockInfo)
	require.Len(t, status.RecentActivity, 1)
	assert.Equal(t, domain.KindBotDetected, status.RecentActivity[0].Kind)
	assert.NotEmpty(t, status.EventStats)

	_, err = f.svc.UserStatus(context.Background(), "99999")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestUserStatus_BlockedAfterSpeedHack(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	action, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindSpeedHack, nil, "")
	require.NoError(t, err)
	require.Equal(t, domain.ActionBlockUser, action)

	status, err := f.svc.UserStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.True(t, status.IsBlocked)
	require.NotNil(t, status.BlockInfo)
	assert.Equal(t, "cheating_detected", status.BlockInfo.Reason)
}

func TestCleanup(t *testing.T) {
	f := newVerificationFixture(t)
	f.ledger.add("12345", 100, 5, 3)

	// One fresh detection and one block that will expire.
	_, err := f.svc.ReportActivity(context.Background(), "12345", domain.KindTimeManipulation, nil, "")
	require.NoError(t, err)

	// Age everything past the retention horizon plus the block window.
	f.advance(31*24*time.Hour + 2*time.Hour)

	sum, err := f.svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.ActivityRemoved)
	assert.Equal(t, int64(1), sum.EventsRemoved)
	assert.Equal(t, int64(1), sum.BlocksClosed)

	// A second sweep finds nothing; closed blocks stay closed.
	sum, err = f.svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.ActivityRemoved)
	assert.Zero(t, sum.EventsRemoved)
	assert.Zero(t, sum.BlocksClosed)
	require.NotNil(t, f.blockLog.records[0].UnblockedAt)
}
