package otp

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xbrain-api/internal/infrastructure/cache"
)

// --- fakes ---

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (m *fakeMailer) SendEmail(to, subject, body string) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// --- helpers ---

func testConfig() Config {
	return Config{
		Length:      6,
		Validity:    5 * time.Minute,
		ResendDelay: 60 * time.Second,
		MaxResends:  3,
	}
}

func newTestService(t *testing.T) (Service, cache.Store, *fakeMailer) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewStore(client)
	mailer := &fakeMailer{}
	return NewService(store, mailer, testConfig()), store, mailer
}

// markSentLongAgo backdates the last-sent marker so the inter-send delay
// has elapsed.
func markSentLongAgo(t *testing.T, store cache.Store, email string) {
	t.Helper()
	past := strconv.FormatInt(time.Now().Add(-2*time.Minute).Unix(), 10)
	require.NoError(t, store.Set(context.Background(), lastSentKeyPrefix+email, past, throttleTTL))
}

// --- tests ---

func TestGenerate_ProducesDigitsOfRequestedLength(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := Generate(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', code)
		}
	}
}

func TestIssue_StoresCodeAndEmailsIt(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@b.c", "Ada"))

	stored, err := store.Get(ctx, codeKeyPrefix+"a@b.c")
	require.NoError(t, err)
	require.Len(t, stored, 6)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@b.c", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].body, stored)
	assert.Contains(t, mailer.sent[0].body, "Hi Ada,")

	count, err := store.GetInt(ctx, resendKeyPrefix+"a@b.c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIssue_SecondSendWithinDelayIsThrottled(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))

	err := svc.Issue(ctx, "a@b.c", "")
	var wait *ResendWaitError
	require.ErrorAs(t, err, &wait)
	assert.Greater(t, wait.Seconds, 0)
	assert.LessOrEqual(t, wait.Seconds, 61)
}

func TestIssue_ReplacesPreviousCode(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
	first, err := store.Get(ctx, codeKeyPrefix+"a@b.c")
	require.NoError(t, err)

	markSentLongAgo(t, store, "a@b.c")
	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))

	// The first code must no longer verify once a new one is out.
	ok, err := svc.Verify(ctx, "a@b.c", first)
	require.NoError(t, err)
	second, err := store.Get(ctx, codeKeyPrefix+"a@b.c")
	require.NoError(t, err)
	if first != second {
		assert.False(t, ok)
	}
}

func TestIssue_ResendCapExhausted(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
		markSentLongAgo(t, store, "a@b.c")
	}
	require.Len(t, mailer.sent, 3)

	err := svc.Issue(ctx, "a@b.c", "")
	assert.ErrorIs(t, err, ErrResendLimit)
	assert.Len(t, mailer.sent, 3)
}

func TestIssue_DeliveryFailureBurnsNoSlot(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()
	mailer.fail = true

	err := svc.Issue(ctx, "a@b.c", "")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	count, err := store.GetInt(ctx, resendKeyPrefix+"a@b.c")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// The very next attempt is allowed: no last-sent marker was written.
	mailer.fail = false
	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
	assert.Len(t, mailer.sent, 1)
}

func TestVerify_ConsumesCodeOnMatch(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
	code, err := store.Get(ctx, codeKeyPrefix+"a@b.c")
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "a@b.c", code)
	require.NoError(t, err)
	assert.True(t, ok)

	// Single use: the same code cannot verify twice.
	ok, err = svc.Verify(ctx, "a@b.c", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_WrongGuessLeavesCodeIntact(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
	code, err := store.Get(ctx, codeKeyPrefix+"a@b.c")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	ok, err := svc.Verify(ctx, "a@b.c", wrong)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Verify(ctx, "a@b.c", code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_NoCodeOutstanding(t *testing.T) {
	svc, _, _ := newTestService(t)

	ok, err := svc.Verify(context.Background(), "a@b.c", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanResend_RemainingSecondsReported(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	allowed, wait, err := svc.CanResend(ctx, "a@b.c")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, wait)

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))

	allowed, wait, err = svc.CanResend(ctx, "a@b.c")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, wait, 0)
}

func TestClearThrottle_ResetsResendState(t *testing.T) {
	svc, store, mailer := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
	require.NoError(t, svc.ClearThrottle(ctx, "a@b.c"))

	require.NoError(t, svc.Issue(ctx, "a@b.c", ""))
	assert.Len(t, mailer.sent, 2)

	count, err := store.GetInt(ctx, resendKeyPrefix+"a@b.c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestVerificationBody_MentionsExpiry(t *testing.T) {
	body := verificationBody("", "123456", 5*time.Minute)
	assert.True(t, strings.HasPrefix(body, "Hi,"))
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "expire in 5 minutes")
}
