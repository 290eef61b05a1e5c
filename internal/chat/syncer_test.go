package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoal-chat/shoal/internal/store"
	"github.com/shoal-chat/shoal/internal/testutil"
)

const (
	testDebounce = 15 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

func newTestSyncer(t *testing.T, st *testutil.FakeStore) *Syncer {
	t.Helper()
	return NewSyncer(st, testDebounce, time.Second, testutil.NewTestLogger(t))
}

func exchange(userText, assistantText string) []store.Message {
	return []store.Message{
		{Role: store.RoleUser, Content: userText},
		{Role: store.RoleAssistant, Content: assistantText},
	}
}

func TestSyncer_FirstSaveCreatesImmediately(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	s.Schedule(nil, exchange("hi", "hello"))

	require.Eventually(t, func() bool { return s.ConversationID() != "" }, waitFor, tick)

	creates := st.CreateCalls()
	require.Len(t, creates, 1)
	assert.Equal(t, PlaceholderTitle, creates[0].Title)
	assert.Equal(t, exchange("hi", "hello"), creates[0].Messages)
}

func TestSyncer_RejectsEmptyMessageList(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	s.Schedule(nil, nil)
	s.Schedule(nil, []store.Message{})

	time.Sleep(4 * testDebounce)
	assert.Empty(t, st.CreateCalls())
	assert.False(t, s.Saving())
}

func TestSyncer_DebounceCoalescesUpdates(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	s.Schedule(nil, exchange("hi", "hello"))
	require.Eventually(t, func() bool { return s.ConversationID() != "" }, waitFor, tick)

	older := append(exchange("hi", "hello"), store.Message{Role: store.RoleUser, Content: "more"})
	newer := append(append([]store.Message(nil), older...), store.Message{Role: store.RoleAssistant, Content: "sure"})
	s.Schedule(nil, older)
	s.Schedule(nil, newer)

	require.Eventually(t, func() bool { return len(st.UpdateCalls()) == 1 }, waitFor, tick)
	assert.Equal(t, newer, st.UpdateCalls()[0].Messages)

	// The older payload was overwritten, not queued.
	time.Sleep(4 * testDebounce)
	assert.Len(t, st.UpdateCalls(), 1)
}

func TestSyncer_SchedulesDuringCreateAreAbsorbed(t *testing.T) {
	gate := make(chan struct{})
	st := testutil.NewFakeStore()
	st.CreateGate = gate
	s := newTestSyncer(t, st)

	first := exchange("hi", "hello")
	second := append(append([]store.Message(nil), first...),
		store.Message{Role: store.RoleUser, Content: "and also"},
		store.Message{Role: store.RoleAssistant, Content: "of course"},
	)

	s.Schedule(nil, first)
	s.Schedule(nil, second)
	close(gate)

	require.Eventually(t, func() bool { return len(st.UpdateCalls()) == 1 }, waitFor, tick)

	// Exactly one record exists; the content that arrived mid-create
	// followed it as a single update.
	require.Len(t, st.CreateCalls(), 1)
	assert.Equal(t, second, st.UpdateCalls()[0].Messages)

	stored := st.Stored(s.ConversationID())
	require.NotNil(t, stored)
	assert.Equal(t, second, stored.Messages)
}

func TestSyncer_UnchangedPayloadSkipsWire(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	msgs := exchange("hi", "hello")
	s.Schedule(nil, msgs)
	require.Eventually(t, func() bool { return s.ConversationID() != "" }, waitFor, tick)

	s.Schedule(nil, msgs)
	time.Sleep(4 * testDebounce)
	assert.Empty(t, st.UpdateCalls())
}

func TestSyncer_FailedCreateRetriesOnNextMutation(t *testing.T) {
	st := testutil.NewFakeStore()
	st.SetFailCreate(true)
	s := newTestSyncer(t, st)

	s.Schedule(nil, exchange("hi", "hello"))
	require.Eventually(t, func() bool { return len(st.CreateCalls()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return !s.Saving() }, waitFor, tick)
	assert.Empty(t, s.ConversationID())

	st.SetFailCreate(false)
	s.Schedule(nil, exchange("hi", "hello again"))

	require.Eventually(t, func() bool { return s.ConversationID() != "" }, waitFor, tick)
	creates := st.CreateCalls()
	require.Len(t, creates, 2)
	assert.Equal(t, exchange("hi", "hello again"), creates[1].Messages)
}

func TestSyncer_FailedUpdateKeepsPayloadForNextMutation(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	s.Schedule(nil, exchange("hi", "hello"))
	require.Eventually(t, func() bool { return s.ConversationID() != "" }, waitFor, tick)

	st.SetFailUpdate(true)
	title := "Kept Title"
	s.Schedule(&title, exchange("hi", "hello there"))
	require.Eventually(t, func() bool { return len(st.UpdateCalls()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return !s.Saving() }, waitFor, tick)

	// The next mutation re-sends the kept payload, title included.
	st.SetFailUpdate(false)
	s.Schedule(nil, exchange("hi", "hello there"))

	require.Eventually(t, func() bool { return len(st.UpdateCalls()) == 2 }, waitFor, tick)
	last := st.UpdateCalls()[1]
	require.NotNil(t, last.Title)
	assert.Equal(t, "Kept Title", *last.Title)
}

func TestSyncer_ResetOrphansInFlightCreate(t *testing.T) {
	gate := make(chan struct{})
	st := testutil.NewFakeStore()
	st.CreateGate = gate
	s := newTestSyncer(t, st)

	var assigned []string
	s.onIDAssigned = func(id string) { assigned = append(assigned, id) }

	s.Schedule(nil, exchange("hi", "hello"))
	s.Reset()
	close(gate)

	require.Eventually(t, func() bool { return !s.Saving() }, waitFor, tick)
	assert.Empty(t, s.ConversationID())
	assert.Empty(t, assigned)
}

func TestSyncer_TrackDrivesSavingFlag(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	assert.False(t, s.Saving())
	done := s.Track(opLoad)
	assert.True(t, s.Saving())
	done()
	assert.False(t, s.Saving())
}

func TestSyncer_AdoptPrimesFingerprint(t *testing.T) {
	st := testutil.NewFakeStore()
	s := newTestSyncer(t, st)

	conv := &store.Conversation{ID: "abc", Title: "Existing", Messages: exchange("hi", "hello")}
	st.Seed(conv)
	s.Adopt(conv)

	assert.Equal(t, "abc", s.ConversationID())

	// Re-saving the adopted content is a no-op.
	s.Schedule(nil, exchange("hi", "hello"))
	time.Sleep(4 * testDebounce)
	assert.Empty(t, st.UpdateCalls())
	assert.Empty(t, st.CreateCalls())
}
