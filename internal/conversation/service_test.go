// ABOUTME: Tests for the conversation Service
// ABOUTME: Verifies append semantics, implicit creation, single-flight guard, and persistence

package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/agent"
	"github.com/2389/coven-chat/internal/store"
)

// memKV implements store.KV in memory for testing
type memKV struct {
	mu     sync.Mutex
	values map[string][]byte
	sets   int
	setErr error
}

func newMemKV() *memKV {
	return &memKV{values: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return value, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Close() error { return nil }

// mockCaller implements Caller for testing
type mockCaller struct {
	mu      sync.Mutex
	result  *store.AgentResult
	err     error
	calls   int
	queries []string

	// when set, Ask blocks until released
	block   chan struct{}
	started chan struct{}
}

func (m *mockCaller) Ask(_ context.Context, query string) (*store.AgentResult, error) {
	m.mu.Lock()
	m.calls++
	m.queries = append(m.queries, query)
	block, started := m.block, m.started
	m.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return m.result, m.err
}

func (m *mockCaller) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func successResult() *store.AgentResult {
	return &store.AgentResult{
		Answer:        "Use an API key.",
		Sources:       []string{"https://docs.example.com/auth"},
		RelatedTopics: []string{"rate limits", "tokens"},
		Confidence:    0.92,
	}
}

func TestSend_AppendsUserThenAgentMessage(t *testing.T) {
	kv := newMemKV()
	caller := &mockCaller{result: successResult()}
	svc := New(kv, caller, nil)

	conv, err := svc.Send(context.Background(), "How do I authenticate?")
	require.NoError(t, err)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, store.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "How do I authenticate?", conv.Messages[0].Content)
	assert.Equal(t, store.RoleAgent, conv.Messages[1].Role)
	assert.Equal(t, 1, caller.callCount())
}

func TestSend_EmptyInputIsNoOp(t *testing.T) {
	kv := newMemKV()
	caller := &mockCaller{result: successResult()}
	svc := New(kv, caller, nil)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.Send(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}

	assert.Empty(t, svc.List())
	assert.Equal(t, 0, caller.callCount())
	assert.Equal(t, 0, kv.sets, "nothing should be persisted")
}

func TestSend_CreatesConversationWithTruncatedTitle(t *testing.T) {
	kv := newMemKV()
	svc := New(kv, &mockCaller{result: successResult()}, nil)

	long := strings.Repeat("x", 80)
	conv, err := svc.Send(context.Background(), long)
	require.NoError(t, err)

	assert.Len(t, svc.List(), 1)
	assert.Equal(t, strings.Repeat("x", 50), conv.Title)
}

func TestSend_ShortFirstMessageBecomesTitle(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{result: successResult()}, nil)

	conv, err := svc.Send(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Hello", conv.Title)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, store.RoleUser, conv.Messages[0].Role)
}

func TestSend_TitleIsSetOnce(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{result: successResult()}, nil)
	ctx := context.Background()

	first, err := svc.Send(ctx, "Hello")
	require.NoError(t, err)

	second, err := svc.Send(ctx, "Completely different question")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Hello", second.Title)
}

func TestSend_SuccessAttachesResultVerbatim(t *testing.T) {
	want := successResult()
	svc := New(newMemKV(), &mockCaller{result: want}, nil)

	conv, err := svc.Send(context.Background(), "How do I authenticate?")
	require.NoError(t, err)

	reply := conv.Messages[1]
	assert.Equal(t, want.Answer, reply.Content)
	assert.Equal(t, want, reply.Result)
}

func TestSend_FailureAppendsFallbackWithoutResult(t *testing.T) {
	callErr := &agent.ProtocolError{Message: "agent is overloaded"}
	svc := New(newMemKV(), &mockCaller{err: callErr}, nil)

	conv, err := svc.Send(context.Background(), "ping")
	require.NoError(t, err, "a failed agent call must not fail the turn")

	require.Len(t, conv.Messages, 2)
	reply := conv.Messages[1]
	assert.Equal(t, store.RoleAgent, reply.Role)
	assert.Equal(t, "agent is overloaded", reply.Content)
	assert.Nil(t, reply.Result)
}

func TestSend_TransportFailureAppendsApology(t *testing.T) {
	callErr := fmt.Errorf("%w: connection refused", agent.ErrUnavailable)
	svc := New(newMemKV(), &mockCaller{err: callErr}, nil)

	conv, err := svc.Send(context.Background(), "ping")
	require.NoError(t, err)

	reply := conv.Messages[1]
	assert.NotEmpty(t, reply.Content)
	assert.Nil(t, reply.Result)
}

func TestSend_SingleFlightGuard(t *testing.T) {
	caller := &mockCaller{
		result:  successResult(),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	svc := New(newMemKV(), caller, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := svc.Send(ctx, "first")
		assert.NoError(t, err)
	}()

	// Wait until the first send is inside the agent call
	<-caller.started
	assert.True(t, svc.Pending())

	_, err := svc.Send(ctx, "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(caller.block)
	<-done

	assert.False(t, svc.Pending())
	assert.Equal(t, 1, caller.callCount())

	// The rejected send must not have appended anything
	conv := svc.Active()
	require.NotNil(t, conv)
	assert.Len(t, conv.Messages, 2)
}

func TestNewConversation(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{}, nil)

	conv := svc.NewConversation(context.Background())

	assert.Equal(t, DefaultTitle, conv.Title)
	assert.Empty(t, conv.Messages)

	list := svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, conv.ID, list[0].ID)

	active := svc.Active()
	require.NotNil(t, active)
	assert.Equal(t, conv.ID, active.ID)
}

func TestNewConversation_InsertsAtFront(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{result: successResult()}, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "older")
	require.NoError(t, err)

	newer := svc.NewConversation(ctx)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestLoad_RoundTripReproducesState(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	svc := New(kv, &mockCaller{result: successResult()}, nil)
	sent, err := svc.Send(ctx, "How do I authenticate?")
	require.NoError(t, err)

	restored := New(kv, &mockCaller{}, nil)
	restored.Load(ctx)

	list := restored.List()
	require.Len(t, list, 1)
	assert.Equal(t, sent.ID, list[0].ID)
	assert.Equal(t, sent.Title, list[0].Title)
	require.Len(t, list[0].Messages, 2)
	assert.Equal(t, sent.Messages[0].ID, list[0].Messages[0].ID)
	assert.Equal(t, sent.Messages[0].Content, list[0].Messages[0].Content)
	assert.Equal(t, sent.Messages[1].Result, list[0].Messages[1].Result)

	// The restored most-recent conversation becomes active
	active := restored.Active()
	require.NotNil(t, active)
	assert.Equal(t, sent.ID, active.ID)
}

func TestLoad_MalformedDocumentStartsEmpty(t *testing.T) {
	kv := newMemKV()
	kv.values[store.ConversationsKey] = []byte(`{definitely not a list`)

	svc := New(kv, &mockCaller{}, nil)
	svc.Load(context.Background())

	assert.Empty(t, svc.List())
	assert.Nil(t, svc.Active())
}

func TestLoad_MissingKeyStartsEmpty(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{}, nil)
	svc.Load(context.Background())
	assert.Empty(t, svc.List())
}

func TestPersist_SkippedWhileEmpty(t *testing.T) {
	kv := newMemKV()
	svc := New(kv, &mockCaller{}, nil)
	svc.Load(context.Background())

	assert.Equal(t, 0, kv.sets)
}

func TestSend_PersistFailureDoesNotBlockTurn(t *testing.T) {
	kv := newMemKV()
	kv.setErr = errors.New("disk full")
	svc := New(kv, &mockCaller{result: successResult()}, nil)

	conv, err := svc.Send(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestSelect(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{result: successResult()}, nil)
	ctx := context.Background()

	first, err := svc.Send(ctx, "first topic")
	require.NoError(t, err)
	svc.NewConversation(ctx)

	selected, ok := svc.Select(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, selected.ID)

	active := svc.Active()
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)

	_, ok = svc.Select("no-such-id")
	assert.False(t, ok)
}

func TestFilterByTitle(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{result: successResult()}, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "Getting Started")
	require.NoError(t, err)
	svc.NewConversation(ctx)
	_, err = svc.Send(ctx, "API Guide")
	require.NoError(t, err)

	matched := svc.FilterByTitle("api")
	require.Len(t, matched, 1)
	assert.Equal(t, "API Guide", matched[0].Title)

	assert.Len(t, svc.FilterByTitle(""), 2)
	assert.Empty(t, svc.FilterByTitle("zzz"))
}

func TestFilterByTitle_PreservesOrder(t *testing.T) {
	svc := New(newMemKV(), &mockCaller{result: successResult()}, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "api basics")
	require.NoError(t, err)
	svc.NewConversation(ctx)
	_, err = svc.Send(ctx, "API Guide")
	require.NoError(t, err)

	matched := svc.FilterByTitle("api")
	require.Len(t, matched, 2)
	assert.Equal(t, "API Guide", matched[0].Title)
	assert.Equal(t, "api basics", matched[1].Title)
}
