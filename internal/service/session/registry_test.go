package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	"github.com/zhouzirui/study-mentor/backend/internal/model/document"
)

func TestProfileDefaultsWithoutCreatingSession(t *testing.T) {
	r := NewRegistry(time.Hour, nil)

	assert.Equal(t, chat.DefaultProfile(), r.Profile("unknown"))
	assert.Zero(t, r.Len())
}

func TestSetProfileValidates(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	ctx := context.Background()

	_, err := r.SetProfile(ctx, "s1", "Ada", "  ")
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = r.SetProfile(ctx, "s1", "", "20")
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = r.SetProfile(ctx, "", "Ada", "20")
	assert.ErrorIs(t, err, ErrSessionRequired)

	assert.Equal(t, chat.DefaultProfile(), r.Profile("s1"))
}

func TestSetProfileReplacesAndRunsHooks(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	ctx := context.Background()

	var reset []string
	r.OnReset(func(_ context.Context, id string) error {
		reset = append(reset, id)
		return nil
	})

	r.SetDocument("s1", document.Ref{Owner: "s1", ID: "doc-1", Filename: "a.txt"})
	profile, err := r.SetProfile(ctx, "s1", " Ada ", "20")
	require.NoError(t, err)
	assert.Equal(t, chat.Profile{Name: "Ada", Age: "20"}, profile)
	assert.Equal(t, profile, r.Profile("s1"))
	assert.Equal(t, []string{"s1"}, reset)

	_, ok := r.Document("s1")
	assert.False(t, ok, "profile submission must drop the document reference")

	_, err = r.SetProfile(ctx, "s1", "Grace", "30")
	require.NoError(t, err)
	assert.Equal(t, "Grace", r.Profile("s1").Name)
	assert.Equal(t, []string{"s1", "s1"}, reset)
}

func TestSetProfileReportsHookErrors(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	boom := errors.New("boom")
	r.OnReset(func(context.Context, string) error { return boom })

	_, err := r.SetProfile(context.Background(), "s1", "Ada", "20")
	assert.ErrorIs(t, err, boom)
}

func TestSessionsAreIsolated(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	ctx := context.Background()

	_, err := r.SetProfile(ctx, "s1", "Ada", "20")
	require.NoError(t, err)
	r.SetDocument("s1", document.Ref{Owner: "s1", ID: "d1"})

	assert.Equal(t, chat.DefaultProfile(), r.Profile("s2"))
	_, ok := r.Document("s2")
	assert.False(t, ok)

	r.ClearDocument("s1")
	_, ok = r.Document("s1")
	assert.False(t, ok)
}

func TestExpireRunsHooks(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	done := make(chan string, 1)
	r.OnReset(func(_ context.Context, id string) error {
		done <- id
		return nil
	})

	r.Lock("s1")()
	require.Equal(t, 1, r.Len())
	r.Expire("s1")

	assert.Equal(t, "s1", <-done)
	assert.Zero(t, r.Len())
	assert.Equal(t, chat.DefaultProfile(), r.Profile("s1"))
}

func TestLockSerialisesOneSessionOnly(t *testing.T) {
	r := NewRegistry(0, nil)

	unlock := r.Lock("s1")

	// Another session proceeds while s1 is held.
	otherDone := make(chan struct{})
	go func() {
		u := r.Lock("s2")
		u()
		close(otherDone)
	}()
	select {
	case <-otherDone:
	case <-time.After(time.Second):
		t.Fatal("lock on s2 blocked behind s1")
	}

	var mu sync.Mutex
	acquired := false
	sameDone := make(chan struct{})
	go func() {
		u := r.Lock("s1")
		mu.Lock()
		acquired = true
		mu.Unlock()
		u()
		close(sameDone)
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.False(t, acquired, "second writer on s1 must wait")
	mu.Unlock()

	unlock()
	select {
	case <-sameDone:
	case <-time.After(time.Second):
		t.Fatal("second writer on s1 never acquired the lock")
	}
}

func TestIdleSessionIsResetOnReturn(t *testing.T) {
	r := NewRegistry(50*time.Millisecond, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var reset []string
	r.OnReset(func(_ context.Context, id string) error {
		mu.Lock()
		reset = append(reset, id)
		mu.Unlock()
		return nil
	})

	unlock := r.Lock("s1")
	_, err := r.SetProfile(ctx, "s1", "Ada", "20")
	require.NoError(t, err)
	r.SetDocument("s1", document.Ref{Owner: "s1", ID: "d1", Filename: "a.txt"})
	unlock()

	_, live := r.Session("s1")
	require.True(t, live)

	time.Sleep(120 * time.Millisecond)

	// Reads see an expired session before anything resets it.
	assert.False(t, r.Live("s1"))
	assert.Equal(t, chat.DefaultProfile(), r.Profile("s1"))
	_, ok := r.Document("s1")
	assert.False(t, ok)

	unlock = r.Lock("s1")
	mu.Lock()
	assert.Equal(t, []string{"s1", "s1"}, reset, "returning after the ttl must run the reset hooks")
	mu.Unlock()
	assert.True(t, r.Live("s1"))
	assert.Equal(t, chat.DefaultProfile(), r.Profile("s1"))
	_, ok = r.Document("s1")
	assert.False(t, ok)
	unlock()

	// A fresh return does not reset again.
	r.Lock("s1")()
	mu.Lock()
	assert.Len(t, reset, 2)
	mu.Unlock()
}

func TestExpireWaitsForExchangeAndKeepsActiveSession(t *testing.T) {
	r := NewRegistry(time.Hour, nil)
	ctx := context.Background()

	var mu sync.Mutex
	resets := 0
	r.OnReset(func(context.Context, string) error {
		mu.Lock()
		resets++
		mu.Unlock()
		return nil
	})

	unlock := r.Lock("s1")
	_, err := r.SetProfile(ctx, "s1", "Ada", "20")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r.Expire("s1")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expiry must wait for the exchange in flight")
	case <-time.After(30 * time.Millisecond):
	}
	unlock()
	<-done

	assert.Equal(t, "Ada", r.Profile("s1").Name)
	mu.Lock()
	assert.Equal(t, 1, resets)
	mu.Unlock()

	r.Expire("s1")
	assert.Equal(t, chat.DefaultProfile(), r.Profile("s1"))
	assert.Zero(t, r.Len())
}

func TestSessionSnapshot(t *testing.T) {
	r := NewRegistry(time.Hour, nil)

	_, ok := r.Session("s1")
	assert.False(t, ok)

	r.Lock("s1")()
	_, err := r.SetProfile(context.Background(), "s1", "Ada", "20")
	require.NoError(t, err)

	s, ok := r.Session("s1")
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "Ada", s.Profile.Name)
	assert.False(t, s.CreatedAt.IsZero())
	assert.False(t, s.LastSeen.Before(s.CreatedAt))
}
