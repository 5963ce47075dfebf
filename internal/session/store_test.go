package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
)

func TestStoreCreateGetDelete(t *testing.T) {
	store := NewInMemoryStore(Config{})

	s, err := store.Create(content.MCQ, content.Prod)
	require.NoError(t, err)
	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = store.Create(content.Category("ESSAY"), content.Prod)
	assert.ErrorIs(t, err, content.ErrUnknownCategory)

	require.NoError(t, store.Delete(s.ID))
	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(s.ID), ErrNotFound)
}

func TestStoreListNewestFirst(t *testing.T) {
	store := NewInMemoryStore(Config{})
	older, err := store.Create(content.MCQ, content.Prod)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := store.Create(content.CodeAnalysis, content.Beta)
	require.NoError(t, err)
	assert.ErrorIs(t, newer.SetSheetName("x"), ErrWrongCategory)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, older.SetSheetName("Week 1"))

	views := store.List()
	require.Len(t, views, 2)
	assert.Equal(t, older.ID, views[0].ID)
	assert.Equal(t, newer.ID, views[1].ID)
}

func TestStoreSweepCancelsInspection(t *testing.T) {
	inspect := func(ctx context.Context, data []byte) ([]archive.Entry, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	store := NewInMemoryStore(Config{Inspect: inspect})

	idle, err := store.Create(content.CodingQuestions, content.Prod)
	require.NoError(t, err)
	in, err := idle.SelectArchive("slow.zip", []byte("slow"))
	require.NoError(t, err)

	assert.Equal(t, 0, store.Sweep(time.Hour))
	assert.Equal(t, 1, store.Sweep(-time.Second))

	_, stale := wait(t, in)
	assert.True(t, stale)
	_, err = store.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, time.Second, SweepInterval(time.Nanosecond))
	assert.Equal(t, time.Second, SweepInterval(0))
	assert.Equal(t, 30*time.Minute, SweepInterval(2*time.Hour))
}

func TestRunSweeper(t *testing.T) {
	store := NewInMemoryStore(Config{})
	_, err := store.Create(content.MCQ, content.Prod)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunSweeper(ctx, store, time.Nanosecond, zap.NewNop())
	}()

	assert.Eventually(t, func() bool { return len(store.List()) == 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	<-done
}
