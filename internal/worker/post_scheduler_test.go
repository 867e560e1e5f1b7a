package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/lumina_api/internal/models"
)

type countingPoster struct {
	mu    sync.Mutex
	calls int
	post  *models.ChannelPost
	err   error
}

func (p *countingPoster) PostNext(context.Context) (*models.ChannelPost, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.post, p.err
}

func TestNewPostScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewPostScheduler(&countingPoster{}, "every hour")
	assert.Error(t, err)
}

func TestPostScheduler_StartStop(t *testing.T) {
	s, err := NewPostScheduler(&countingPoster{}, "@every 1h")
	require.NoError(t, err)

	assert.False(t, s.IsRunning())
	assert.False(t, s.Status().Running)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	st := s.Status()
	assert.True(t, st.Running)
	assert.Equal(t, "@every 1h", st.Schedule)
	require.NotNil(t, st.NextRun)

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.Status().NextRun)

	// stopping twice is harmless and the handle can be restarted
	s.Stop()
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	s.Stop()
}

func TestPostScheduler_RunOnce(t *testing.T) {
	poster := &countingPoster{post: &models.ChannelPost{ID: 3, Status: models.ChannelPostSent}}
	s, err := NewPostScheduler(poster, "@every 1h")
	require.NoError(t, err)

	post, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, post.ID)
	assert.Equal(t, 1, poster.calls)
	assert.False(t, s.IsRunning())

	poster.post = nil
	post, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, post)

	poster.err = errors.New("channel down")
	_, err = s.RunOnce(context.Background())
	assert.EqualError(t, err, "channel down")
}
