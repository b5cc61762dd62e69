package query_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-auth-portal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Error(msg string, _ ...any) {
	l.errors = append(l.errors, msg)
}

func TestMutationSuccess(t *testing.T) {
	c := query.NewClient()

	var got string
	m := query.NewMutation(c, func(_ context.Context, in int) (string, error) {
		return fmt.Sprintf("n=%d", in), nil
	}, query.MutationOptions[int, string]{
		OnSuccess: func(_ context.Context, _ int, out string) { got = out },
		OnError:   func(context.Context, int, error) { t.Fatal("unexpected error callback") },
	})

	out, err := m.Mutate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "n=7", out)
	assert.Equal(t, "n=7", got)

	state := m.State()
	assert.False(t, state.Pending)
	assert.NoError(t, state.Err)
	assert.Equal(t, "n=7", state.Data)
}

func TestMutationFailureIsNotRetried(t *testing.T) {
	logger := &recordingLogger{}
	c := query.NewClient(query.WithLogger(logger))

	calls := 0
	boom := errors.New("boom")
	var cbErr error
	m := query.NewMutation(c, func(context.Context, string) (int, error) {
		calls++
		return 0, boom
	}, query.MutationOptions[string, int]{
		OnError: func(_ context.Context, _ string, err error) { cbErr = err },
	})

	_, err := m.Mutate(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, cbErr, boom)
	assert.ErrorIs(t, m.State().Err, boom)
	assert.Equal(t, []string{"Mutation Error"}, logger.errors)

	m.Reset()
	assert.NoError(t, m.State().Err)
}

func TestMutationPendingWhileRunning(t *testing.T) {
	c := query.NewClient()
	started := make(chan struct{})
	release := make(chan struct{})

	m := query.NewMutation(c, func(context.Context, struct{}) (bool, error) {
		close(started)
		<-release
		return true, nil
	}, query.MutationOptions[struct{}, bool]{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Mutate(context.Background(), struct{}{})
	}()

	<-started
	assert.True(t, m.State().Pending)
	close(release)
	<-done
	assert.False(t, m.State().Pending)
	assert.True(t, m.State().Data)
}
