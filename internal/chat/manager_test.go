package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/weather-chat/pkg/logger"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(replying("0:\"hi\"\n"), logger.Nop())

	a := m.Create()
	b := m.Create()
	require.NotEqual(t, a.ID(), b.ID())

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID(), list[0].ID())
	assert.Equal(t, b.ID(), list[1].ID())

	require.NoError(t, m.Delete(a.ID()))
	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(a.ID()), ErrNotFound)
	assert.ErrorIs(t, a.Send(context.Background(), "hello"), ErrClosed)
}

func TestManager_CloseTearsDownAll(t *testing.T) {
	m := NewManager(replying("0:\"hi\"\n"), logger.Nop())
	a := m.Create()
	b := m.Create()

	m.Close()

	assert.Empty(t, m.List())
	assert.ErrorIs(t, a.Send(context.Background(), "x"), ErrClosed)
	assert.ErrorIs(t, b.Send(context.Background(), "x"), ErrClosed)
}

func TestManager_ConversationsAreIndependent(t *testing.T) {
	m := NewManager(replying("0:\"Sunny\"\n"), logger.Nop())
	a := m.Create()
	b := m.Create()

	require.NoError(t, a.Send(context.Background(), "Oslo?"))

	assert.Len(t, a.Snapshot().Entries, 2)
	assert.Empty(t, b.Snapshot().Entries)
}
