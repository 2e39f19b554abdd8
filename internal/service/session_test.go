package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/domain"
)

func TestSessionStore_Create(t *testing.T) {
	store := NewSessionStore(2)

	first := store.Create()
	second := store.Create()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
	assert.Empty(t, store.History(first))
}

func TestSessionStore_EvictsOldestExchange(t *testing.T) {
	store := NewSessionStore(2)
	id := store.Create()

	store.AddExchange(id, "q1", "a1")
	store.AddExchange(id, "q2", "a2")
	store.AddExchange(id, "q3", "a3")

	history := store.History(id)
	require.Len(t, history, 2)
	assert.Equal(t, "q2", history[0].Query)
	assert.Equal(t, "q3", history[1].Query)
}

func TestSessionStore_ImplicitSession(t *testing.T) {
	store := NewSessionStore(2)

	store.AddExchange("caller-chosen", "q", "a")

	history := store.History("caller-chosen")
	require.Len(t, history, 1)
	assert.Equal(t, "a", history[0].Answer)
}

func TestSessionStore_FormatHistory(t *testing.T) {
	store := NewSessionStore(2)
	id := store.Create()

	assert.Empty(t, store.FormatHistory(id))

	store.AddExchange(id, "What is RAG?", "Retrieval augmented generation.")
	store.AddExchange(id, "And chunking?", "Splitting text into segments.")

	expected := "User: What is RAG?\n" +
		"Assistant: Retrieval augmented generation.\n" +
		"User: And chunking?\n" +
		"Assistant: Splitting text into segments."
	assert.Equal(t, expected, store.FormatHistory(id))
}

func TestSessionStore_Clear(t *testing.T) {
	store := NewSessionStore(2)
	id := store.Create()
	store.AddExchange(id, "q", "a")

	require.NoError(t, store.Clear(id))
	assert.Empty(t, store.History(id))
	assert.Equal(t, domain.ErrSessionNotFound, store.Clear(id))
}

func TestSessionStore_ClearUnknown(t *testing.T) {
	store := NewSessionStore(2)

	assert.Equal(t, domain.ErrSessionNotFound, store.Clear("missing"))
}
