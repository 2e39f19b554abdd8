package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/domain"
)

func newTestAssistant(chat ChatClient, catalog CatalogRepositoryInterface) *Assistant {
	registry := NewToolRegistry()
	registry.Register(&stubTool{name: "search_course_content", result: &ToolResult{Content: "nothing"}})
	search := NewSearchService(catalog, new(MockContentRepository), new(MockEmbeddingClient), 5)
	return NewAssistant(NewGenerator(chat, registry), NewSessionStore(2), search)
}

func TestAssistant_Answer_EmptyQuery(t *testing.T) {
	assistant := newTestAssistant(new(MockChatClient), new(MockCatalogRepository))

	out, err := assistant.Answer(context.Background(), "", "")

	assert.Nil(t, out)
	assert.Equal(t, domain.ErrEmptyQuery, err)
}

func TestAssistant_Answer_CreatesSessionAndRecordsExchange(t *testing.T) {
	chat := new(MockChatClient)
	assistant := newTestAssistant(chat, new(MockCatalogRepository))

	ctx := context.Background()
	chat.On("CreateResponse", ctx, mock.AnythingOfType("ChatInput")).
		Return(&ModelResponse{Text: "the answer"}, nil)

	out, err := assistant.Answer(ctx, "a question", "")

	require.NoError(t, err)
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, "the answer", out.Answer)

	history := assistant.sessions.History(out.SessionID)
	require.Len(t, history, 1)
	assert.Equal(t, "a question", history[0].Query)
	assert.Equal(t, "the answer", history[0].Answer)
}

func TestAssistant_Answer_ThreadsHistoryIntoFollowUp(t *testing.T) {
	chat := new(MockChatClient)
	assistant := newTestAssistant(chat, new(MockCatalogRepository))

	ctx := context.Background()
	chat.On("CreateResponse", ctx, mock.MatchedBy(func(input ChatInput) bool {
		return input.Query == "first"
	})).Return(&ModelResponse{Text: "first answer"}, nil).Once()
	chat.On("CreateResponse", ctx, mock.MatchedBy(func(input ChatInput) bool {
		return input.Query == "second" &&
			strings.Contains(input.System, "User: first") &&
			strings.Contains(input.System, "Assistant: first answer")
	})).Return(&ModelResponse{Text: "second answer"}, nil).Once()

	first, err := assistant.Answer(ctx, "first", "")
	require.NoError(t, err)

	second, err := assistant.Answer(ctx, "second", first.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	chat.AssertExpectations(t)
}

func TestAssistant_ClearSession(t *testing.T) {
	chat := new(MockChatClient)
	assistant := newTestAssistant(chat, new(MockCatalogRepository))

	ctx := context.Background()
	chat.On("CreateResponse", ctx, mock.AnythingOfType("ChatInput")).
		Return(&ModelResponse{Text: "hi"}, nil)

	out, err := assistant.Answer(ctx, "q", "")
	require.NoError(t, err)

	require.NoError(t, assistant.ClearSession(out.SessionID))
	assert.Equal(t, domain.ErrSessionNotFound, assistant.ClearSession(out.SessionID))
}

func TestAssistant_Stats(t *testing.T) {
	catalog := new(MockCatalogRepository)
	assistant := newTestAssistant(new(MockChatClient), catalog)

	ctx := context.Background()
	catalog.On("ListTitles", ctx).Return([]string{"Course A", "Course B"}, nil)

	stats, err := assistant.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCourses)
	assert.Equal(t, []string{"Course A", "Course B"}, stats.CourseTitles)
}
