package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/domain"
)

// MockCourseSearcher is a mock implementation of CourseSearcher
type MockCourseSearcher struct {
	mock.Mock
}

func (m *MockCourseSearcher) Search(ctx context.Context, input SearchInput) (*SearchOutcome, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SearchOutcome), args.Error(1)
}

func (m *MockCourseSearcher) GetCourse(ctx context.Context, title string) (*domain.Course, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func TestToolRegistry_ExecuteUnknown(t *testing.T) {
	registry := NewToolRegistry()

	result, err := registry.Execute(context.Background(), "nope", nil)

	assert.Nil(t, result)
	assert.Equal(t, domain.ErrToolNotRegistered, err)
}

func TestToolRegistry_SchemasInRegistrationOrder(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(NewSearchTool(new(MockCourseSearcher)))

	schemas := registry.Schemas()

	require.Len(t, schemas, 1)
	assert.Equal(t, "search_course_content", schemas[0].Name)
	assert.Equal(t, []string{"query"}, schemas[0].Parameters["required"])
}

func TestSearchTool_Execute_FormatsBlocksAndSources(t *testing.T) {
	searcher := new(MockCourseSearcher)
	tool := NewSearchTool(searcher)

	ctx := context.Background()
	course := &domain.Course{
		Title: "Building RAG Agents",
		Link:  "https://example.com/rag",
		Lessons: []domain.Lesson{
			{Number: 1, Title: "Chunking", Link: "https://example.com/rag/1"},
		},
	}

	searcher.On("Search", ctx, SearchInput{Query: "chunk overlap"}).Return(&SearchOutcome{
		Matches: []*ChunkMatch{
			{Content: "Overlap preserves context.", CourseTitle: "Building RAG Agents", LessonNumber: intPtr(1)},
			{Content: "Course level passage.", CourseTitle: "Building RAG Agents"},
		},
	}, nil)
	searcher.On("GetCourse", ctx, "Building RAG Agents").Return(course, nil).Once()

	result, err := tool.Execute(ctx, json.RawMessage(`{"query":"chunk overlap"}`))

	require.NoError(t, err)
	expected := "[Building RAG Agents - Lesson 1]\nOverlap preserves context.\n\n" +
		"[Building RAG Agents]\nCourse level passage."
	assert.Equal(t, expected, result.Content)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, "Building RAG Agents - Lesson 1", result.Sources[0].Label())
	assert.Equal(t, "https://example.com/rag/1", result.Sources[0].Link)
	assert.Equal(t, "Building RAG Agents", result.Sources[1].Label())
	assert.Equal(t, "https://example.com/rag", result.Sources[1].Link)

	// Catalog consulted once per course despite two matches.
	searcher.AssertNumberOfCalls(t, "GetCourse", 1)
}

func TestSearchTool_Execute_NoCourseMatch(t *testing.T) {
	searcher := new(MockCourseSearcher)
	tool := NewSearchTool(searcher)

	ctx := context.Background()
	searcher.On("Search", ctx, mock.AnythingOfType("SearchInput")).Return(&SearchOutcome{
		RequestedCourse: "Quantum Plumbing",
		NoCourseMatch:   true,
	}, nil)

	result, err := tool.Execute(ctx, json.RawMessage(`{"query":"q","course_name":"Quantum Plumbing"}`))

	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Quantum Plumbing'", result.Content)
	assert.Empty(t, result.Sources)
}

func TestSearchTool_Execute_EmptyResults(t *testing.T) {
	tests := []struct {
		name     string
		outcome  *SearchOutcome
		args     string
		expected string
	}{
		{
			name:     "unfiltered",
			outcome:  &SearchOutcome{},
			args:     `{"query":"nothing"}`,
			expected: "No relevant content found.",
		},
		{
			name:     "course scope",
			outcome:  &SearchOutcome{ResolvedCourse: "MCP Fundamentals"},
			args:     `{"query":"nothing","course_name":"MCP"}`,
			expected: "No relevant content found in course 'MCP Fundamentals'.",
		},
		{
			name:     "course and lesson scope",
			outcome:  &SearchOutcome{ResolvedCourse: "MCP Fundamentals"},
			args:     `{"query":"nothing","course_name":"MCP","lesson_number":3}`,
			expected: "No relevant content found in course 'MCP Fundamentals' in lesson 3.",
		},
		{
			name:     "lesson scope only",
			outcome:  &SearchOutcome{},
			args:     `{"query":"nothing","lesson_number":2}`,
			expected: "No relevant content found in lesson 2.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := new(MockCourseSearcher)
			searcher.On("Search", mock.Anything, mock.AnythingOfType("SearchInput")).Return(tt.outcome, nil)

			result, err := NewSearchTool(searcher).Execute(context.Background(), json.RawMessage(tt.args))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Content)
		})
	}
}

func TestSearchTool_Execute_InvalidArgs(t *testing.T) {
	tool := NewSearchTool(new(MockCourseSearcher))

	result, err := tool.Execute(context.Background(), json.RawMessage(`{broken`))

	assert.Nil(t, result)
	assert.ErrorContains(t, err, "invalid search arguments")
}

func TestSearchTool_Execute_LinkLookupBestEffort(t *testing.T) {
	searcher := new(MockCourseSearcher)
	tool := NewSearchTool(searcher)

	ctx := context.Background()
	searcher.On("Search", ctx, mock.AnythingOfType("SearchInput")).Return(&SearchOutcome{
		Matches: []*ChunkMatch{
			{Content: "text", CourseTitle: "Ghost Course"},
		},
	}, nil)
	searcher.On("GetCourse", ctx, "Ghost Course").Return(nil, domain.ErrCourseNotFound)

	result, err := tool.Execute(ctx, json.RawMessage(`{"query":"q"}`))

	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Empty(t, result.Sources[0].Link)
}
