package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/service"
)

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) Stats(ctx context.Context) (*service.CourseStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CourseStats), args.Error(1)
}

func TestCoursesHandler_Stats(t *testing.T) {
	svc := new(MockStatsService)
	handler := NewCoursesHandler(svc)

	svc.On("Stats", mock.Anything).Return(&service.CourseStats{
		TotalCourses: 2,
		CourseTitles: []string{"Building RAG Agents", "MCP Fundamentals"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data CoursesResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.TotalCourses)
	assert.Equal(t, []string{"Building RAG Agents", "MCP Fundamentals"}, envelope.Data.CourseTitles)
}

func TestCoursesHandler_Stats_EmptyCorpus(t *testing.T) {
	svc := new(MockStatsService)
	handler := NewCoursesHandler(svc)

	svc.On("Stats", mock.Anything).Return(&service.CourseStats{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"course_titles":[]`)
}

func TestCoursesHandler_Stats_Error(t *testing.T) {
	svc := new(MockStatsService)
	handler := NewCoursesHandler(svc)

	svc.On("Stats", mock.Anything).Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
