package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCourse(t *testing.T) {
	tests := []struct {
		name    string
		course  *Course
		wantErr string
	}{
		{
			name:   "valid",
			course: &Course{Title: "Go Basics", Lessons: []Lesson{{Number: 0}, {Number: 1}}},
		},
		{
			name:    "nil course",
			course:  nil,
			wantErr: "course cannot be nil",
		},
		{
			name:    "missing title",
			course:  &Course{},
			wantErr: "Title is required",
		},
		{
			name:    "negative lesson number",
			course:  &Course{Title: "T", Lessons: []Lesson{{Number: -1}}},
			wantErr: "must not be negative",
		},
		{
			name:    "duplicate lesson number",
			course:  &Course{Title: "T", Lessons: []Lesson{{Number: 2}, {Number: 2}}},
			wantErr: "duplicate lesson number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCourse(tt.course)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCourse_LessonLookups(t *testing.T) {
	course := &Course{
		Title: "MCP Fundamentals",
		Lessons: []Lesson{
			{Number: 0, Title: "Overview"},
			{Number: 3, Title: "Tool Schemas"},
		},
	}

	assert.Equal(t, "Overview", course.LessonTitle(0))
	assert.Equal(t, "Tool Schemas", course.LessonTitle(3))
	assert.Empty(t, course.LessonTitle(7))

	assert.True(t, course.HasLesson(3))
	assert.False(t, course.HasLesson(1))
}

func TestSource_Label(t *testing.T) {
	lesson := 2
	withLesson := Source{CourseTitle: "Building RAG Agents", LessonNumber: &lesson}
	assert.Equal(t, "Building RAG Agents - Lesson 2", withLesson.Label())

	courseOnly := Source{CourseTitle: "Building RAG Agents"}
	assert.Equal(t, "Building RAG Agents", courseOnly.Label())
}
