package domain

import (
	"fmt"
	"time"
)

// Exchange is one completed (query, answer) pair within a conversation
// session.
type Exchange struct {
	Query     string
	Answer    string
	CreatedAt time.Time
}

// Source identifies the provenance of a retrieved passage, used to build the
// source list returned alongside an answer. LessonNumber is nil for
// course-level passages.
type Source struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	Link         string `json:"link,omitempty"`
}

// Label renders the source the way it is shown to users, e.g.
// "Building RAG Agents - Lesson 2".
func (s Source) Label() string {
	if s.LessonNumber == nil {
		return s.CourseTitle
	}
	return fmt.Sprintf("%s - Lesson %d", s.CourseTitle, *s.LessonNumber)
}
