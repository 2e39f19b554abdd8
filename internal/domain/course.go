package domain

import (
	"fmt"
	"time"
)

// Lesson is a single lesson within a course. The number is unique within the
// owning course and carries ordering.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course represents one ingested course document. The title is the natural
// key; there is no separate identifier. Courses are immutable once ingested.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
	CreatedAt  time.Time
}

// LessonTitle returns the title of the lesson with the given number, or ""
// when the course does not declare it.
func (c *Course) LessonTitle(number int) string {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l.Title
		}
	}
	return ""
}

// HasLesson reports whether the course declares a lesson with the given number.
func (c *Course) HasLesson(number int) bool {
	for _, l := range c.Lessons {
		if l.Number == number {
			return true
		}
	}
	return false
}

// ValidateCourse validates a Course instance before ingest.
func ValidateCourse(c *Course) error {
	if c == nil {
		return fmt.Errorf("course cannot be nil")
	}
	if c.Title == "" {
		return fmt.Errorf("course Title is required")
	}
	seen := make(map[int]struct{}, len(c.Lessons))
	for _, l := range c.Lessons {
		if l.Number < 0 {
			return fmt.Errorf("lesson number must not be negative: %d", l.Number)
		}
		if _, dup := seen[l.Number]; dup {
			return fmt.Errorf("duplicate lesson number: %d", l.Number)
		}
		seen[l.Number] = struct{}{}
	}
	return nil
}

// LessonContent is the raw text of one section of a parsed course document.
// LessonNumber is nil for course-level text preceding the first lesson.
type LessonContent struct {
	LessonNumber *int
	Text         string
}

// CourseDocument is the parsed form of a course script: course metadata plus
// ordered lesson texts, as supplied by a document source.
type CourseDocument struct {
	Course   *Course
	Contents []LessonContent
}
