package domain

import "time"

// Chunk is a bounded, context-prefixed text segment derived from a course's
// lesson text. It back-references its course by title; the lesson number is
// nil for course-level chunks. Chunks are immutable and replaced wholesale
// when a course is re-processed.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Content      string
	Embedding    []float32
	CreatedAt    time.Time
}
