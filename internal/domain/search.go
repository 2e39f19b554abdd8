package domain

// SearchFilter restricts a content lookup to an exact course title and/or a
// lesson number. Both fields are optional; when both are set they compose
// with AND semantics.
type SearchFilter struct {
	CourseTitle  *string
	LessonNumber *int
}

// IsZero reports whether the filter imposes no restriction.
func (f SearchFilter) IsZero() bool {
	return f.CourseTitle == nil && f.LessonNumber == nil
}
