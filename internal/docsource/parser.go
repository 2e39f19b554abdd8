// Package docsource parses course scripts and supplies them to ingest from a
// local directory or an S3-compatible bucket.
package docsource

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
)

var lessonPattern = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Parse reads a course script into a CourseDocument. The expected layout is a
// metadata header ("Course Title:", "Course Link:", "Course Instructor:")
// followed by lesson sections introduced by "Lesson N: <title>" markers, each
// optionally followed by a "Lesson Link:" line. Text before the first lesson
// marker is kept as course-level content. A script without a course title is
// malformed.
func Parse(r io.Reader) (*domain.CourseDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	course := &domain.Course{}
	doc := &domain.CourseDocument{Course: course}

	var (
		currentLesson *domain.Lesson
		currentText   strings.Builder
		inHeader      = true
	)

	flush := func() {
		text := strings.TrimSpace(currentText.String())
		currentText.Reset()
		if text == "" && currentLesson == nil {
			return
		}
		var number *int
		if currentLesson != nil {
			n := currentLesson.Number
			number = &n
			course.Lessons = append(course.Lessons, *currentLesson)
		}
		if text != "" {
			doc.Contents = append(doc.Contents, domain.LessonContent{
				LessonNumber: number,
				Text:         text,
			})
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inHeader {
			switch {
			case strings.HasPrefix(trimmed, "Course Title:"):
				course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
				continue
			case strings.HasPrefix(trimmed, "Course Link:"):
				course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
				continue
			case strings.HasPrefix(trimmed, "Course Instructor:"):
				course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
				continue
			case trimmed == "":
				continue
			}
			inHeader = false
		}

		if m := lessonPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("invalid lesson number %q: %w", m[1], err)
			}
			currentLesson = &domain.Lesson{Number: number, Title: strings.TrimSpace(m[2])}
			continue
		}

		if currentLesson != nil && currentLesson.Link == "" && currentText.Len() == 0 &&
			strings.HasPrefix(trimmed, "Lesson Link:") {
			currentLesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
			continue
		}

		currentText.WriteString(line)
		currentText.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read course script: %w", err)
	}
	flush()

	if course.Title == "" {
		return nil, domain.ErrMalformedDocument
	}
	if err := domain.ValidateCourse(course); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "malformed course script", err)
	}

	return doc, nil
}
