package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
)

// ToolSchema describes a callable capability advertised to the model.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolResult carries a tool execution's formatted output together with the
// sources behind it. Sources travel through return values; tools keep no
// cross-call state.
type ToolResult struct {
	Content string
	Sources []domain.Source
}

// Tool is one member of the closed capability set exposed to the generation
// loop.
type Tool interface {
	Schema() ToolSchema
	Execute(ctx context.Context, args json.RawMessage) (*ToolResult, error)
}

// ToolRegistry maps tool names to instances for schema enumeration and
// dispatch.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous instance.
func (r *ToolRegistry) Register(t Tool) {
	name := t.Schema().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Schemas enumerates registered tool schemas in registration order.
func (r *ToolRegistry) Schemas() []ToolSchema {
	out := make([]ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema())
	}
	return out
}

// Execute dispatches one tool invocation by name.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, domain.ErrToolNotRegistered
	}
	return tool.Execute(ctx, args)
}

// CourseSearcher is the slice of SearchService the search tool depends on.
type CourseSearcher interface {
	Search(ctx context.Context, input SearchInput) (*SearchOutcome, error)
	GetCourse(ctx context.Context, title string) (*domain.Course, error)
}

// SearchTool exposes course content search to the model.
type SearchTool struct {
	searcher CourseSearcher
}

// NewSearchTool creates a SearchTool over the given searcher.
func NewSearchTool(searcher CourseSearcher) *SearchTool {
	return &SearchTool{searcher: searcher}
}

const searchToolName = "search_course_content"

// Schema implements Tool.
func (t *SearchTool) Schema() ToolSchema {
	return ToolSchema{
		Name:        searchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]interface{}{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]interface{}{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			"required": []string{"query"},
		},
	}
}

type searchToolArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name,omitempty"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
}

// Execute implements Tool. Each match is rendered as a labeled block
// ("[{Course} - Lesson {n}]" header, chunk text below); the source list
// mirrors the blocks in order.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (*ToolResult, error) {
	var in searchToolArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid search arguments: %w", err)
		}
	}

	outcome, err := t.searcher.Search(ctx, SearchInput{
		Query:        in.Query,
		CourseName:   in.CourseName,
		LessonNumber: in.LessonNumber,
	})
	if err != nil {
		return nil, err
	}

	if outcome.NoCourseMatch {
		return &ToolResult{
			Content: fmt.Sprintf("No course found matching '%s'", outcome.RequestedCourse),
		}, nil
	}

	if len(outcome.Matches) == 0 {
		return &ToolResult{Content: emptyResultMessage(outcome, in.LessonNumber)}, nil
	}

	links := make(map[string]*domain.Course)
	blocks := make([]string, 0, len(outcome.Matches))
	sources := make([]domain.Source, 0, len(outcome.Matches))
	for _, m := range outcome.Matches {
		source := domain.Source{
			CourseTitle:  m.CourseTitle,
			LessonNumber: m.LessonNumber,
		}
		source.Link = t.lessonLink(ctx, links, m)
		sources = append(sources, source)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", source.Label(), m.Content))
	}

	return &ToolResult{
		Content: strings.Join(blocks, "\n\n"),
		Sources: sources,
	}, nil
}

// lessonLink resolves the lesson (or course) link for a match, caching
// catalog lookups for the duration of one execution. Link resolution is
// best-effort; a catalog miss just leaves the source unlinked.
func (t *SearchTool) lessonLink(ctx context.Context, cache map[string]*domain.Course, m *ChunkMatch) string {
	course, ok := cache[m.CourseTitle]
	if !ok {
		course, _ = t.searcher.GetCourse(ctx, m.CourseTitle)
		cache[m.CourseTitle] = course
	}
	if course == nil {
		return ""
	}
	if m.LessonNumber != nil {
		for _, l := range course.Lessons {
			if l.Number == *m.LessonNumber {
				return l.Link
			}
		}
	}
	return course.Link
}

func emptyResultMessage(outcome *SearchOutcome, lesson *int) string {
	var scope []string
	if outcome.ResolvedCourse != "" {
		scope = append(scope, fmt.Sprintf("in course '%s'", outcome.ResolvedCourse))
	}
	if lesson != nil {
		scope = append(scope, fmt.Sprintf("in lesson %d", *lesson))
	}
	if len(scope) == 0 {
		return "No relevant content found."
	}
	return fmt.Sprintf("No relevant content found %s.", strings.Join(scope, " "))
}
