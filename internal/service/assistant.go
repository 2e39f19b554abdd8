package service

import (
	"context"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/telemetry"
)

// AnswerOutput is the assistant's reply to one query.
type AnswerOutput struct {
	Answer    string
	Sources   []domain.Source
	SessionID string
}

// CourseStats summarizes the ingested corpus for the analytics endpoint.
type CourseStats struct {
	TotalCourses int
	CourseTitles []string
}

// Assistant is the explicitly constructed facade tying the orchestrator,
// session memory and the index together. One instance is built at startup
// and shared by the API and CLI surfaces.
type Assistant struct {
	generator *Generator
	sessions  *SessionStore
	search    *SearchService
}

// NewAssistant creates a new Assistant instance.
func NewAssistant(generator *Generator, sessions *SessionStore, search *SearchService) *Assistant {
	return &Assistant{
		generator: generator,
		sessions:  sessions,
		search:    search,
	}
}

// Answer resolves one query through the two-call protocol, threading the
// session's history in and recording the completed exchange afterwards. An
// empty sessionID starts a new session whose identifier is returned.
func (a *Assistant) Answer(ctx context.Context, query, sessionID string) (*AnswerOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "Assistant.Answer", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "answer",
	})
	defer span.End()

	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if sessionID == "" {
		sessionID = a.sessions.Create()
	}

	out, err := a.generator.Generate(ctx, GenerateInput{
		Query:   query,
		History: a.sessions.FormatHistory(sessionID),
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	a.sessions.AddExchange(sessionID, query, out.Answer)

	return &AnswerOutput{
		Answer:    out.Answer,
		Sources:   out.Sources,
		SessionID: sessionID,
	}, nil
}

// ClearSession drops a session's conversation history.
func (a *Assistant) ClearSession(sessionID string) error {
	return a.sessions.Clear(sessionID)
}

// Stats returns corpus analytics: course count and registered titles.
func (a *Assistant) Stats(ctx context.Context) (*CourseStats, error) {
	titles, err := a.search.ListCourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	return &CourseStats{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}
