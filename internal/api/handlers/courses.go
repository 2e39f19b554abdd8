package handlers

import (
	"context"
	"net/http"

	"github.com/lectern-ai/lectern/internal/api"
	"github.com/lectern-ai/lectern/internal/service"
)

type StatsService interface {
	Stats(ctx context.Context) (*service.CourseStats, error)
}

type CoursesHandler struct {
	svc StatsService
}

func NewCoursesHandler(svc StatsService) *CoursesHandler {
	return &CoursesHandler{svc: svc}
}

type CoursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Stats handles GET /api/courses.
func (h *CoursesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	titles := stats.CourseTitles
	if titles == nil {
		titles = []string{}
	}
	api.Success(w, http.StatusOK, &CoursesResponse{
		TotalCourses: stats.TotalCourses,
		CourseTitles: titles,
	})
}
