package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fatimazahra-12/school-manage/internal/repository"
)

type GradeHandler struct {
	Grades *repository.GradeRepo
}

func NewGradeHandler(grades *repository.GradeRepo) *GradeHandler {
	return &GradeHandler{Grades: grades}
}

type gradeReq struct {
	StudentID uint64  `json:"student_id"`
	CourseID  uint64  `json:"course_id"`
	Score     float64 `json:"score"`
}

func (h *GradeHandler) Create(c echo.Context) error {
	var req gradeReq
	if err := c.Bind(&req); err != nil || req.StudentID == 0 || req.CourseID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "student_id and course_id required"})
	}
	if req.Score < 0 || req.Score > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "score must be between 0 and 100"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Grades.Create(ctx, req.StudentID, req.CourseID, req.Score)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "create grade failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *GradeHandler) ListByStudent(c echo.Context) error {
	studentID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid student id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	grades, err := h.Grades.ListByStudent(ctx, studentID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "list grades failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"grades": grades})
}

func (h *GradeHandler) ListByCourse(c echo.Context) error {
	courseID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid course id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	grades, err := h.Grades.ListByCourse(ctx, courseID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "list grades failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"grades": grades})
}

func (h *GradeHandler) UpdateScore(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid grade id"})
	}
	var req gradeReq
	if err := c.Bind(&req); err != nil || req.Score < 0 || req.Score > 100 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "score must be between 0 and 100"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Grades.UpdateScore(ctx, id, req.Score)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "update failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "grade not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "grade updated"})
}

func (h *GradeHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": "invalid grade id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Grades.Delete(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "delete failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "grade not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "grade deleted"})
}
