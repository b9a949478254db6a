package repository

import (
	"context"
	"database/sql"

	"github.com/fatimazahra-12/school-manage/internal/model"
)

// GradeRepo persists student grades.
type GradeRepo struct{ DB *sql.DB }

func NewGradeRepo(db *sql.DB) *GradeRepo { return &GradeRepo{DB: db} }

// Create inserts a grade row and returns its id.
func (r *GradeRepo) Create(ctx context.Context, studentID, courseID uint64, score float64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO grades (student_id, course_id, score) VALUES (?,?,?)",
		studentID, courseID, score)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByStudent returns a student's grades.
func (r *GradeRepo) ListByStudent(ctx context.Context, studentID uint64) ([]model.Grade, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,student_id,course_id,score,created_at,updated_at FROM grades WHERE student_id=? ORDER BY id",
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrades(rows)
}

// ListByCourse returns every grade recorded for a course.
func (r *GradeRepo) ListByCourse(ctx context.Context, courseID uint64) ([]model.Grade, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,student_id,course_id,score,created_at,updated_at FROM grades WHERE course_id=? ORDER BY id",
		courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrades(rows)
}

// UpdateScore overwrites a grade's score; reports whether the row existed.
func (r *GradeRepo) UpdateScore(ctx context.Context, id uint64, score float64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "UPDATE grades SET score=? WHERE id=?", score, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a grade; reports whether a row was deleted.
func (r *GradeRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM grades WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func collectGrades(rows *sql.Rows) ([]model.Grade, error) {
	var out []model.Grade
	for rows.Next() {
		var g model.Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.CourseID, &g.Score, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
