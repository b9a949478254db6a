package repository

import (
	"context"
	"database/sql"

	"github.com/fatimazahra-12/school-manage/internal/model"
)

// CourseRepo persists the course catalogue.
type CourseRepo struct{ DB *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{DB: db} }

// Create inserts a course and returns its id.
func (r *CourseRepo) Create(ctx context.Context, title string, teacherID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO courses (title, teacher_id) VALUES (?,?)", title, teacherID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns all courses ordered by id.
func (r *CourseRepo) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,title,teacher_id,created_at,updated_at FROM courses ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches one course.
func (r *CourseRepo) GetByID(ctx context.Context, id uint64) (model.Course, error) {
	var c model.Course
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,title,teacher_id,created_at,updated_at FROM courses WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Title, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Update overwrites title and teacher; reports whether the row existed.
func (r *CourseRepo) Update(ctx context.Context, id uint64, title string, teacherID uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE courses SET title=?, teacher_id=? WHERE id=?", title, teacherID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a course; reports whether a row was deleted.
func (r *CourseRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM courses WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
