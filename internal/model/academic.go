package model

import "time"

// Course is a taught unit owned by a teacher account. It is the
// representative CRUD entity sitting behind the auth and permission gates.
type Course struct {
	ID        uint64    // courses.id
	Title     string    // courses.title
	TeacherID uint64    // courses.teacher_id (references accounts.id)
	CreatedAt time.Time // courses.created_at
	UpdatedAt time.Time // courses.updated_at
}

// Grade records a student's score for a course.
type Grade struct {
	ID        uint64    // grades.id
	StudentID uint64    // grades.student_id (references accounts.id)
	CourseID  uint64    // grades.course_id (references courses.id)
	Score     float64   // grades.score (0..100)
	CreatedAt time.Time // grades.created_at
	UpdatedAt time.Time // grades.updated_at
}
