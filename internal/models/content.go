package models

import "time"

// Lesson is teaching material published for a subject.
type Lesson struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	SubjectID   uint      `gorm:"index;not null" json:"subject_id"`
	TeacherID   uint      `gorm:"index;not null" json:"teacher_id"`
	ResourceURL string    `gorm:"size:512" json:"resource_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Subject     Subject   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject,omitempty"`
}

// Exercise is a graded task attached to a lesson.
type Exercise struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LessonID  uint      `gorm:"index;not null" json:"lesson_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	MaxScore  float64   `gorm:"not null;default:100" json:"max_score"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lesson    Lesson    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"lesson,omitempty"`
}

const (
	// ExerciseSubmissionStatusSubmitted indicates an answer awaiting grading.
	ExerciseSubmissionStatusSubmitted = "submitted"
	// ExerciseSubmissionStatusGraded indicates the teacher finalised a score.
	ExerciseSubmissionStatusGraded = "graded"
)

// ExerciseSubmission is a student's answer to an exercise, optionally
// annotated with AI-generated feedback before the teacher grades it.
type ExerciseSubmission struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ExerciseID uint       `gorm:"index;not null" json:"exercise_id"`
	StudentID  uint       `gorm:"index;not null" json:"student_id"`
	Answer     string     `gorm:"type:text" json:"answer"`
	Status     string     `gorm:"size:32;not null;default:submitted" json:"status"`
	Grade      *float64   `json:"grade"`
	Feedback   string     `gorm:"type:text" json:"feedback"`
	AIFeedback string     `gorm:"type:text" json:"ai_feedback"`
	GradedBy   *uint      `json:"graded_by"`
	GradedAt   *time.Time `json:"graded_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Exercise   Exercise   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exercise,omitempty"`
	Student    Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student,omitempty"`
}

// IsGraded reports whether the submission carries a final grade.
func (s ExerciseSubmission) IsGraded() bool {
	return s.Status == ExerciseSubmissionStatusGraded
}
