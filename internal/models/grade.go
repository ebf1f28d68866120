package models

import (
	"time"

	"github.com/noah-isme/classroom-api/pkg/apper"
)

// GradeCategory classifies an assessment.
type GradeCategory string

const (
	GradeCategoryHomework      GradeCategory = "Homework"
	GradeCategoryQuiz          GradeCategory = "Quiz"
	GradeCategoryTest          GradeCategory = "Test"
	GradeCategoryProject       GradeCategory = "Project"
	GradeCategoryLab           GradeCategory = "Lab"
	GradeCategoryEssay         GradeCategory = "Essay"
	GradeCategoryParticipation GradeCategory = "Participation"
)

// GradeCategories lists the supported categories in display order.
var GradeCategories = []GradeCategory{
	GradeCategoryHomework,
	GradeCategoryQuiz,
	GradeCategoryTest,
	GradeCategoryProject,
	GradeCategoryLab,
	GradeCategoryEssay,
	GradeCategoryParticipation,
}

// Valid returns true when the category is a supported value.
func (c GradeCategory) Valid() bool {
	for _, known := range GradeCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Grade is one scored assessment for one student. Percentage and
// LetterGrade are always derived from Score and MaxScore.
type Grade struct {
	ID             int64         `store:"Id" json:"id"`
	Name           string        `store:"Name" json:"name,omitempty"`
	Tags           []string      `store:"Tags" json:"tags,omitempty"`
	StudentID      int64         `store:"student_id_c" json:"student_id"`
	AssignmentName string        `store:"assignment_name_c" json:"assignment_name"`
	Category       GradeCategory `store:"category_c" json:"category"`
	Score          float64       `store:"score_c" json:"score"`
	MaxScore       float64       `store:"max_score_c" json:"max_score"`
	Percentage     int           `store:"percentage_c" json:"percentage"`
	LetterGrade    string        `store:"letter_grade_c" json:"letter_grade"`
	Notes          string        `store:"notes_c" json:"notes,omitempty"`
	Date           Date          `store:"date_c" json:"date"`
	Owner          *apper.Lookup `store:"Owner" json:"owner,omitempty"`
	CreatedOn      *time.Time    `store:"CreatedOn" json:"created_on,omitempty"`
	ModifiedOn     *time.Time    `store:"ModifiedOn" json:"modified_on,omitempty"`
}

// GradeFilter narrows grade listings.
type GradeFilter struct {
	StudentID int64
	Category  GradeCategory
}
