package dto

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/students-api/internal/models"
	"github.com/noah-isme/students-api/internal/validation"
)

// CourseValue keeps the course exactly as sent so that integer parsing happens during validation.
// JSON numbers and strings are accepted; any other JSON type makes the body malformed.
type CourseValue string

// UnmarshalJSON implements json.Unmarshaler.
func (c *CourseValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*c = ""
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = CourseValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("course must be a number or a string: %w", err)
		}
		*c = CourseValue(n.String())
	}
	return nil
}

// StudentRequest is the body accepted by the create and update endpoints.
type StudentRequest struct {
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	BirthDate string      `json:"birth_date"`
	Course    CourseValue `json:"course"`
	IsErasmus bool        `json:"is_erasmus"`
}

// Input converts the request into the shape checked by the validator.
func (r StudentRequest) Input() validation.StudentInput {
	return validation.StudentInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		BirthDate: r.BirthDate,
		Course:    string(r.Course),
		IsErasmus: r.IsErasmus,
	}
}

// Model converts a validated request into a persistable student.
func (r StudentRequest) Model() (models.Student, error) {
	birthDate, err := validation.ParseDate(r.BirthDate)
	if err != nil {
		return models.Student{}, err
	}

	course, err := validation.ParseCourse(string(r.Course))
	if err != nil {
		return models.Student{}, err
	}

	return models.Student{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		BirthDate: birthDate,
		Course:    course,
		IsErasmus: r.IsErasmus,
	}, nil
}

// StudentResponse is the JSON representation of a stored student row.
type StudentResponse struct {
	ID        uint   `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Course    int    `json:"course"`
	IsErasmus bool   `json:"is_erasmus"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:        student.ID,
		FirstName: student.FirstName,
		LastName:  student.LastName,
		BirthDate: validation.FormatDate(student.BirthDate),
		Course:    student.Course,
		IsErasmus: student.IsErasmus,
	}
}

// NewStudentResponseSlice converts a list of models, never returning nil.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}
	return responses
}
