package portal

import (
	"fmt"
	"strings"
)

// ValidateQuestion checks one question: text, four non-blank options, answer index 0-3.
func ValidateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text required", ErrInvalidQuestion)
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w: option %d is blank", ErrInvalidQuestion, i+1)
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= OptionsPerQuestion {
		return fmt.Errorf("%w: correctAnswer %d out of range", ErrInvalidQuestion, q.CorrectAnswer)
	}
	return nil
}

// ValidateSubject enforces the fully-authored invariant.
func ValidateSubject(s Subject) error {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Code) == "" {
		return fmt.Errorf("%w: name and code required", ErrInvalidSubject)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidSubject)
	}
	if len(s.Questions) != QuestionsPerSubject {
		return fmt.Errorf("%w (got %d)", ErrQuestionCount, len(s.Questions))
	}
	for i, q := range s.Questions {
		if err := ValidateQuestion(q); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

func validateStudent(s Student) error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: name required", ErrInvalidStudent)
	case strings.TrimSpace(s.RollNumber) == "":
		return fmt.Errorf("%w: rollNumber required", ErrInvalidStudent)
	case strings.TrimSpace(s.DOB) == "":
		return fmt.Errorf("%w: dob required", ErrInvalidStudent)
	}
	return nil
}

func validateAttempt(a ExamAttempt) error {
	if a.StudentRoll == "" || a.SubjectCode == "" {
		return fmt.Errorf("%w: studentRoll and subjectCode required", ErrInvalidAttempt)
	}
	for i, v := range a.Answers {
		if v != nil && (*v < 0 || *v >= OptionsPerQuestion) {
			return fmt.Errorf("%w: answer %d out of range", ErrInvalidAttempt, i+1)
		}
	}
	return nil
}
