// Package task loads grading tasks authored as YAML files.
package task

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Mirai3103/remote-grader/internal/models"
)

type TestCase struct {
	Code string `yaml:"code"`
}

// Task is one exercise: a statement, starter code and the hidden tests.
type Task struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	StarterCode string     `yaml:"starter_code"`
	TestCases   []TestCase `yaml:"test_cases"`
}

// Sanitize returns a copy safe to show to learners.
func (t Task) Sanitize() Task {
	return Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		StarterCode: t.StarterCode,
	}
}

// Submission pairs the task's tests with a learner's code under a fresh id.
func (t Task) Submission(code string) models.Submission {
	sub := models.Submission{
		ID:   uuid.NewString(),
		Code: code,
	}
	for _, tc := range t.TestCases {
		sub.Tests = append(sub.Tests, models.TestCase{Code: tc.Code})
	}
	return sub
}

// Load decodes a task with unknown-field rejection.
func Load(r io.Reader) (*Task, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var t Task
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("task file is empty")
		}
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if len(t.TestCases) == 0 {
		return nil, fmt.Errorf("task %q has no test cases", t.ID)
	}
	return &t, nil
}

func LoadFile(path string) (*Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
