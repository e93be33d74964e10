package task

import (
	"path/filepath"
	"strings"
	"testing"
)

const helloTask = `
id: "1"
title: Hello
description: Write hello() returning 'Hello World'
starter_code: |
  def hello():
      return ''
test_cases:
  - code: assert.eq(hello(), 'Hello World', 'Should be Hello World')
  - code: assert.true(len(hello()) > 0)
`

func TestLoad(t *testing.T) {
	task, err := Load(strings.NewReader(helloTask))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if task.ID != "1" || task.Title != "Hello" || len(task.TestCases) != 2 {
		t.Errorf("unexpected task %+v", task)
	}
	if !strings.HasPrefix(task.StarterCode, "def hello():") {
		t.Errorf("starter code = %q", task.StarterCode)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(helloTask + "\nsolution: cheat\n"))
	if err == nil {
		t.Error("expected unknown field rejection")
	}
}

func TestLoadRejectsEmpty(t *testing.T) {
	if _, err := Load(strings.NewReader("")); err == nil {
		t.Error("expected error for empty file")
	}
	if _, err := Load(strings.NewReader("id: x\n")); err == nil {
		t.Error("expected error for a task without tests")
	}
}

func TestSanitizeDropsTests(t *testing.T) {
	task, err := Load(strings.NewReader(helloTask))
	if err != nil {
		t.Fatal(err)
	}
	clean := task.Sanitize()
	if clean.TestCases != nil || clean.Title != task.Title {
		t.Errorf("unexpected sanitized task %+v", clean)
	}
}

func TestSubmission(t *testing.T) {
	task, err := Load(strings.NewReader(helloTask))
	if err != nil {
		t.Fatal(err)
	}
	a := task.Submission("def hello():\n    return 'Hello World'\n")
	b := task.Submission("")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if len(a.Tests) != 2 || a.Tests[0].Code != task.TestCases[0].Code {
		t.Errorf("tests = %+v", a.Tests)
	}
}

func TestLoadFileTestdata(t *testing.T) {
	task, err := LoadFile(filepath.Join("..", "..", "testdata", "tasks", "hello.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(task.TestCases) == 0 {
		t.Error("expected test cases")
	}
}
