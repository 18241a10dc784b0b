package core

import (
	"testing"
)

// Event constructor & helper method tests
func TestEvent_Constructors(t *testing.T) {
	e := NewEvent("QuestionEvent", "cli")
	if e.Type != "QuestionEvent" || e.Source != "cli" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}
	if e.CorrelationID != "" {
		t.Fatalf("NewEvent must leave correlation id unset: %+v", e)
	}

	d := NewDataEvent("AnswerEvent", "worker", map[string]any{"answer": "42"})
	if d.DataString("answer") != "42" {
		t.Fatalf("NewDataEvent payload not retained: %+v", d)
	}

	term := NewTerminateEvent("supervisor")
	if term.Type != EventTypeTerminate {
		t.Fatalf("NewTerminateEvent malformed: %+v", term)
	}
}

func TestEvent_DerivePropagatesCorrelation(t *testing.T) {
	parent := NewEvent("QuestionEvent", "cli")
	parent.CorrelationID = "c1"

	child := parent.Derive("AnswerEvent", "worker")
	if child.CorrelationID != "c1" {
		t.Errorf("Derive must propagate the correlation id, got %q", child.CorrelationID)
	}
	if child.ID == parent.ID {
		t.Error("Derived event must get a fresh event ID")
	}
	if child.Type != "AnswerEvent" || child.Source != "worker" {
		t.Errorf("Derive did not set type/source: %+v", child)
	}
}

func TestEvent_WithDataCopies(t *testing.T) {
	e := NewDataEvent("E", "src", map[string]any{"a": 1})
	e2 := e.WithData("b", 2)

	if _, ok := e.Data["b"]; ok {
		t.Error("WithData must not mutate the original payload")
	}
	if e2.DataString("a") != "1" || e2.DataString("b") != "2" {
		t.Errorf("WithData lost payload entries: %+v", e2.Data)
	}
}

func TestEvent_DataStringMissingKey(t *testing.T) {
	e := NewEvent("E", "src")
	if got := e.DataString("missing"); got != "" {
		t.Errorf("Expected empty string for missing key, got %q", got)
	}
}

func TestEvent_IDUniqueness(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Error("Expected unique IDs")
	}
}
