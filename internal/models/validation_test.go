package models

import (
	"errors"
	"testing"
)

func TestValidationErrorsIs(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Add("title", ErrTaskTitleRequired)

	err := validation.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrTaskTitleRequired) {
		t.Fatalf("expected errors.Is to match ErrTaskTitleRequired, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is to match ErrValidation, got %v", err)
	}
}

func TestValidationErrorsNestedFields(t *testing.T) {
	nested := &ValidationErrors{}
	nested.AddMessage("address", "address is required")

	validation := &ValidationErrors{}
	validation.Add("location", nested)

	err := validation.Err()
	if err == nil {
		t.Fatal("expected error")
	}

	list, ok := err.(*ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors type, got %T", err)
	}
	if len(list.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(list.Errors))
	}
	if list.Errors[0].Field != "location.address" {
		t.Fatalf("expected field location.address, got %q", list.Errors[0].Field)
	}
}

func TestValidationErrorsRequire(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Require("title", "  ", ErrTaskTitleRequired)
	validation.Require("description", "count aisle 4", ErrTaskDescRequired)

	if got := validation.Fields(); len(got) != 1 || got[0] != "title" {
		t.Fatalf("expected only title to fail, got %v", got)
	}
}

func TestValidationErrorsRange(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Range("lat", 40.7, -90, 90)
	validation.Range("lng", 181, -180, 180)

	if got := validation.Fields(); len(got) != 1 || got[0] != "lng" {
		t.Fatalf("expected only lng to fail, got %v", got)
	}
	if msg := validation.Error(); msg != "lng: must be between -180 and 180, got 181" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestValidationErrorsEmptyIsNil(t *testing.T) {
	validation := &ValidationErrors{}
	if err := validation.Err(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
