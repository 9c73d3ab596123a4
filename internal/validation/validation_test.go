package validation

import (
	"errors"
	"strings"
	"testing"
)

type entry struct {
	Name  string  `json:"name" validate:"required"`
	Total float64 `json:"total" validate:"gte=0"`
}

type payload struct {
	Items []entry `json:"items" validate:"dive"`
	Kind  string  `json:"kind" validate:"omitempty,oneof=expense investment"`
}

func TestStruct(t *testing.T) {
	if err := Struct(payload{Items: []entry{{"a", 0}, {"b", 2}}, Kind: "expense"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Struct(payload{Items: []entry{{"", 1}, {"b", -1}}, Kind: "gift"})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("fields = %v", verr.Fields)
	}
	msg := err.Error()
	for _, want := range []string{
		"field items[0].name is a required field",
		"field items[1].total must be at least 0",
		"field kind must be one of [expense investment]",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
