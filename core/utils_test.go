package core

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		fallback string
		want     string
	}{
		{name: "simple name", in: "Jane Doe", fallback: "user", want: "jane-doe"},
		{name: "punctuation and double spaces", in: "Jane  O'Brien!!", fallback: "user", want: "jane-o-brien"},
		{name: "already a slug", in: "jane-doe", fallback: "user", want: "jane-doe"},
		{name: "leading and trailing junk", in: "  --Jane-- ", fallback: "user", want: "jane"},
		{name: "email shape", in: "jane.doe-at-example.com", fallback: "user", want: "jane-doe-at-example-com"},
		{name: "nothing survives", in: "!!!", fallback: "user", want: "user"},
		{name: "empty", in: "", fallback: "student", want: "student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in, tt.fallback); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	first := Slugify("Jane  O'Brien!!", "user")
	if second := Slugify(first, "user"); second != first {
		t.Errorf("Slugify() not idempotent: %q -> %q", first, second)
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  Hello "); got != "Hello" {
		t.Errorf("CleanString() = %q, want %q", got, "Hello")
	}
	if got := CleanString("  HeLLo ", true); got != "hello" {
		t.Errorf("CleanString(lower) = %q, want %q", got, "hello")
	}
}

func TestEmailLocalPart(t *testing.T) {
	if got := EmailLocalPart("jane.doe@example.com"); got != "jane.doe" {
		t.Errorf("EmailLocalPart() = %q, want %q", got, "jane.doe")
	}
	if got := EmailLocalPart("no-at-sign"); got != "no-at-sign" {
		t.Errorf("EmailLocalPart() = %q, want %q", got, "no-at-sign")
	}
}
