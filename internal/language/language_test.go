package language

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"es", "es", false},
		{"ES", "es", false},
		{" fr ", "fr", false},
		{"pt-br", "pt-BR", false},
		{"pt_BR", "pt-BR", false},
		{"zh-Hant", "zh-Hant", false},
		{"", "", true},
		{"und", "", true},
		{"not a tag", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTag) {
					t.Fatalf("Normalize(%q) error = %v, want ErrInvalidTag", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Normalize(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal("ES", "es") {
		t.Fatal("expected case-insensitive match")
	}
	if Equal("es", "fr") {
		t.Fatal("expected different tags to differ")
	}
	if !Equal("pt_br", "pt-BR") {
		t.Fatal("expected separator variants to match")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en", "English"},
		{"es", "Spanish"},
		{"FR", "French"},
		{"de", "German"},
		{"", "Unknown"},
		{"###", "###"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if !Valid("ja") || Valid("") || Valid("12") {
		t.Fatal("unexpected Valid results")
	}
}
