package errors

import (
	"math"
	"strings"
	"testing"
)

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "Chicago", false},
		{"with spaces", "New York skyline", false},
		{"unicode", "São Paulo", false},

		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too long", strings.Repeat("a", 201), true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"svg", "master.svg", false},
		{"dashes", "city-skyline_v2.svg", false},

		{"empty", "", true},
		{"path", "dir/master.svg", true},
		{"windows path", "dir\\master.svg", true},
		{"traversal", "..svg", true},
		{"hidden", ".master.svg", true},
		{"null byte", "a\x00.svg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidFilename) {
				t.Errorf("ValidateFilename(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidFilename)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("6f1c2b8e-3a4d-4c5e-9f60-7a8b9c0d1e2f"); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
	for _, bad := range []string{"", "project-1", "6f1c2b8e"} {
		if err := ValidateID(bad); !Is(err, ErrCodeInvalidID) {
			t.Errorf("ValidateID(%q) = %v, want %s", bad, err, ErrCodeInvalidID)
		}
	}
}

func TestValidatePercent(t *testing.T) {
	tests := []struct {
		p       float64
		wantErr bool
	}{
		{0, false},
		{50, false},
		{200, false},
		{MaxPercent, false},
		{-1, true},
		{MaxPercent + 1, true},
		{math.NaN(), true},
		{math.Inf(1), true},
	}

	for _, tt := range tests {
		err := ValidatePercent(tt.p)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePercent(%v) error = %v, wantErr %v", tt.p, err, tt.wantErr)
		}
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeParseFailure, ErrCodeNoBuildings, ErrCodeIndeterminateShape, ErrCodeDegenerateCanvas,
		ErrCodeInvalidInput, ErrCodeInvalidPercent, ErrCodeInvalidFilename, ErrCodeInvalidID, ErrCodeTooLarge,
		ErrCodeNotFound, ErrCodeProjectNotFound, ErrCodeMissingMaster,
		ErrCodeStorage, ErrCodeCache, ErrCodeInternal,
	}
	seen := make(map[Code]bool)
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate error code %q", c)
		}
		seen[c] = true
	}
}
