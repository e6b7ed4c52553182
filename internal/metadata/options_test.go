package metadata

import (
	"errors"
	"testing"
)

// Every template id must get a default drawn from the option set.
func TestMenuControlOptionsDefaultPerTemplate(t *testing.T) {
	options := NewMenuControlOptions([]int32{1, 10, 19, 30})

	for templateID := TemplatePreview; templateID < TemplateCount; templateID++ {
		value, err := options.DefaultValueForTemplate(templateID)
		if err != nil {
			t.Fatalf("DefaultValueForTemplate(%d) = %v, want nil", templateID, err)
		}
		if !options.IsSupported(value) {
			t.Errorf("template %d default %d is not in the option set", templateID, value)
		}
	}
}

func TestMenuControlOptionsEmpty(t *testing.T) {
	options := NewMenuControlOptions([]int32{})

	for templateID := TemplatePreview; templateID < TemplateCount; templateID++ {
		if _, err := options.DefaultValueForTemplate(templateID); !errors.Is(err, ErrNoOptions) {
			t.Errorf("DefaultValueForTemplate(%d) with empty options = %v, want ErrNoOptions",
				templateID, err)
		}
	}
}

func TestMenuControlOptionsIsSupported(t *testing.T) {
	options := NewMenuControlOptions([]uint8{AberrationModeFast, AberrationModeHighQuality})

	tests := []struct {
		value uint8
		want  bool
	}{
		{AberrationModeFast, true},
		{AberrationModeHighQuality, true},
		{AberrationModeOff, false},
		{99, false},
	}
	for _, tt := range tests {
		if got := options.IsSupported(tt.value); got != tt.want {
			t.Errorf("IsSupported(%d) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestMenuControlOptionsRepresentation(t *testing.T) {
	values := []uint8{1, 2, 3}
	options := NewMenuControlOptions(values)

	representation := options.MetadataRepresentation()
	if len(representation) != len(values) {
		t.Fatalf("representation has %d values, want %d", len(representation), len(values))
	}
	for i, v := range values {
		if representation[i] != v {
			t.Errorf("representation[%d] = %d, want %d", i, representation[i], v)
		}
	}
}
