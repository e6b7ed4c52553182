package metadata

import (
	"errors"
	"testing"
)

func TestUpdateAndSingleValue(t *testing.T) {
	m := New()
	Update(m, TagControlAeMode, AeModeOn)
	Update(m, TagSensorTimestamp, int64(123456789))
	Update(m, TagSensorInfoPhysicalSize, float32(3.674), float32(2.760))

	mode, err := SingleValue[uint8](m, TagControlAeMode)
	if err != nil {
		t.Fatalf("SingleValue(AeMode) = %v, want nil", err)
	}
	if mode != AeModeOn {
		t.Errorf("AeMode = %d, want %d", mode, AeModeOn)
	}

	ts, err := SingleValue[int64](m, TagSensorTimestamp)
	if err != nil {
		t.Fatalf("SingleValue(SensorTimestamp) = %v, want nil", err)
	}
	if ts != 123456789 {
		t.Errorf("timestamp = %d, want 123456789", ts)
	}

	if _, err := SingleValue[uint8](m, TagControlAfMode); !errors.Is(err, ErrTagNotFound) {
		t.Errorf("missing tag error = %v, want ErrTagNotFound", err)
	}
	if _, err := SingleValue[float32](m, TagSensorInfoPhysicalSize); !errors.Is(err, ErrWrongCount) {
		t.Errorf("multi-value tag error = %v, want ErrWrongCount", err)
	}
	if _, err := SingleValue[int32](m, TagControlAeMode); !errors.Is(err, ErrWrongType) {
		t.Errorf("type mismatch error = %v, want ErrWrongType", err)
	}

	size, err := ArrayValue[float32](m, TagSensorInfoPhysicalSize, 2)
	if err != nil {
		t.Fatalf("ArrayValue(PhysicalSize) = %v, want nil", err)
	}
	if size[0] != 3.674 || size[1] != 2.760 {
		t.Errorf("physical size = %v, want [3.674 2.760]", size)
	}
}

func TestUpdateReplacesEntry(t *testing.T) {
	m := New()
	Update(m, TagControlAeMode, AeModeOff)
	Update(m, TagControlAeMode, AeModeOn)

	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (a tag appears at most once)", m.Count())
	}
	mode, err := SingleValue[uint8](m, TagControlAeMode)
	if err != nil {
		t.Fatalf("SingleValue() = %v, want nil", err)
	}
	if mode != AeModeOn {
		t.Errorf("AeMode = %d, want the replacing value %d", mode, AeModeOn)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New()
	Update(m, TagControlAeMode, AeModeOn)

	clone := m.Clone()
	Update(m, TagControlAeMode, AeModeOff)
	Update(m, TagControlAfMode, AfModeOff)

	mode, err := SingleValue[uint8](clone, TagControlAeMode)
	if err != nil {
		t.Fatalf("SingleValue() on clone = %v, want nil", err)
	}
	if mode != AeModeOn {
		t.Errorf("clone AeMode = %d, want original value %d", mode, AeModeOn)
	}
	if clone.Contains(TagControlAfMode) {
		t.Error("clone picked up an entry added after cloning")
	}
}

func TestEmptyBlock(t *testing.T) {
	var nilBlock *Metadata
	if !nilBlock.IsEmpty() {
		t.Error("nil block should be empty")
	}
	if New().Count() != 0 {
		t.Error("fresh block should have no entries")
	}
}
