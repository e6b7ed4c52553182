package gralloc

import "testing"

func TestLockUnlockCycle(t *testing.T) {
	helper := New()
	handle := NewHandle(1, 640, 480, 0, 640*480*2)

	ptr, length, err := helper.Lock(handle, 1280)
	if err != nil {
		t.Fatalf("Lock() = %v, want nil", err)
	}
	if length != uint32(640*480*2) {
		t.Errorf("length = %d, want %d", length, 640*480*2)
	}
	if helper.LockedCount() != 1 {
		t.Errorf("LockedCount() = %d, want 1", helper.LockedCount())
	}

	if _, _, err := helper.Lock(handle, 1280); err == nil {
		t.Error("double Lock() = nil, want error")
	}

	if err := helper.Unlock(ptr); err != nil {
		t.Fatalf("Unlock() = %v, want nil", err)
	}
	if err := helper.Unlock(ptr); err == nil {
		t.Error("double Unlock() = nil, want error")
	}
}

func TestLockRejectsUndersizedBuffers(t *testing.T) {
	helper := New()
	handle := NewHandle(2, 640, 480, 0, 16)

	if _, _, err := helper.Lock(handle, 1280); err == nil {
		t.Error("Lock() on undersized buffer = nil, want error")
	}
}

func TestUnlockAll(t *testing.T) {
	helper := New()
	for i := int64(0); i < 3; i++ {
		handle := NewHandle(i, 320, 240, 0, 320*240*2)
		if _, _, err := helper.Lock(handle, 640); err != nil {
			t.Fatalf("Lock(%d) = %v, want nil", i, err)
		}
	}

	if err := helper.UnlockAll(); err != nil {
		t.Fatalf("UnlockAll() = %v, want nil", err)
	}
	if helper.LockedCount() != 0 {
		t.Errorf("LockedCount() after UnlockAll = %d, want 0", helper.LockedCount())
	}
}
