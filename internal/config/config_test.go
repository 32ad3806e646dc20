package config

import "testing"

func TestDeviceName(t *testing.T) {
	t.Setenv("BONES_DEVICE_NAME", "")
	if got := DeviceName(); got != DefaultDeviceName {
		t.Fatalf("DeviceName = %q, want %q", got, DefaultDeviceName)
	}

	t.Setenv("BONES_DEVICE_NAME", "TestSkull")
	if got := DeviceName(); got != "TestSkull" {
		t.Fatalf("DeviceName = %q, want TestSkull", got)
	}
}
