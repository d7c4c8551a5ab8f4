package logger

import "testing"

func TestGetInitializesLazily(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() returned nil")
	}
	if With("component", "test") == nil {
		t.Fatal("With() returned nil")
	}
	Sync()
}
