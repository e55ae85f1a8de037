package testutil

import (
	"testing"
	"time"
)

// WaitTimeout bounds every helper in this file.
const WaitTimeout = 2 * time.Second

// Recv receives one value from ch or fails the test after WaitTimeout.
func Recv[T any](t testing.TB, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(WaitTimeout):
		t.Fatalf("no value received within %s", WaitTimeout)
		var zero T
		return zero
	}
}

// NoRecv fails the test if ch yields a value within d.
func NoRecv[T any](t testing.TB, ch <-chan T, d time.Duration) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value received: %v", v)
	case <-time.After(d):
	}
}
