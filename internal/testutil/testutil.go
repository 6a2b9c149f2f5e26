// Package testutil provides shared test utilities and fixtures.
//
// The session and simulator run background goroutines, so most helpers
// here poll for a condition instead of asserting it once.
package testutil

import (
	"testing"
	"time"
)

// PollInterval is how often Eventually re-checks its condition.
const PollInterval = 5 * time.Millisecond

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Eventually polls cond until it returns true or timeout elapses, then
// fails the test with msg.
func Eventually(t testing.TB, timeout time.Duration, cond func() bool, msg string, args ...any) {
	t.Helper()
	if !WaitFor(timeout, cond) {
		t.Fatalf("condition not met within %v: "+msg, append([]any{timeout}, args...)...)
	}
}

// WaitFor polls cond until it returns true or timeout elapses and reports
// whether it was met.
func WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(PollInterval)
	}
}
