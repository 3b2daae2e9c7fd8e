package handlers

import (
	"errors"
	"testing"

	"garage-backend/internal/models"
)

func TestRetryOnceRetriesTransientErrors(t *testing.T) {
	calls := 0
	out, err := retryOnce(func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})
	if err != nil || out != 42 {
		t.Fatalf("got %d, %v", out, err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetryOnceDoesNotRetryDomainErrors(t *testing.T) {
	calls := 0
	_, err := retryOnce(func() (int, error) {
		calls++
		return 0, models.Errorf(models.ErrInvalidTransition, "no going back")
	})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryOnceGivesUpAfterSecondFailure(t *testing.T) {
	calls := 0
	_, err := retryOnce(func() (int, error) {
		calls++
		return 0, errors.New("still down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}
