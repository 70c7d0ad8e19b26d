// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"testing"
)

func TestEnsureImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		engine    *mockEngine
		policy    PullPolicy
		wantPulls int
		wantErr   error
	}{
		{"present with missing policy", &mockEngine{exists: true}, PullMissing, 0, nil},
		{"absent with missing policy", &mockEngine{}, PullMissing, 1, nil},
		{"default policy is missing", &mockEngine{exists: true}, "", 0, nil},
		{"always pulls", &mockEngine{exists: true}, PullAlways, 1, nil},
		{"never with present image", &mockEngine{exists: true}, PullNever, 0, nil},
		{"never with absent image", &mockEngine{}, PullNever, 0, ErrImageNotPresent},
		{"invalid policy", &mockEngine{}, PullPolicy("sometimes"), 0, ErrInvalidPullPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := EnsureImage(context.Background(), tt.engine, "example/image:1", tt.policy, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("EnsureImage() = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("EnsureImage() unexpected error: %v", err)
			}
			if tt.engine.pulls != tt.wantPulls {
				t.Errorf("pulls = %d, want %d", tt.engine.pulls, tt.wantPulls)
			}
		})
	}
}

func TestEnsureImage_InspectError(t *testing.T) {
	t.Parallel()
	inspectErr := errors.New("daemon exploded")
	engine := &mockEngine{existsErr: inspectErr}

	err := EnsureImage(context.Background(), engine, "example/image:1", PullMissing, nil)
	if !errors.Is(err, inspectErr) {
		t.Fatalf("EnsureImage() = %v, want %v", err, inspectErr)
	}
	if engine.pulls != 0 {
		t.Errorf("pulls = %d, want 0", engine.pulls)
	}
}

func TestEnsureImage_PermanentPullErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	denied := errors.New("pull access denied for example/image")
	engine := &mockEngine{pullErrs: []error{denied}}

	err := EnsureImage(context.Background(), engine, "example/image:1", PullAlways, nil)
	if !errors.Is(err, denied) {
		t.Fatalf("EnsureImage() = %v, want %v", err, denied)
	}
	if engine.pulls != 1 {
		t.Errorf("pulls = %d, want 1", engine.pulls)
	}
}

func TestEnsureImage_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	engine := &mockEngine{pullErrs: []error{errors.New("dial tcp: i/o timeout")}}
	cancel()

	// The first attempt runs; the backoff before the second sees the cancellation.
	err := EnsureImage(ctx, engine, "example/image:1", PullAlways, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("EnsureImage() = %v, want context.Canceled", err)
	}
	if engine.pulls != 1 {
		t.Errorf("pulls = %d, want 1", engine.pulls)
	}
}
