//go:build !windows

package restoretask

import (
	"context"
	"testing"
)

func TestNoopRegistrarNeverErrors(t *testing.T) {
	r := NewNoopRegistrar()
	if err := r.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := r.Delete(context.Background()); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
