package execx

import (
	"context"
	"errors"
	"testing"
)

func TestOSRunner_MissingToolIsToolAbsent(t *testing.T) {
	t.Parallel()

	r := NewOSRunner()
	_, err := r.Output(context.Background(), "wanhealth-definitely-missing-tool")
	if !errors.Is(err, ErrToolAbsent) {
		t.Fatalf("err=%v", err)
	}
}

func TestOSRunner_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewOSRunner()
	if _, err := r.Output(ctx, "sh", "-c", "sleep 5"); err == nil {
		t.Fatalf("expected error")
	}
}
