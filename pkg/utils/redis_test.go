package utils

import (
	"context"
	"testing"
	"time"
)

func TestDialCapScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if dialCapAcquireScript == nil || dialCapReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestAcquireDialCap_ValidatesArguments(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireDialCap(ctx, nil, "dialcap:org", 5, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := ReleaseDialCap(ctx, nil, "dialcap:org"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
