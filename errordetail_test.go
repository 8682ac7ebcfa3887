package connectrt

import "testing"

func TestErrorInfoDetailRoundTrips(t *testing.T) {
	detail, err := NewErrorInfoDetail("QUOTA_EXCEEDED", "connectrt.example", map[string]string{"limit": "100"})
	if err != nil {
		t.Fatalf("NewErrorInfoDetail: %v", err)
	}

	connectErr := NewError(CodeResourceExhausted, "too many requests").AddDetail(detail)

	info, ok := ErrorInfo(connectErr)
	if !ok {
		t.Fatal("ErrorInfo: not found")
	}
	if info.Reason != "QUOTA_EXCEEDED" {
		t.Fatalf("Reason = %q, want QUOTA_EXCEEDED", info.Reason)
	}
	if info.Domain != "connectrt.example" {
		t.Fatalf("Domain = %q, want connectrt.example", info.Domain)
	}
	if info.Metadata["limit"] != "100" {
		t.Fatalf("Metadata[limit] = %q, want 100", info.Metadata["limit"])
	}
}

func TestErrorInfoMissingReturnsFalse(t *testing.T) {
	connectErr := NewError(CodeInternal, "boom")
	if _, ok := ErrorInfo(connectErr); ok {
		t.Fatal("expected ErrorInfo to report absent")
	}
}
