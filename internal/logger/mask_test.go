package logger

import "testing"

func TestMaskSignatureKeepsPrefixAndTail(t *testing.T) {
	got := MaskSignature("0xdeadbeefcafe1234")
	if got != "0x****1234" {
		t.Fatalf("unexpected masked signature: %q", got)
	}
}

func TestMaskSignatureEmpty(t *testing.T) {
	if got := MaskSignature("  "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestMaskFieldsMasksNestedSensitiveKeys(t *testing.T) {
	input := map[string]any{
		"transaction_hash": "0xabc",
		"signature":        "0xdeadbeefcafe1234",
		"nested": map[string]any{
			"api_key": "sk_live_abcdef",
			"chain":   "mainnet",
		},
	}
	out := MaskFields(input)
	if out["transaction_hash"] != "0xabc" {
		t.Fatalf("non-sensitive key was modified: %v", out["transaction_hash"])
	}
	if out["signature"] != "****1234" {
		t.Fatalf("signature not masked: %v", out["signature"])
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested map lost: %T", out["nested"])
	}
	if nested["api_key"] != "****cdef" {
		t.Fatalf("nested api_key not masked: %v", nested["api_key"])
	}
	if nested["chain"] != "mainnet" {
		t.Fatalf("nested plain value modified: %v", nested["chain"])
	}
}
