package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"cipherid/internal/domain"
)

const testPolicy = `package cipherid.registry

deny[item] {
	input.owner == "mallory"
	item := {"code": "OWNER_BLOCKED", "message": "owner is not allowed to register"}
}

deny[item] {
	input.public_key == 0
	item := {"code": "PUBLIC_KEY_REQUIRED", "message": "public key must be nonzero"}
}

default allow = false

allow {
	count(deny) == 0
}

result := {"allow": allow, "deny": deny}
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(testPolicy), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}
	engine, err := NewEngineFromBundlePath(context.Background(), dir, "test-bundle")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func baseInput() domain.PolicyInput {
	return domain.PolicyInput{
		Operation:      "register",
		Owner:          "alice",
		PublicKey:      42,
		IdentifierHash: "aaaa",
	}
}

func TestEngineAllowsBaseline(t *testing.T) {
	engine := newTestEngine(t)

	out, err := engine.Evaluate(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !out.Result.Allow {
		t.Fatalf("expected allow, got %+v", out.Result)
	}
	if len(out.Result.Deny) != 0 {
		t.Fatalf("expected empty deny list, got %+v", out.Result.Deny)
	}
	if out.BundleID != "test-bundle" || out.BundleHash == "" {
		t.Fatalf("bundle identity not carried: %+v", out)
	}
}

func TestEngineDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	input := baseInput()

	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected deterministic policy evaluation")
	}
}

func TestEngineDenies(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(input *domain.PolicyInput)
		want   string
	}{
		{
			name:   "blocked owner",
			mutate: func(input *domain.PolicyInput) { input.Owner = "mallory" },
			want:   "OWNER_BLOCKED",
		},
		{
			name:   "zero public key",
			mutate: func(input *domain.PolicyInput) { input.PublicKey = 0 },
			want:   "PUBLIC_KEY_REQUIRED",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			tt.mutate(&input)
			out, err := engine.Evaluate(context.Background(), input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Result.Allow {
				t.Fatal("expected deny")
			}
			found := false
			for _, item := range out.Result.Deny {
				if item.Code == tt.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected deny code %s, got %+v", tt.want, out.Result.Deny)
			}
		})
	}
}

func TestEngineDenyOrderingStable(t *testing.T) {
	engine := newTestEngine(t)
	input := baseInput()
	input.Owner = "mallory"
	input.PublicKey = 0

	out, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(out.Result.Deny) != 2 {
		t.Fatalf("expected two deny items, got %+v", out.Result.Deny)
	}
	if out.Result.Deny[0].Code != "OWNER_BLOCKED" || out.Result.Deny[1].Code != "PUBLIC_KEY_REQUIRED" {
		t.Fatalf("expected sorted deny codes, got %+v", out.Result.Deny)
	}
}

func TestBundleHashStable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(testPolicy), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	first, err := computeBundleHash(dir)
	if err != nil {
		t.Fatalf("hash first: %v", err)
	}
	second, err := computeBundleHash(dir)
	if err != nil {
		t.Fatalf("hash second: %v", err)
	}
	if first != second {
		t.Fatal("bundle hash must be stable")
	}

	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(testPolicy+"\n# changed\n"), 0o644); err != nil {
		t.Fatalf("rewrite rego: %v", err)
	}
	changed, err := computeBundleHash(dir)
	if err != nil {
		t.Fatalf("hash changed: %v", err)
	}
	if changed == first {
		t.Fatal("bundle hash must change with bundle content")
	}
}
