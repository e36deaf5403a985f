package validation

import (
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"
)

func schemasDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(schemasDir(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func validFundTask() map[string]any {
	return map[string]any{
		"platform":         "Instagram",
		"type":             "Follow",
		"link":             "https://instagram.com/someone",
		"proof_title":      "Screenshot of follow",
		"guide":            "Open the profile and tap Follow",
		"quantity":         10,
		"unit_reward_kobo": 500,
	}
}

func TestValidate_FundTask_Valid(t *testing.T) {
	v := newTestValidator(t)

	payload, _ := json.Marshal(validFundTask())
	if err := v.Validate(SchemaFundTask, payload); err != nil {
		t.Fatalf("expected valid payload, got: %v", err)
	}
}

func TestValidate_FundTask_Invalid(t *testing.T) {
	v := newTestValidator(t)

	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing platform", func(m map[string]any) { delete(m, "platform") }},
		{"unknown platform", func(m map[string]any) { m["platform"] = "MySpace" }},
		{"unknown type", func(m map[string]any) { m["type"] = "Bribe" }},
		{"non-http link", func(m map[string]any) { m["link"] = "ftp://example.com" }},
		{"quantity below minimum", func(m map[string]any) { m["quantity"] = 9 }},
		{"quantity above maximum", func(m map[string]any) { m["quantity"] = 1_000_001 }},
		{"zero reward", func(m map[string]any) { m["unit_reward_kobo"] = 0 }},
		{"reward above maximum", func(m map[string]any) { m["unit_reward_kobo"] = int64(100_000_000_001) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validFundTask()
			tc.mutate(doc)
			payload, _ := json.Marshal(doc)
			if err := v.Validate(SchemaFundTask, payload); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := newTestValidator(t)

	if err := v.Validate("no_such_schema", json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unregistered schema")
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	v := newTestValidator(t)

	if err := v.Validate(SchemaFundTask, json.RawMessage(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
