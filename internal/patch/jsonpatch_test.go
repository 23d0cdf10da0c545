package patch

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseJSONPatch_Valid(t *testing.T) {
	ops, err := ParseJSONPatch(`[{"op":"replace","path":"/status","value":"done"}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ops) != 1 {
		t.Errorf("ops = %d, want 1", len(ops))
	}
}

func TestParseJSONPatch_Malformed(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"not json", "nope"},
		{"object not array", `{"op":"add","path":"/x","value":1}`},
		{"missing op", `[{"path":"/x","value":1}]`},
		{"missing path", `[{"op":"add","value":1}]`},
		{"non-string op", `[{"op":7,"path":"/x"}]`},
	}
	for _, tc := range cases {
		if _, err := ParseJSONPatch(tc.text); err == nil {
			t.Errorf("%s: expected parse error", tc.name)
		}
	}
}

func TestApplyJSONPatch(t *testing.T) {
	ops, err := ParseJSONPatch(`[
		{"op":"replace","path":"/status","value":"active"},
		{"op":"add","path":"/objectives/-","value":"find the key"}
	]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := ApplyJSONPatch(`{"status":"planned","objectives":["reach the keep"]}`, ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	var got struct {
		Status     string   `json:"status"`
		Objectives []string `json:"objectives"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if got.Status != "active" {
		t.Errorf("status = %q", got.Status)
	}
	if len(got.Objectives) != 2 || got.Objectives[1] != "find the key" {
		t.Errorf("objectives = %v", got.Objectives)
	}
}

func TestApplyJSONPatch_EmptyDocumentDefaultsToObject(t *testing.T) {
	ops, err := ParseJSONPatch(`[{"op":"add","path":"/name","value":"Mira"}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := ApplyJSONPatch("", ops)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, `"Mira"`) {
		t.Errorf("out = %q", out)
	}
}

func TestApplyJSONPatch_FailedTestOp(t *testing.T) {
	ops, err := ParseJSONPatch(`[
		{"op":"test","path":"/status","value":"active"},
		{"op":"replace","path":"/status","value":"done"}
	]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ApplyJSONPatch(`{"status":"planned"}`, ops); err == nil {
		t.Fatal("failed test op should abort application")
	}
}

func TestApplyJSONPatch_MissingPath(t *testing.T) {
	ops, err := ParseJSONPatch(`[{"op":"replace","path":"/absent","value":1}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ApplyJSONPatch(`{}`, ops); err == nil {
		t.Fatal("replace on a missing path should fail")
	}
}
