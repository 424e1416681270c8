package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func entityFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "company.json")
	body := `{"name": "company", "fields": [
		{"name": "title", "type": "text", "kind": "substring"},
		{"name": "founded", "type": "timestamp", "kind": "value"}
	], "by_entity": ["owner"]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return path
}

func TestRun_PrintsTablesAndDDL(t *testing.T) {
	t.Setenv("TESSERA_ENTITIES", "")
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-env", filepath.Join(t.TempDir(), "none.env"), entityFile(t)}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"PARTITION KEY",
		"company_by_field_title",
		"company_title_substring",
		"company_by_entity_owner",
		"founded DESC, id DESC",
		`CREATE TABLE company ("group" bigint, id bigint`,
		"gc_grace_seconds = 86400;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if !strings.Contains(stderr.String(), "run=") {
		t.Errorf("expected run id in log output, got %q", stderr.String())
	}
}

func TestRun_Errors(t *testing.T) {
	t.Setenv("TESSERA_ENTITIES", "")

	tests := []struct {
		name string
		args []string
	}{
		{"no entity files", nil},
		{"unknown apply target", []string{"-apply", "mysql", entityFile(t)}},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.json")}},
		{"unknown flag", []string{"-nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), tt.args, &stdout, &stderr); err == nil {
				t.Error("expected error")
			}
		})
	}
}
