package service

import (
	"os"
	"path/filepath"
	"testing"
)

const adminRules = `rules:
  - name: admin-panel
    ports: [9443]
    match: "^HTTP/1\\.[01] 401"
    service: admin-panel
    category: web
    risk: high
  - name: fast-port
    expression: 'port > 40000 && banner.startsWith("PING")'
    service: ping-service
`

func writeRuleFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadRulesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "10-admin.yaml", adminRules)
	writeRuleFile(t, dir, "notes.txt", "not a rule file")
	sub := filepath.Join(dir, "more")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeRuleFile(t, sub, "20-db.yml", "rules:\n  - name: db\n    ports: [15432]\n    service: postgresql\n")

	rules, err := LoadRules(dir)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("rules loaded = %d, want 3", len(rules))
	}

	c := New(rules...)

	got := c.Classify(9443, "HTTP/1.1 401 Unauthorized")
	if got.Service != "ADMIN-PANEL" || got.Risk != High || got.Source != SourceRule+":admin-panel" {
		t.Fatalf("admin rule: got %+v", got)
	}

	got = c.Classify(9443, "HTTP/1.1 200 OK")
	if got.Service == "ADMIN-PANEL" {
		t.Fatalf("admin rule matched a 200 response")
	}

	got = c.Classify(45000, "PING v1")
	if got.Service != "PING-SERVICE" || got.Risk != Unknown {
		t.Fatalf("expression rule: got %+v", got)
	}
	if got := c.Classify(4500, "PING v1"); got.Service == "PING-SERVICE" {
		t.Fatalf("expression rule ignored the port condition")
	}

	got = c.Classify(15432, "")
	if got.Service != "POSTGRESQL" || got.Risk != High || got.Category != CategoryDatabase {
		t.Fatalf("port rule: got %+v", got)
	}
}

func TestRuleServiceDescriptionIsStable(t *testing.T) {
	path := writeRuleFile(t, t.TempDir(), "alt.yaml", "rules:\n  - name: alt\n    ports: [12345]\n    service: http-alt\n")
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	c := New(rules...)
	got := c.Classify(12345, "")
	if got.Service != "HTTP-ALT" || got.Description != wellKnown[8000].Description {
		t.Fatalf("http-alt rule: got %+v", got)
	}
	if byName["HTTP-ALT"].Description != "HTTP Alternative" {
		t.Fatalf("HTTP-ALT described as %q", byName["HTTP-ALT"].Description)
	}
}

func TestLoadRulesRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"no-service.yaml": "rules:\n  - name: x\n    ports: [80]\n",
		"no-match.yaml":   "rules:\n  - name: x\n    service: foo\n",
		"bad-port.yaml":   "rules:\n  - name: x\n    ports: [70000]\n    service: foo\n",
		"bad-regex.yaml":  "rules:\n  - name: x\n    match: \"(\"\n    service: foo\n",
		"bad-expr.yaml":   "rules:\n  - name: x\n    expression: \"port +\"\n    service: foo\n",
		"bad-risk.yaml":   "rules:\n  - name: x\n    ports: [80]\n    service: foo\n    risk: extreme\n",
		"not-yaml.yaml":   "rules: [",
	}
	for name, content := range tests {
		path := writeRuleFile(t, dir, name, content)
		if _, err := LoadRules(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := LoadRules(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
