package runner

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/zan8in/hefest/pkg/config"
	"github.com/zan8in/hefest/pkg/report"
	"github.com/zan8in/hefest/pkg/service"
)

func bannerServer(t *testing.T, banner string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				_, _ = io.WriteString(c, banner)
			}(c)
		}
	}()
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return port
}

func TestRunWritesReportsAndAppliesRules(t *testing.T) {
	port := bannerServer(t, "HEFEST-TEST ready\r\n")
	dir := t.TempDir()

	rules := filepath.Join(dir, "rules.yaml")
	rule := "rules:\n  - name: test-service\n    match: \"^HEFEST-TEST\"\n    service: testsvc\n    category: other\n    risk: high\n"
	if err := os.WriteFile(rules, []byte(rule), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	options := &config.Options{
		Target:   "127.0.0.1",
		Ports:    strconv.Itoa(port),
		Rules:    rules,
		Output:   "run",
		Formats:  "all",
		Database: filepath.Join(dir, "store.db"),
		Silent:   true,
		NoColor:  true,
	}
	c := config.Default()
	c.Report.OutputDir = filepath.Join(dir, "reports")
	c.Log.File = filepath.Join(dir, "logs", "hefest.log")
	c.Scan.Timeout = "0.5"
	options.Merge(c)

	r, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.OpenPorts) != 1 || result.OpenPorts[0] != port {
		t.Fatalf("open ports mismatch: %v", result.OpenPorts)
	}
	p := result.Port(port)
	if p.Service != "TESTSVC" || p.Risk != service.High {
		t.Fatalf("rule not applied: %+v", p)
	}

	if len(r.Reports) != 4 {
		t.Fatalf("expected 4 reports, got %v", r.Reports)
	}
	parsed, err := report.ReadJSON(filepath.Join(dir, "reports", "run.json"))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if parsed.Port(port) == nil || parsed.Port(port).Service != "TESTSVC" {
		t.Fatalf("json report mismatch: %+v", parsed.Ports)
	}

	store, err := report.OpenStore(options.Database)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	scans, err := store.Scans()
	if err != nil || len(scans) != 1 || scans[0].Id != result.ID {
		t.Fatalf("store mismatch: %+v %v", scans, err)
	}

	if _, err := os.Stat(c.Log.File); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	cases := map[string]*config.Options{
		"no target":          {Ports: "22"},
		"bad ports":          {Target: "127.0.0.1", Ports: "22-abc"},
		"bad proxy":          {Target: "127.0.0.1", Proxy: "ftp://127.0.0.1:21"},
		"bad rules":          {Target: "127.0.0.1", Rules: "/nonexistent/rules.yaml"},
		"bad format":         {Target: "127.0.0.1", Formats: "pdf"},
		"zero timeout":       {Target: "127.0.0.1", Timeout: "0"},
		"bad banner timeout": {Target: "127.0.0.1", BannerTimeout: "-1s"},
	}
	for name, options := range cases {
		options.Silent = true
		options.LogFile = filepath.Join(t.TempDir(), "hefest.log")
		if _, err := New(options); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRunResolutionFailure(t *testing.T) {
	options := &config.Options{
		Target:   "host.invalid",
		Ports:    "22",
		Silent:   true,
		NoReport: true,
		LogFile:  filepath.Join(t.TempDir(), "hefest.log"),
	}
	r, err := New(options)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected resolution error")
	}
}
