package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", hefestConfigFilename)
	c, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Scan.Concurrency != DefaultConcurrency || c.Scan.Timeout != DefaultTimeout {
		t.Fatalf("defaults mismatch: %+v", c.Scan)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
}

func TestNewFillsPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), hefestConfigFilename)
	data := "scan:\n  concurrency: 10\n  timeout: 2s\nreport:\n  formats: [json, sqlite]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Scan.Concurrency != 10 || c.Scan.Timeout != "2s" {
		t.Fatalf("file values lost: %+v", c.Scan)
	}
	if c.Scan.BannerSize != DefaultBannerSize || c.Report.OutputDir != DefaultOutputDir {
		t.Fatalf("defaults not filled: %+v %+v", c.Scan, c.Report)
	}
	if strings.Join(c.Report.Formats, ",") != "json,sqlite" {
		t.Fatalf("formats mismatch: %v", c.Report.Formats)
	}
}

func TestReadConfigurationRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), hefestConfigFilename)
	_ = os.WriteFile(path, []byte("scan: [1, 2"), 0644)
	if _, err := New(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOptionsMergeAndValidate(t *testing.T) {
	o := &Options{Target: "127.0.0.1", Concurrency: 20, Formats: "JSON, text,json"}
	o.Merge(Default())

	if o.Concurrency != 20 {
		t.Fatalf("command line value overridden: %d", o.Concurrency)
	}
	if o.BannerSize != DefaultBannerSize || o.Ports != DefaultPorts {
		t.Fatalf("config values not merged: %+v", o)
	}
	if got := strings.Join(o.FormatList(), ","); got != "json,txt" {
		t.Fatalf("formats mismatch: %q", got)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d, _ := o.TimeoutDuration(); d != time.Second {
		t.Fatalf("timeout mismatch: %s", d)
	}

	o.BannerTimeout = "0.25"
	if d, err := o.BannerTimeoutDuration(); err != nil || d != 250*time.Millisecond {
		t.Fatalf("float seconds mismatch: %s %v", d, err)
	}

	o.Formats = "all"
	if got := strings.Join(o.FormatList(), ","); got != "json,csv,txt,sqlite" {
		t.Fatalf("all formats mismatch: %q", got)
	}

	full := &Options{Full: true, Ports: "22"}
	full.Merge(Default())
	if full.Ports != "full" {
		t.Fatalf("-full should override ports, got %q", full.Ports)
	}
}

func TestOptionsValidateErrors(t *testing.T) {
	base := func() *Options {
		o := &Options{Target: "example.com"}
		o.Merge(Default())
		return o
	}
	cases := map[string]func(o *Options){
		"no target":      func(o *Options) { o.Target = " " },
		"bad timeout":    func(o *Options) { o.Timeout = "soon" },
		"zero timeout":   func(o *Options) { o.Timeout = "0s" },
		"bad banner":     func(o *Options) { o.BannerTimeout = "-1s" },
		"bad format":     func(o *Options) { o.Formats = "json,xml" },
		"no concurrency": func(o *Options) { o.Concurrency = -1 },
	}
	for name, mutate := range cases {
		o := base()
		mutate(o)
		if err := o.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadProxy(t *testing.T) {
	if p, err := LoadProxy("", time.Second); err != nil || p != "" {
		t.Fatalf("empty proxy: %q %v", p, err)
	}
	if p, err := LoadProxy("socks5://127.0.0.1:1080", time.Second); err != nil || p != "socks5://127.0.0.1:1080" {
		t.Fatalf("single proxy: %q %v", p, err)
	}
	if _, err := LoadProxy("ftp://127.0.0.1:21", time.Second); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	dead, _ := net.Listen("tcp", "127.0.0.1:0")
	deadAddr := dead.Addr().String()
	dead.Close()

	file := filepath.Join(t.TempDir(), "proxies.txt")
	content := "# proxies\nhttp://" + deadAddr + "\n\nhttp://" + ln.Addr().String() + "\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProxy(file, time.Second)
	if err != nil {
		t.Fatalf("LoadProxy(file): %v", err)
	}
	if p != "http://"+ln.Addr().String() {
		t.Fatalf("expected reachable proxy, got %q", p)
	}
}
