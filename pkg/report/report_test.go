package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zan8in/hefest/pkg/log"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/service"
)

func sampleResult() *portscan.ScanResult {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ssh := &portscan.PortResult{
		Port: 22, State: portscan.PortStateOpen, Latency: 2 * time.Millisecond,
		Banner: "SSH-2.0-OpenSSH_8.9", BannerHash: 12345,
		Service: "SSH", Description: "Secure Shell", Protocol: "TCP", Category: "remote_access",
		Risk: service.Low, Product: "OpenSSH", Version: "8.9",
		Recommendations: []string{"Disable password authentication", "Keep OpenSSH patched"},
	}
	web := &portscan.PortResult{
		Port: 80, State: portscan.PortStateOpen, Latency: time.Millisecond,
		Banner:  "HTTP/1.1 200 OK\r\nServer: nginx/1.18.0",
		Service: "HTTP", Protocol: "TCP", Category: "web", Risk: service.Low,
	}
	closed := &portscan.PortResult{Port: 23, State: portscan.PortStateClosed, Reason: "connection refused"}
	filtered := &portscan.PortResult{Port: 3306, State: portscan.PortStateFiltered, Reason: "timeout"}

	return &portscan.ScanResult{
		ID:        "cp0test",
		Target:    "scanme.example",
		IP:        "127.0.0.1",
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
		Duration:  1500 * time.Millisecond,
		Total:     5,
		Ports:     []*portscan.PortResult{ssh, closed, web, filtered},
		OpenPorts: []int{22, 80},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := sampleResult()
	want.Ports = append(want.Ports, &portscan.PortResult{
		Port: 9999, State: portscan.PortStateOpen, Service: "UNKNOWN", Risk: service.Unknown,
	})
	want.OpenPorts = append(want.OpenPorts, 9999)

	data, err := EncodeJSON(want, false)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	if !bytes.Contains(data, []byte(`"generated_at"`)) || !bytes.Contains(data, []byte(`"risk": "LOW"`)) {
		t.Fatalf("json layout mismatch: %s", data)
	}
	if !bytes.Contains(data, []byte(`"risk": "UNKNOWN"`)) {
		t.Fatalf("unknown service lost its risk: %s", data)
	}

	got, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if !reflect.DeepEqual(got.OpenPorts, want.OpenPorts) {
		t.Fatalf("open ports mismatch: got=%v want=%v", got.OpenPorts, want.OpenPorts)
	}
	if len(got.Ports) != 3 {
		t.Fatalf("open-only report should detail 3 ports, got %d", len(got.Ports))
	}
	for _, port := range want.OpenPorts {
		w, g := want.Port(port), got.Port(port)
		if g == nil {
			t.Fatalf("port %d missing after round trip", port)
		}
		if g.Service != w.Service || g.Risk != w.Risk || g.State != w.State || g.Banner != w.Banner {
			t.Fatalf("port %d mismatch: got=%+v want=%+v", port, g, w)
		}
		if !reflect.DeepEqual(g.Recommendations, w.Recommendations) {
			t.Fatalf("port %d recommendations mismatch", port)
		}
	}
	if got.Target != want.Target || got.IP != want.IP || got.Total != want.Total || got.Duration != want.Duration {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if !got.StartTime.Equal(want.StartTime) {
		t.Fatalf("start time mismatch: %s", got.StartTime)
	}
}

func TestJSONAllPorts(t *testing.T) {
	data, err := EncodeJSON(sampleResult(), true)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	got, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if len(got.Ports) != 4 {
		t.Fatalf("all-ports report should detail 4 ports, got %d", len(got.Ports))
	}
	if p := got.Port(3306); p == nil || p.State != portscan.PortStateFiltered || p.Reason != "timeout" {
		t.Fatalf("filtered port mismatch: %+v", p)
	}
}

func TestParseJSONRejectsGarbage(t *testing.T) {
	if _, err := ParseJSON([]byte("{")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, sampleResult(), false); err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0][:5], ",") != "port,state,service,risk,banner" {
		t.Fatalf("header mismatch: %v", rows[0])
	}
	if rows[1][0] != "22" || rows[1][2] != "SSH" || rows[1][3] != "LOW" {
		t.Fatalf("row mismatch: %v", rows[1])
	}
	if !strings.Contains(rows[2][4], "\r\n") {
		t.Fatalf("banner with newlines should survive quoting: %q", rows[2][4])
	}

	buf.Reset()
	_ = EncodeCSV(&buf, sampleResult(), true)
	rows, _ = csv.NewReader(&buf).ReadAll()
	if len(rows) != 5 {
		t.Fatalf("all-ports csv should have 5 lines, got %d", len(rows))
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeText(&buf, sampleResult()); err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Target:        scanme.example",
		"Duration:      1.50 seconds",
		"Ports Scanned: 4/5",
		"Port 22: SSH [LOW RISK]",
		"Port 80: HTTP [LOW RISK]",
		"Product:     OpenSSH 8.9",
		"    - Disable password authentication",
		"Banner:      HTTP/1.1 200 OK Server: nginx/1.18.0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Port 23") {
		t.Fatalf("closed port listed in text report")
	}
}

func TestSummaryLineUnknownService(t *testing.T) {
	r := &portscan.PortResult{Port: 9999, State: portscan.PortStateOpen}
	if got := SummaryLine(r); got != "Port 9999: UNKNOWN [UNKNOWN RISK]" {
		t.Fatalf("summary mismatch: %q", got)
	}
}

func TestConsole(t *testing.T) {
	log.DisableColor()
	var buf bytes.Buffer
	Console(&buf, sampleResult(), log.NewColor(), true)
	out := buf.String()
	if !strings.Contains(out, "Port 22: SSH [LOW RISK] OpenSSH 8.9") {
		t.Fatalf("console missing open port:\n%s", out)
	}
	if !strings.Contains(out, "Port 23: closed (connection refused)") {
		t.Fatalf("console missing closed port:\n%s", out)
	}
	if !strings.Contains(out, "2 open / 4 scanned / 5 requested") {
		t.Fatalf("console missing totals:\n%s", out)
	}
}

func TestStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	want := sampleResult()
	if err := store.Save(want, true); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(want, true); err == nil {
		t.Fatalf("saving the same scan twice should fail")
	}

	scans, err := store.Scans()
	if err != nil || len(scans) != 1 || scans[0].TotalOpen != 2 {
		t.Fatalf("Scans: %+v %v", scans, err)
	}

	got, err := store.Load(want.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got.OpenPorts, want.OpenPorts) || len(got.Ports) != 4 {
		t.Fatalf("loaded ports mismatch: open=%v ports=%d", got.OpenPorts, len(got.Ports))
	}
	ssh := got.Port(22)
	if ssh.Service != "SSH" || ssh.Risk != service.Low || ssh.BannerHash != 12345 || len(ssh.Recommendations) != 2 {
		t.Fatalf("loaded ssh mismatch: %+v", ssh)
	}
	if got.Port(23).State != portscan.PortStateClosed {
		t.Fatalf("loaded closed port mismatch: %+v", got.Port(23))
	}
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteAll(sampleResult(), Options{
		OutputDir: dir,
		Output:    "scan",
		Formats:   []string{"json", "csv", "txt", "sqlite"},
	})
	if err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 reports, got %v", paths)
	}
	for _, ext := range []string{".json", ".csv", ".txt", ".db"} {
		if _, err := os.Stat(filepath.Join(dir, "scan"+ext)); err != nil {
			t.Fatalf("missing report %s: %v", ext, err)
		}
	}

	got, err := ReadJSON(filepath.Join(dir, "scan.json"))
	if err != nil || len(got.OpenPorts) != 2 {
		t.Fatalf("ReadJSON: %+v %v", got, err)
	}

	if _, err := WriteAll(sampleResult(), Options{OutputDir: dir, Output: "bad", Formats: []string{"xml"}}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
