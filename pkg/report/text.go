package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zan8in/hefest/pkg/log"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/utils"
)

const (
	rule       = "============================================================"
	thinRule   = "------------------------------------------------------------"
	bannerCut  = 100
	timeLayout = "2006-01-02 15:04:05"
)

// SummaryLine formats an open port as "Port 22: SSH [LOW RISK]".
func SummaryLine(r *portscan.PortResult) string {
	return fmt.Sprintf("Port %d: %s [%s RISK]", r.Port, serviceName(r), r.Risk)
}

func serviceName(r *portscan.PortResult) string {
	if r.Service == "" {
		return "UNKNOWN"
	}
	return r.Service
}

// EncodeText writes the human readable report.
func EncodeText(w io.Writer, result *portscan.ScanResult) error {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "HEFEST PORT SCAN REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Target:        %s\n", result.Target)
	fmt.Fprintf(&b, "IP Address:    %s\n", result.IP)
	fmt.Fprintf(&b, "Scan ID:       %s\n", result.ID)
	fmt.Fprintf(&b, "Scan Time:     %s\n", result.StartTime.Format(timeLayout))
	fmt.Fprintf(&b, "Duration:      %.2f seconds\n", result.Duration.Seconds())
	fmt.Fprintf(&b, "Ports Scanned: %d/%d\n", result.Completed(), result.Total)
	fmt.Fprintf(&b, "Open Ports:    %d\n", len(result.OpenPorts))
	if result.Interrupted {
		fmt.Fprintln(&b, "Status:        interrupted, results are partial")
	}
	fmt.Fprintln(&b)

	open := result.Open()
	fmt.Fprintln(&b, "SUMMARY")
	fmt.Fprintln(&b, thinRule)
	if len(open) == 0 {
		fmt.Fprintln(&b, "No open ports found.")
	}
	for _, r := range open {
		fmt.Fprintln(&b, SummaryLine(r))
	}

	if len(open) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "DETAILS")
		fmt.Fprintln(&b, thinRule)
	}
	for _, r := range open {
		fmt.Fprintf(&b, "Port %d/%s\n", r.Port, protocolOf(r))
		fmt.Fprintf(&b, "  Service:     %s\n", serviceName(r))
		if r.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", r.Description)
		}
		if r.Category != "" {
			fmt.Fprintf(&b, "  Category:    %s\n", r.Category)
		}
		fmt.Fprintf(&b, "  Risk:        %s\n", r.Risk)
		if r.Product != "" {
			fmt.Fprintf(&b, "  Product:     %s\n", strings.TrimSpace(r.Product+" "+r.Version))
		}
		if r.Banner != "" {
			fmt.Fprintf(&b, "  Banner:      %s\n", oneLine(utils.Truncate(r.Banner, bannerCut)))
		}
		if len(r.Recommendations) > 0 {
			fmt.Fprintln(&b, "  Recommendations:")
			for _, rec := range r.Recommendations {
				fmt.Fprintf(&b, "    - %s\n", rec)
			}
		}
		fmt.Fprintln(&b)
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func WriteText(path string, result *portscan.ScanResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeText(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Console prints the scan summary with risk colored tags. Closed and
// filtered ports are listed only with showClosed.
func Console(w io.Writer, result *portscan.ScanResult, c *log.Color, showClosed bool) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s (%s)\n", c.Title("Scan results for"), c.Bold(result.Target), result.IP)
	for _, r := range result.Ports {
		if r.IsOpen() {
			tag := c.Risk(r.Risk, fmt.Sprintf("[%s RISK]", r.Risk))
			line := fmt.Sprintf("Port %d: %s %s", r.Port, c.Open(serviceName(r)), tag)
			if r.Product != "" {
				line += " " + c.Time(strings.TrimSpace(r.Product+" "+r.Version))
			}
			fmt.Fprintln(w, line)
			continue
		}
		if showClosed {
			fmt.Fprintln(w, c.Closed(fmt.Sprintf("Port %d: %s (%s)", r.Port, r.State, r.Reason)))
		}
	}
	status := ""
	if result.Interrupted {
		status = ", " + c.High("interrupted")
	}
	fmt.Fprintf(w, "%d open / %d scanned / %d requested in %.2fs%s\n",
		len(result.OpenPorts), result.Completed(), result.Total, result.Duration.Seconds(), status)
}

func protocolOf(r *portscan.PortResult) string {
	if r.Protocol == "" {
		return "TCP"
	}
	return r.Protocol
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
