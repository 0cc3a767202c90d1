package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/zan8in/hefest/pkg/portscan"
)

var csvHeader = []string{"port", "state", "service", "risk", "banner", "product", "version", "category", "reason"}

// EncodeCSV writes one row per open port, or per scanned port with allPorts.
func EncodeCSV(w io.Writer, result *portscan.ScanResult, allPorts bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range selectPorts(result, allPorts) {
		risk := ""
		if r.IsOpen() {
			risk = r.Risk.String()
		}
		row := []string{
			strconv.Itoa(r.Port),
			r.State.String(),
			r.Service,
			risk,
			r.Banner,
			r.Product,
			r.Version,
			r.Category,
			r.Reason,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSV(path string, result *portscan.ScanResult, allPorts bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeCSV(f, result, allPorts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
