package report

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/service"
)

type JsonReport struct {
	GeneratedAt string       `json:"generated_at"`
	ScanData    JsonScanData `json:"scan_data"`
}

type JsonScanData struct {
	ScanId       string     `json:"scan_id"`
	Target       string     `json:"target"`
	TargetIP     string     `json:"target_ip"`
	ScanTime     string     `json:"scan_time"`
	Duration     float64    `json:"duration"`
	PortsTotal   int        `json:"ports_total"`
	PortsScanned int        `json:"ports_scanned"`
	TotalOpen    int        `json:"total_open"`
	Interrupted  bool       `json:"interrupted"`
	OpenPorts    []int      `json:"open_ports"`
	PortDetails  []JsonPort `json:"port_details"`
}

type JsonPort struct {
	Port            int                `json:"port"`
	State           portscan.PortState `json:"state"`
	Reason          string             `json:"reason,omitempty"`
	LatencyMs       float64            `json:"latency_ms"`
	Service         string             `json:"service,omitempty"`
	Description     string             `json:"description,omitempty"`
	Protocol        string             `json:"protocol,omitempty"`
	Category        string             `json:"category,omitempty"`
	Risk            service.Risk       `json:"risk"`
	Product         string             `json:"product,omitempty"`
	Version         string             `json:"version,omitempty"`
	Banner          string             `json:"banner,omitempty"`
	BannerHash      int32              `json:"banner_hash,omitempty"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// JsonContent builds the report document. Only open ports are detailed
// unless allPorts is set.
func JsonContent(result *portscan.ScanResult, allPorts bool) *JsonReport {
	openPorts := append([]int{}, result.OpenPorts...)
	details := []JsonPort{}
	for _, r := range selectPorts(result, allPorts) {
		details = append(details, JsonPort{
			Port:            r.Port,
			State:           r.State,
			Reason:          r.Reason,
			LatencyMs:       float64(r.Latency) / float64(time.Millisecond),
			Service:         r.Service,
			Description:     r.Description,
			Protocol:        r.Protocol,
			Category:        r.Category,
			Risk:            r.Risk,
			Product:         r.Product,
			Version:         r.Version,
			Banner:          r.Banner,
			BannerHash:      r.BannerHash,
			Recommendations: r.Recommendations,
		})
	}

	return &JsonReport{
		GeneratedAt: time.Now().Format(time.RFC3339),
		ScanData: JsonScanData{
			ScanId:       result.ID,
			Target:       result.Target,
			TargetIP:     result.IP,
			ScanTime:     result.StartTime.Format(time.RFC3339Nano),
			Duration:     result.Duration.Seconds(),
			PortsTotal:   result.Total,
			PortsScanned: result.Completed(),
			TotalOpen:    len(result.OpenPorts),
			Interrupted:  result.Interrupted,
			OpenPorts:    openPorts,
			PortDetails:  details,
		},
	}
}

func EncodeJSON(result *portscan.ScanResult, allPorts bool) ([]byte, error) {
	return json.MarshalIndent(JsonContent(result, allPorts), "", "  ")
}

func WriteJSON(path string, result *portscan.ScanResult, allPorts bool) error {
	data, err := EncodeJSON(result, allPorts)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ParseJSON reads a JSON report back into a ScanResult. Ports not present
// in port_details, such as closed ports of an open-only report, are absent
// from the result.
func ParseJSON(data []byte) (*portscan.ScanResult, error) {
	var report JsonReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "could not parse json report")
	}
	sd := report.ScanData

	result := &portscan.ScanResult{
		ID:          sd.ScanId,
		Target:      sd.Target,
		IP:          sd.TargetIP,
		Duration:    time.Duration(sd.Duration * float64(time.Second)),
		Total:       sd.PortsTotal,
		OpenPorts:   append([]int{}, sd.OpenPorts...),
		Interrupted: sd.Interrupted,
	}
	if sd.ScanTime != "" {
		start, err := time.Parse(time.RFC3339Nano, sd.ScanTime)
		if err != nil {
			return nil, errors.Wrap(err, "invalid scan_time")
		}
		result.StartTime = start
		result.EndTime = start.Add(result.Duration)
	}

	for _, p := range sd.PortDetails {
		result.Ports = append(result.Ports, &portscan.PortResult{
			Port:            p.Port,
			State:           p.State,
			Reason:          p.Reason,
			Latency:         time.Duration(p.LatencyMs * float64(time.Millisecond)),
			Service:         p.Service,
			Description:     p.Description,
			Protocol:        p.Protocol,
			Category:        p.Category,
			Risk:            p.Risk,
			Product:         p.Product,
			Version:         p.Version,
			Banner:          p.Banner,
			BannerHash:      p.BannerHash,
			Recommendations: p.Recommendations,
		})
	}
	return result, nil
}

func ReadJSON(path string) (*portscan.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJSON(data)
}
