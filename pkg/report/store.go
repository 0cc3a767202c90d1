package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/logoove/sqlite"
	"github.com/pkg/errors"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/service"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scans (
		id            TEXT PRIMARY KEY,
		target        TEXT NOT NULL,
		target_ip     TEXT NOT NULL,
		start_time    TEXT NOT NULL,
		duration      DOUBLE PRECISION NOT NULL,
		ports_total   INTEGER NOT NULL,
		ports_scanned INTEGER NOT NULL,
		total_open    INTEGER NOT NULL,
		interrupted   INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ports (
		scan_id         TEXT NOT NULL,
		port            INTEGER NOT NULL,
		state           TEXT NOT NULL,
		reason          TEXT NOT NULL,
		latency_ms      DOUBLE PRECISION NOT NULL,
		service         TEXT NOT NULL,
		description     TEXT NOT NULL,
		protocol        TEXT NOT NULL,
		category        TEXT NOT NULL,
		risk            TEXT NOT NULL,
		product         TEXT NOT NULL,
		version         TEXT NOT NULL,
		banner          TEXT NOT NULL,
		banner_hash     INTEGER NOT NULL,
		recommendations TEXT NOT NULL,
		PRIMARY KEY (scan_id, port)
	)`,
}

type ScanRow struct {
	Id           string  `db:"id"`
	Target       string  `db:"target"`
	TargetIP     string  `db:"target_ip"`
	StartTime    string  `db:"start_time"`
	Duration     float64 `db:"duration"`
	PortsTotal   int     `db:"ports_total"`
	PortsScanned int     `db:"ports_scanned"`
	TotalOpen    int     `db:"total_open"`
	Interrupted  int     `db:"interrupted"`
}

type PortRow struct {
	ScanId          string  `db:"scan_id"`
	Port            int     `db:"port"`
	State           string  `db:"state"`
	Reason          string  `db:"reason"`
	LatencyMs       float64 `db:"latency_ms"`
	Service         string  `db:"service"`
	Description     string  `db:"description"`
	Protocol        string  `db:"protocol"`
	Category        string  `db:"category"`
	Risk            string  `db:"risk"`
	Product         string  `db:"product"`
	Version         string  `db:"version"`
	Banner          string  `db:"banner"`
	BannerHash      int64   `db:"banner_hash"`
	Recommendations string  `db:"recommendations"`
}

// Store persists scan results in sqlite or postgres.
type Store struct {
	db *sqlx.DB
}

// OpenStore connects to dsn. postgres:// and postgresql:// DSNs use lib/pq,
// anything else is a sqlite file path.
func OpenStore(dsn string) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)
	if isPostgres(dsn) {
		db, err = sqlx.Connect("postgres", dsn)
	} else {
		// logoove/sqlite registers itself as sqlite3
		db, err = sqlx.Connect("sqlite3", "file:"+dsn+"?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
		if err == nil {
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not open results database")
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "already exists") {
			db.Close()
			return nil, fmt.Errorf("error creating table: %v", err)
		}
	}
	return &Store{db: db}, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Save stores result. Only open ports are stored unless allPorts is set.
func (s *Store) Save(result *portscan.ScanResult, allPorts bool) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}

	interrupted := 0
	if result.Interrupted {
		interrupted = 1
	}
	_, err = tx.Exec(tx.Rebind(`INSERT INTO scans(id, target, target_ip, start_time, duration, ports_total, ports_scanned, total_open, interrupted) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		result.ID, result.Target, result.IP, result.StartTime.Format(time.RFC3339Nano), result.Duration.Seconds(),
		result.Total, result.Completed(), len(result.OpenPorts), interrupted)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "could not insert scan")
	}

	insertPort := tx.Rebind(`INSERT INTO ports(scan_id, port, state, reason, latency_ms, service, description, protocol, category, risk, product, version, banner, banner_hash, recommendations) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, r := range selectPorts(result, allPorts) {
		risk := ""
		if r.IsOpen() {
			risk = r.Risk.String()
		}
		_, err = tx.Exec(insertPort,
			result.ID, r.Port, r.State.String(), r.Reason, float64(r.Latency)/float64(time.Millisecond),
			r.Service, r.Description, r.Protocol, r.Category, risk, r.Product, r.Version,
			r.Banner, int64(r.BannerHash), strings.Join(r.Recommendations, "\n"))
		if err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "could not insert port %d", r.Port)
		}
	}
	return tx.Commit()
}

// Scans lists stored scans, newest first.
func (s *Store) Scans() ([]ScanRow, error) {
	var rows []ScanRow
	err := s.db.Select(&rows, `SELECT id, target, target_ip, start_time, duration, ports_total, ports_scanned, total_open, interrupted FROM scans ORDER BY start_time DESC`)
	return rows, err
}

// Load reads a stored scan back.
func (s *Store) Load(scanID string) (*portscan.ScanResult, error) {
	var sr ScanRow
	if err := s.db.Get(&sr, s.db.Rebind(`SELECT id, target, target_ip, start_time, duration, ports_total, ports_scanned, total_open, interrupted FROM scans WHERE id = ?`), scanID); err != nil {
		return nil, errors.Wrapf(err, "could not load scan %s", scanID)
	}
	var prs []PortRow
	if err := s.db.Select(&prs, s.db.Rebind(`SELECT scan_id, port, state, reason, latency_ms, service, description, protocol, category, risk, product, version, banner, banner_hash, recommendations FROM ports WHERE scan_id = ? ORDER BY port`), scanID); err != nil {
		return nil, errors.Wrapf(err, "could not load ports of scan %s", scanID)
	}

	result := &portscan.ScanResult{
		ID:          sr.Id,
		Target:      sr.Target,
		IP:          sr.TargetIP,
		Duration:    time.Duration(sr.Duration * float64(time.Second)),
		Total:       sr.PortsTotal,
		Interrupted: sr.Interrupted != 0,
	}
	if start, err := time.Parse(time.RFC3339Nano, sr.StartTime); err == nil {
		result.StartTime = start
		result.EndTime = start.Add(result.Duration)
	}
	for _, p := range prs {
		var state portscan.PortState
		if err := state.UnmarshalText([]byte(p.State)); err != nil {
			return nil, err
		}
		r := &portscan.PortResult{
			Port:        p.Port,
			State:       state,
			Reason:      p.Reason,
			Latency:     time.Duration(p.LatencyMs * float64(time.Millisecond)),
			Service:     p.Service,
			Description: p.Description,
			Protocol:    p.Protocol,
			Category:    p.Category,
			Product:     p.Product,
			Version:     p.Version,
			Banner:      p.Banner,
			BannerHash:  int32(p.BannerHash),
		}
		if p.Risk != "" {
			r.Risk, _ = service.ParseRisk(p.Risk)
		}
		if p.Recommendations != "" {
			r.Recommendations = strings.Split(p.Recommendations, "\n")
		}
		result.Ports = append(result.Ports, r)
		if r.IsOpen() {
			result.OpenPorts = append(result.OpenPorts, r.Port)
		}
	}
	return result, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
