package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zan8in/goflags"
)

type Options struct {
	// hefest-config.yaml configuration
	Config *Config

	// ConfigFile overrides the per-user configuration path
	ConfigFile string

	// Target host or IP to scan
	Target string

	// Ports definition, e.g. 22,80,8000-8100 or common, top-100, full
	Ports string

	// Full scans all 65535 ports
	Full bool

	// Timeout per connection attempt, seconds or a duration like 500ms
	Timeout string

	// BannerTimeout bounds the banner read on open ports
	BannerTimeout string

	// BannerSize is the maximum banner length in bytes
	BannerSize int

	// Concurrency is the maximum number of simultaneous probes
	Concurrency int

	// NoGrab disables banner grabbing
	NoGrab bool

	// Shuffle randomizes the probe order
	Shuffle bool

	// Proxy URL, comma separated list or file with one URL per line
	Proxy string

	// Rules is a rule file or directory of user service rules
	Rules string

	// Output is the report base filename without extension
	Output string

	// OutputDir receives the report files
	OutputDir string

	// Formats is a comma separated list of json, csv, txt, sqlite or all
	Formats string

	// AllPorts writes closed and filtered ports to the json and csv reports
	AllPorts bool

	// Database is a sqlite file or postgres:// DSN for the results store
	Database string

	// NoReport skips writing report files
	NoReport bool

	// Silent prints only open ports
	Silent bool

	// NoBanner hides the startup banner
	NoBanner bool

	// Debug enables per-port diagnostics
	Debug bool

	// NoColor disables colored output
	NoColor bool

	// LogFile is the rotating scan log
	LogFile string

	// Version prints the version and exits
	Version bool
}

// ParseOptions reads the command line.
func ParseOptions() (*Options, error) {
	options := &Options{}

	flagSet := goflags.NewFlagSet()
	flagSet.SetDescription(`hefest is a concurrent TCP port scanner with banner grabbing and service risk classification`)

	flagSet.CreateGroup("input", "Target",
		flagSet.StringVarP(&options.Target, "target", "t", "", "target host or IP to scan"),
		flagSet.StringVarP(&options.Ports, "ports", "p", "", "ports to scan, eg: -p 22,80,8000-8100 (common, top-100, full)"),
		flagSet.BoolVar(&options.Full, "full", false, "scan all 65535 ports"),
	)

	flagSet.CreateGroup("scan", "Scan",
		flagSet.StringVar(&options.Timeout, "timeout", "", "connect timeout per port in seconds, eg: 1, 0.5, 500ms"),
		flagSet.StringVarP(&options.BannerTimeout, "banner-timeout", "bt", "", "banner read timeout per open port in seconds"),
		flagSet.IntVarP(&options.BannerSize, "banner-size", "bs", 0, "maximum banner size in bytes"),
		flagSet.IntVarP(&options.Concurrency, "threads", "c", 0, "maximum number of simultaneous probes"),
		flagSet.BoolVarP(&options.NoGrab, "no-grab", "ng", false, "disable banner grabbing"),
		flagSet.BoolVar(&options.Shuffle, "shuffle", false, "probe ports in random order"),
		flagSet.StringVar(&options.Proxy, "proxy", "", "socks5:// or http:// proxy, list or file"),
		flagSet.StringVar(&options.Rules, "rules", "", "service rule yaml file or directory"),
	)

	flagSet.CreateGroup("output", "Output",
		flagSet.StringVarP(&options.Output, "output", "o", "", "report base filename without extension"),
		flagSet.StringVarP(&options.OutputDir, "output-dir", "od", "", "report output directory"),
		flagSet.StringVarP(&options.Formats, "format", "f", "", "report formats: json,csv,txt,sqlite or all"),
		flagSet.BoolVarP(&options.AllPorts, "all-ports", "ap", false, "include closed and filtered ports in json and csv reports"),
		flagSet.StringVar(&options.Database, "db", "", "also store results in a sqlite file or postgres:// DSN"),
		flagSet.BoolVarP(&options.NoReport, "no-report", "nr", false, "do not write report files"),
	)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVar(&options.ConfigFile, "config", "", "path to hefest-config.yaml"),
		flagSet.StringVar(&options.LogFile, "log", "", "scan log file"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Silent, "silent", false, "no progress, only results"),
		flagSet.BoolVarP(&options.NoBanner, "no-banner", "nb", false, "hide the startup banner"),
		flagSet.BoolVar(&options.Debug, "debug", false, "show per-port diagnostics"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable colored output"),
		flagSet.BoolVarP(&options.Version, "version", "v", false, "show version"),
	)

	if err := flagSet.Parse(); err != nil {
		return nil, err
	}
	return options, nil
}

// Merge fills every option left unset on the command line from c.
func (o *Options) Merge(c *Config) {
	o.Config = c
	if o.Full {
		o.Ports = "full"
	}
	if o.Ports == "" {
		o.Ports = c.Scan.Ports
	}
	if o.Timeout == "" {
		o.Timeout = c.Scan.Timeout
	}
	if o.BannerTimeout == "" {
		o.BannerTimeout = c.Scan.BannerTimeout
	}
	if o.BannerSize <= 0 {
		o.BannerSize = c.Scan.BannerSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = c.Scan.Concurrency
	}
	if o.Proxy == "" {
		o.Proxy = c.Scan.Proxy
	}
	if o.Rules == "" {
		o.Rules = c.Rules
	}
	if o.OutputDir == "" {
		o.OutputDir = c.Report.OutputDir
	}
	if o.Formats == "" {
		o.Formats = strings.Join(c.Report.Formats, ",")
	}
	if o.Database == "" {
		o.Database = c.Report.Database
	}
	if o.LogFile == "" {
		o.LogFile = c.Log.File
	}
}

// Validate checks the merged options.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.Target) == "" {
		return errors.New("no target specified, use -t")
	}
	if _, err := o.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := o.BannerTimeoutDuration(); err != nil {
		return err
	}
	if o.BannerSize <= 0 {
		return errors.Errorf("banner size must be positive, got %d", o.BannerSize)
	}
	if o.Concurrency <= 0 {
		return errors.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	for _, f := range o.FormatList() {
		switch f {
		case "json", "csv", "txt", "sqlite":
		default:
			return errors.Errorf("unknown report format %q", f)
		}
	}
	return nil
}

func (o *Options) TimeoutDuration() (time.Duration, error) {
	return parsePositiveDuration("timeout", o.Timeout)
}

func (o *Options) BannerTimeoutDuration() (time.Duration, error) {
	return parsePositiveDuration("banner timeout", o.BannerTimeout)
}

// FormatList returns the normalized report formats.
func (o *Options) FormatList() []string {
	var formats []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(o.Formats, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "text" {
			f = "txt"
		}
		if f == "all" {
			for _, a := range []string{"json", "csv", "txt", "sqlite"} {
				if !seen[a] {
					seen[a] = true
					formats = append(formats, a)
				}
			}
			continue
		}
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats
}

// parsePositiveDuration accepts plain seconds like 1.5 or a duration like 800ms.
func parsePositiveDuration(name, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	var d time.Duration
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if d, err = time.ParseDuration(value); err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", name, value)
	}
	if d <= 0 {
		return 0, errors.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}
