package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/zan8in/gologger"
	"github.com/zan8in/gologger/levels"
	"github.com/zan8in/hefest/pkg/config"
	"github.com/zan8in/hefest/pkg/log"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/progress"
	"github.com/zan8in/hefest/pkg/report"
	"github.com/zan8in/hefest/pkg/service"
	"go.uber.org/zap"
)

type Runner struct {
	options *config.Options
	scanner *portscan.Scanner
	ports   []int
	tracker *progress.Tracker
	monitor *monitor

	// Reports lists the files written by the last Run.
	Reports []string
}

// New validates options and prepares the scanner. Nothing touches the
// network except proxy reachability checks.
func New(options *config.Options) (*Runner, error) {
	if options.Config == nil {
		options.Merge(config.Default())
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	switch {
	case options.Debug:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelDebug)
	case options.Silent:
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
	if options.NoColor {
		log.DisableColor()
	}

	if options.LogFile != "" {
		level := config.DefaultLogLevel
		if options.Config != nil && options.Config.Log.Level != "" {
			level = options.Config.Log.Level
		}
		if options.Debug {
			level = "debug"
		}
		if err := log.Init(log.Options{File: options.LogFile, Level: level}); err != nil {
			return nil, errors.Wrap(err, "could not open log file")
		}
	}

	ports, err := portscan.ParsePorts(options.Ports)
	if err != nil {
		return nil, err
	}

	timeout, err := options.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	bannerTimeout, err := options.BannerTimeoutDuration()
	if err != nil {
		return nil, err
	}

	var rules []*service.Rule
	if options.Rules != "" {
		if rules, err = service.LoadRules(options.Rules); err != nil {
			return nil, err
		}
		gologger.Info().Msgf("Loaded %d service rules from %s", len(rules), options.Rules)
	}

	proxy, err := config.LoadProxy(options.Proxy, timeout)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		options: options,
		ports:   ports,
	}
	if !options.Silent && !options.Debug {
		r.tracker = progress.NewTracker(os.Stderr, time.Second)
	}

	scanOptions := &portscan.Options{
		Timeout:       timeout,
		BannerTimeout: bannerTimeout,
		BannerSize:    options.BannerSize,
		Concurrency:   options.Concurrency,
		NoBanner:      options.NoGrab,
		Shuffle:       options.Shuffle,
		Proxy:         proxy,
		Classifier:    service.New(rules...),
		OnResult:      r.onResult,
		Quiet:         options.Silent,
		Debug:         options.Debug,
	}
	if r.tracker != nil {
		scanOptions.OnProgress = r.tracker.Update
	}
	if r.scanner, err = portscan.NewScanner(scanOptions); err != nil {
		return nil, err
	}
	return r, nil
}

// Ports returns the expanded port list.
func (r *Runner) Ports() []int {
	return r.ports
}

// Run scans the target, prints the summary and writes the reports. A
// cancelled ctx still produces reports for the ports finished so far.
func (r *Runner) Run(ctx context.Context) (*portscan.ScanResult, error) {
	defer log.Sync()

	if r.options.Debug {
		r.monitor = newMonitor(3 * time.Second)
		r.monitor.start()
	}
	if r.tracker != nil {
		r.tracker.Start(len(r.ports))
	}

	log.Info("scan started",
		zap.String("target", r.options.Target),
		zap.Int("ports", len(r.ports)),
		zap.Int("concurrency", r.options.Concurrency))

	result, err := r.scanner.Scan(ctx, r.options.Target, r.ports)

	if r.tracker != nil {
		r.tracker.Stop(err == nil && !result.Interrupted)
	}
	if r.monitor != nil {
		r.monitor.stop()
		gologger.Debug().Msgf("%-18s | peak fds=%d", "Process", r.monitor.peak())
	}
	if err != nil {
		log.Error("scan failed", zap.String("target", r.options.Target), zap.Error(err))
		return nil, err
	}

	fields := []zap.Field{
		zap.String("scan_id", result.ID),
		zap.String("target", result.Target),
		zap.String("ip", result.IP),
		zap.Int("completed", result.Completed()),
		zap.Ints("open", result.OpenPorts),
		zap.Duration("duration", result.Duration),
	}
	if result.Interrupted {
		log.Warn("scan interrupted", fields...)
	} else {
		log.Info("scan completed", fields...)
	}

	if !r.options.Silent {
		report.Console(os.Stdout, result, log.LogColor, r.options.Debug)
	}

	if err := r.save(result); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) save(result *portscan.ScanResult) error {
	if !r.options.NoReport && len(r.options.FormatList()) > 0 {
		paths, err := report.WriteAll(result, report.Options{
			OutputDir: r.options.OutputDir,
			Output:    r.options.Output,
			Formats:   r.options.FormatList(),
			AllPorts:  r.options.AllPorts,
		})
		r.Reports = paths
		for _, p := range paths {
			gologger.Info().Msgf("Report saved to %s", p)
			log.Info("report written", zap.String("path", p))
		}
		if err != nil {
			return err
		}
	}

	if r.options.Database != "" {
		store, err := report.OpenStore(r.options.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(result, r.options.AllPorts); err != nil {
			return err
		}
		log.Info("results stored", zap.String("scan_id", result.ID))
	}
	return nil
}

// onResult prints open ports as they are found and logs every port.
func (r *Runner) onResult(p *portscan.PortResult) {
	log.Debug("port",
		zap.Int("port", p.Port),
		zap.Stringer("state", p.State),
		zap.String("reason", p.Reason),
		zap.Duration("latency", p.Latency))

	if !p.IsOpen() {
		return
	}
	if r.options.Silent {
		fmt.Printf("%s:%d\n", r.options.Target, p.Port)
		return
	}
	if r.tracker != nil {
		fmt.Fprint(os.Stderr, "\r\033[2K\r")
	}
	gologger.Print().Msgf("%s %s:%d %s %s",
		log.LogColor.Open("[open]"),
		r.options.Target,
		p.Port,
		p.Service,
		log.LogColor.Risk(p.Risk, "["+p.Risk.String()+"]"))
}
