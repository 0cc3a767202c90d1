package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/remeh/sizedwaitgroup"
	"github.com/zan8in/hefest/pkg/portscan"
	"github.com/zan8in/hefest/pkg/utils"
	fileutil "github.com/zan8in/pins/file"
	timeutil "github.com/zan8in/pins/time"
)

const OutputDirectory = "./results"

type Options struct {
	// OutputDir receives the report files.
	OutputDir string
	// Output is the base filename without extension. Empty means
	// hefest_<target>_<timestamp>.
	Output string
	// Formats lists json, csv, txt and sqlite.
	Formats []string
	// AllPorts includes closed and filtered ports in json, csv and sqlite.
	AllPorts bool
}

// BaseName returns the report path without extension.
func (o Options) BaseName(result *portscan.ScanResult) string {
	dir := o.OutputDir
	if dir == "" {
		dir = OutputDirectory
	}
	name := o.Output
	if name == "" {
		name = fmt.Sprintf("hefest_%s_%s", utils.SanitizeFilename(result.Target), timeutil.Format(timeutil.Format_1))
	}
	return filepath.Join(dir, name)
}

// WriteAll writes every requested format concurrently and returns the paths
// written. A failing format does not stop the others.
func WriteAll(result *portscan.ScanResult, opt Options) ([]string, error) {
	if result == nil {
		return nil, errors.New("no scan result to report")
	}
	dir := opt.OutputDir
	if dir == "" {
		dir = OutputDirectory
	}
	if !fileutil.FolderExists(dir) {
		fileutil.CreateFolder(dir)
		if !fileutil.FolderExists(dir) {
			return nil, errors.Errorf("could not create output directory %s", dir)
		}
	}

	base := opt.BaseName(result)
	var (
		mu    sync.Mutex
		paths []string
		errs  []string
	)

	swg := sizedwaitgroup.New(4)
	for _, format := range opt.Formats {
		writer, ext, err := writerFor(format)
		if err != nil {
			mu.Lock()
			errs = append(errs, err.Error())
			mu.Unlock()
			continue
		}
		swg.Add()
		go func(write func(string) error, path string) {
			defer swg.Done()
			err := write(path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", path, err))
				return
			}
			paths = append(paths, path)
		}(func(path string) error { return writer(path, result, opt.AllPorts) }, base+ext)
	}
	swg.Wait()

	sort.Strings(paths)
	if len(errs) > 0 {
		return paths, errors.New("report: " + strings.Join(errs, "; "))
	}
	return paths, nil
}

type writeFunc func(path string, result *portscan.ScanResult, allPorts bool) error

func writerFor(format string) (writeFunc, string, error) {
	switch strings.ToLower(format) {
	case "json":
		return WriteJSON, ".json", nil
	case "csv":
		return WriteCSV, ".csv", nil
	case "txt", "text":
		return func(path string, result *portscan.ScanResult, _ bool) error {
			return WriteText(path, result)
		}, ".txt", nil
	case "sqlite":
		return WriteSQLite, ".db", nil
	default:
		return nil, "", errors.Errorf("unknown report format %q", format)
	}
}

// WriteSQLite stores result in a sqlite file at path.
func WriteSQLite(path string, result *portscan.ScanResult, allPorts bool) error {
	store, err := OpenStore(path)
	if err != nil {
		return err
	}
	if err := store.Save(result, allPorts); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

// selectPorts returns the ports a report lists: open ones, or all.
func selectPorts(result *portscan.ScanResult, allPorts bool) []*portscan.PortResult {
	if allPorts {
		return result.Ports
	}
	return result.Open()
}
