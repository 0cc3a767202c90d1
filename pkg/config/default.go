package config

const (
	DefaultPorts         = "common"
	DefaultTimeout       = "1s"
	DefaultBannerTimeout = "800ms"
	DefaultBannerSize    = 512
	DefaultConcurrency   = 150
	DefaultOutputDir     = "./results"
	DefaultLogFile       = "./logs/hefest.log"
	DefaultLogLevel      = "info"
)

var DefaultFormats = []string{"json", "csv", "txt"}
