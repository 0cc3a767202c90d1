package service

import "sort"

// Service categories.
const (
	CategoryWeb          = "web"
	CategoryDatabase     = "database"
	CategoryMail         = "mail"
	CategoryRemoteAccess = "remote_access"
	CategoryFileTransfer = "file_transfer"
	CategoryDNS          = "dns"
	CategoryOther        = "other"
	CategoryUnknown      = "unknown"
)

const UnknownService = "UNKNOWN"

// Info describes a well-known service.
type Info struct {
	Name        string
	Description string
	Protocol    string
	Category    string
}

// wellKnown maps a port to the service usually found on it. The table is
// loaded once and never written afterwards.
var wellKnown = map[int]Info{
	20:    {"FTP-DATA", "FTP Data Transfer", "TCP", CategoryFileTransfer},
	21:    {"FTP", "File Transfer Protocol", "TCP", CategoryFileTransfer},
	22:    {"SSH", "Secure Shell", "TCP", CategoryRemoteAccess},
	23:    {"TELNET", "Telnet", "TCP", CategoryRemoteAccess},
	25:    {"SMTP", "Simple Mail Transfer Protocol", "TCP", CategoryMail},
	53:    {"DNS", "Domain Name System", "TCP/UDP", CategoryDNS},
	80:    {"HTTP", "Hypertext Transfer Protocol", "TCP", CategoryWeb},
	110:   {"POP3", "Post Office Protocol v3", "TCP", CategoryMail},
	111:   {"RPCBIND", "RPC Bind", "TCP/UDP", CategoryOther},
	135:   {"MSRPC", "Microsoft RPC", "TCP", CategoryOther},
	139:   {"NETBIOS-SSN", "NetBIOS Session Service", "TCP", CategoryOther},
	143:   {"IMAP", "Internet Message Access Protocol", "TCP", CategoryMail},
	443:   {"HTTPS", "HTTP Secure (SSL/TLS)", "TCP", CategoryWeb},
	445:   {"SMB", "Server Message Block", "TCP", CategoryFileTransfer},
	465:   {"SMTPS", "SMTP Secure", "TCP", CategoryMail},
	587:   {"SMTP-SUBMISSION", "SMTP Submission", "TCP", CategoryMail},
	993:   {"IMAPS", "IMAP Secure", "TCP", CategoryMail},
	995:   {"POP3S", "POP3 Secure", "TCP", CategoryMail},
	1433:  {"MSSQL", "Microsoft SQL Server", "TCP", CategoryDatabase},
	1434:  {"MSSQL-MONITOR", "Microsoft SQL Server Browser", "TCP/UDP", CategoryDatabase},
	1521:  {"ORACLE", "Oracle Database", "TCP", CategoryDatabase},
	1723:  {"PPTP", "Point-to-Point Tunneling Protocol", "TCP", CategoryRemoteAccess},
	3306:  {"MYSQL", "MySQL Database", "TCP", CategoryDatabase},
	3389:  {"RDP", "Remote Desktop Protocol", "TCP", CategoryRemoteAccess},
	5432:  {"POSTGRESQL", "PostgreSQL Database", "TCP", CategoryDatabase},
	5900:  {"VNC", "Virtual Network Computing", "TCP", CategoryRemoteAccess},
	6379:  {"REDIS", "Redis Database", "TCP", CategoryDatabase},
	8000:  {"HTTP-ALT", "HTTP Alternative", "TCP", CategoryWeb},
	8080:  {"HTTP-ALT", "HTTP Proxy/Alternative", "TCP", CategoryWeb},
	8443:  {"HTTPS-ALT", "HTTPS Alternative", "TCP", CategoryWeb},
	8888:  {"HTTP-ALT", "HTTP Alternative", "TCP", CategoryWeb},
	27017: {"MONGODB", "MongoDB Database", "TCP", CategoryDatabase},
}

// byName indexes wellKnown by service name so a banner-derived name can be
// described without a port. A name used on several ports takes the entry of
// the lowest one.
var byName = func() map[string]Info {
	ports := make([]int, 0, len(wellKnown))
	for port := range wellKnown {
		ports = append(ports, port)
	}
	sort.Ints(ports)

	m := make(map[string]Info, len(wellKnown))
	for _, port := range ports {
		info := wellKnown[port]
		if _, ok := m[info.Name]; !ok {
			m[info.Name] = info
		}
	}
	return m
}()

// riskTable is keyed by service identity, not by port.
var riskTable = map[string]Risk{
	"TELNET":        High,
	"RDP":           High,
	"VNC":           High,
	"MSSQL":         High,
	"MSSQL-MONITOR": High,
	"MYSQL":         High,
	"POSTGRESQL":    High,
	"MONGODB":       High,
	"REDIS":         High,

	"FTP":             Medium,
	"FTP-DATA":        Medium,
	"SMTP":            Medium,
	"SMTP-SUBMISSION": Medium,
	"POP3":            Medium,
	"IMAP":            Medium,
	"SMB":             Medium,
	"ORACLE":          Medium,
	"HTTP-ALT":        Medium,
	"RPCBIND":         Medium,
	"MSRPC":           Medium,
	"NETBIOS-SSN":     Medium,
	"PPTP":            Medium,

	"HTTP":      Low,
	"HTTPS":     Low,
	"HTTPS-ALT": Low,
	"SSH":       Low,
	"DNS":       Low,
	"SMTPS":     Low,
	"IMAPS":     Low,
	"POP3S":     Low,
}

var recommendations = map[string][]string{
	"FTP": {
		"Consider SFTP (port 22) instead of FTP",
		"FTP transmits credentials in clear text",
	},
	"SSH": {
		"Use SSH key authentication",
		"Disable direct root login",
	},
	"TELNET": {
		"Never use Telnet, use SSH (port 22) instead",
		"Telnet is completely insecure",
	},
	"MYSQL": {
		"MySQL should not be exposed to the internet",
		"Use a firewall to restrict access",
	},
	"REDIS": {
		"Redis should never be reachable from untrusted networks",
		"Enable authentication and protected mode",
	},
	"MONGODB": {
		"MongoDB should not be exposed to the internet",
		"Enable access control",
	},
	"SMB": {
		"Block SMB at the network perimeter",
	},
	"RDP": {
		"RDP is a frequent target of attacks",
		"Use a VPN or restrict allowed IPs",
		"Enable two-factor authentication",
	},
	"VNC": {
		"Protect VNC with a strong password",
		"Consider tunnelling over SSH",
	},
}

var genericRecommendations = []string{"Verify that this service really needs to be exposed"}

// Lookup returns the well-known service on port.
func Lookup(port int) (Info, bool) {
	info, ok := wellKnown[port]
	return info, ok
}

// RiskOf returns the fixed risk for a service name.
func RiskOf(name string) Risk {
	if r, ok := riskTable[name]; ok {
		return r
	}
	return Unknown
}

// Recommendations returns the advice for a service name, never nil.
func Recommendations(name string) []string {
	if recs, ok := recommendations[name]; ok {
		return append([]string(nil), recs...)
	}
	return append([]string(nil), genericRecommendations...)
}
