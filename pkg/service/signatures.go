package service

import (
	"time"

	"github.com/dlclark/regexp2"
)

const signatureTimeout = 50 * time.Millisecond

// Signature identifies a service from its banner.
type Signature struct {
	Service  string
	Category string
	re       *regexp2.Regexp
}

// ProductSignature extracts server software and version from a banner.
// Group 1 of the pattern, when present, is the version.
type ProductSignature struct {
	Product string
	re      *regexp2.Regexp
}

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.IgnoreCase|regexp2.Multiline)
	re.MatchTimeout = signatureTimeout
	return re
}

// signatures are checked in this order and the first match wins. SMTP is
// tested before FTP because both greet with a 220 line.
var signatures = []Signature{
	{"SSH", CategoryRemoteAccess, mustCompile(`^SSH-\d+\.\d+`)},
	{"HTTP", CategoryWeb, mustCompile(`^HTTP/\d(?:\.\d)?\s+\d{3}|<html`)},
	{"SMTP", CategoryMail, mustCompile(`^220[ -].*\bE?SMTP\b`)},
	{"FTP", CategoryFileTransfer, mustCompile(`^220[ -].*(?:FTP|FileZilla)`)},
	{"POP3", CategoryMail, mustCompile(`^\+OK\b`)},
	{"IMAP", CategoryMail, mustCompile(`^\* OK\b.*IMAP`)},
	{"VNC", CategoryRemoteAccess, mustCompile(`^RFB \d{3}\.\d{3}`)},
	{"MYSQL", CategoryDatabase, mustCompile(`mysql_native_password|MariaDB`)},
	{"REDIS", CategoryDatabase, mustCompile(`redis_version|^-(?:ERR|NOAUTH|DENIED)\b.*(?:redis|unknown command|authentication)`)},
	{"POSTGRESQL", CategoryDatabase, mustCompile(`PostgreSQL`)},
}

var productSignatures = []ProductSignature{
	{"Apache HTTP Server", mustCompile(`apache(?:/([\w.\-]+))?`)},
	{"Nginx HTTP Server", mustCompile(`nginx(?:/([\w.\-]+))?`)},
	{"Microsoft IIS", mustCompile(`microsoft-iis(?:/([\w.\-]+))?`)},
	{"OpenSSH", mustCompile(`openssh[_\-]?([\w.\-]+)?`)},
	{"vsftpd", mustCompile(`vsftpd(?:\s+\(?([\d.]+))?`)},
	{"ProFTPD", mustCompile(`proftpd(?:\s+([\d.]+\w*))?`)},
	{"MySQL", mustCompile(`(?:mysql|mariadb)(?:[ /\-]?([\d.]+))?`)},
	{"PostgreSQL", mustCompile(`postgresql(?:\s+([\d.]+))?`)},
	{"SMTP Mail Server", mustCompile(`\b(?:e?smtp|postfix|exim|sendmail)\b`)},
}

func (s Signature) match(banner string) bool {
	ok, err := s.re.MatchString(banner)
	return err == nil && ok
}

func matchSignature(banner string) (Signature, bool) {
	for _, s := range signatures {
		if s.match(banner) {
			return s, true
		}
	}
	return Signature{}, false
}

func matchProduct(banner string) (product, version string) {
	for _, p := range productSignatures {
		m, err := p.re.FindStringMatch(banner)
		if err != nil || m == nil {
			continue
		}
		if g := m.GroupByNumber(1); g != nil {
			version = g.String()
		}
		return p.Product, version
	}
	return "", ""
}
