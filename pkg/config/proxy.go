package config

import (
	"bufio"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/zan8in/fileutil"
	"github.com/zan8in/gologger"
)

const (
	SOCKS5 = "socks5"
	HTTP   = "http"
)

// LoadProxy resolves the proxy option, a URL, a comma separated list or a
// file with one URL per line, to the first reachable proxy URL.
func LoadProxy(proxy string, timeout time.Duration) (string, error) {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" {
		return "", nil
	}

	var proxyURLList []url.URL
	switch {
	case strings.Contains(proxy, ","):
		for _, p := range strings.Split(proxy, ",") {
			if strings.TrimSpace(p) == "" {
				continue
			}
			u, err := validateProxyURL(p)
			if err != nil {
				return "", err
			}
			proxyURLList = append(proxyURLList, u)
		}
	case fileutil.FileExists(proxy):
		file, err := os.Open(proxy)
		if err != nil {
			return "", errors.Wrap(err, "could not open proxy file")
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			u, err := validateProxyURL(line)
			if err != nil {
				return "", err
			}
			proxyURLList = append(proxyURLList, u)
		}
	default:
		u, err := validateProxyURL(proxy)
		if err != nil {
			return "", err
		}
		proxyURLList = append(proxyURLList, u)
	}

	if len(proxyURLList) == 0 {
		return "", errors.New("could not find any valid proxy")
	}
	if len(proxyURLList) == 1 {
		return proxyURLList[0].String(), nil
	}
	for _, u := range proxyURLList {
		if err := testProxyConnection(u, timeout); err == nil {
			gologger.Verbose().Msgf("Using %s as proxy server", u.Redacted())
			return u.String(), nil
		}
	}
	return "", errors.New("no reachable proxy found")
}

func testProxyConnection(proxyURL url.URL, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", proxyURL.Host, timeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

func validateProxyURL(proxy string) (url.URL, error) {
	proxy = strings.TrimSpace(proxy)
	if u, err := url.Parse(proxy); err == nil && isSupportedProtocol(u.Scheme) && u.Host != "" {
		return *u, nil
	}
	return url.URL{}, errors.New("invalid proxy format (It should be http/socks5://[username:password@]host:port), ProxyURL: " + proxy)
}

func isSupportedProtocol(value string) bool {
	return value == HTTP || value == SOCKS5
}
