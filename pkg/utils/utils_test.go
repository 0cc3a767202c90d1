package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDecodeBanner(t *testing.T) {
	cases := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte("SSH-2.0-OpenSSH_8.9\r\n"), "SSH-2.0-OpenSSH_8.9"},
		{[]byte("220 ready\x00\x01\r\n"), "220 ready"},
		{[]byte("a\tb\r\nc"), "a\tb\r\nc"},
		{[]byte{'o', 'k', 0xff, 0xfe, '!'}, "ok\ufffd\ufffd!"},
	}
	for _, tc := range cases {
		if got := DecodeBanner(tc.in); got != tc.want {
			t.Fatalf("DecodeBanner(%q): got=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestDecodeBannerAlwaysValidUTF8(t *testing.T) {
	raw := make([]byte, 256)
	for i := range raw {
		raw[i] = byte(i)
	}
	if s := DecodeBanner(raw); !utf8.ValidString(s) {
		t.Fatalf("decoded banner is not valid utf-8: %q", s)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Fatalf("truncate mismatch: %q", got)
	}
	// "é" is two bytes, cutting inside it must back off
	if got := Truncate("aé", 2); got != "a" {
		t.Fatalf("rune split: %q", got)
	}
	if got := Truncate(strings.Repeat("x", 600), 512); len(got) != 512 {
		t.Fatalf("length mismatch: %d", len(got))
	}
}

func TestMmh3Hash32(t *testing.T) {
	if Mmh3Hash32(nil) != 0 {
		t.Fatalf("empty input should hash to 0")
	}
	a := Mmh3Hash32([]byte("SSH-2.0-OpenSSH_8.9"))
	b := Mmh3Hash32([]byte("SSH-2.0-OpenSSH_8.9"))
	c := Mmh3Hash32([]byte("SSH-2.0-OpenSSH_9.0"))
	if a != b || a == c || a == 0 {
		t.Fatalf("hash mismatch: a=%d b=%d c=%d", a, b, c)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename("scan.example.com:8080/x"); got != "scan.example.com_8080_x" {
		t.Fatalf("sanitize mismatch: %q", got)
	}
	if got := SanitizeFilename("::1"); got != "__1" {
		t.Fatalf("sanitize ipv6 mismatch: %q", got)
	}
}
