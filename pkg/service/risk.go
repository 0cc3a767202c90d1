package service

import (
	"fmt"
	"strings"
)

// Risk is the exposure tier of an open service.
type Risk int

const (
	Unknown Risk = iota
	Low
	Medium
	High
)

var riskNames = map[Risk]string{
	Unknown: "UNKNOWN",
	Low:     "LOW",
	Medium:  "MEDIUM",
	High:    "HIGH",
}

var RiskMap = map[string]Risk{
	"unknown": Unknown,
	"low":     Low,
	"medium":  Medium,
	"high":    High,
}

func (r Risk) String() string {
	if s, ok := riskNames[r]; ok {
		return s
	}
	return riskNames[Unknown]
}

// ParseRisk accepts any casing of LOW, MEDIUM, HIGH and UNKNOWN.
func ParseRisk(s string) (Risk, error) {
	r, ok := RiskMap[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Unknown, fmt.Errorf("invalid risk level %q", s)
	}
	return r, nil
}

func (r Risk) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Risk) UnmarshalText(text []byte) error {
	v, err := ParseRisk(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
