package service

import "strings"

// Classification sources.
const (
	SourcePort   = "port"
	SourceBanner = "banner"
	SourceRule   = "rule"
)

// Classification is the verdict for one (port, banner) pair.
type Classification struct {
	Service         string
	Description     string
	Protocol        string
	Category        string
	Risk            Risk
	Product         string
	Version         string
	Source          string
	Recommendations []string
}

// Classifier maps a port and an optional banner to a service and risk.
// A Classifier holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules []*Rule
}

// New returns a classifier that evaluates rules, in order, before the
// built-in banner signatures. Rules must already be compiled.
func New(rules ...*Rule) *Classifier {
	return &Classifier{rules: append([]*Rule(nil), rules...)}
}

var defaultClassifier = New()

// Classify uses the built-in tables only.
func Classify(port int, banner string) Classification {
	return defaultClassifier.Classify(port, banner)
}

// Rules returns the number of user rules loaded.
func (c *Classifier) Rules() int {
	return len(c.rules)
}

// Classify resolves the service in this order:
//  1. user rules, first match wins;
//  2. built-in banner signatures, first match wins; a signature replaces
//     the port guess only when it names a different category, so that
//     HTTPS on 443 or HTTP-ALT on 8080 keep their more specific names;
//  3. the well-known port table.
//
// Risk always comes from the risk table for the resulting service name,
// unless a user rule sets it explicitly.
func (c *Classifier) Classify(port int, banner string) Classification {
	banner = strings.TrimSpace(banner)

	base, ok := Lookup(port)
	if !ok {
		base = Info{Name: UnknownService, Description: "Unknown Service", Protocol: "TCP", Category: CategoryUnknown}
	}

	result := Classification{
		Service:     base.Name,
		Description: base.Description,
		Protocol:    base.Protocol,
		Category:    base.Category,
		Source:      SourcePort,
	}

	if r := c.matchRule(port, banner); r != nil {
		result.Service = r.Service
		result.Source = SourceRule + ":" + r.Name
		if info, ok := byName[r.Service]; ok {
			result.Description = info.Description
			result.Category = info.Category
		}
		if r.Description != "" {
			result.Description = r.Description
		}
		if r.Category != "" {
			result.Category = r.Category
		}
		result.Risk = RiskOf(r.Service)
		if r.hasRisk {
			result.Risk = r.risk
		}
		return c.finish(result, banner)
	}

	if banner != "" {
		if sig, ok := matchSignature(banner); ok && sig.Category != base.Category {
			result.Service = sig.Service
			result.Category = sig.Category
			result.Source = SourceBanner
			if info, ok := byName[sig.Service]; ok {
				result.Description = info.Description
				result.Protocol = info.Protocol
			}
		}
	}

	result.Risk = RiskOf(result.Service)
	return c.finish(result, banner)
}

func (c *Classifier) finish(result Classification, banner string) Classification {
	if banner != "" {
		result.Product, result.Version = matchProduct(banner)
	}
	result.Recommendations = Recommendations(result.Service)
	return result
}

func (c *Classifier) matchRule(port int, banner string) *Rule {
	for _, r := range c.rules {
		if r.Match(port, banner) {
			return r
		}
	}
	return nil
}
