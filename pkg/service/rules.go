package service

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// RuleFile is the on-disk layout of a user rule file.
//
//	rules:
//	  - name: internal-admin
//	    ports: [9443]
//	    match: "^HTTP/1\\.[01] 401"
//	    expression: 'banner.contains("realm=\"admin\"")'
//	    service: ADMIN-PANEL
//	    category: web
//	    risk: high
type RuleFile struct {
	Rules []*Rule `yaml:"rules"`
}

// Rule is a user supplied classification. Every condition that is set must
// hold for the rule to match.
type Rule struct {
	Name        string `yaml:"name"`
	Ports       []int  `yaml:"ports,omitempty"`
	Pattern     string `yaml:"match,omitempty"`
	Expression  string `yaml:"expression,omitempty"`
	Service     string `yaml:"service"`
	Category    string `yaml:"category,omitempty"`
	Description string `yaml:"description,omitempty"`
	RiskLevel   string `yaml:"risk,omitempty"`

	re      *regexp2.Regexp
	prg     cel.Program
	risk    Risk
	hasRisk bool
}

var ruleEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("port", decls.Int),
			decls.NewVar("banner", decls.String),
		),
	)
	if err != nil {
		panic(err)
	}
	return env
}()

// Compile validates the rule and prepares its regex and expression.
func (r *Rule) Compile() error {
	r.Service = strings.ToUpper(strings.TrimSpace(r.Service))
	if r.Service == "" {
		return errors.Errorf("rule %q: service is required", r.Name)
	}
	if len(r.Ports) == 0 && r.Pattern == "" && r.Expression == "" {
		return errors.Errorf("rule %q: needs ports, match or expression", r.Name)
	}
	for _, p := range r.Ports {
		if p < 1 || p > 65535 {
			return errors.Errorf("rule %q: invalid port %d", r.Name, p)
		}
	}

	if r.Pattern != "" {
		re, err := regexp2.Compile(r.Pattern, regexp2.IgnoreCase|regexp2.Multiline)
		if err != nil {
			return errors.Wrapf(err, "rule %q: invalid match", r.Name)
		}
		re.MatchTimeout = signatureTimeout
		r.re = re
	}

	if r.Expression != "" {
		ast, iss := ruleEnv.Compile(r.Expression)
		if iss.Err() != nil {
			return errors.Wrapf(iss.Err(), "rule %q: invalid expression", r.Name)
		}
		prg, err := ruleEnv.Program(ast)
		if err != nil {
			return errors.Wrapf(err, "rule %q: invalid expression", r.Name)
		}
		r.prg = prg
	}

	if r.RiskLevel != "" {
		risk, err := ParseRisk(r.RiskLevel)
		if err != nil {
			return errors.Wrapf(err, "rule %q", r.Name)
		}
		r.risk = risk
		r.hasRisk = true
	}
	return nil
}

// Match reports whether the compiled rule applies to port and banner.
func (r *Rule) Match(port int, banner string) bool {
	if len(r.Ports) > 0 {
		found := false
		for _, p := range r.Ports {
			if p == port {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if r.re != nil {
		ok, err := r.re.MatchString(banner)
		if err != nil || !ok {
			return false
		}
	}
	if r.prg != nil {
		out, _, err := r.prg.Eval(map[string]interface{}{
			"port":   int64(port),
			"banner": banner,
		})
		if err != nil {
			return false
		}
		ok, isBool := out.Value().(bool)
		if !isBool || !ok {
			return false
		}
	}
	return true
}

// LoadRules reads a rule file, or every .yaml/.yml file below a directory
// in lexical order, and compiles the rules.
func LoadRules(path string) ([]*Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not find rules")
	}

	var files []string
	if info.IsDir() {
		err = godirwalk.Walk(path, &godirwalk.Options{
			ErrorCallback: func(fsPath string, err error) godirwalk.ErrorAction {
				return godirwalk.SkipNode
			},
			Callback: func(fsPath string, d *godirwalk.Dirent) error {
				if !d.IsDir() && (strings.HasSuffix(fsPath, ".yaml") || strings.HasSuffix(fsPath, ".yml")) {
					files = append(files, fsPath)
				}
				return nil
			},
		})
		if err != nil {
			return nil, errors.Wrap(err, "could not walk rules directory")
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}

	var rules []*Rule
	for _, f := range files {
		fileRules, err := loadRuleFile(f)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	return rules, nil
}

func loadRuleFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read rule file %s", path)
	}
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, errors.Wrapf(err, "could not parse rule file %s", path)
	}
	for i, r := range rf.Rules {
		if r == nil {
			continue
		}
		if r.Name == "" {
			r.Name = filepath.Base(path) + "#" + strconv.Itoa(i)
		}
		if err := r.Compile(); err != nil {
			return nil, errors.Wrapf(err, "rule file %s", path)
		}
	}
	return compact(rf.Rules), nil
}

func compact(rules []*Rule) []*Rule {
	out := rules[:0]
	for _, r := range rules {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
