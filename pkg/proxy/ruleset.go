package proxy

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

type Regex struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
}

type KV struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type Injection struct {
	Position string `yaml:"position"`
	Append   string `yaml:"append,omitempty"`
	Prepend  string `yaml:"prepend,omitempty"`
	Replace  string `yaml:"replace,omitempty"`
}

// Rule adjusts how one upstream domain is fetched and rewritten.
type Rule struct {
	Domain  string   `yaml:"domain,omitempty"`
	Domains []string `yaml:"domains,omitempty"`
	Paths   []string `yaml:"paths,omitempty"`
	Headers struct {
		UserAgent string `yaml:"user-agent,omitempty"`
		Referer   string `yaml:"referer,omitempty"`
		Cookie    string `yaml:"cookie,omitempty"`
		CSP       string `yaml:"content-security-policy,omitempty"`
	} `yaml:"headers,omitempty"`
	RegexRules []Regex `yaml:"regexRules,omitempty"`

	URLMods struct {
		Domain []Regex `yaml:"domain,omitempty"`
		Path   []Regex `yaml:"path,omitempty"`
		Query  []KV    `yaml:"query,omitempty"`
	} `yaml:"urlMods,omitempty"`

	Injections []Injection `yaml:"injections,omitempty"`
}

func (r Rule) domains() []string {
	out := append([]string(nil), r.Domains...)
	if r.Domain != "" {
		out = append(out, r.Domain)
	}
	return out
}

// hasBodyRules reports whether the rule changes the HTML body.
func (r Rule) hasBodyRules() bool {
	return len(r.RegexRules) > 0 || len(r.Injections) > 0
}

type RuleSet []Rule

// LoadRuleset reads rules from a ';'-separated list of YAML files or
// directories. An empty list yields an empty set.
func LoadRuleset(rulePaths string) (RuleSet, error) {
	if strings.TrimSpace(rulePaths) == "" {
		return RuleSet{}, nil
	}

	var ruleSet RuleSet
	var errs []error

	for _, rulePath := range strings.Split(rulePaths, ";") {
		trimmed := strings.TrimSpace(rulePath)
		if trimmed == "" {
			continue
		}

		var rules RuleSet
		err := filepath.WalkDir(trimmed, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !(strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml")) {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read rules file %q: %w", path, err)
			}
			var r RuleSet
			if err := yaml.Unmarshal(data, &r); err != nil {
				return fmt.Errorf("syntax error in rules file %q: %w", path, err)
			}
			rules = append(rules, r...)
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("load rules from %q: %w", trimmed, err))
			continue
		}
		ruleSet = append(ruleSet, rules...)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("errors while loading rulesets: %v", errs)
	}
	if err := ruleSet.Validate(); err != nil {
		return nil, err
	}

	log.Info("loaded ruleset", "rules", ruleSet.Count(), "domains", ruleSet.DomainCount())
	return ruleSet, nil
}

// Validate compiles every regular expression so bad rules fail at load time
// instead of on a request.
func (rs RuleSet) Validate() error {
	for i, rule := range rs {
		for _, group := range [][]Regex{rule.RegexRules, rule.URLMods.Domain, rule.URLMods.Path} {
			for _, r := range group {
				if _, err := regexp.Compile(r.Match); err != nil {
					return fmt.Errorf("rule %d (%s): bad regex %q: %w", i, strings.Join(rule.domains(), ","), r.Match, err)
				}
			}
		}
	}
	return nil
}

// Match returns the first rule covering domain and path.
func (rs RuleSet) Match(domain, path string) (Rule, bool) {
	for _, rule := range rs {
		for _, d := range rule.domains() {
			if !domainMatches(domain, d) {
				continue
			}
			if len(rule.Paths) > 0 && !hasPrefixAny(path, rule.Paths) {
				continue
			}
			return rule, true
		}
	}
	return Rule{}, false
}

func (rs RuleSet) Domains() []string {
	var domains []string
	for _, rule := range rs {
		domains = append(domains, rule.domains()...)
	}
	return domains
}

func (rs RuleSet) DomainCount() int {
	return len(rs.Domains())
}

func (rs RuleSet) Count() int {
	return len(rs)
}

func domainMatches(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func hasPrefixAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// modifyURL applies the rule's URL mods to u.
func modifyURL(u *url.URL, rule Rule) *url.URL {
	out := *u
	for _, mod := range rule.URLMods.Domain {
		out.Host = regexp.MustCompile(mod.Match).ReplaceAllString(out.Host, mod.Replace)
	}
	for _, mod := range rule.URLMods.Path {
		out.Path = regexp.MustCompile(mod.Match).ReplaceAllString(out.Path, mod.Replace)
		out.RawPath = ""
	}
	if len(rule.URLMods.Query) > 0 {
		v := out.Query()
		for _, q := range rule.URLMods.Query {
			if q.Value == "" {
				v.Del(q.Key)
				continue
			}
			v.Set(q.Key, q.Value)
		}
		out.RawQuery = v.Encode()
	}
	return &out
}

// applyRules runs the rule's regex rules, then its injections.
func applyRules(body string, rule Rule) string {
	for _, r := range rule.RegexRules {
		body = regexp.MustCompile(r.Match).ReplaceAllString(body, r.Replace)
	}
	if len(rule.Injections) == 0 {
		return body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Warn("could not parse html for injection", "err", err)
		return body
	}
	for _, inj := range rule.Injections {
		sel := doc.Find(inj.Position)
		if inj.Replace != "" {
			sel.ReplaceWithHtml(inj.Replace)
			continue
		}
		if inj.Append != "" {
			sel.AppendHtml(inj.Append)
		}
		if inj.Prepend != "" {
			sel.PrependHtml(inj.Prepend)
		}
	}
	out, err := doc.Html()
	if err != nil {
		log.Warn("could not render html after injection", "err", err)
		return body
	}
	return out
}
