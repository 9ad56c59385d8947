package proxy

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `
- domain: scholarships.example
  headers:
    user-agent: AwnBot/1.0
    referer: none
  urlMods:
    path:
      - match: ^/amp
        replace: ""
- domains:
    - jobs.example
    - careers.example
  paths:
    - /listing
  regexRules:
    - match: <div class="ad">.*?</div>
      replace: ""
  injections:
    - position: body
      append: <p>via awn</p>
`

func writeRules(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadRuleset(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, "a.yaml", rulesYAML)
	writeRules(t, dir, "notes.txt", "ignored")
	single := filepath.Join(t.TempDir(), "b.yml")
	require.NoError(t, os.WriteFile(single, []byte("- domain: news.example\n"), 0o644))

	rs, err := LoadRuleset(dir + " ; " + single)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Count())
	assert.Equal(t, 4, rs.DomainCount())
	assert.ElementsMatch(t, []string{"scholarships.example", "jobs.example", "careers.example", "news.example"}, rs.Domains())
}

func TestLoadRulesetEmpty(t *testing.T) {
	rs, err := LoadRuleset("")
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestLoadRulesetErrors(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, "bad.yaml", "- domain: [unclosed")
	_, err := LoadRuleset(dir)
	assert.Error(t, err)

	_, err = LoadRuleset(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	badRegex := t.TempDir()
	writeRules(t, badRegex, "r.yaml", "- domain: x.example\n  regexRules:\n    - match: \"(\"\n      replace: \"\"\n")
	_, err = LoadRuleset(badRegex)
	assert.ErrorContains(t, err, "bad regex")
}

func TestRuleMatch(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, "a.yaml", rulesYAML)
	rs, err := LoadRuleset(dir)
	require.NoError(t, err)

	r, ok := rs.Match("www.scholarships.example", "/anything")
	require.True(t, ok)
	assert.Equal(t, "AwnBot/1.0", r.Headers.UserAgent)

	_, ok = rs.Match("careers.example", "/listing/5")
	assert.True(t, ok)
	_, ok = rs.Match("careers.example", "/about")
	assert.False(t, ok, "path restricted rule")
	_, ok = rs.Match("unknown.example", "/")
	assert.False(t, ok)
}

func TestModifyURL(t *testing.T) {
	var rule Rule
	rule.URLMods.Domain = []Regex{{Match: `^www\.`, Replace: "m."}}
	rule.URLMods.Path = []Regex{{Match: `^/amp`, Replace: ""}}
	rule.URLMods.Query = []KV{{Key: "lang", Value: "ar"}}

	u, _ := url.Parse("https://www.site.example/amp/story?x=1")
	got := modifyURL(u, rule)
	assert.Equal(t, "https://m.site.example/story?lang=ar&x=1", got.String())
	assert.Equal(t, "www.site.example", u.Host, "input is not mutated")
}

func TestApplyRules(t *testing.T) {
	var rule Rule
	rule.RegexRules = []Regex{{Match: `<div class="ad">.*?</div>`, Replace: ""}}
	rule.Injections = []Injection{
		{Position: "body", Append: "<p>end</p>"},
		{Position: "body", Prepend: "<p>start</p>"},
	}

	out := applyRules(`<html><head></head><body><div class="ad">buy</div><main>x</main></body></html>`, rule)
	assert.NotContains(t, out, "buy")
	assert.Contains(t, out, "<body><p>start</p><main>x</main><p>end</p></body>")
}

func TestLoadShippedRulesets(t *testing.T) {
	rs, err := LoadRuleset(filepath.Join("..", "..", "rulesets"))
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Count())
	assert.Contains(t, rs.Domains(), "volunteer.example.net")

	_, ok := rs.Match("www.jobs.example.org", "/listing/7")
	assert.True(t, ok)
}
