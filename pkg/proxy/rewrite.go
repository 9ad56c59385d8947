package proxy

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
)

// Rewriter turns an upstream HTML document into one that can be framed
// same-origin: absolute resource URLs route back through the proxy and
// relative URLs resolve against the upstream page.
type Rewriter interface {
	RewriteHTML(body string, target *url.URL, proxyBase string) string
}

// ResponsiveCSS is appended before </head> of every proxied page.
const ResponsiveCSS = `<style>
html, body { margin: 0 !important; padding: 0 !important; max-width: 100% !important; overflow-x: hidden !important; }
* { max-width: 100% !important; box-sizing: border-box !important; }
img, video, iframe, embed, object { max-width: 100% !important; height: auto !important; }
table { table-layout: fixed !important; width: 100% !important; word-wrap: break-word !important; }
pre, code { white-space: pre-wrap !important; word-break: break-word !important; }
</style>`

// ProxiedURL returns the proxy URL for an upstream resource.
func ProxiedURL(proxyBase, original string) string {
	return proxyBase + "?url=" + url.QueryEscape(original)
}

// BaseHref returns origin+path of the target, the value of the injected
// <base> tag.
func BaseHref(target *url.URL) string {
	return target.Scheme + "://" + target.Host + target.EscapedPath()
}

func baseTag(target *url.URL) string {
	return `<base href="` + html.EscapeString(BaseHref(target)) + `">`
}

func isAbsoluteHTTP(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// RegexRewriter is the textual rewriter. It only touches src of <script>
// and <img> and href of <link> when they hold absolute http(s) URLs; srcset,
// inline style URLs and script-injected resources pass through unchanged.
type RegexRewriter struct{}

var (
	scriptSrcRe = regexp.MustCompile(`(?i)(<script\b[^>]*?\ssrc\s*=\s*)(?:"(https?://[^"]+)"|'(https?://[^']+)')`)
	linkHrefRe  = regexp.MustCompile(`(?i)(<link\b[^>]*?\shref\s*=\s*)(?:"(https?://[^"]+)"|'(https?://[^']+)')`)
	imgSrcRe    = regexp.MustCompile(`(?i)(<img\b[^>]*?\ssrc\s*=\s*)(?:"(https?://[^"]+)"|'(https?://[^']+)')`)
	headOpenRe  = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
)

func (RegexRewriter) RewriteHTML(body string, target *url.URL, proxyBase string) string {
	for _, re := range []*regexp.Regexp{scriptSrcRe, linkHrefRe, imgSrcRe} {
		body = rewriteAttr(re, body, proxyBase)
	}
	body = injectAfterHeadOpen(body, baseTag(target))
	body = injectBeforeHeadClose(body, ResponsiveCSS)
	return body
}

func rewriteAttr(re *regexp.Regexp, body, proxyBase string) string {
	return re.ReplaceAllStringFunc(body, func(m string) string {
		sm := re.FindStringSubmatch(m)
		if len(sm) < 4 {
			return m
		}
		// Either the double or the single quoted alternative matched.
		original := html.UnescapeString(sm[2] + sm[3])
		return sm[1] + `"` + html.EscapeString(ProxiedURL(proxyBase, original)) + `"`
	})
}

func injectAfterHeadOpen(body, snippet string) string {
	loc := headOpenRe.FindStringIndex(body)
	if loc == nil {
		return body
	}
	return body[:loc[1]] + snippet + body[loc[1]:]
}

func injectBeforeHeadClose(body, snippet string) string {
	loc := headCloseRe.FindStringIndex(body)
	if loc == nil {
		return body
	}
	return body[:loc[0]] + snippet + body[loc[0]:]
}

// DOMRewriter parses the document with goquery and rewrites the same three
// element/attribute pairs as RegexRewriter. The parser normalizes markup and
// creates a <head> when the document has none.
type DOMRewriter struct {
	// Fallback is used when the document cannot be parsed.
	Fallback Rewriter
}

var domTargets = []struct {
	selector string
	attr     string
}{
	{"script[src]", "src"},
	{"link[href]", "href"},
	{"img[src]", "src"},
}

func (d DOMRewriter) RewriteHTML(body string, target *url.URL, proxyBase string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		log.Warn("could not parse html, falling back to regex rewrite", "url", target.String(), "err", err)
		return d.fallback().RewriteHTML(body, target, proxyBase)
	}

	for _, t := range domTargets {
		doc.Find(t.selector).Each(func(_ int, s *goquery.Selection) {
			v, ok := s.Attr(t.attr)
			if !ok || !isAbsoluteHTTP(strings.TrimSpace(v)) {
				return
			}
			s.SetAttr(t.attr, ProxiedURL(proxyBase, strings.TrimSpace(v)))
		})
	}

	head := doc.Find("head").First()
	head.PrependHtml(baseTag(target))
	head.AppendHtml(ResponsiveCSS)

	out, err := doc.Html()
	if err != nil {
		log.Warn("could not render html, falling back to regex rewrite", "url", target.String(), "err", err)
		return d.fallback().RewriteHTML(body, target, proxyBase)
	}
	return out
}

func (d DOMRewriter) fallback() Rewriter {
	if d.Fallback != nil {
		return d.Fallback
	}
	return RegexRewriter{}
}

// NewRewriter returns the rewriter named by kind: "dom" or "regex" (default).
func NewRewriter(kind string) Rewriter {
	if strings.EqualFold(strings.TrimSpace(kind), "dom") {
		return DOMRewriter{}
	}
	return RegexRewriter{}
}
