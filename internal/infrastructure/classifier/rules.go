// Package classifier implements the admission engine's threat classifier:
// bot detection on the User-Agent and shield detection of common attack
// payloads in the path, query and selected headers.
package classifier

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// RulesConfig holds the raw, uncompiled rule set.
type RulesConfig struct {
	// BotDeny are case-insensitive patterns marking a User-Agent as automated.
	BotDeny []string
	// BotAllow exempts well-known crawlers and link previewers.
	BotAllow []string
	// BlockEmptyUserAgent treats a missing User-Agent as a bot.
	BlockEmptyUserAgent bool
	// ShieldPatterns are case-insensitive attack signatures.
	ShieldPatterns []string
	// InspectHeaders lists headers scanned by the shield in addition to the
	// path and query.
	InspectHeaders []string
}

// DefaultRulesConfig is the stock rule set.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		BotDeny: []string{
			`curl`, `wget`, `python-requests`, `python-urllib`, `aiohttp`,
			`go-http-client`, `okhttp`, `libwww`, `httpclient`, `scrapy`,
			`headless`, `phantomjs`, `selenium`, `puppeteer`, `playwright`,
			`crawler`, `spider`, `bot\b`,
		},
		BotAllow: []string{
			`googlebot`, `bingbot`, `duckduckbot`, `yandexbot`,
			`slackbot`, `twitterbot`, `facebookexternalhit`, `linkedinbot`,
		},
		BlockEmptyUserAgent: true,
		ShieldPatterns: []string{
			`\bunion\b[\s\S]*\bselect\b`,
			`'\s*or\s+'?\d*'?\s*=`,
			`\bor\s+\d+\s*=\s*\d+`,
			`;\s*(drop|delete|truncate|alter)\s+`,
			`\b(sleep|benchmark|pg_sleep)\s*\(`,
			`<\s*script`,
			`javascript\s*:`,
			`\bon(error|load|mouseover)\s*=`,
			`\.\./`, `\.\.\\`,
			`/etc/(passwd|shadow)`,
			`(;|\|\||&&)\s*(cat|ls|id|whoami|wget|curl|nc)\b`,
			`\$\(`,
		},
		InspectHeaders: []string{"Referer"},
	}
}

// Rules is a compiled, read-only rule set. It is safe for concurrent use.
type Rules struct {
	botDeny      []*regexp.Regexp
	botAllow     []*regexp.Regexp
	blockEmptyUA bool
	shield       []*regexp.Regexp
	headers      []string
}

var _ ports.Classifier = (*Rules)(nil)

// NewRules compiles cfg.
func NewRules(cfg RulesConfig) (*Rules, error) {
	botDeny, err := compileAll(cfg.BotDeny)
	if err != nil {
		return nil, fmt.Errorf("bot deny rules: %w", err)
	}
	botAllow, err := compileAll(cfg.BotAllow)
	if err != nil {
		return nil, fmt.Errorf("bot allow rules: %w", err)
	}
	shield, err := compileAll(cfg.ShieldPatterns)
	if err != nil {
		return nil, fmt.Errorf("shield rules: %w", err)
	}
	return &Rules{
		botDeny:      botDeny,
		botAllow:     botAllow,
		blockEmptyUA: cfg.BlockEmptyUserAgent,
		shield:       shield,
		headers:      cfg.InspectHeaders,
	}, nil
}

// Evaluate implements ports.Classifier. Bot detection runs first and wins.
func (r *Rules) Evaluate(ctx context.Context, req ports.RequestDescriptor) (ports.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return ports.Verdict{}, err
	}
	if r.isBot(req.UserAgent) {
		return ports.Verdict{Denied: true, Category: domain.ReasonBot}, nil
	}
	if r.tripsShield(req) {
		return ports.Verdict{Denied: true, Category: domain.ReasonShield}, nil
	}
	return ports.Verdict{Category: domain.ReasonNone}, nil
}

func (r *Rules) isBot(ua string) bool {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return r.blockEmptyUA
	}
	if matchAny(r.botAllow, ua) {
		return false
	}
	return matchAny(r.botDeny, ua)
}

func (r *Rules) tripsShield(req ports.RequestDescriptor) bool {
	targets := []string{decode(req.Path, url.PathUnescape), decode(req.RawQuery, url.QueryUnescape)}
	for _, h := range r.headers {
		if v := req.Header.Get(h); v != "" {
			targets = append(targets, decode(v, url.QueryUnescape))
		}
	}
	for _, t := range targets {
		if t != "" && matchAny(r.shield, t) {
			return true
		}
	}
	return false
}

// decode unescapes s, keeping the raw value when it is not valid escaping.
func decode(s string, unescape func(string) (string, error)) string {
	if out, err := unescape(s); err == nil {
		return out
	}
	return s
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
