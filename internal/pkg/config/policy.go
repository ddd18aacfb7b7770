package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/classifier"
)

// AdmissionPolicy is the optional YAML file tuning budgets and classifier
// rules. Omitted sections keep their defaults.
//
//	budgets:
//	  guest: {window: 1m, max_requests: 5}
//	bot:
//	  deny_user_agents: ["curl", "wget"]
//	  allow_user_agents: ["googlebot"]
//	  block_empty_user_agent: true
//	shield:
//	  patterns: ["<\\s*script"]
//	  inspect_headers: ["Referer"]
type AdmissionPolicy struct {
	Budgets map[domain.RoleClass]domain.Budget `yaml:"budgets"`
	Bot     *BotPolicy                         `yaml:"bot"`
	Shield  *ShieldPolicy                      `yaml:"shield"`
}

type BotPolicy struct {
	DenyUserAgents      []string `yaml:"deny_user_agents"`
	AllowUserAgents     []string `yaml:"allow_user_agents"`
	BlockEmptyUserAgent *bool    `yaml:"block_empty_user_agent"`
}

type ShieldPolicy struct {
	Patterns       []string `yaml:"patterns"`
	InspectHeaders []string `yaml:"inspect_headers"`
}

// LoadPolicy reads and strictly decodes the policy file at path.
func LoadPolicy(path string) (*AdmissionPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read admission policy: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p AdmissionPolicy
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode admission policy: %w", err)
	}
	return &p, nil
}

// Budgets builds the budget table from env defaults, overlaid by p.
func (c AdmissionConfig) Budgets(p *AdmissionPolicy) (domain.Budgets, error) {
	budgets := domain.Budgets{
		domain.ClassAdmin: {Class: domain.ClassAdmin, Window: c.Window, MaxRequests: c.AdminLimit},
		domain.ClassUser:  {Class: domain.ClassUser, Window: c.Window, MaxRequests: c.UserLimit},
		domain.ClassGuest: {Class: domain.ClassGuest, Window: c.Window, MaxRequests: c.GuestLimit},
	}
	if p != nil {
		for class, b := range p.Budgets {
			if _, ok := budgets[class]; !ok {
				return nil, fmt.Errorf("admission policy: unknown role class %q", class)
			}
			b.Class = class
			if b.Window == 0 {
				b.Window = c.Window
			}
			budgets[class] = b
		}
	}
	if err := budgets.Validate(); err != nil {
		return nil, fmt.Errorf("admission budgets: %w", err)
	}
	return budgets, nil
}

// Rules builds the classifier rule set from defaults, overlaid by p.
func (p *AdmissionPolicy) Rules() classifier.RulesConfig {
	rules := classifier.DefaultRulesConfig()
	if p == nil {
		return rules
	}
	if p.Bot != nil {
		if p.Bot.DenyUserAgents != nil {
			rules.BotDeny = p.Bot.DenyUserAgents
		}
		if p.Bot.AllowUserAgents != nil {
			rules.BotAllow = p.Bot.AllowUserAgents
		}
		if p.Bot.BlockEmptyUserAgent != nil {
			rules.BlockEmptyUserAgent = *p.Bot.BlockEmptyUserAgent
		}
	}
	if p.Shield != nil {
		if p.Shield.Patterns != nil {
			rules.ShieldPatterns = p.Shield.Patterns
		}
		if p.Shield.InspectHeaders != nil {
			rules.InspectHeaders = p.Shield.InspectHeaders
		}
	}
	return rules
}
