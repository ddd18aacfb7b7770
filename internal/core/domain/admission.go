package domain

import (
	"fmt"
	"strconv"
	"time"
)

// RoleClass selects the rate budget for a request.
type RoleClass string

const (
	ClassAdmin RoleClass = "admin"
	ClassUser  RoleClass = "user"
	ClassGuest RoleClass = "guest"
)

// ClassOf maps an optional actor to its role class. No actor means guest.
func ClassOf(actor *Actor) RoleClass {
	if actor == nil {
		return ClassGuest
	}
	switch actor.Role {
	case RoleAdmin:
		return ClassAdmin
	case RoleUser:
		return ClassUser
	default:
		return ClassGuest
	}
}

// ClientKey identifies the caller: the actor's id when one is attached,
// otherwise the client IP.
func ClientKey(actor *Actor, ip string) string {
	if actor != nil {
		return "user:" + strconv.FormatInt(actor.ID, 10)
	}
	return "ip:" + ip
}

// CounterKey is the (client, role-class) pair a rate window is kept for.
func CounterKey(actor *Actor, ip string, class RoleClass) string {
	return ClientKey(actor, ip) + ":" + string(class)
}

// Reason explains an admission denial.
type Reason string

const (
	ReasonNone      Reason = "none"
	ReasonBot       Reason = "bot"
	ReasonShield    Reason = "shield"
	ReasonRateLimit Reason = "rate_limit"
)

// Budget is the sliding-window quota of one role class.
type Budget struct {
	Class       RoleClass     `yaml:"-"`
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
}

// Budgets is the static role-class → budget table.
type Budgets map[RoleClass]Budget

// DefaultBudgets returns the stock table: admin 20, user 10, guest 5 per minute.
func DefaultBudgets() Budgets {
	return Budgets{
		ClassAdmin: {Class: ClassAdmin, Window: time.Minute, MaxRequests: 20},
		ClassUser:  {Class: ClassUser, Window: time.Minute, MaxRequests: 10},
		ClassGuest: {Class: ClassGuest, Window: time.Minute, MaxRequests: 5},
	}
}

// For returns the budget of class, falling back to the guest budget.
func (b Budgets) For(class RoleClass) Budget {
	if budget, ok := b[class]; ok {
		return budget
	}
	return b[ClassGuest]
}

// Validate checks that every class has a positive budget and that the
// ceilings are ordered admin >= user >= guest.
func (b Budgets) Validate() error {
	for _, class := range []RoleClass{ClassAdmin, ClassUser, ClassGuest} {
		budget, ok := b[class]
		if !ok {
			return fmt.Errorf("budget for %q is missing", class)
		}
		if budget.Window <= 0 || budget.MaxRequests <= 0 {
			return fmt.Errorf("budget for %q must have a positive window and ceiling", class)
		}
	}
	if b[ClassAdmin].MaxRequests < b[ClassUser].MaxRequests || b[ClassUser].MaxRequests < b[ClassGuest].MaxRequests {
		return fmt.Errorf("budgets must be ordered admin >= user >= guest")
	}
	return nil
}

// Decision is the outcome of admission control for one request.
// A denied decision always carries a reason other than ReasonNone.
type Decision struct {
	Allowed bool
	Reason  Reason
	Class   RoleClass
}

// Admit returns an allowing decision.
func Admit(class RoleClass) Decision {
	return Decision{Allowed: true, Reason: ReasonNone, Class: class}
}

// Deny returns a denying decision. It panics on ReasonNone, which would
// break the decision invariant.
func Deny(class RoleClass, reason Reason) Decision {
	if reason == ReasonNone || reason == "" {
		panic("domain: denied decision without a reason")
	}
	return Decision{Allowed: false, Reason: reason, Class: class}
}

// Err converts a denied decision into the error rendered to the caller.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	var msg string
	switch d.Reason {
	case ReasonBot:
		msg = "Automated requests are not allowed"
	case ReasonShield:
		msg = "Request blocked by security policy"
	default:
		msg = fmt.Sprintf("%s request limit exceeded", d.Class)
	}
	return &Error{Kind: KindAdmissionDenied, Code: "forbidden", Message: msg, Reason: string(d.Reason)}
}

// AuditRecord is one denied (or dry-run denied) admission for later review.
type AuditRecord struct {
	ID        string    `json:"id" bson:"_id"`
	ClientKey string    `json:"client_key" bson:"client_key"`
	IP        string    `json:"ip" bson:"ip"`
	UserAgent string    `json:"user_agent" bson:"user_agent"`
	Method    string    `json:"method" bson:"method"`
	Path      string    `json:"path" bson:"path"`
	Class     RoleClass `json:"role_class" bson:"role_class"`
	Reason    Reason    `json:"reason" bson:"reason"`
	DryRun    bool      `json:"dry_run" bson:"dry_run"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
