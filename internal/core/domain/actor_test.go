package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeMutation(t *testing.T) {
	self := Actor{ID: 5, Email: "u@example.com", Role: RoleUser}
	admin := Actor{ID: 1, Email: "a@example.com", Role: RoleAdmin}

	tests := []struct {
		name        string
		actor       Actor
		target      int64
		changesRole bool
		want        error
	}{
		{"self without role", self, 5, false, nil},
		{"self changing role", self, 5, true, ErrRoleChangeForbidden},
		{"other user", self, 7, false, ErrNotOwner},
		{"other user changing role", self, 7, true, ErrNotOwner},
		{"admin any id", admin, 7, false, nil},
		{"admin changing role", admin, 7, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeMutation(tt.actor, tt.target, tt.changesRole)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindAuthorization, KindOf(err))
		})
	}
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassGuest, ClassOf(nil))
	assert.Equal(t, ClassAdmin, ClassOf(&Actor{ID: 1, Role: RoleAdmin}))
	assert.Equal(t, ClassUser, ClassOf(&Actor{ID: 2, Role: RoleUser}))
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Admit(ClassGuest).Err())

	var de *Error
	require.ErrorAs(t, Deny(ClassGuest, ReasonRateLimit).Err(), &de)
	assert.Equal(t, KindAdmissionDenied, de.Kind)
	assert.Equal(t, "guest request limit exceeded", de.Message)
	assert.Equal(t, "rate_limit", de.Reason)
}

func TestDenyWithoutReasonPanics(t *testing.T) {
	assert.Panics(t, func() { _ = Deny(ClassGuest, ReasonNone) })
}

func TestBudgetsValidate(t *testing.T) {
	require.NoError(t, DefaultBudgets().Validate())

	b := DefaultBudgets()
	b[ClassGuest] = Budget{Class: ClassGuest, Window: 0, MaxRequests: 5}
	assert.Error(t, b.Validate(), "zero window")

	b = DefaultBudgets()
	b[ClassUser] = Budget{Class: ClassUser, Window: b[ClassUser].Window, MaxRequests: 50}
	assert.Error(t, b.Validate(), "user above admin")
}

func TestCounterKey(t *testing.T) {
	assert.Equal(t, "ip:10.0.0.1:guest", CounterKey(nil, "10.0.0.1", ClassGuest))
	assert.Equal(t, "user:42:admin", CounterKey(&Actor{ID: 42}, "10.0.0.1", ClassAdmin))
}
