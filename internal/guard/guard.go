// Package guard decides whether a user may access a route.
package guard

import (
	"fmt"
	"strings"

	"github.com/vormiaphp/vormiaquery/internal/models"
)

const (
	ReasonUnauthenticated  = "unauthenticated"
	ReasonValidationFailed = "validation failed"
)

// Rules are AND-combined; empty rules are skipped.
type Rules struct {
	Roles       []string
	Permissions []string
	// RequireAll demands every listed role and every listed permission
	// instead of any one of each.
	RequireAll bool
	Validate   func(*models.User) bool
	// Strict rejects a nil user outright.
	Strict bool
}

type Result struct {
	Authorized bool
	Reason     string
}

func allow() Result { return Result{Authorized: true} }

func deny(reason string) Result { return Result{Reason: reason} }

// Evaluate applies rules to user. A nil user is rejected when Strict is set;
// otherwise it is checked as a user without roles or permissions, so it
// passes only when no role or permission rule is given and Validate, if
// any, accepts nil.
func Evaluate(user *models.User, rules Rules) Result {
	if user == nil && rules.Strict {
		return deny(ReasonUnauthenticated)
	}

	var roles, perms models.Names
	if user != nil {
		roles, perms = user.Roles, user.Permissions
	}

	if missing := check(roles, rules.Roles, rules.RequireAll); len(missing) > 0 {
		return deny(fmt.Sprintf("missing role(s): %s", strings.Join(missing, ", ")))
	}
	if missing := check(perms, rules.Permissions, rules.RequireAll); len(missing) > 0 {
		return deny(fmt.Sprintf("missing permission(s): %s", strings.Join(missing, ", ")))
	}
	if rules.Validate != nil && !rules.Validate(user) {
		return deny(ReasonValidationFailed)
	}
	return allow()
}

// check returns the names that make the rule fail: the absent ones when
// all are required, or the whole list when none is held.
func check(held models.Names, want []string, all bool) []string {
	if len(want) == 0 {
		return nil
	}
	var missing []string
	for _, w := range want {
		if !held.Has(w) {
			missing = append(missing, w)
		}
	}
	if all || len(missing) == len(want) {
		return missing
	}
	return nil
}
