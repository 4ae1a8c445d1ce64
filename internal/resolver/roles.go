// File: internal/resolver/roles.go
package resolver

import "github.com/halcyonix/claimsweep/api/schemas"

// roleSpec describes how to locate one semantic role: an ordered list of
// structural selectors tried first, then a full scan of candidate elements
// filtered by a textual predicate. Order is load-bearing — an earlier entry
// wins even when a later one would match a different element.
type roleSpec struct {
	// structural selectors, tried in listed order.
	structural []string
	// scan is the candidate-kind selector for the textual fallback pass.
	scan string
	// keywords drive the fallback predicate against visible text and labels.
	keywords []string
}

var roleSpecs = map[schemas.Role]roleSpec{
	schemas.RoleIdentityInput: {
		structural: []string{
			`input[type=email]`,
			`input[name=username], input[name=user], input[name=login]`,
			`input[autocomplete=username]`,
			`input[id*=user], input[id*=login]`,
		},
		scan:     `input`,
		keywords: []string{"user", "email", "login", "account", "id"},
	},
	schemas.RoleSubmitControl: {
		structural: []string{
			`button[type=submit], input[type=submit]`,
			`button[name*=login], button[id*=login]`,
		},
		scan:     `button, input[type=button], [role=button]`,
		keywords: []string{"log in", "login", "sign in", "submit", "continue"},
	},
	schemas.RoleRewardControl: {
		structural: []string{
			`button[data-testid*=claim], a[data-testid*=claim]`,
			`button[class*=claim], a[class*=claim]`,
			`button[class*=collect], button[class*=redeem]`,
		},
		scan:     `button, a, [role=button]`,
		keywords: []string{"claim", "collect", "redeem", "get reward", "free"},
	},
	schemas.RoleRewardSection: {
		structural: []string{
			`section[class*=reward], div[class*=reward]`,
			`[data-section*=reward]`,
		},
		scan:     `section, article`,
		keywords: []string{"reward", "daily", "bonus", "free"},
	},
}
