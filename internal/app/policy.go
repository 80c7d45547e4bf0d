package app

import (
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/samber/lo"
)

// rbacModel lets a role inherit another role's grants and accepts "*" as object or action.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// splitRule turns "approver:custody.challenge:verify" into its parts. Rules
// with the wrong arity or an empty part are dropped.
func splitRule(arity int) func(rule string, _ int) ([]string, bool) {
	return func(rule string, _ int) ([]string, bool) {
		parts := lo.Map(strings.Split(rule, ":"), func(p string, _ int) string {
			return strings.TrimSpace(p)
		})
		return parts, len(parts) == arity && !lo.Contains(parts, "")
	}
}

// newEnforcer builds the role policy from "role:object:action" rules and
// "role:parent" grants.
func newEnforcer(policies, grants []string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if p := lo.FilterMap(policies, splitRule(3)); len(p) > 0 {
		if _, err := e.AddPolicies(p); err != nil {
			return nil, err
		}
	}
	if g := lo.FilterMap(grants, splitRule(2)); len(g) > 0 {
		if _, err := e.AddGroupingPolicies(g); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (a *App) initCasbin() {
	policies, grants := a.config.GetArray("auth.policies"), a.config.GetArray("auth.role_grants")

	e, err := newEnforcer(policies, grants)
	must(err, "failed to init casbin")

	slog.Info("casbin policies loaded", "policies", len(policies), "role_grants", len(grants))

	a.casbin = e
}
