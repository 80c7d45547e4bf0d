package app

import (
	"context"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gocustody/internal/pkg/goroutine"
)

func TestSplitRule(t *testing.T) {
	rules := []string{
		"approver:custody.challenge:verify",
		" admin : * : * ",
		"viewer:custody.challenge",
		"auditor::read",
		"",
	}

	got := lo.FilterMap(rules, splitRule(3))

	want := [][]string{
		{"approver", "custody.challenge", "verify"},
		{"admin", "*", "*"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitRule = %v, want %v", got, want)
	}
}

func TestNewEnforcer(t *testing.T) {
	e, err := newEnforcer(
		[]string{"approver:custody.challenge:verify", "admin:*:*"},
		[]string{"admin:approver", "cfo:approver"},
	)
	if err != nil {
		t.Fatalf("newEnforcer: %v", err)
	}

	tests := []struct {
		sub, obj, act string
		want          bool
	}{
		{"approver", "custody.challenge", "verify", true},
		{"approver", "custody.challenge", "issue", false},
		{"cfo", "custody.challenge", "verify", true},
		{"admin", "custody.challenge", "issue", true},
		{"viewer", "custody.challenge", "verify", false},
	}

	for _, tt := range tests {
		ok, err := e.Enforce(tt.sub, tt.obj, tt.act)
		if err != nil {
			t.Fatalf("Enforce(%s,%s,%s): %v", tt.sub, tt.obj, tt.act, err)
		}
		if ok != tt.want {
			t.Fatalf("Enforce(%s,%s,%s) = %v, want %v", tt.sub, tt.obj, tt.act, ok, tt.want)
		}
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name, env, local, want string
	}{
		{"Explicit", "/etc/custody.yaml", "true", "/etc/custody.yaml"},
		{"Local", "", "true", "./config/config.yaml"},
		{"Container", "", "", "/config/config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", tt.env)
			t.Setenv("LOCAL", tt.local)

			if got := configPath(); got != tt.want {
				t.Fatalf("configPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStop_ClosesInReverseOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		ctx:        ctx,
		cancel:     cancel,
		httpServer: &http.Server{},
		goroutine:  goroutine.NewManager(1, time.Second),
	}

	var order []string
	for _, name := range []string{"Config", "Database", "ChallengeStore"} {
		a.onClose(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	a.Stop(context.Background())

	if want := []string{"ChallengeStore", "Database", "Config"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("close order = %v, want %v", order, want)
	}
	if ctx.Err() == nil {
		t.Fatalf("expected app context to be cancelled")
	}
}
