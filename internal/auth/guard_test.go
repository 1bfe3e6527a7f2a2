package auth

import "testing"

func TestEvaluateGuard(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		hasToken     bool
		wantState    GuardState
		wantRedirect string
		wantRender   bool
	}{
		{"no token on protected page", "/users", false, GuardUnauthenticated, "/login", false},
		{"no token on root", "/", false, GuardUnauthenticated, "/login", false},
		{"no token on login", "/login", false, GuardUnauthenticated, "", true},
		{"token on login", "/login", true, GuardAuthenticatedOnLogin, "/users", false},
		{"token on login with slash", "/login/", true, GuardAuthenticatedOnLogin, "/users", false},
		{"token on protected page", "/feedback", true, GuardAuthenticated, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateGuard(tt.path, tt.hasToken)
			if d.State != tt.wantState {
				t.Errorf("State = %s, want %s", d.State, tt.wantState)
			}
			if d.Redirect != tt.wantRedirect {
				t.Errorf("Redirect = %q, want %q", d.Redirect, tt.wantRedirect)
			}
			if d.Render() != tt.wantRender {
				t.Errorf("Render() = %v, want %v", d.Render(), tt.wantRender)
			}
		})
	}
}

func TestGuardDecision_ZeroValueIsChecking(t *testing.T) {
	var d GuardDecision
	if d.State != GuardChecking {
		t.Errorf("zero State = %s, want checking", d.State)
	}
	if d.Render() {
		t.Error("checking state must not render")
	}
}

func TestLogoutDecision(t *testing.T) {
	d := LogoutDecision()
	if d.State != GuardUnauthenticated || d.Redirect != LoginPath {
		t.Errorf("LogoutDecision = %+v", d)
	}
}

func TestGuardState_String(t *testing.T) {
	if GuardAuthenticatedOnLogin.String() != "authenticated_on_login" {
		t.Errorf("String = %s", GuardAuthenticatedOnLogin.String())
	}
}
