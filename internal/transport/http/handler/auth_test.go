package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ErlanBelekov/sultan-shell/internal/domain"
	"github.com/ErlanBelekov/sultan-shell/internal/infrastructure/customerapi"
	"github.com/ErlanBelekov/sultan-shell/internal/navigation"
	"github.com/ErlanBelekov/sultan-shell/internal/shell"
)

func loggedOutHarness(t *testing.T, auth *fakeAuth) *harness {
	t.Helper()
	h := newHarness(t, nil, auth, nil)
	h.do(http.MethodPost, "/shell/splash/finish", nil)
	h.do(http.MethodPost, "/shell/onboarding/finish", nil)
	return h
}

func TestLogin_InvalidJSON_Returns400(t *testing.T) {
	h := loggedOutHarness(t, &fakeAuth{})

	w := h.do(http.MethodPost, "/auth/login", `{bad json}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLogin_Success_OpensHome(t *testing.T) {
	var got customerapi.LoginInput
	h := loggedOutHarness(t, &fakeAuth{
		login: func(_ context.Context, in customerapi.LoginInput) (*domain.Session, error) {
			got = in
			return &domain.Session{Token: "tok", User: &domain.UserProfile{ID: 1, Name: "Meera"}}, nil
		},
	})

	w := h.do(http.MethodPost, "/auth/login", `{"email":"meera@example.com","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if got.Email != "meera@example.com" || got.Password != "secret" {
		t.Errorf("usecase got %+v", got)
	}
	snap := decode[shell.Snapshot](t, w)
	if snap.State.Phase != navigation.PhaseAuthenticated || snap.Screen != domain.ViewHome {
		t.Errorf("phase = %s screen = %s", snap.State.Phase, snap.Screen)
	}
	if snap.State.User == nil || snap.State.User.Name != "Meera" {
		t.Errorf("user = %+v", snap.State.User)
	}
	if snap.Chrome == nil {
		t.Error("signed-in frame must carry chrome")
	}
}

func TestLogin_ValidationError_Returns422WithFields(t *testing.T) {
	h := loggedOutHarness(t, &fakeAuth{
		login: func(context.Context, customerapi.LoginInput) (*domain.Session, error) {
			return nil, &domain.ValidationError{Fields: map[string][]string{"email": {"The email must be a valid email address."}}}
		},
	})

	w := h.do(http.MethodPost, "/auth/login", `{"email":"nope","password":"x"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	body := decode[errorBody](t, w)
	if len(body.Fields["email"]) != 1 {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestLogin_RejectedCredentials_PassThroughAPIMessage(t *testing.T) {
	h := loggedOutHarness(t, &fakeAuth{
		login: func(context.Context, customerapi.LoginInput) (*domain.Session, error) {
			return nil, &customerapi.Error{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
		},
	})

	w := h.do(http.MethodPost, "/auth/login", `{"email":"a@b.co","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decode[errorBody](t, w); body.Error != "Invalid credentials" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestRegister_APIFieldErrors(t *testing.T) {
	h := loggedOutHarness(t, &fakeAuth{
		register: func(context.Context, customerapi.RegisterInput) (*domain.Session, error) {
			return nil, &customerapi.Error{
				Status:  http.StatusUnprocessableEntity,
				Message: "The email has already been taken.",
				Fields:  map[string][]string{"email": {"The email has already been taken."}},
			}
		},
	})

	w := h.do(http.MethodPost, "/auth/register", map[string]string{
		"name": "Meera", "email": "m@example.com", "mobile": "9999999999",
		"password": "secret1", "password_confirmation": "secret1",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if body := decode[errorBody](t, w); body.Fields["email"] == nil {
		t.Errorf("fields = %v", body.Fields)
	}
}

func TestSendOTP(t *testing.T) {
	var sentTo string
	h := loggedOutHarness(t, &fakeAuth{
		sendOTP: func(_ context.Context, mobile string) error {
			sentTo = mobile
			return nil
		},
	})

	w := h.do(http.MethodPost, "/auth/otp/send", `{"mobile":"9876543210"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if sentTo != "9876543210" {
		t.Errorf("sent to %q", sentTo)
	}
}

func TestLoginWithOTP_UpstreamDown_Returns502(t *testing.T) {
	h := loggedOutHarness(t, &fakeAuth{
		loginWithOTP: func(context.Context, customerapi.OTPLoginInput) (*domain.Session, error) {
			return nil, errors.Join(errors.New("login with otp"), &customerapi.Error{Status: http.StatusServiceUnavailable})
		},
	})

	w := h.do(http.MethodPost, "/auth/otp/login", `{"mobile":"9876543210","otp":"123456"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}
