package service

import (
	"context"
	"errors"
	"testing"

	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

func TestRegisterApplicant(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	email := nextEmail()

	user, err := e.auth.Register(ctx, RegisterRequest{
		Name:     "Samir Haddad",
		Email:    "  " + email + " ",
		Password: "correct horse",
		Role:     "applicant",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != email {
		t.Errorf("email = %q, want trimmed %q", user.Email, email)
	}
	if user.Role != model.RoleApplicant {
		t.Errorf("role = %s, want applicant", user.Role)
	}
	if user.PasswordHash == "correct horse" {
		t.Error("password stored in the clear")
	}

	if _, err := e.auth.Register(ctx, RegisterRequest{
		Name: "Other", Email: email, Password: "different-pass", Role: "applicant",
	}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}
}

func TestRegisterOffice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user, err := e.auth.Register(ctx, RegisterRequest{
		Name:        "Damascus Travel",
		Email:       nextEmail(),
		Password:    "office-secret",
		Role:        "office",
		Address:     "5 Baghdad St",
		Governorate: "Damascus",
		VisaLimit:   10,
	})
	if err != nil {
		t.Fatalf("Register office: %v", err)
	}
	office := e.officeByID(t, user.ID)
	if office.VisaLimit != 10 || office.ActiveVisaRequests != 0 {
		t.Errorf("office profile limit=%d active=%d, want 10/0", office.VisaLimit, office.ActiveVisaRequests)
	}
	if office.Governorate != "Damascus" {
		t.Errorf("governorate = %q", office.Governorate)
	}

	// без адреса и провинции офис не регистрируется
	if _, err := e.auth.Register(ctx, RegisterRequest{
		Name: "No Address", Email: nextEmail(), Password: "office-secret", Role: "office", VisaLimit: 5,
	}); !errors.Is(err, ErrValidation) {
		t.Errorf("office without address: err = %v, want ErrValidation", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing name", RegisterRequest{Email: nextEmail(), Password: "long enough", Role: "applicant"}},
		{"bad email", RegisterRequest{Name: "X", Email: "not-an-email", Password: "long enough", Role: "applicant"}},
		{"short password", RegisterRequest{Name: "X", Email: nextEmail(), Password: "short", Role: "applicant"}},
		{"admin role", RegisterRequest{Name: "X", Email: nextEmail(), Password: "long enough", Role: "admin"}},
		{"unknown role", RegisterRequest{Name: "X", Email: nextEmail(), Password: "long enough", Role: "courier"}},
	}
	for _, tc := range cases {
		if _, err := e.auth.Register(ctx, tc.req); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestLoginAndIdentify(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	email := nextEmail()

	user, err := e.auth.Register(ctx, RegisterRequest{
		Name: "Samir", Email: email, Password: "correct horse", Role: "applicant",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp, err := e.auth.Login(ctx, LoginRequest{Email: email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	if resp.User.ID != user.ID {
		t.Errorf("user id = %s, want %s", resp.User.ID, user.ID)
	}

	id, err := e.auth.Identify(ctx, resp.Token)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if id.ID != user.ID || id.Role != model.RoleApplicant {
		t.Errorf("identity = %+v", id)
	}

	// неверный пароль и неизвестный email неразличимы
	if _, err := e.auth.Login(ctx, LoginRequest{Email: email, Password: "wrong"}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("bad password: err = %v, want ErrUnauthenticated", err)
	}
	if _, err := e.auth.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"}); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("unknown email: err = %v, want ErrUnauthenticated", err)
	}
}

func TestLoginRateLimit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	email := nextEmail()

	var last error
	for i := 0; i < 12; i++ {
		_, last = e.auth.Login(ctx, LoginRequest{Email: email, Password: "guess"})
	}
	if !errors.Is(last, ErrRateLimited) {
		t.Errorf("after repeated attempts: err = %v, want ErrRateLimited", last)
	}
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	email := nextEmail()

	if _, err := e.auth.Register(ctx, RegisterRequest{
		Name: "Samir", Email: email, Password: "correct horse", Role: "applicant",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp, err := e.auth.Login(ctx, LoginRequest{Email: email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := e.auth.Logout(ctx, resp.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := e.auth.Identify(ctx, resp.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("identify after logout: err = %v, want ErrUnauthenticated", err)
	}
	// повторный выход с тем же токеном не ошибка
	if err := e.auth.Logout(ctx, resp.Token); err != nil {
		t.Errorf("repeat logout: %v", err)
	}
}

func TestIdentifyDeletedUser(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	email := nextEmail()

	user, err := e.auth.Register(ctx, RegisterRequest{
		Name: "Samir", Email: email, Password: "correct horse", Role: "applicant",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	resp, err := e.auth.Login(ctx, LoginRequest{Email: email, Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := e.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	// живой токен без записи пользователя — не 401, а 404
	if _, err := e.auth.Identify(ctx, resp.Token); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("identify deleted user: err = %v, want ErrNotFound", err)
	}
}

func TestProfile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	user, err := e.auth.Register(ctx, RegisterRequest{
		Name:        "Aleppo Travel",
		Email:       nextEmail(),
		Password:    "office-secret",
		Role:        "office",
		Address:     "1 Citadel Sq",
		Governorate: "Aleppo",
		VisaLimit:   4,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	actor := model.Identity{ID: user.ID, Role: model.RoleOffice}

	profile, err := e.auth.Profile(ctx, actor)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if _, ok := profile["user"]; !ok {
		t.Error("profile missing user")
	}
	if _, ok := profile["office"]; !ok {
		t.Error("office profile missing office section")
	}

	updated, err := e.auth.UpdateProfile(ctx, actor, UpdateProfileRequest{Name: "Aleppo Travel LLC", PhoneNumber: "+963-21-555"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Aleppo Travel LLC" || updated.PhoneNumber != "+963-21-555" {
		t.Errorf("updated profile = %q/%q", updated.Name, updated.PhoneNumber)
	}
	if _, err := e.auth.UpdateProfile(ctx, actor, UpdateProfileRequest{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name: err = %v, want ErrValidation", err)
	}
}
