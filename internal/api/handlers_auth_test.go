package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestServer(t)
	id, _ := register(t, env.handler, "alice@example.com")

	rr := doJSON(t, env.handler, "POST", "/auth/login", map[string]string{
		"email": "ALICE@example.com", "password": "password1",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rr.Code, rr.Body.String())
	}
	var sess struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decodeEnvelope(t, rr, &sess)
	if sess.User.ID != id || sess.Token == "" {
		t.Fatalf("session = %+v", sess)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Fatalf("password hash leaked: %s", rr.Body.String())
	}

	rr = doJSON(t, env.handler, "POST", "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", rr.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestServer(t)
	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"missing email", map[string]string{"password": "password1", "firstName": "A"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "nope", "password": "password1", "firstName": "A"}, http.StatusBadRequest},
		{"short password", map[string]string{"email": "a@b.io", "password": "123", "firstName": "A"}, http.StatusBadRequest},
		{"confirm mismatch", map[string]string{"email": "a@b.io", "password": "password1", "passwordConfirm": "password2", "firstName": "A"}, http.StatusBadRequest},
		{"confirm match", map[string]string{"email": "a@b.io", "password": "password1", "passwordConfirm": "password1", "firstName": "A"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, env.handler, "POST", "/auth/register", tt.body, nil)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := newTestServer(t)
	register(t, env.handler, "alice@example.com")

	rr := doJSON(t, env.handler, "POST", "/auth/register", map[string]string{
		"email": "alice@example.com", "password": "password2", "firstName": "Other",
	}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr, nil); e.Error == nil || e.Error.Code != "CONFLICT" {
		t.Fatalf("envelope = %+v", e)
	}
}

func TestDeleteAccount(t *testing.T) {
	env := newTestServer(t)
	aliceID, aliceAuth := register(t, env.handler, "alice@example.com")
	bobID, _ := register(t, env.handler, "bob@example.com")

	rr := doJSON(t, env.handler, "POST", "/auth/delete", map[string]string{"userId": aliceID}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: %d", rr.Code)
	}

	rr = doJSON(t, env.handler, "POST", "/auth/delete", map[string]string{"userId": bobID}, aliceAuth)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("deleting someone else: %d", rr.Code)
	}

	rr = doJSON(t, env.handler, "POST", "/auth/delete", map[string]string{"userId": aliceID}, aliceAuth)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, env.handler, "POST", "/auth/login", map[string]string{
		"email": "alice@example.com", "password": "password1",
	}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("login after delete: %d", rr.Code)
	}

	rr = doJSON(t, env.handler, "GET", "/movies/summary", nil, aliceAuth)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("catalog after delete: %d", rr.Code)
	}

	rr = doJSON(t, env.handler, "POST", "/auth/delete", map[string]string{"userId": aliceID}, aliceAuth)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("second delete: %d", rr.Code)
	}
}

func TestTokenOfDeletedAccountCannotWrite(t *testing.T) {
	env := newTestServer(t)
	aliceID, aliceAuth := register(t, env.handler, "alice@example.com")

	rr := doJSON(t, env.handler, "POST", "/auth/delete", map[string]string{"userId": aliceID}, aliceAuth)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, env.handler, "POST", "/movies", map[string]any{
		"movie_name": "Alien", "year_of_creation": 1979,
	}, aliceAuth)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("add after delete: %d %s", rr.Code, rr.Body.String())
	}
	if _, err := os.Stat(filepath.Join(env.dataDir, "movies_"+aliceID+".json")); !os.IsNotExist(err) {
		t.Fatalf("catalog recreated for deleted account: %v", err)
	}
}
