package test

import (
	"fmt"
	"net/http"
	"testing"
)

// TestHealthEndpoint verifies the liveness check
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)

	status, body := server.GetJSON(t, "/healthz", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

// TestReadinessEndpoint verifies readiness with no configured dependencies
func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t)

	status, body := server.GetJSON(t, "/readyz", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ready" {
		t.Errorf("expected ready, got %v", body["status"])
	}
}

// TestDirectorSignupCreatesAcademy verifies that a director registering with
// an academy name gets a fresh academy and is approved immediately.
func TestDirectorSignupCreatesAcademy(t *testing.T) {
	server := NewTestServer(t)

	status, body := server.PostJSON(t, "/api/auth/signup", "", map[string]any{
		"name":        "Director Kim",
		"email":       "kim@academy.kr",
		"password":    "director-pass",
		"role":        "DIRECTOR",
		"academyName": "Seoul Math Academy",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup failed: %d %v", status, body)
	}

	user := body["user"].(map[string]any)
	if user["academyId"] == "" || user["academyId"] == nil {
		t.Fatal("director signup did not bind an academy")
	}
	if user["approved"] != true {
		t.Error("director must be approved on signup")
	}
	code, _ := body["academyCode"].(string)
	if len(code) != 8 {
		t.Errorf("expected an 8-char join code, got %q", code)
	}

	// the login payload carries the academy display name for the UI
	status, body = server.PostJSON(t, "/api/auth/login", "", map[string]any{
		"email": "kim@academy.kr", "password": "director-pass",
	})
	if status != http.StatusOK {
		t.Fatalf("login failed: %d %v", status, body)
	}
	loggedIn := body["data"].(map[string]any)["user"].(map[string]any)
	if loggedIn["academyName"] != "Seoul Math Academy" {
		t.Errorf("expected academy name on login, got %v", loggedIn["academyName"])
	}
}

// TestScopedRoster runs the core multi-tenant scenario: two academies, five
// students in one, and listing must stay inside the caller's academy.
func TestScopedRoster(t *testing.T) {
	server := NewTestServer(t)

	director := server.Signup(t, map[string]any{
		"name":     "Director Kim",
		"email":    "kim@academy.kr",
		"password": "director-pass", "role": "DIRECTOR",
		"academyName": "Seoul Math Academy",
	})
	academyID := director["academyId"].(string)

	for i := 1; i <= 5; i++ {
		server.Signup(t, map[string]any{
			"name":     fmt.Sprintf("Student %d", i),
			"email":    fmt.Sprintf("student%d@academy.kr", i),
			"password": "student-pass",
			"role":     "STUDENT",
			// joining by the same literal name must land in the same academy
			"academyName": "Seoul Math Academy",
		})
	}

	otherDirector := server.Signup(t, map[string]any{
		"name":     "Director Lee",
		"email":    "lee@academy.kr",
		"password": "director-pass", "role": "DIRECTOR",
		"academyName": "Busan English Academy",
	})
	if otherDirector["academyId"].(string) == academyID {
		t.Fatal("distinct academy names must create distinct academies")
	}

	token := server.Login(t, map[string]any{
		"email": "kim@academy.kr", "password": "director-pass",
	})
	status, body := server.GetJSON(t, "/api/students", token)
	if status != http.StatusOK {
		t.Fatalf("roster failed: %d %v", status, body)
	}
	if count := body["count"].(float64); count != 5 {
		t.Errorf("expected 5 students, got %v", count)
	}
	for _, s := range body["students"].([]any) {
		student := s.(map[string]any)
		if student["academyId"] != academyID {
			t.Errorf("cross-academy leak: %v", student)
		}
	}

	// the second academy has no students yet
	otherToken := server.Login(t, map[string]any{
		"email": "lee@academy.kr", "password": "director-pass",
	})
	status, body = server.GetJSON(t, "/api/students", otherToken)
	if status != http.StatusOK {
		t.Fatalf("roster failed: %d %v", status, body)
	}
	if count := body["count"].(float64); count != 0 {
		t.Errorf("expected empty roster, got %v", count)
	}
}

// TestPhoneOnlyStudentLogin verifies the student phone credential path
func TestPhoneOnlyStudentLogin(t *testing.T) {
	server := NewTestServer(t)

	server.Signup(t, map[string]any{
		"name":     "Director Kim",
		"email":    "kim@academy.kr",
		"password": "director-pass", "role": "DIRECTOR",
		"academyName": "Seoul Math Academy",
	})
	server.Signup(t, map[string]any{
		"name":        "Phone Student",
		"phone":       "010-1234-5678",
		"password":    "student-pass",
		"role":        "STUDENT",
		"academyName": "Seoul Math Academy",
	})

	// normalized digits, isStudentLogin selects the phone identifier
	token := server.Login(t, map[string]any{
		"phone": "01012345678", "password": "student-pass", "isStudentLogin": true,
	})
	if token == "" {
		t.Fatal("expected a token for phone login")
	}
}

// TestExplicitAcademyIDNoReassignment verifies that an explicit academy id
// must match an existing academy rather than silently creating one.
func TestExplicitAcademyIDNoReassignment(t *testing.T) {
	server := NewTestServer(t)

	status, body := server.PostJSON(t, "/api/auth/signup", "", map[string]any{
		"name":      "Student",
		"email":     "s@academy.kr",
		"password":  "student-pass",
		"role":      "STUDENT",
		"academyId": "no-such-academy",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown academy id, got %d %v", status, body)
	}
}

// TestDuplicateEmailRejected verifies cross-academy identifier uniqueness
func TestDuplicateEmailRejected(t *testing.T) {
	server := NewTestServer(t)

	server.Signup(t, map[string]any{
		"name": "First", "email": "dup@academy.kr", "password": "password-1",
		"role": "DIRECTOR", "academyName": "Academy One",
	})
	status, _ := server.PostJSON(t, "/api/auth/signup", "", map[string]any{
		"name": "Second", "email": "dup@academy.kr", "password": "password-2",
		"role": "DIRECTOR", "academyName": "Academy Two",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", status)
	}
}

// TestUnscopedRosterProbe verifies that an anonymous roster probe with
// advisory query params never leaks cross-academy data.
func TestUnscopedRosterProbe(t *testing.T) {
	server := NewTestServer(t)

	server.Signup(t, map[string]any{
		"name": "Director Kim", "email": "kim@academy.kr", "password": "director-pass",
		"role": "DIRECTOR", "academyName": "Seoul Math Academy",
	})

	// advisory TEACHER role without an academy matches nothing
	status, body := server.GetJSON(t, "/api/students?role=TEACHER", "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if count := body["count"].(float64); count != 0 {
		t.Errorf("unscoped probe leaked %v accounts", count)
	}
}

// TestWrongPasswordGeneric401 verifies the generic credential failure
func TestWrongPasswordGeneric401(t *testing.T) {
	server := NewTestServer(t)

	server.Signup(t, map[string]any{
		"name": "Director Kim", "email": "kim@academy.kr", "password": "director-pass",
		"role": "DIRECTOR", "academyName": "Seoul Math Academy",
	})

	wrongPassword := map[string]any{"email": "kim@academy.kr", "password": "wrong"}
	unknownEmail := map[string]any{"email": "nobody@academy.kr", "password": "director-pass"}

	status1, body1 := server.PostJSON(t, "/api/auth/login", "", wrongPassword)
	status2, body2 := server.PostJSON(t, "/api/auth/login", "", unknownEmail)

	if status1 != http.StatusUnauthorized || status2 != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", status1, status2)
	}
	// identical message so responses don't reveal which identifiers exist
	if body1["message"] != body2["message"] {
		t.Errorf("credential failures must be indistinguishable: %v vs %v", body1["message"], body2["message"])
	}
}

// TestAcademyEndpointsRequireAdmin verifies the admin gate
func TestAcademyEndpointsRequireAdmin(t *testing.T) {
	server := NewTestServer(t)

	server.Signup(t, map[string]any{
		"name": "Director Kim", "email": "kim@academy.kr", "password": "director-pass",
		"role": "DIRECTOR", "academyName": "Seoul Math Academy",
	})
	directorToken := server.Login(t, map[string]any{
		"email": "kim@academy.kr", "password": "director-pass",
	})

	status, _ := server.GetJSON(t, "/api/academies", directorToken)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", status)
	}

	status, _ = server.GetJSON(t, "/api/academies", "")
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", status)
	}

	server.Signup(t, map[string]any{
		"name": "Platform Op", "email": "op@superplace.io", "password": "operator-pass",
		"role": "SUPER_ADMIN",
	})
	adminToken := server.Login(t, map[string]any{
		"email": "op@superplace.io", "password": "operator-pass",
	})

	status, body := server.GetJSON(t, "/api/academies", adminToken)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d %v", status, body)
	}
	if count := body["count"].(float64); count != 1 {
		t.Errorf("expected 1 academy, got %v", count)
	}

	status, body = server.PostJSON(t, "/api/academies", adminToken, map[string]any{
		"name": "Seoul Math Academy",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d %v", status, body)
	}

	// explicit creation allocates a second academy despite the name clash
	status, body = server.GetJSON(t, "/api/academies", adminToken)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if count := body["count"].(float64); count != 2 {
		t.Errorf("expected 2 academies, got %v", count)
	}
}

// TestLegacyPipeTokenAccepted verifies the pre-JWT session token format
func TestLegacyPipeTokenAccepted(t *testing.T) {
	server := NewTestServer(t)

	director := server.Signup(t, map[string]any{
		"name": "Director Kim", "email": "kim@academy.kr", "password": "director-pass",
		"role": "DIRECTOR", "academyName": "Seoul Math Academy",
	})
	academyID := director["academyId"].(string)
	server.Signup(t, map[string]any{
		"name": "Student", "email": "s1@academy.kr", "password": "student-pass",
		"role": "STUDENT", "academyName": "Seoul Math Academy",
	})

	legacy := fmt.Sprintf("%s|%s|%s|%s|%d",
		director["id"], "kim@academy.kr", "DIRECTOR", academyID, nowMillis())

	status, body := server.GetJSON(t, "/api/students", legacy)
	if status != http.StatusOK {
		t.Fatalf("legacy token rejected: %d %v", status, body)
	}
	if count := body["count"].(float64); count != 1 {
		t.Errorf("expected 1 student via legacy token, got %v", count)
	}
}
