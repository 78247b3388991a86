package app

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func TestHashPassword(t *testing.T) {
	password := "MySecurePassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("Hash should start with $argon2id$v=19$, got: %s", hash)
	}

	// different salt every time
	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() failed on second call: %v", err)
	}
	if hash == hash2 {
		t.Error("Two hashes of same password should be different (different salts)")
	}
}

func TestPasswordHashMatches(t *testing.T) {
	password := "MySecurePassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  bool
	}{
		{name: "Correct password", password: password, hash: hash, want: true},
		{name: "Wrong password", password: "WrongPassword456", hash: hash, want: false},
		{name: "Invalid hash format", password: password, hash: "invalid", wantErr: true},
		{name: "Wrong algorithm", password: password, hash: "$bcrypt$v=1$m=65536,t=1,p=4$salt$hash", wantErr: true},
		{name: "Broken salt", password: password, hash: "$argon2id$v=19$m=65536,t=1,p=4$!!!$hash", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := parsePasswordHash(tt.hash)
			if (err != nil) != tt.wantErr {
				t.Errorf("parsePasswordHash() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if got := h.matches(tt.password); got != tt.want {
				t.Errorf("matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateAuthFile(t *testing.T) {
	authFile := filepath.Join(t.TempDir(), "auth.secret")
	username := "operator"
	password := "TestPassword123456"

	t.Run("Create new file", func(t *testing.T) {
		var out strings.Builder
		if err := CreateAuthFile(authFile, username, password, false, strings.NewReader(""), &out); err != nil {
			t.Fatalf("CreateAuthFile() failed: %v", err)
		}

		info, err := os.Stat(authFile)
		if err != nil {
			t.Fatalf("Failed to stat auth file: %v", err)
		}
		if info.Mode().Perm() != 0400 {
			t.Errorf("Expected file mode 0400 (read-only), got %o", info.Mode().Perm())
		}

		content, err := os.ReadFile(authFile)
		if err != nil {
			t.Fatalf("Failed to read auth file: %v", err)
		}
		user, hash, err := parseAuthLine(string(content))
		if err != nil {
			t.Fatalf("Auth file should contain username:hash: %v", err)
		}
		if user != username {
			t.Errorf("Expected username %s, got %s", username, user)
		}

		h, err := parsePasswordHash(hash)
		if err != nil {
			t.Fatalf("parsePasswordHash() failed: %v", err)
		}
		if !h.matches(password) {
			t.Error("Password verification failed for created hash")
		}
		if !strings.Contains(out.String(), "Auth file created") {
			t.Errorf("Unexpected output: %q", out.String())
		}
	})

	t.Run("Existing file, answer no", func(t *testing.T) {
		var out strings.Builder
		err := CreateAuthFile(authFile, "other", password, false, strings.NewReader("n\n"), &out)
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("Expected ErrAborted, got %v", err)
		}
		content, _ := os.ReadFile(authFile)
		if !strings.HasPrefix(string(content), username+":") {
			t.Error("File should be left untouched")
		}
	})

	t.Run("Existing file, answer yes", func(t *testing.T) {
		var out strings.Builder
		if err := CreateAuthFile(authFile, "second", password, false, strings.NewReader("yes\n"), &out); err != nil {
			t.Fatalf("CreateAuthFile() failed: %v", err)
		}
		content, _ := os.ReadFile(authFile)
		if !strings.HasPrefix(string(content), "second:") {
			t.Error("File should be overwritten after confirmation")
		}
	})

	t.Run("Overwrite with flag", func(t *testing.T) {
		var out strings.Builder
		if err := CreateAuthFile(authFile, "newuser", "NewPassword123456", true, strings.NewReader(""), &out); err != nil {
			t.Fatalf("CreateAuthFile() with overwrite failed: %v", err)
		}
		content, _ := os.ReadFile(authFile)
		if !strings.HasPrefix(string(content), "newuser:") {
			t.Error("File should be overwritten with new username")
		}
	})
}

func TestLoadAuthenticator(t *testing.T) {
	tests := []struct {
		name        string
		setupFile   func(string) error
		wantUser    string
		wantErr     bool
		wantEnabled bool
	}{
		{
			name: "Valid auth file",
			setupFile: func(path string) error {
				hash, _ := HashPassword("TestPassword123456")
				return os.WriteFile(path, []byte("testuser:"+hash), 0600)
			},
			wantUser:    "testuser",
			wantEnabled: true,
		},
		{
			name:      "File not exists",
			setupFile: func(path string) error { return nil },
		},
		{
			name: "Invalid format (missing colon)",
			setupFile: func(path string) error {
				return os.WriteFile(path, []byte("invalidformat"), 0600)
			},
			wantErr: true,
		},
		{
			name: "Malformed hash",
			setupFile: func(path string) error {
				return os.WriteFile(path, []byte("testuser:$argon2id$v=19$m=65536,t=1,p=4$!!!$hash"), 0600)
			},
			wantErr: true,
		},
		{
			name: "Invalid format (empty)",
			setupFile: func(path string) error {
				return os.WriteFile(path, []byte(""), 0600)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authFile := filepath.Join(t.TempDir(), "auth.secret")
			if err := tt.setupFile(authFile); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}

			auth, err := LoadAuthenticator(authFile, zaptest.NewLogger(t))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadAuthenticator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if auth.user != tt.wantUser {
				t.Errorf("user = %s, want %s", auth.user, tt.wantUser)
			}
			if auth.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", auth.Enabled(), tt.wantEnabled)
			}
		})
	}
}

func newTestAuthenticator(t *testing.T, user, password string) *Authenticator {
	t.Helper()
	encoded, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to create test hash: %v", err)
	}
	hash, err := parsePasswordHash(encoded)
	if err != nil {
		t.Fatalf("Failed to parse test hash: %v", err)
	}
	return &Authenticator{user: user, hash: &hash, logger: zaptest.NewLogger(t)}
}

func TestParsePasswordHash(t *testing.T) {
	valid, err := HashPassword("TestPassword123456")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	h, err := parsePasswordHash(valid)
	if err != nil {
		t.Fatalf("parsePasswordHash() failed: %v", err)
	}
	if h.memory != argon2Memory || h.time != argon2Time || h.threads != argon2Threads {
		t.Errorf("Unexpected parameters m=%d t=%d p=%d", h.memory, h.time, h.threads)
	}
	if len(h.salt) != saltLen || len(h.key) != argon2KeyLen {
		t.Errorf("Unexpected salt/key length %d/%d", len(h.salt), len(h.key))
	}
	if h.String() != valid {
		t.Error("String() should reproduce the encoded hash")
	}

	rejected := []struct {
		name string
		hash string
	}{
		{name: "Old version", hash: "$argon2id$v=16$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaA"},
		{name: "Huge memory", hash: "$argon2id$v=19$m=4194304,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaA"},
		{name: "Zero passes", hash: "$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHRzYWx0$aGFzaA"},
		{name: "Zero lanes", hash: "$argon2id$v=19$m=65536,t=1,p=0$c2FsdHNhbHRzYWx0$aGFzaA"},
		{name: "Empty key", hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$"},
		{name: "Leading garbage", hash: "x$argon2id$v=19$m=65536,t=1,p=4$c2FsdHNhbHRzYWx0$aGFzaA"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePasswordHash(tt.hash); err == nil {
				t.Errorf("parsePasswordHash(%q) should fail", tt.hash)
			}
		})
	}
}

func TestAuthenticatorMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	password := "TestPassword123456"
	enabled := newTestAuthenticator(t, "admin", password)
	disabled := &Authenticator{logger: zaptest.NewLogger(t)}

	basic := func(user, pass string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	}

	tests := []struct {
		name           string
		auth           *Authenticator
		authHeader     string
		expectedStatus int
	}{
		{name: "Valid credentials", auth: enabled, authHeader: basic("admin", password), expectedStatus: http.StatusOK},
		{name: "Invalid password", auth: enabled, authHeader: basic("admin", "wrongpassword"), expectedStatus: http.StatusUnauthorized},
		{name: "Invalid username", auth: enabled, authHeader: basic("wronguser", password), expectedStatus: http.StatusUnauthorized},
		{name: "No auth header", auth: enabled, expectedStatus: http.StatusUnauthorized},
		{name: "No auth file", auth: disabled, authHeader: basic("admin", password), expectedStatus: http.StatusForbidden},
		{name: "Nil authenticator", auth: nil, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/api/refresh", tt.auth.Middleware(), func(c *gin.Context) {
				c.String(http.StatusOK, "success")
			})

			req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.expectedStatus == http.StatusOK && w.Body.String() != "success" {
				t.Errorf("Expected body %q, got %q", "success", w.Body.String())
			}
			if tt.expectedStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("Expected WWW-Authenticate header on 401")
			}
		})
	}
}

func TestArgon2idParameters(t *testing.T) {
	if argon2Memory < 64*1024 {
		t.Error("Argon2id memory should be at least 64MB (OWASP recommendation)")
	}
	if argon2Time < 1 {
		t.Error("Argon2id time parameter should be at least 1")
	}
	if argon2Threads < 1 {
		t.Error("Argon2id threads should be at least 1")
	}
	if argon2KeyLen < 32 {
		t.Error("Argon2id key length should be at least 32 bytes")
	}
	if saltLen < 16 {
		t.Error("Salt length should be at least 16 bytes")
	}
}
