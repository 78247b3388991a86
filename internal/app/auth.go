package app

import (
	"bufio"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

// ErrAborted is returned when the operator declines to overwrite an auth file
var ErrAborted = errors.New("aborted")

const authRealm = `Basic realm="Bildungszeit Operator"`

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16

	// upper bounds accepted when reading an auth file
	maxArgon2Memory = 1024 * 1024 // 1 GB
	maxArgon2Time   = 16
)

// Authenticator guards operator endpoints with Basic Auth against a
// username:argon2id-hash credentials file
type Authenticator struct {
	user   string
	hash   *passwordHash
	file   string
	logger *zap.Logger
}

// LoadAuthenticator reads the credentials file. A missing file yields a
// disabled authenticator that rejects every operator request.
func LoadAuthenticator(path string, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Authenticator{file: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("no auth file found, operator endpoints disabled",
				zap.String("file", path),
				zap.String("hint", "run: bildungszeit hash-password"),
			)
			return a, nil
		}
		return nil, fmt.Errorf("failed to read auth file: %w", err)
	}

	user, encoded, err := parseAuthLine(string(data))
	if err != nil {
		return nil, err
	}
	hash, err := parsePasswordHash(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid hash in auth file %s: %w", path, err)
	}
	a.user = user
	a.hash = &hash

	logger.Info("basic auth enabled for operator endpoints",
		zap.String("user", user),
		zap.String("file", path),
	)
	return a, nil
}

func parseAuthLine(data string) (string, string, error) {
	line := strings.TrimSpace(data)
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid auth file format (expected: username:hash)")
	}
	return parts[0], parts[1], nil
}

// Enabled reports whether credentials were loaded
func (a *Authenticator) Enabled() bool {
	return a != nil && a.hash != nil
}

// Check verifies a username and password
func (a *Authenticator) Check(user, pass string) bool {
	if !a.Enabled() {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	if !userMatch {
		return false
	}
	return a.hash.matches(pass)
}

// Middleware enforces Basic Auth with Argon2id
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Operator endpoints disabled"})
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !a.Check(user, pass) {
			c.Header("WWW-Authenticate", authRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: ErrUnauthorized})
			a.logger.Warn("failed auth attempt",
				zap.String("remote", c.ClientIP()),
				zap.String("user", user),
			)
			return
		}
		c.Next()
	}
}

// passwordHash is a decoded $argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$salt$key
// string as written to the auth file
type passwordHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h passwordHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key))
}

func (h passwordHash) matches(password string) bool {
	computed := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(h.key, computed) == 1
}

// parsePasswordHash decodes an auth file hash. Parameters above the
// maxArgon2 limits are rejected so a tampered file cannot make every
// operator request allocate gigabytes.
func parsePasswordHash(s string) (passwordHash, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" {
		return passwordHash{}, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return passwordHash{}, errors.New("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return passwordHash{}, fmt.Errorf("unsupported argon2 version %q", parts[2])
	}

	var h passwordHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return passwordHash{}, fmt.Errorf("failed to parse hash parameters: %w", err)
	}
	if h.memory == 0 || h.memory > maxArgon2Memory || h.time == 0 || h.time > maxArgon2Time || h.threads == 0 {
		return passwordHash{}, fmt.Errorf("hash parameters out of range: %s", parts[3])
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return passwordHash{}, fmt.Errorf("failed to decode salt: %w", err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return passwordHash{}, fmt.Errorf("failed to decode hash: %w", err)
	}
	if len(h.key) == 0 {
		return passwordHash{}, errors.New("empty hash")
	}
	return h, nil
}

// HashPassword creates an Argon2id hash of the password in auth file form
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	h := passwordHash{
		memory:  argon2Memory,
		time:    argon2Time,
		threads: argon2Threads,
		salt:    salt,
		key:     argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen),
	}
	return h.String(), nil
}

// CreateAuthFile writes username:hash to path with mode 0400. When the file
// exists and overwrite is false, the operator is asked on in/out.
func CreateAuthFile(path, username, password string, overwrite bool, in io.Reader, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			fmt.Fprintf(out, "Auth file already exists: %s\n", path)
			fmt.Fprint(out, "Overwrite? (y/N): ")
			response, _ := bufio.NewReader(in).ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				return ErrAborted
			}
		}
		// 0400 files cannot be truncated in place
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove existing auth file: %w", err)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	content := fmt.Sprintf("%s:%s\n", username, hash)
	if err := os.WriteFile(path, []byte(content), 0400); err != nil {
		return fmt.Errorf("failed to write auth file: %w", err)
	}

	fmt.Fprintf(out, "Auth file created: %s (mode: 0400 read-only)\n", path)
	fmt.Fprintf(out, "   Username: %s\n", username)
	return nil
}
