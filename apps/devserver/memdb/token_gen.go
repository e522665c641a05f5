package memdb

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	salt = []byte("educloud.devserver.memdb.token_gen")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ResetTokens makes and verifies password reset tokens: "<uid>.<timestamp>-<signature>".
// A token is invalidated by a password change or a new login.
type ResetTokens struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

func NewResetTokens(secretKey string, timeout time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secretKey), timeout: timeout, now: time.Now}
}

// Make generates a password reset token for a given User.
func (rt *ResetTokens) Make(usr User) (string, error) {
	token, err := rt.makeWithTimestamp(usr, numDaysSince2001(rt.now()))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID)) + "." + token, nil
}

// Verify checks a password reset token and returns the User it was made for.
func (rt *ResetTokens) Verify(tdb *TenantDB, token string) (User, error) {
	uid, token, ok := strings.Cut(token, ".")
	if !ok {
		return User{}, ErrInvalidToken
	}
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	usr, err := tdb.UserByID(string(id))
	if err != nil {
		return User{}, ErrInvalidToken
	}
	return usr, rt.verify(usr, token)
}

func (rt *ResetTokens) verify(usr User, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := rt.makeWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(time.Now()) - ts) > int(rt.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (rt *ResetTokens) makeWithTimestamp(usr User, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := rt.sign(hashValue(usr, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func (rt *ResetTokens) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, rt.secret...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		val.WriteString(usr.LastLogin.String())
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
