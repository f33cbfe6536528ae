package templates

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Function is a template function. Arguments arrive as strings.
type Function struct {
	Call    func(args []string) (string, error)
	MinArgs int
	MaxArgs int // -1 for variadic
	// Volatile marks output that changes between calls with the same input
	Volatile bool
	// Lenient functions are called even when an argument is unresolved; the
	// missing argument is passed as ""
	Lenient bool
}

func (f Function) arity() string {
	switch {
	case f.MaxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", f.MinArgs)
	case f.MinArgs == f.MaxArgs:
		return fmt.Sprintf("%d argument(s)", f.MinArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", f.MinArgs, f.MaxArgs)
	}
}

const randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxRandomLength bounds randomString so a template cannot allocate unbounded memory
const maxRandomLength = 1024

func unary(fn func(string) string) Function {
	return Function{
		Call:    func(args []string) (string, error) { return fn(args[0]), nil },
		MinArgs: 1,
		MaxArgs: 1,
	}
}

func unaryErr(fn func(string) (string, error)) Function {
	return Function{
		Call:    func(args []string) (string, error) { return fn(args[0]) },
		MinArgs: 1,
		MaxArgs: 1,
	}
}

func (r *Resolver) buildFunctionMap() map[string]Function {
	return map[string]Function{
		// Time
		"timestamp":   {Call: r.timestamp, Volatile: true},
		"timestampMs": {Call: r.timestampMs, Volatile: true},
		"isoDate":     {Call: r.isoDate, Volatile: true},
		"date":        {Call: r.date, MinArgs: 1, MaxArgs: 1, Volatile: true},

		// Identifiers and randomness
		"uuid":         {Call: generateUUID, Volatile: true},
		"randomString": {Call: randomString, MinArgs: 1, MaxArgs: 1, Volatile: true},
		"randomInt":    {Call: randomInt, MinArgs: 2, MaxArgs: 2, Volatile: true},

		// Strings
		"upper":   unary(strings.ToUpper),
		"lower":   unary(strings.ToLower),
		"trim":    unary(strings.TrimSpace),
		"concat":  {Call: concat, MinArgs: 1, MaxArgs: -1},
		"replace": {Call: replace, MinArgs: 3, MaxArgs: 3},
		"default": {Call: defaultValue, MinArgs: 2, MaxArgs: 2, Lenient: true},

		// Encoding
		"base64Encode": unary(base64Encode),
		"base64Decode": unaryErr(base64Decode),
		"urlEncode":    unary(url.QueryEscape),
		"urlDecode":    unaryErr(url.QueryUnescape),

		// Hashing and signing
		"md5":        unary(md5Hex),
		"sha1":       unary(sha1Hex),
		"sha256":     unary(sha256Hex),
		"hmacSHA256": {Call: hmacSHA256, MinArgs: 2, MaxArgs: 2},
		"jwt":        {Call: r.signJWT, MinArgs: 2, MaxArgs: 3, Volatile: true},
	}
}

// Time functions

func (r *Resolver) timestamp([]string) (string, error) {
	return strconv.FormatInt(r.now().Unix(), 10), nil
}

func (r *Resolver) timestampMs([]string) (string, error) {
	return strconv.FormatInt(r.now().UnixMilli(), 10), nil
}

func (r *Resolver) isoDate([]string) (string, error) {
	return r.now().UTC().Format(time.RFC3339), nil
}

// date formats the current UTC time with a Go layout, e.g. date('2006-01-02')
func (r *Resolver) date(args []string) (string, error) {
	if args[0] == "" {
		return "", fmt.Errorf("layout is required")
	}
	return r.now().UTC().Format(args[0]), nil
}

// Identifier functions

func generateUUID([]string) (string, error) {
	return uuid.NewString(), nil
}

func randomString(args []string) (string, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > maxRandomLength {
		return "", fmt.Errorf("length must be between 0 and %d", maxRandomLength)
	}
	out := make([]byte, n)
	limit := big.NewInt(int64(len(randomAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = randomAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func randomInt(args []string) (string, error) {
	lo, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid min: %w", err)
	}
	hi, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid max: %w", err)
	}
	if hi < lo {
		return "", fmt.Errorf("max %d is below min %d", hi, lo)
	}
	// hi-lo+1 overflows int64 for wide ranges
	span := new(big.Int).Sub(big.NewInt(hi), big.NewInt(lo))
	span.Add(span, big.NewInt(1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, big.NewInt(lo)).String(), nil
}

// String functions

func concat(args []string) (string, error) {
	return strings.Join(args, ""), nil
}

func replace(args []string) (string, error) {
	return strings.ReplaceAll(args[0], args[1], args[2]), nil
}

func defaultValue(args []string) (string, error) {
	if args[0] != "" {
		return args[0], nil
	}
	return args[1], nil
}

// Encoding functions

func base64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func base64Decode(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hashing functions

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(args []string) (string, error) {
	mac := hmac.New(sha256.New, []byte(args[0]))
	mac.Write([]byte(args[1]))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// signJWT issues an HS256 token: jwt(secret, subject[, ttlSeconds]).
// The default lifetime is one hour.
func (r *Resolver) signJWT(args []string) (string, error) {
	secret, subject := args[0], args[1]
	if secret == "" {
		return "", fmt.Errorf("secret is required")
	}

	ttl := time.Hour
	if len(args) == 3 && args[2] != "" {
		seconds, err := strconv.Atoi(args[2])
		if err != nil || seconds <= 0 {
			return "", fmt.Errorf("ttl must be a positive number of seconds")
		}
		ttl = time.Duration(seconds) * time.Second
	}

	now := r.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
