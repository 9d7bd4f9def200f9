// Package idempotency replays the stored response of a mutating request
// when a client retries it with the same Idempotency-Key header.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	DefaultMaxKeyLength    = 255
	DefaultLockTimeout     = 5 * time.Minute
	DefaultRetentionPeriod = 24 * time.Hour
	DefaultMaxResponseSize = 1 << 20
)

var (
	ErrKeyInvalid = errors.New("invalid idempotency key format")
	ErrKeyTooLong = errors.New("idempotency key too long")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Key is one stored Idempotency-Key. It is locked while the first request
// runs and completed once its response is stored.
type Key struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Key             string             `bson:"key"`
	ServiceID       string             `bson:"serviceId"`
	RequestMethod   string             `bson:"requestMethod"`
	RequestPath     string             `bson:"requestPath"`
	Fingerprint     string             `bson:"fingerprint"`
	LockedAt        *time.Time         `bson:"lockedAt,omitempty"`
	ResponseCode    int                `bson:"responseCode,omitempty"`
	ResponseBody    []byte             `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string  `bson:"responseHeaders,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	CompletedAt     *time.Time         `bson:"completedAt,omitempty"`
	ExpiresAt       time.Time          `bson:"expiresAt"`
}

func (k *Key) IsCompleted() bool { return k.CompletedAt != nil }

func (k *Key) IsLocked() bool { return k.LockedAt != nil && k.CompletedAt == nil }

// ValidateKey checks length and the allowed alphabet
func ValidateKey(key string, maxLength int) error {
	if len(key) > maxLength {
		return ErrKeyTooLong
	}
	if !keyPattern.MatchString(key) {
		return ErrKeyInvalid
	}
	return nil
}

// Fingerprint hashes method, path and body, so one key reused against a
// different record or operation is caught as a mismatch
func Fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(method) + " " + path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
