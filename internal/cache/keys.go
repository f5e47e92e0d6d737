package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	GlobalKeyPrefix = "quizpilot"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// HashKey returns a stable hex digest of the given parts.
func HashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LLMResponseKey identifies a cached completion for a model and prompt.
func LLMResponseKey(model, prompt string) string {
	return GenerateCacheKey("llm", "response", HashKey(model, prompt))
}

// RunLockKey identifies the lock held while a run for email and url is active.
func RunLockKey(email, pageURL string) string {
	return GenerateCacheKey("run", "lock", HashKey(strings.ToLower(email), pageURL))
}
