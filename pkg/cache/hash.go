package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/Zhangtiande/nudge-sub000/pkg/protocol"
)

// hash128 returns the first 16 bytes (128 bits) of the SHA-256 digest of
// s, hex-encoded to 32 characters. This mirrors the teacher's
// pkg/cache/hash.go truncated-SHA-256 idiom, widened from 64 to 128 bits
// per spec §3 ("128-bit hash").
func hash128(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// Sanitizer redacts free-form text before it is allowed to influence any
// hash preimage, per spec §4.3 ("Sanitization is applied to the prefix
// before hashing"). It is satisfied by sanitizer.Sanitizer without this
// package importing the sanitizer package directly, avoiding an import
// cycle (sanitizer has no reason to depend on cache).
type Sanitizer interface {
	Sanitize(text string) (redacted string, applied bool)
}

// KeyInput bundles the fields of a completion request that feed the
// fingerprint, per spec §3.
type KeyInput struct {
	Buffer      string
	CursorPos   int
	CWD         string
	GitRoot     string // empty if absent
	GitState    string // empty if absent
	ShellMode   protocol.ShellMode
	TimeBucket  uint64
	HasTimeBucket bool
}

// BuildKey computes the deterministic fingerprint described in spec §3:
//
//	sk:v1:<prefix_hash>:<cwd_hash>:<git_hash>:<shell_mode>:<time_bucket>
//
// prefixBytes bounds the UTF-8-safe truncation of the sanitized buffer
// prefix up to CursorPos (spec §3, default 80; configurable per §9 open
// question (b)).
func BuildKey(in KeyInput, s Sanitizer, prefixBytes int) string {
	prefix := safePrefix(in.Buffer, in.CursorPos)
	sanitizedPrefix, _ := s.Sanitize(prefix)
	sanitizedPrefix = utf8SafeTruncate(sanitizedPrefix, prefixBytes)
	prefixHash := hash128(sanitizedPrefix)

	cwdSource := in.CWD
	if in.GitRoot != "" {
		cwdSource = in.GitRoot
	}
	cwdSource = canonicalizeForHash(cwdSource)
	cwdHash := hash128(cwdSource)

	gitSource := "nogit"
	if in.GitState != "" {
		gitSource = in.GitState
	}
	gitHash := hash128(gitSource)

	mode := in.ShellMode.Normalize()

	timeBucket := "0"
	if mode.IsAuto() && in.HasTimeBucket {
		timeBucket = fmt.Sprintf("%d", in.TimeBucket)
	}

	return fmt.Sprintf("sk:v1:%s:%s:%s:%s:%s", prefixHash, cwdHash, gitHash, mode, timeBucket)
}

// safePrefix returns buffer[:cursor], where cursor is assumed (per spec
// §3 invariant) to already fall on a UTF-8 character boundary.
func safePrefix(buffer string, cursor int) string {
	if cursor < 0 {
		return ""
	}
	if cursor > len(buffer) {
		cursor = len(buffer)
	}
	return buffer[:cursor]
}

// utf8SafeTruncate returns the largest prefix of s, no more than n bytes,
// that is valid UTF-8 -- i.e. it never splits a multi-byte rune, per
// spec §8 ("UTF-8 truncation safety").
func utf8SafeTruncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	b := s[:n]
	for len(b) > 0 && !utf8.ValidString(b) {
		b = b[:len(b)-1]
	}
	return b
}

// canonicalizeForHash attempts filesystem canonicalization of path and
// lowercases it on platforms with case-insensitive filesystems (spec §3).
// Canonicalization is best-effort: if it fails, the original path is used
// so the fingerprint is still deterministic for that request.
func canonicalizeForHash(path string) string {
	clean := filepath.Clean(path)
	if isCaseInsensitiveFS() {
		clean = strings.ToLower(clean)
	}
	return clean
}

// isCaseInsensitiveFS reports whether the current platform's default
// filesystem is case-insensitive. Windows and Darwin (HFS+/APFS default)
// are treated as case-insensitive; this is a coarse, documented
// approximation -- spec §3 only requires lowercasing "on case-insensitive
// filesystems", and per-volume detection is out of scope for a fingerprint
// helper.
func isCaseInsensitiveFS() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	default:
		return false
	}
}
