package store

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxTopicKeyLen = 180
	// Prefer breaking a too-long key at an underscore, but only if that
	// boundary sits above 80% of the cap. Below that, a hard cut loses
	// less of the topic than dropping a whole tail segment would.
	minBreakIndex = maxTopicKeyLen * 8 / 10
)

// NormalizeTopicKey derives the deterministic matching key for a topic.
// The transform is idempotent: applying it to its own output is a no-op.
// Hyphens, colons, periods and plus signs are preserved because they carry
// topic-distinguishing meaning (tickers, versions, scorelines).
func NormalizeTopicKey(topic string) string {
	s := strings.ToLower(topic)
	s = strings.ReplaceAll(s, "&", " and ")

	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '`', '“', '”', '‘', '’', '(', ')', '[', ']', '{', '}', '/', '\\':
			return -1
		}
		return r
	}, s)

	// Commas, whitespace runs and existing underscores all collapse to a
	// single underscore separator.
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	wroteAny := false
	for _, r := range s {
		if r == ',' || r == '_' || unicode.IsSpace(r) {
			pendingSep = true
			continue
		}
		if pendingSep && wroteAny {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
		wroteAny = true
	}
	key := b.String()

	if len(key) > maxTopicKeyLen {
		// Back off to a rune boundary so the cut never leaves a
		// partial multi-byte sequence behind.
		n := maxTopicKeyLen
		for n > 0 && !utf8.RuneStart(key[n]) {
			n--
		}
		cut := key[:n]
		if i := strings.LastIndexByte(cut, '_'); i >= minBreakIndex {
			cut = cut[:i]
		}
		key = strings.TrimRight(cut, "_")
	}

	return key
}
