package useCases

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

// scheme prefixes, matched case-insensitively in this order
var tokenPrefixes = []string{"bearer ", "bearer:", "token ", "token:"}

// payloadParser only decodes segments; nothing here verifies signatures.
var payloadParser = jwt.NewParser(jwt.WithPaddingAllowed())

// NormalizeToken strips surrounding quotes and whitespace, a "Bearer"/"token"
// scheme prefix and every embedded whitespace character. The result is a
// fixpoint: NormalizeToken(NormalizeToken(s)) == NormalizeToken(s).
func NormalizeToken(raw string) string {
	s := raw
	for {
		next := normalizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = trimQuotesAndSpace(s)
	for _, p := range tokenPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = trimQuotesAndSpace(s[len(p):])
		}
	}
	return strings.Join(strings.Fields(s), "")
}

func trimQuotesAndSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '"' || unicode.IsSpace(r)
	})
}

// DecodeTokenPayload returns the JSON object carried in the middle segment
// of a header.payload.signature token, or nil when there is no such segment
// or it does not decode. Standard and URL-safe base64, padded or not, are
// both accepted.
func DecodeTokenPayload(token string) map[string]any {
	segments := strings.FieldsFunc(token, func(r rune) bool { return r == '.' })
	if len(segments) < 2 {
		return nil
	}

	seg := strings.NewReplacer("+", "-", "/", "_").Replace(segments[1])
	data, err := payloadParser.DecodeSegment(seg)
	if err != nil {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	return payload
}

// payloadIdentity extracts the user id ("id") and username ("sub").
func payloadIdentity(payload map[string]any) (userID, username string) {
	switch v := payload["id"].(type) {
	case string:
		userID = v
	case float64:
		userID = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if sub, ok := payload["sub"].(string); ok {
		username = sub
	}
	return userID, username
}
