package useCases

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeToken builds an unsigned header.payload.signature token.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".c2lnbmF0dXJl"
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc.def.ghi", "abc.def.ghi"},
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer:abc.def.ghi", "abc.def.ghi"},
		{"BEARER: abc.def.ghi", "abc.def.ghi"},
		{"token abc.def.ghi", "abc.def.ghi"},
		{"Token: abc.def.ghi", "abc.def.ghi"},
		{` "abc.def.ghi" `, "abc.def.ghi"},
		{`"Bearer abc.def.ghi"`, "abc.def.ghi"},
		{"abc.\ndef.\tghi\r\n", "abc.def.ghi"},
		{"  ", ""},
		{`""`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeToken(tt.in))
		})
	}
}

func TestNormalizeTokenIsIdempotent(t *testing.T) {
	inputs := []string{
		"Bearer abc",
		` "abc" `,
		`bearer "abc"`,
		"token: bearer:abc",
		"Bearer Bearer abc",
		"a b\nc",
		`"""`,
		"token:",
		"plain",
	}
	for _, in := range inputs {
		once := NormalizeToken(in)
		assert.Equal(t, once, NormalizeToken(once), "input %q", in)
	}
}

func TestDecodeTokenPayload(t *testing.T) {
	tok := makeToken(t, map[string]any{"id": "u-42", "sub": "bob@example.com"})

	payload := DecodeTokenPayload(tok)
	require.NotNil(t, payload)
	assert.Equal(t, "u-42", payload["id"])
	assert.Equal(t, "bob@example.com", payload["sub"])
}

func TestDecodeTokenPayloadAcceptsStandardAlphabetAndPadding(t *testing.T) {
	// "?>?" puts a "/" and padding into the standard encoding
	claims := `{"sub":"?>?"}`
	std := base64.StdEncoding.EncodeToString([]byte(claims))
	require.True(t, strings.ContainsAny(std, "+/="), "fixture should exercise the standard alphabet")

	payload := DecodeTokenPayload("h." + std + ".s")
	require.NotNil(t, payload)
	assert.Equal(t, "?>?", payload["sub"])
}

func TestDecodeTokenPayloadFailuresAreNil(t *testing.T) {
	for _, tok := range []string{
		"",
		"single-segment",
		"a.%%%.c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".c",
		"a." + base64.RawURLEncoding.EncodeToString([]byte(`["array"]`)) + ".c",
	} {
		assert.Nil(t, DecodeTokenPayload(tok), "token %q", tok)
	}
}

func TestDecodeTokenPayloadTwoSegmentsIsEnough(t *testing.T) {
	body := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"x"}`))
	payload := DecodeTokenPayload("header." + body)
	require.NotNil(t, payload)
	assert.Equal(t, "x", payload["sub"])
}

func TestPayloadIdentity(t *testing.T) {
	id, name := payloadIdentity(map[string]any{"id": float64(7), "sub": "alice"})
	assert.Equal(t, "7", id)
	assert.Equal(t, "alice", name)

	id, name = payloadIdentity(map[string]any{"sub": 12})
	assert.Empty(t, id)
	assert.Empty(t, name)
}
