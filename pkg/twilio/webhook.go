package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader is the header Twilio signs webhook requests with.
const SignatureHeader = "X-Twilio-Signature"

// Validator checks webhook signatures with the account auth token.
type Validator struct {
	authToken string
}

// NewValidator returns a validator. An empty token disables validation.
func NewValidator(authToken string) *Validator {
	return &Validator{authToken: authToken}
}

// Enabled reports whether requests are checked.
func (v *Validator) Enabled() bool {
	return v != nil && v.authToken != ""
}

// Validate reports whether signature matches fullURL and the POST params.
// It always succeeds when validation is disabled.
func (v *Validator) Validate(fullURL string, params url.Values, signature string) bool {
	if !v.Enabled() {
		return true
	}
	expected := Sign(v.authToken, fullURL, params)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign computes the signature: base64(HMAC-SHA1(token, url + sorted key/value pairs)).
func Sign(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// GatherParams represents parameters from a Gather callback
type GatherParams struct {
	CallSid      string
	From         string
	SpeechResult string
	Confidence   string
}

// ParseGather parses URL values into GatherParams
func ParseGather(values url.Values) GatherParams {
	return GatherParams{
		CallSid:      values.Get("CallSid"),
		From:         values.Get("From"),
		SpeechResult: strings.TrimSpace(values.Get("SpeechResult")),
		Confidence:   values.Get("Confidence"),
	}
}

// StatusParams carries a call status callback.
type StatusParams struct {
	CallSid      string
	CallStatus   string
	CallDuration string
}

// ParseStatus parses URL values into StatusParams.
func ParseStatus(values url.Values) StatusParams {
	return StatusParams{
		CallSid:      values.Get("CallSid"),
		CallStatus:   values.Get("CallStatus"),
		CallDuration: values.Get("CallDuration"),
	}
}
