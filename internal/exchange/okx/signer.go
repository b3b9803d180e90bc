package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// IsoTimestamp formats t the way OKX REST signing expects:
// ISO 8601 with millisecond precision and a trailing Z.
func IsoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Sign computes base64(HMAC-SHA256(timestamp + method + path + body)) with
// the account secret. It is a pure function of its inputs.
func Sign(timestamp, method, path, body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// LoginSign computes the private-stream login signature: the timestamp is
// epoch seconds and the canonical request is GET /users/self/verify with an
// empty body.
func LoginSign(timestamp, secret string) string {
	return Sign(timestamp, "GET", "/users/self/verify", "", secret)
}

// Signer adds the OKX authentication header block to outgoing REST requests.
type Signer struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	Sim        bool

	// now is overridable for deterministic tests.
	now func() time.Time
}

func NewSigner(apiKey, secretKey, passphrase string, sim bool) *Signer {
	return &Signer{
		APIKey:     apiKey,
		SecretKey:  secretKey,
		Passphrase: passphrase,
		Sim:        sim,
		now:        time.Now,
	}
}

// SignRequest implements the http client's Signer contract.
func (s *Signer) SignRequest(req *http.Request, body []byte) error {
	timestamp := IsoTimestamp(s.now())
	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OK-ACCESS-KEY", s.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", Sign(timestamp, req.Method, path, string(body), s.SecretKey))
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", s.Passphrase)
	if s.Sim {
		req.Header.Set("x-simulated-trading", "1")
	}
	return nil
}

// LoginArgs builds the args entry of the private-stream login frame.
func (s *Signer) LoginArgs() WsLoginDetail {
	ts := fmt.Sprintf("%d", s.now().Unix())
	return WsLoginDetail{
		APIKey:     s.APIKey,
		Passphrase: s.Passphrase,
		Timestamp:  ts,
		Sign:       LoginSign(ts, s.SecretKey),
	}
}
