package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
)

// Sign computes the API-Sign header for a private endpoint:
//
//	HMAC-SHA512(base64decode(secret), path || SHA256(nonce || postdata))
//
// base64-encoded. data must already contain the nonce field; postdata is
// its URL encoding (sorted keys, which matches the documented vectors).
func Sign(secret, path string, data url.Values) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("kraken: decode secret: %w", err)
	}

	nonce := data.Get("nonce")
	if nonce == "" {
		return "", fmt.Errorf("kraken: sign without nonce")
	}

	sha := sha256.Sum256([]byte(nonce + data.Encode()))

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(sha[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
