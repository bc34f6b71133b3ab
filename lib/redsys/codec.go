// Package redsys implements the Redsys redirect protocol: merchant
// parameter encoding and the HMAC_SHA256_V1 signature.
package redsys

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

const SignatureVersion = "HMAC_SHA256_V1"

var (
	ErrEmptyOrder    = errors.New("redsys: empty order id")
	ErrOrderOverflow = errors.New("redsys: intent id does not fit the order number")
)

// EncodeParams JSON encodes the merchant parameters without escaping
// slashes and returns them as standard base64.
func EncodeParams(params map[string]string) (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(params); err != nil {
		return "", err
	}
	raw := bytes.TrimRight(buf.Bytes(), "\n")
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeParams never fails: anything that cannot be decoded yields an
// empty map.
func DecodeParams(paramsB64 string) map[string]string {
	out := map[string]string{}
	s := strings.TrimSpace(paramsB64)
	if s == "" {
		return out
	}
	s = strings.ReplaceAll(s, " ", "+")
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return out
	}
	var generic map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return out
	}
	for k, v := range generic {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			if val {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		case nil:
			out[k] = ""
		default:
			b, err := json.Marshal(val)
			if err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

// DeriveKey encrypts the order id with the merchant secret (3DES-CBC,
// zero IV, NUL padding). The ciphertext is the per-transaction HMAC key.
func DeriveKey(orderID, secret string) ([]byte, error) {
	if orderID == "" {
		return nil, ErrEmptyOrder
	}
	block, err := des.NewTripleDESCipher(tripleDESKey(secret))
	if err != nil {
		return nil, err
	}

	size := (len(orderID) + des.BlockSize - 1) / des.BlockSize * des.BlockSize
	if size < 16 {
		size = 16
	}
	plain := make([]byte, size)
	copy(plain, orderID)

	out := make([]byte, size)
	iv := make([]byte, des.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)
	return out, nil
}

// Sign returns the base64 HMAC-SHA256 of the exact parameter string.
func Sign(paramsB64, orderID, secret string) (string, error) {
	key, err := DeriveKey(orderID, secret)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(paramsB64))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares it in constant time. The
// gateway may send the URL-safe alphabet, so both sides are normalized.
func Verify(paramsB64, orderID, secret, provided string) bool {
	if provided == "" || paramsB64 == "" {
		return false
	}
	expected, err := Sign(paramsB64, orderID, secret)
	if err != nil {
		return false
	}
	a := normalizeSignature(expected)
	b := normalizeSignature(provided)
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func normalizeSignature(sig string) string {
	sig = strings.TrimSpace(sig)
	sig = strings.NewReplacer("-", "+", "_", "/", " ", "+").Replace(sig)
	return strings.TrimRight(sig, "=")
}

// tripleDESKey accepts the secret as published by the gateway console
// (base64) or as raw bytes, and fits it to 24 bytes.
func tripleDESKey(secret string) []byte {
	key := []byte(secret)
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) > 0 &&
		base64.StdEncoding.EncodeToString(decoded) == secret {
		key = decoded
	}
	fitted := make([]byte, 24)
	copy(fitted, key)
	return fitted
}
