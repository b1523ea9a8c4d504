package dispatch

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer подписывает пары (действие, URL).
//
// Ссылки на действия выдаются вместе с подписью, поэтому изменить
// URL или имя действия в запросе без знания секрета нельзя.
type Signer struct {
	secret []byte
}

// NewSigner создаёт Signer. Пустой secret заменяется случайным:
// тогда подписи действуют только до перезапуска.
func NewSigner(secret string) (*Signer, error) {
	if secret != "" {
		return &Signer{secret: []byte(secret)}, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate action secret: %w", err)
	}
	return &Signer{secret: buf}, nil
}

// Sign возвращает hex-подпись.
func (s *Signer) Sign(actionName, url string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(actionName))
	mac.Write([]byte{0})
	mac.Write([]byte(url))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись за постоянное время.
func (s *Signer) Verify(actionName, url, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(actionName))
	mac.Write([]byte{0})
	mac.Write([]byte(url))
	return hmac.Equal(mac.Sum(nil), want)
}
