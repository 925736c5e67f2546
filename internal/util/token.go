package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateInviteToken 生成邀请码明文及其摘要，库中只保存摘要
func GenerateInviteToken() (token string, hash string, err error) {
	buf := make([]byte, 24)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, HashInviteToken(token), nil
}

// HashInviteToken 对邀请码做 SHA-256 摘要，按摘要精确查找
func HashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
