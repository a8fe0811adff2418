package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// buildPrehash 按交易所约定拼接待签名串：timestamp + method + requestPath + body。
func buildPrehash(timestamp int64, method, requestPath string, body []byte) []byte {
	prehash := make([]byte, 0, 32+len(method)+len(requestPath)+len(body))
	prehash = append(prehash, strconv.FormatInt(timestamp, 10)...)
	prehash = append(prehash, method...)
	prehash = append(prehash, requestPath...)
	prehash = append(prehash, body...)
	return prehash
}

// sign 计算 HMAC-SHA256 签名并以 base64 编码返回。
func sign(secret string, timestamp int64, method, requestPath string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(buildPrehash(timestamp, method, requestPath, body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
