package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"save-serve/backend/internal/model"
)

// MintToken 铸造一次性核销 token（二维码载荷）
//
// 对 (studentID, hostelID, mealType, date) 加高精度时间戳与随机 nonce 做 SHA-256，
// 输出 64 位十六进制不透明字符串。核销端只做精确匹配查找，不解析内容；
// 即使同一槽位被极快地重复铸造（选餐守卫下不应发生），唯一性也由 nonce 保证。
func MintToken(studentID, hostelID string, meal model.MealType, date string) string {
	nonce := make([]byte, 16)
	_, _ = rand.Read(nonce)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|", studentID, hostelID, meal, date, time.Now().UnixNano())
	h.Write(nonce)

	return hex.EncodeToString(h.Sum(nil))
}
