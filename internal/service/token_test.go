package service

import (
	"encoding/hex"
	"testing"

	"save-serve/backend/internal/model"
)

func TestMintToken_Format(t *testing.T) {
	token := MintToken(testStudentID, testHostelID, model.MealLunch, "2026-09-01")
	if len(token) != 64 {
		t.Fatalf("token 长度期望 64，实际 %d", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Errorf("token 应为十六进制字符串: %v", err)
	}
}

func TestMintToken_Unique(t *testing.T) {
	// 同一入参连续铸造也必须互不相同（nonce 保证）
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token := MintToken(testStudentID, testHostelID, model.MealBreakfast, "2026-09-01")
		if seen[token] {
			t.Fatalf("第 %d 次铸造出现重复 token", i)
		}
		seen[token] = true
	}
}
