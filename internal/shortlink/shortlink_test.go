package shortlink

import (
	"errors"
	"testing"

	"github.com/hitoshi/kondate/internal/model"
)

// 有効なIDは全て正確にラウンドトリップすることを検証
func TestEncodeDecode_RoundTrip(t *testing.T) {
	ids := []int64{1, 2, 35, 36, 37, 1000, 46655, 46656, 9007199254740991}
	for _, id := range ids {
		token := Encode(id)
		got, err := Decode(token)
		if err != nil {
			t.Errorf("Decode(Encode(%d)) error = %v", id, err)
			continue
		}
		if got != id {
			t.Errorf("Decode(Encode(%d)) = %d, want %d", id, got, id)
		}
	}
}

// 既知の36進表現を検証
func TestEncode_KnownValues(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{1, "1"},
		{10, "a"},
		{35, "z"},
		{36, "10"},
		{46656, "1000"},
	}
	for _, tt := range tests {
		if got := Encode(tt.id); got != tt.want {
			t.Errorf("Encode(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

// 不正なトークンはMALFORMED_SHARE_LINKになることを検証
// （レシピ未検出とは区別される）
func TestDecode_Malformed(t *testing.T) {
	tokens := []string{"", "!!!", "abc def", "-1", "0", "ZZZZZZZZZZZZZZZZZZ", "1.5"}
	for _, token := range tokens {
		_, err := Decode(token)
		if err == nil {
			t.Errorf("Decode(%q) should fail", token)
			continue
		}
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMalformedShareLink {
			t.Errorf("Decode(%q) error = %v, want MALFORMED_SHARE_LINK", token, err)
		}
	}
}
