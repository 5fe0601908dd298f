// Package shortlink はレシピ数値IDと短縮トークンの相互変換を提供する。
package shortlink

import (
	"strconv"

	"github.com/hitoshi/kondate/internal/model"
)

// Encode はレシピIDを36進トークンに符号化する。
// 全ての有効なIDについて Decode(Encode(id)) == id が成り立つ。
func Encode(id int64) string {
	return strconv.FormatInt(id, 36)
}

// Decode は36進トークンをレシピIDに復号する。
// 解釈できないトークンはMALFORMED_SHARE_LINKエラーになる。
// 「レシピが存在しない」とは区別され、存在確認は呼び出し側の責務。
func Decode(token string) (int64, error) {
	if token == "" {
		return 0, model.NewMalformedShareLinkError(token)
	}

	id, err := strconv.ParseInt(token, 36, 64)
	if err != nil || id <= 0 {
		return 0, model.NewMalformedShareLinkError(token)
	}
	return id, nil
}
