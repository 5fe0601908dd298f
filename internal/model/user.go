// Package model はドメインモデルを定義する。
package model

import "time"

// AnonymousUserID は未認証リクエストを表すユーザーIDの番兵値。
// リレーション判定はこの値に対してルックアップなしで全てfalseを返す。
const AnonymousUserID int64 = 0

// User はサービス利用ユーザーを表す。
type User struct {
	ID           int64
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	// Avatar は画像参照（URLまたはdata URL）。画像の加工・保存は外部の責務。
	Avatar    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile はAPIレスポンスで返すユーザー表現。
// IsSubscribedは閲覧ユーザー視点の購読フラグで、一括判定で埋める。
type UserProfile struct {
	Email        string `json:"email"`
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsSubscribed bool   `json:"is_subscribed"`
	Avatar       string `json:"avatar"`
}

// Profile はユーザーからUserProfileを組み立てる。購読フラグは呼び出し側が与える。
func (u *User) Profile(isSubscribed bool) UserProfile {
	return UserProfile{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: isSubscribed,
		Avatar:       u.Avatar,
	}
}

// Session はトークン認証のログインセッションを表す。
// IDがそのままAuthorizationヘッダのトークンになる。
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
