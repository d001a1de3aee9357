package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードのハッシュ化と照合を行う。
// ハッシュにはソルトとコストが含まれるため、平文は保持しない。
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher はPasswordHasherを生成する。
// costが範囲外の場合はbcrypt.DefaultCostを使用する。
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	// 存在しないユーザーの照合に使うダミーハッシュ。
	// 同じコストで照合させ、ユーザーの有無を処理時間から推測できないようにする。
	dummy, err := bcrypt.GenerateFromPassword([]byte("gamblr-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dummy hash: %w", err)
	}

	return &PasswordHasher{cost: cost, dummyHash: dummy}, nil
}

// Hash は平文パスワードをbcryptでハッシュ化する。
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify はハッシュと平文パスワードが一致するかを返す。
// ハッシュが壊れている場合もfalseを返す。
func (h *PasswordHasher) Verify(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// VerifyDummy はダミーハッシュに対して照合だけを行う。
// ユーザーが存在しない場合にも同等の処理時間をかけるために使う。
func (h *PasswordHasher) VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}
