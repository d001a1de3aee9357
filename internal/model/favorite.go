package model

import "time"

// FavoriteEntry はユーザーとお気に入り選手の関連を表す。
// PlayerIDは外部スタッツAPI側の選手IDであり、(UserID, PlayerID)は一意。
type FavoriteEntry struct {
	ID        string
	UserID    string
	PlayerID  int
	CreatedAt time.Time
}
