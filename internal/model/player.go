package model

import "time"

// Team はNBAチームを表す。
type Team struct {
	ID           int
	Abbreviation string
	City         string
	Name         string
	FullName     string
	Conference   string
	Division     string
}

// Player は外部スタッツAPIから取得した選手情報を表す。
type Player struct {
	ID        int
	FirstName string
	LastName  string
	Position  string
	Country   string
	Team      Team
}

// FullName は「名 姓」形式の表示名を返す。
func (p Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// GameStat は1試合分の選手スタッツを表す。
type GameStat struct {
	GameID        int
	Date          time.Time
	Season        int
	TeamID        int
	HomeTeamID    int
	VisitorTeamID int
	Minutes       string
	Points        int
	Rebounds      int
	Assists       int
}

// OpponentTeamID は対戦相手のチームIDを返す。
func (g GameStat) OpponentTeamID() int {
	if g.TeamID == g.HomeTeamID {
		return g.VisitorTeamID
	}
	return g.HomeTeamID
}

// Standing はディビジョン順位表の1行を表す。
type Standing struct {
	TeamName      string
	TeamLogo      string
	Conference    string
	Division      string
	DivisionRank  int
	Wins          int
	Losses        int
	WinPercentage string
	GamesBehind   string
	Streak        int
	WinStreak     bool
}
