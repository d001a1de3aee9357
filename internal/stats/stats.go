// Package stats は試合スタッツの集計（シーズン平均、ライン超え回数）を提供する。
// 外部I/Oを持たない純粋な関数のみで構成される。
package stats

import (
	"math"
	"sort"
	"strings"

	"github.com/hitoshi/gamblr/internal/model"
)

// Category は集計対象のスタッツ種別。
type Category int

const (
	Points Category = iota + 1
	Rebounds
	Assists
)

// Categories は全カテゴリを表示順に返す。
func Categories() []Category {
	return []Category{Points, Rebounds, Assists}
}

// String はフォームやURLで使うカテゴリ名を返す。
func (c Category) String() string {
	switch c {
	case Points:
		return "points"
	case Rebounds:
		return "rebounds"
	case Assists:
		return "assists"
	default:
		return "unknown"
	}
}

// Label は画面表示用のカテゴリ名を返す。
func (c Category) Label() string {
	switch c {
	case Points:
		return "Points"
	case Rebounds:
		return "Rebounds"
	case Assists:
		return "Assists"
	default:
		return "Unknown"
	}
}

// Value は試合スタッツからカテゴリに対応する値を取り出す。
func (c Category) Value(g model.GameStat) (int, bool) {
	switch c {
	case Points:
		return g.Points, true
	case Rebounds:
		return g.Rebounds, true
	case Assists:
		return g.Assists, true
	default:
		return 0, false
	}
}

// ParseCategory はカテゴリ名を解釈する。大文字小文字は区別せず、pts / reb / ast も受け付ける。
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "points", "pts":
		return Points, nil
	case "rebounds", "reb":
		return Rebounds, nil
	case "assists", "ast":
		return Assists, nil
	default:
		return 0, model.NewInvalidCategoryError(s)
	}
}

// Averages はシーズン平均を表す。値は小数第1位に丸める。
type Averages struct {
	Games    int
	Points   float64
	Rebounds float64
	Assists  float64
}

// ComputeAverages は試合スタッツの平均を計算する。
// 試合が0件の場合は model.ErrNoGamesAvailable を返す。
func ComputeAverages(games []model.GameStat) (Averages, error) {
	if len(games) == 0 {
		return Averages{}, model.NewNoGamesAvailableError()
	}

	var pts, reb, ast int
	for _, g := range games {
		pts += g.Points
		reb += g.Rebounds
		ast += g.Assists
	}

	n := float64(len(games))
	return Averages{
		Games:    len(games),
		Points:   Round1(float64(pts) / n),
		Rebounds: Round1(float64(reb) / n),
		Assists:  Round1(float64(ast) / n),
	}, nil
}

// CountExceeding はカテゴリの値がthresholdを厳密に上回った試合数を返す。
// 値がthresholdと等しい試合は数えない。
func CountExceeding(games []model.GameStat, cat Category, threshold float64) (int, error) {
	if _, ok := cat.Value(model.GameStat{}); !ok {
		return 0, model.NewInvalidCategoryError(cat.String())
	}

	count := 0
	for _, g := range games {
		v, _ := cat.Value(g)
		if float64(v) > threshold {
			count++
		}
	}
	return count, nil
}

// HitRate はcount / totalをパーセントで返す（小数第1位に丸め）。totalが0の場合は0。
func HitRate(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round1(float64(count) / float64(total) * 100)
}

// LastN は日付の新しい順にn試合を返す。入力スライスは変更しない。
func LastN(games []model.GameStat, n int) []model.GameStat {
	if n <= 0 || len(games) == 0 {
		return nil
	}

	sorted := make([]model.GameStat, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// SortByDate は試合を日付の古い順に並べ替えたコピーを返す。
func SortByDate(games []model.GameStat) []model.GameStat {
	sorted := make([]model.GameStat, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// Round1 は小数第1位に四捨五入する（0.5は0から遠い方へ）。
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
