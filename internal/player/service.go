// Package player は画面単位の処理をまとめる。
// お気に入り選手の一覧、選手検索、シーズンスタッツ、ベットラインの判定を
// 外部スタッツAPI・お気に入り・スタッツ集計を組み合わせて提供する。
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/stats"
)

const (
	defaultSeason        = 2024
	defaultMaxConcurrent = 4
	// recentGames は直近成績として集計する試合数。
	recentGames = 5
)

// StatsGateway は外部スタッツAPIのうち本パッケージが利用する操作。
type StatsGateway interface {
	GetPlayer(ctx context.Context, id int) (*model.Player, error)
	SearchActivePlayers(ctx context.Context, name string) ([]model.Player, error)
	ListSeasonStats(ctx context.Context, playerID, season int) ([]model.GameStat, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
}

// FavoriteLister はログインユーザーのお気に入り一覧を返す。
type FavoriteLister interface {
	ListFor(ctx context.Context, state model.SessionState) ([]*model.FavoriteEntry, error)
}

// Sanitizer は検索キーワードからマークアップを取り除く。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Config はサービスの設定。
type Config struct {
	Season        int // 集計対象シーズン
	MaxConcurrent int // 選手情報の同時取得数
}

// Service は画面単位のオーケストレーションを行う。
type Service struct {
	gateway   StatsGateway
	favorites FavoriteLister
	sanitizer Sanitizer
	config    Config
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(gateway StatsGateway, favorites FavoriteLister, sanitizer Sanitizer, config Config) *Service {
	if config.Season <= 0 {
		config.Season = defaultSeason
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaultMaxConcurrent
	}
	return &Service{
		gateway:   gateway,
		favorites: favorites,
		sanitizer: sanitizer,
		config:    config,
	}
}

// Season は集計対象のシーズンを返す。
func (s *Service) Season() int {
	return s.config.Season
}

// Overview はトップページに表示するお気に入り選手の一覧。
type Overview struct {
	Players []model.Player // お気に入り登録順
	Skipped int            // 外部APIから取得できなかった選手数
}

// FavoritesOverview はお気に入り選手の情報を並行して取得する。
// 取得に失敗した選手はログに記録して一覧から除外する。未ログインの場合は空の一覧を返す。
func (s *Service) FavoritesOverview(ctx context.Context, state model.SessionState) (*Overview, error) {
	if !state.IsAuthenticated() {
		return &Overview{Players: []model.Player{}}, nil
	}

	entries, err := s.favorites.ListFor(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}

	fetched := make([]*model.Player, len(entries))
	var g errgroup.Group
	g.SetLimit(s.config.MaxConcurrent)
	for i, entry := range entries {
		g.Go(func() error {
			p, err := s.gateway.GetPlayer(ctx, entry.PlayerID)
			if err != nil {
				slog.Warn("お気に入り選手の取得に失敗しました",
					slog.String("user_id", state.UserID),
					slog.Int("player_id", entry.PlayerID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			fetched[i] = p
			return nil
		})
	}
	_ = g.Wait()

	overview := &Overview{Players: make([]model.Player, 0, len(entries))}
	for _, p := range fetched {
		if p == nil {
			overview.Skipped++
			continue
		}
		overview.Players = append(overview.Players, *p)
	}
	return overview, nil
}

// SearchResult は選手検索の結果。
type SearchResult struct {
	Query     string
	Players   []model.Player
	Favorited map[int]bool // ログインユーザーがお気に入り済みの選手ID
}

// Search は名前の部分一致で現役選手を検索し、お気に入り済みの選手に印を付ける。
func (s *Service) Search(ctx context.Context, state model.SessionState, name string) (*SearchResult, error) {
	query := s.sanitizer.Sanitize(name)
	result := &SearchResult{
		Query:     query,
		Players:   []model.Player{},
		Favorited: map[int]bool{},
	}
	if query == "" {
		return result, nil
	}

	players, err := s.gateway.SearchActivePlayers(ctx, query)
	if err != nil {
		return nil, err
	}
	result.Players = players

	if state.IsAuthenticated() {
		entries, err := s.favorites.ListFor(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
		}
		for _, e := range entries {
			result.Favorited[e.PlayerID] = true
		}
	}
	return result, nil
}

// SeasonStats は選手のシーズンスタッツページの内容。
type SeasonStats struct {
	PlayerID  int
	Season    int
	Games     []model.GameStat // 日付の昇順
	Averages  *stats.Averages  // 試合がない場合はnil
	Recent    *stats.Averages  // 直近の試合の平均。試合がない場合はnil
	Opponents map[int]string   // チームID -> チーム名
}

// NoGames は集計対象の試合がない場合にtrueを返す。
func (s *SeasonStats) NoGames() bool {
	return s.Averages == nil
}

// SeasonStats は選手のシーズンの試合別スタッツと平均を返す。
// 試合が1件もない場合はエラーにせず、Averagesがnilの結果を返す。
func (s *Service) SeasonStats(ctx context.Context, playerID int) (*SeasonStats, error) {
	if playerID <= 0 {
		return nil, model.NewInvalidPlayerIDError(playerID)
	}

	games, err := s.gateway.ListSeasonStats(ctx, playerID, s.config.Season)
	if err != nil {
		return nil, err
	}

	result := &SeasonStats{
		PlayerID:  playerID,
		Season:    s.config.Season,
		Games:     stats.SortByDate(games),
		Opponents: s.teamNames(ctx),
	}

	avg, err := stats.ComputeAverages(games)
	if errors.Is(err, model.ErrNoGamesAvailable) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Averages = &avg

	recent, err := stats.ComputeAverages(stats.LastN(games, recentGames))
	if err == nil {
		result.Recent = &recent
	}
	return result, nil
}

// teamNames はチームIDと名前の対応表を返す。取得に失敗した場合は空の対応表を返す。
func (s *Service) teamNames(ctx context.Context) map[int]string {
	names := map[int]string{}
	teams, err := s.gateway.ListTeams(ctx)
	if err != nil {
		slog.Warn("チーム一覧の取得に失敗しました", slog.String("error", err.Error()))
		return names
	}
	for _, t := range teams {
		names[t.ID] = t.FullName
	}
	return names
}

// LineCheck はベットラインの判定結果。
type LineCheck struct {
	PlayerID  int
	Season    int
	Category  stats.Category
	Threshold float64
	Games     []model.GameStat // 日付の昇順
	Count     int              // ラインを上回った試合数
	Total     int
	HitRate   float64 // 百分率、小数点以下1桁
}

// CheckLine は指定カテゴリでラインを上回った試合数を数える。
// 上回ったとはラインより厳密に大きいことを指す。
func (s *Service) CheckLine(ctx context.Context, playerID int, category stats.Category, threshold float64) (*LineCheck, error) {
	if playerID <= 0 {
		return nil, model.NewInvalidPlayerIDError(playerID)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, model.NewInvalidThresholdError(strconv.FormatFloat(threshold, 'g', -1, 64))
	}

	games, err := s.gateway.ListSeasonStats(ctx, playerID, s.config.Season)
	if err != nil {
		return nil, err
	}

	count, err := stats.CountExceeding(games, category, threshold)
	if err != nil {
		return nil, err
	}

	return &LineCheck{
		PlayerID:  playerID,
		Season:    s.config.Season,
		Category:  category,
		Threshold: threshold,
		Games:     stats.SortByDate(games),
		Count:     count,
		Total:     len(games),
		HitRate:   stats.HitRate(count, len(games)),
	}, nil
}

// ParseThreshold はフォームから受け取ったライン値を数値に変換する。
func ParseThreshold(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, model.NewInvalidThresholdError(raw)
	}
	return v, nil
}
