// Package balldontlie はballdontlie API (v1) のクライアントを提供する。
// 選手の取得・現役選手の検索・シーズンスタッツの取得を行い、
// 失敗やレスポンス不正はすべて GATEWAY_FAILURE として呼び出し元に返す。
package balldontlie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/gamblr/internal/metrics"
	"github.com/hitoshi/gamblr/internal/model"
)

const (
	// DefaultBaseURL はballdontlie APIのベースURL。
	DefaultBaseURL = "https://api.balldontlie.io/v1"
	// perPage は一覧系エンドポイントで要求する件数。ページングは行わない。
	perPage = 100
	// maxResponseSize はレスポンスボディの読み取り上限 (5MB)。
	maxResponseSize = 5 * 1024 * 1024
	// maxTeamID はNBA現行30チームのID上限。これより大きいIDは歴史的チーム。
	maxTeamID = 30
)

// Client はballdontlie APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	apiKey     string
	baseURL    string // テスト用に差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。collectorはnilでもよい。
func NewClient(httpClient *http.Client, apiKey, baseURL string, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// --- レスポンスDTO ---

type teamDTO struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city"`
	Name         string `json:"name"`
	FullName     string `json:"full_name"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
}

type playerDTO struct {
	ID        int      `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Position  string   `json:"position"`
	Country   *string  `json:"country"`
	Team      *teamDTO `json:"team"`
}

type gameDTO struct {
	ID            int    `json:"id"`
	Date          string `json:"date"`
	Season        int    `json:"season"`
	HomeTeamID    int    `json:"home_team_id"`
	VisitorTeamID int    `json:"visitor_team_id"`
}

type statDTO struct {
	ID   int      `json:"id"`
	Min  *string  `json:"min"`
	Pts  *int     `json:"pts"`
	Reb  *int     `json:"reb"`
	Ast  *int     `json:"ast"`
	Team *teamDTO `json:"team"`
	Game *gameDTO `json:"game"`
}

type playerResponse struct {
	Data *playerDTO `json:"data"`
}

type playerListResponse struct {
	Data []playerDTO `json:"data"`
}

type statListResponse struct {
	Data []statDTO `json:"data"`
}

type teamListResponse struct {
	Data []teamDTO `json:"data"`
}

// GetPlayer はIDを指定して選手情報を取得する。
func (c *Client) GetPlayer(ctx context.Context, id int) (*model.Player, error) {
	const op = "get_player"
	if id <= 0 {
		return nil, model.NewInvalidPlayerIDError(id)
	}

	var resp playerResponse
	if err := c.get(ctx, op, "/players/"+strconv.Itoa(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, c.malformed(op, errors.New("response has no data"))
	}

	p, err := resp.Data.toModel()
	if err != nil {
		return nil, c.malformed(op, err)
	}
	return &p, nil
}

// SearchActivePlayers は名前の部分一致で現役選手を検索する。
// 空のキーワードでは呼び出しを行わず空のスライスを返す。
func (c *Client) SearchActivePlayers(ctx context.Context, name string) ([]model.Player, error) {
	const op = "search_active_players"
	name = strings.TrimSpace(name)
	if name == "" {
		return []model.Player{}, nil
	}

	q := url.Values{}
	q.Set("search", name)
	q.Set("per_page", strconv.Itoa(perPage))

	var resp playerListResponse
	if err := c.get(ctx, op, "/players/active", q, &resp); err != nil {
		return nil, err
	}

	players := make([]model.Player, 0, len(resp.Data))
	for i := range resp.Data {
		p, err := resp.Data[i].toModel()
		if err != nil {
			return nil, c.malformed(op, err)
		}
		players = append(players, p)
	}
	return players, nil
}

// ListSeasonStats は選手の指定シーズンの試合別スタッツを取得する。
func (c *Client) ListSeasonStats(ctx context.Context, playerID, season int) ([]model.GameStat, error) {
	const op = "list_season_stats"
	if playerID <= 0 {
		return nil, model.NewInvalidPlayerIDError(playerID)
	}

	q := url.Values{}
	q.Add("player_ids[]", strconv.Itoa(playerID))
	q.Add("seasons[]", strconv.Itoa(season))
	q.Set("per_page", strconv.Itoa(perPage))

	var resp statListResponse
	if err := c.get(ctx, op, "/stats", q, &resp); err != nil {
		return nil, err
	}

	games := make([]model.GameStat, 0, len(resp.Data))
	for i := range resp.Data {
		g, err := resp.Data[i].toModel()
		if err != nil {
			return nil, c.malformed(op, err)
		}
		games = append(games, g)
	}
	return games, nil
}

// ListTeams は現行30チームの一覧を取得する。
func (c *Client) ListTeams(ctx context.Context) ([]model.Team, error) {
	const op = "list_teams"

	var resp teamListResponse
	if err := c.get(ctx, op, "/teams", nil, &resp); err != nil {
		return nil, err
	}

	teams := make([]model.Team, 0, maxTeamID)
	for _, t := range resp.Data {
		if t.ID <= 0 || t.ID > maxTeamID {
			continue
		}
		teams = append(teams, t.toModel())
	}
	return teams, nil
}

// get はGETリクエストを送信し、レスポンスJSONをoutにデコードする。
// 失敗はすべてGatewayFailureに変換され、メトリクスに記録される。
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	start := time.Now()
	err := c.doGet(ctx, op, path, query, out)

	if c.metrics != nil {
		c.metrics.RecordGatewayLatency(op, time.Since(start))
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
		}
		c.metrics.RecordGatewayCall(op, outcome)
	}
	return err
}

func (c *Client) doGet(ctx context.Context, op, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return model.NewGatewayFailureError(op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gamblr/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("balldontlie APIの呼び出しに失敗しました",
			slog.String("endpoint", op),
			slog.String("error", err.Error()),
		)
		return model.NewGatewayFailureError(op, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus(resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("balldontlie APIがエラーステータスを返しました",
			slog.String("endpoint", op),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewGatewayFailureError(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", op),
			slog.String("error", err.Error()),
		)
		return model.NewGatewayFailureError(op, fmt.Errorf("failed to read body: %w", err))
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("balldontlie APIのレスポンスのパースに失敗しました",
			slog.String("endpoint", op),
			slog.String("error", err.Error()),
		)
		return model.NewGatewayFailureError(op, fmt.Errorf("failed to decode body: %w", err))
	}

	return nil
}

func (c *Client) malformed(op string, err error) error {
	c.logger.Error("balldontlie APIのレスポンスに必須項目がありません",
		slog.String("endpoint", op),
		slog.String("error", err.Error()),
	)
	return model.NewGatewayFailureError(op, err)
}

// --- DTOからドメインモデルへの変換 ---

func (t teamDTO) toModel() model.Team {
	return model.Team{
		ID:           t.ID,
		Abbreviation: t.Abbreviation,
		City:         t.City,
		Name:         t.Name,
		FullName:     t.FullName,
		Conference:   t.Conference,
		Division:     t.Division,
	}
}

func (p playerDTO) toModel() (model.Player, error) {
	if p.ID <= 0 {
		return model.Player{}, fmt.Errorf("player has invalid id %d", p.ID)
	}
	if p.FirstName == "" && p.LastName == "" {
		return model.Player{}, fmt.Errorf("player %d has no name", p.ID)
	}

	player := model.Player{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Position:  p.Position,
	}
	if p.Country != nil {
		player.Country = *p.Country
	}
	if p.Team != nil {
		player.Team = p.Team.toModel()
	}
	return player, nil
}

func (s statDTO) toModel() (model.GameStat, error) {
	if s.Game == nil || s.Game.ID <= 0 {
		return model.GameStat{}, fmt.Errorf("stat %d has no game", s.ID)
	}
	if s.Team == nil {
		return model.GameStat{}, fmt.Errorf("stat %d has no team", s.ID)
	}

	date, err := parseGameDate(s.Game.Date)
	if err != nil {
		return model.GameStat{}, fmt.Errorf("stat %d: %w", s.ID, err)
	}

	g := model.GameStat{
		GameID:        s.Game.ID,
		Date:          date,
		Season:        s.Game.Season,
		TeamID:        s.Team.ID,
		HomeTeamID:    s.Game.HomeTeamID,
		VisitorTeamID: s.Game.VisitorTeamID,
	}
	// 出場なしの試合はnullで返るため0として扱う
	if s.Min != nil {
		g.Minutes = *s.Min
	}
	if s.Pts != nil {
		g.Points = *s.Pts
	}
	if s.Reb != nil {
		g.Rebounds = *s.Reb
	}
	if s.Ast != nil {
		g.Assists = *s.Ast
	}
	return g, nil
}

// parseGameDate は "2024-10-22" 形式とRFC3339形式の日付を受け付ける。
func parseGameDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("game has no date")
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid game date %q", raw)
	}
	return t, nil
}
