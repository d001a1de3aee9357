// Package standings はRapidAPI経由のapi-nba-v1からディビジョン順位表を取得する。
package standings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/gamblr/internal/metrics"
	"github.com/hitoshi/gamblr/internal/model"
)

const (
	// DefaultBaseURL はapi-nba-v1のベースURL。
	DefaultBaseURL = "https://api-nba-v1.p.rapidapi.com"
	// DefaultHost はx-rapidapi-hostヘッダーの既定値。
	DefaultHost = "api-nba-v1.p.rapidapi.com"

	endpoint        = "list_standings"
	league          = "standard"
	maxResponseSize = 1 * 1024 * 1024
)

// Divisions はNBAの6ディビジョン。
var Divisions = []string{"atlantic", "central", "southeast", "northwest", "pacific", "southwest"}

// ParseDivision はディビジョン名を正規化して検証する。
func ParseDivision(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range Divisions {
		if d == known {
			return d, nil
		}
	}
	return "", model.NewInvalidDivisionError(raw)
}

// Client はディビジョン順位表APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	apiKey     string
	host       string
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURL・hostが空の場合は既定値を使用する。
func NewClient(httpClient *http.Client, apiKey, host, baseURL string, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		apiKey:     apiKey,
		host:       host,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type standingsResponse struct {
	Response []standingDTO `json:"response"`
}

type standingDTO struct {
	Team struct {
		Name string `json:"name"`
		Logo string `json:"logo"`
	} `json:"team"`
	Conference struct {
		Name string `json:"name"`
	} `json:"conference"`
	Division struct {
		Name string `json:"name"`
		Rank int    `json:"rank"`
	} `json:"division"`
	Win struct {
		Total      int    `json:"total"`
		Percentage string `json:"percentage"`
	} `json:"win"`
	Loss struct {
		Total int `json:"total"`
	} `json:"loss"`
	GamesBehind *string `json:"gamesBehind"`
	Streak      int     `json:"streak"`
	WinStreak   bool    `json:"winStreak"`
}

// ListDivision は指定ディビジョン・シーズンの順位表をディビジョン内順位の昇順で返す。
func (c *Client) ListDivision(ctx context.Context, division string, season int) ([]model.Standing, error) {
	d, err := ParseDivision(division)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := c.fetch(ctx, d, season)
	if c.metrics != nil {
		c.metrics.RecordGatewayLatency(endpoint, time.Since(start))
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeFailure
		}
		c.metrics.RecordGatewayCall(endpoint, outcome)
	}
	if err != nil {
		return nil, err
	}

	standings := make([]model.Standing, 0, len(rows))
	for _, r := range rows {
		if r.Team.Name == "" {
			c.logger.Error("順位表のレスポンスにチーム名がありません",
				slog.String("division", d),
			)
			return nil, model.NewGatewayFailureError(endpoint, fmt.Errorf("standing without team name"))
		}
		s := model.Standing{
			TeamName:      r.Team.Name,
			TeamLogo:      r.Team.Logo,
			Conference:    r.Conference.Name,
			Division:      r.Division.Name,
			DivisionRank:  r.Division.Rank,
			Wins:          r.Win.Total,
			Losses:        r.Loss.Total,
			WinPercentage: r.Win.Percentage,
			GamesBehind:   "-",
			Streak:        r.Streak,
			WinStreak:     r.WinStreak,
		}
		if r.GamesBehind != nil && *r.GamesBehind != "" {
			s.GamesBehind = *r.GamesBehind
		}
		standings = append(standings, s)
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].DivisionRank < standings[j].DivisionRank
	})
	return standings, nil
}

func (c *Client) fetch(ctx context.Context, division string, season int) ([]standingDTO, error) {
	q := url.Values{}
	q.Set("league", league)
	q.Set("season", strconv.Itoa(season))
	q.Set("division", division)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/standings?"+q.Encode(), nil)
	if err != nil {
		return nil, model.NewGatewayFailureError(endpoint, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("順位表APIの呼び出しに失敗しました",
			slog.String("division", division),
			slog.String("error", err.Error()),
		)
		return nil, model.NewGatewayFailureError(endpoint, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordUpstreamStatus(resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("順位表APIがエラーステータスを返しました",
			slog.String("division", division),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewGatewayFailureError(endpoint, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, model.NewGatewayFailureError(endpoint, fmt.Errorf("failed to read body: %w", err))
	}

	var result standingsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("順位表APIのレスポンスのパースに失敗しました",
			slog.String("division", division),
			slog.String("error", err.Error()),
		)
		return nil, model.NewGatewayFailureError(endpoint, fmt.Errorf("failed to decode body: %w", err))
	}

	return result.Response, nil
}
