// Package view はサーバーレンダリングするHTMLページのテンプレートを提供する。
// テンプレートと静的ファイルはバイナリに埋め込む。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/gamblr/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ページ名
const (
	PageHome         = "home"
	PageSignup       = "signup"
	PageLogin        = "login"
	PageStandings    = "standings"
	PageSearch       = "search"
	PagePlayerStats  = "player_stats"
	PageBetLineCheck = "bet_line_check"
	PageError        = "error"
)

var pageNames = []string{
	PageHome, PageSignup, PageLogin, PageStandings,
	PageSearch, PagePlayerStats, PageBetLineCheck, PageError,
}

// フラッシュメッセージのカテゴリ
const (
	FlashSuccess = "success"
	FlashWarning = "warning"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// Flash は次のページ表示時に1回だけ表示するメッセージ。
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Page は全ページ共通のテンプレートデータ。
type Page struct {
	Title     string
	User      *model.PublicUser // 未ログインの場合はnil
	CSRFToken string
	Flashes   []Flash
	Season    int
	Divisions []string
	Data      any // ページ固有のデータ
}

// Renderer はページ名ごとにパース済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートをすべてパースしてRendererを生成する。
// テンプレートの構文エラーは起動時に検出される。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render はページを描画してステータスコードとともに書き込む。
// 描画はバッファに対して行い、失敗した場合は中途半端なHTMLを返さずに500を返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page *Page) {
	tmpl, ok := r.pages[name]
	if !ok {
		slog.Error("unknown page template", slog.String("page", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// StaticHandler は埋め込みの静的ファイル（CSS）を配信するハンドラーを返す。
// prefixにはマウント先のパス（例: "/static/"）を指定する。
func StaticHandler(prefix string) http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix(prefix, http.FileServer(http.FS(sub)))
}

var funcs = template.FuncMap{
	"one":      formatOne,
	"date":     formatDate,
	"teamName": teamName,
}

// formatOne は小数第1位までの表示に整形する。
func formatOne(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

// teamName はチームIDに対応するチーム名を返す。不明な場合はIDを表示する。
func teamName(names map[int]string, id int) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return "Team #" + strconv.Itoa(id)
}
