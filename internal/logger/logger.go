package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ログ出力形式
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options はロガーの出力形式とレベル。
type Options struct {
	Format string // "json"（デフォルト）または "text"
	Level  slog.Level
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer) *slog.Logger {
	return New(w, Options{Format: FormatJSON, Level: slog.LevelInfo})
}

// New はOptionsに従ってslog.Loggerを生成する。
// FormatTextの場合はtintによるカラー表示のテキストハンドラー（開発用）を使用する。
func New(w io.Writer, opts Options) *slog.Logger {
	if strings.EqualFold(opts.Format, FormatText) {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: opts.Level,
	}))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
}

// Configure は設定読み込み後にOptionsに従ってグローバルロガーを差し替える。
func Configure(w io.Writer, opts Options) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(New(w, opts))
}

// ParseLevel はLOG_LEVELの値をslog.Levelに変換する。未知の値はInfoとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
