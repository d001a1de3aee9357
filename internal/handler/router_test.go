package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/gamblr/internal/auth"
	"github.com/hitoshi/gamblr/internal/middleware"
	"github.com/hitoshi/gamblr/internal/model"
	"github.com/hitoshi/gamblr/internal/player"
	"github.com/hitoshi/gamblr/internal/stats"
	"github.com/hitoshi/gamblr/internal/view"
)

const (
	testCSRFToken = "csrf-test-token"
	testSessionID = "valid-session"
	testUserID    = "user-1"
	testSecret    = "test-session-secret"
)

// --- モック定義 ---

type mockResolver struct{}

func (mockResolver) ResolveSession(ctx context.Context, sessionID string) model.SessionState {
	if sessionID == testSessionID {
		return model.SessionState{SessionID: testSessionID, UserID: testUserID}
	}
	return model.AnonymousState()
}

type mockAuthService struct {
	signUpFn       func(ctx context.Context, in auth.SignUpInput) (*model.User, error)
	authenticateFn func(ctx context.Context, username, password string) (*model.User, error)
	loginFn        func(ctx context.Context, current model.SessionState, user *model.User) (*model.Session, error)
	logoutFn       func(ctx context.Context, state model.SessionState) error
}

func (m *mockAuthService) SignUp(ctx context.Context, in auth.SignUpInput) (*model.User, error) {
	if m.signUpFn != nil {
		return m.signUpFn(ctx, in)
	}
	return &model.User{ID: "new-user", Username: in.Username, Email: in.Email}, nil
}

func (m *mockAuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, username, password)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, current model.SessionState, user *model.User) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, current, user)
	}
	return &model.Session{ID: "new-session", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, state model.SessionState) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, state)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, state model.SessionState) *model.User {
	if state.UserID == testUserID {
		return &model.User{ID: testUserID, Username: "curry30", Email: "steph@example.com"}
	}
	return nil
}

type mockPlayerService struct {
	overviewFn  func(ctx context.Context, state model.SessionState) (*player.Overview, error)
	searchFn    func(ctx context.Context, state model.SessionState, name string) (*player.SearchResult, error)
	seasonFn    func(ctx context.Context, playerID int) (*player.SeasonStats, error)
	checkLineFn func(ctx context.Context, playerID int, category stats.Category, threshold float64) (*player.LineCheck, error)
}

func (m *mockPlayerService) FavoritesOverview(ctx context.Context, state model.SessionState) (*player.Overview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx, state)
	}
	return &player.Overview{Players: []model.Player{}}, nil
}

func (m *mockPlayerService) Search(ctx context.Context, state model.SessionState, name string) (*player.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, state, name)
	}
	return &player.SearchResult{Query: name, Players: []model.Player{}, Favorited: map[int]bool{}}, nil
}

func (m *mockPlayerService) SeasonStats(ctx context.Context, playerID int) (*player.SeasonStats, error) {
	if m.seasonFn != nil {
		return m.seasonFn(ctx, playerID)
	}
	return &player.SeasonStats{PlayerID: playerID, Season: 2024, Opponents: map[int]string{}}, nil
}

func (m *mockPlayerService) CheckLine(ctx context.Context, playerID int, category stats.Category, threshold float64) (*player.LineCheck, error) {
	if m.checkLineFn != nil {
		return m.checkLineFn(ctx, playerID, category, threshold)
	}
	return &player.LineCheck{PlayerID: playerID, Season: 2024, Category: category, Threshold: threshold}, nil
}

func (m *mockPlayerService) Season() int { return 2024 }

type mockFavoriteService struct {
	addFn       func(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error)
	removeFn    func(ctx context.Context, state model.SessionState, playerID int) (bool, error)
	addCalls    int
	removeCalls int
}

func (m *mockFavoriteService) Add(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error) {
	m.addCalls++
	if m.addFn != nil {
		return m.addFn(ctx, state, playerID)
	}
	return &model.FavoriteEntry{ID: "fav-1", UserID: state.UserID, PlayerID: playerID}, nil
}

func (m *mockFavoriteService) Remove(ctx context.Context, state model.SessionState, playerID int) (bool, error) {
	m.removeCalls++
	if m.removeFn != nil {
		return m.removeFn(ctx, state, playerID)
	}
	return true, nil
}

type mockStandings struct {
	listFn func(ctx context.Context, division string, season int) ([]model.Standing, error)
}

func (m *mockStandings) ListDivision(ctx context.Context, division string, season int) ([]model.Standing, error) {
	if m.listFn != nil {
		return m.listFn(ctx, division, season)
	}
	return nil, nil
}

type mockPinger struct {
	err error
}

func (m mockPinger) PingContext(ctx context.Context) error { return m.err }

// --- テストヘルパー ---

type testDeps struct {
	auth      *mockAuthService
	players   *mockPlayerService
	favorites *mockFavoriteService
	standings StandingsServiceInterface
	pinger    HealthChecker
	metrics   http.Handler
	limiter   *middleware.RateLimiter
}

func newTestDeps() *testDeps {
	return &testDeps{
		auth:      &mockAuthService{},
		players:   &mockPlayerService{},
		favorites: &mockFavoriteService{},
		standings: &mockStandings{},
		pinger:    mockPinger{},
	}
}

func (d *testDeps) router(t *testing.T) http.Handler {
	t.Helper()
	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() がエラーを返した: %v", err)
	}

	h := NewHandler(d.auth, d.players, d.favorites, d.standings, renderer,
		NewFlashStore(testSecret, false, ""),
		HandlerConfig{SessionMaxAge: 3600},
	)

	return NewRouter(&RouterDeps{
		SessionResolver: mockResolver{},
		RateLimiter:     d.limiter,
		Handler:         h,
		HealthChecker:   d.pinger,
		Metrics:         d.metrics,
	})
}

func get(router http.Handler, path string, loggedIn bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if loggedIn {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testSessionID})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postForm(router http.Handler, path string, form url.Values, loggedIn bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newPostRequest(path, form, loggedIn))
	return w
}

// newPostRequest はCSRFトークン付きのフォームPOSTリクエストを組み立てる。
func newPostRequest(path string, form url.Values, loggedIn bool) *http.Request {
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFieldName, testCSRFToken)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "192.0.2.10:40000"
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	if loggedIn {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testSessionID})
	}
	return req
}

// flashesOf はレスポンスに設定されたフラッシュCookieを復号する。
func flashesOf(t *testing.T, w *httptest.ResponseRecorder) []view.Flash {
	t.Helper()
	cookie := findCookie(w.Result(), flashCookieName)
	if cookie == nil || cookie.Value == "" {
		return nil
	}
	claims, err := NewFlashStore(testSecret, false, "").parse(cookie.Value)
	if err != nil {
		t.Fatalf("flash cookie could not be parsed: %v", err)
	}
	return claims.Flashes
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusSeeOther, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func assertFlash(t *testing.T, w *httptest.ResponseRecorder, category, message string) {
	t.Helper()
	flashes := flashesOf(t, w)
	if len(flashes) != 1 {
		t.Fatalf("flashes = %v, want exactly one", flashes)
	}
	if flashes[0].Category != category || flashes[0].Message != message {
		t.Errorf("flash = %+v, want {%s %q}", flashes[0], category, message)
	}
}

// --- トップページ ---

func TestHome_Anonymous_ShowsLoginPrompt(t *testing.T) {
	d := newTestDeps()
	w := get(d.router(t), "/", false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "create an account") {
		t.Error("anonymous home page should invite the user to log in or sign up")
	}
}

func TestHome_LoggedIn_ListsFavoritePlayers(t *testing.T) {
	d := newTestDeps()
	d.players.overviewFn = func(ctx context.Context, state model.SessionState) (*player.Overview, error) {
		if state.UserID != testUserID {
			t.Errorf("state.UserID = %q, want %q", state.UserID, testUserID)
		}
		return &player.Overview{
			Players: []model.Player{{ID: 115, FirstName: "Stephen", LastName: "Curry", Team: model.Team{FullName: "Golden State Warriors"}}},
			Skipped: 1,
		}, nil
	}

	w := get(d.router(t), "/", true)
	body := w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	for _, want := range []string{"Stephen Curry", "Golden State Warriors", `action="/users/115/delete"`, "Signed in as curry30", "could not be loaded"} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestHomeSearch_RedirectsToSearchPage(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/", url.Values{"player_name": {" Stephen Curry "}}, false)

	assertRedirect(t, w, "/active-player/Stephen%20Curry")
}

func TestHomeSearch_EmptyName_RedirectsHomeWithWarning(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/", url.Values{"player_name": {"  "}}, false)

	assertRedirect(t, w, "/")
	assertFlash(t, w, view.FlashWarning, "Please enter a player name to search.")
}

func TestHome_ShowsFlashFromCookie(t *testing.T) {
	d := newTestDeps()
	router := d.router(t)

	login := httptest.NewRecorder()
	NewFlashStore(testSecret, false, "").Set(login, view.Flash{Category: view.FlashSuccess, Message: "Hello, curry30!"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(findCookie(login.Result(), flashCookieName))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "Hello, curry30!") {
		t.Error("flash message is not rendered")
	}
	if c := findCookie(w.Result(), flashCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("flash cookie should be cleared after it is shown")
	}
}

// --- 認証 ---

func TestLogin_Success_SetsSessionAndGreets(t *testing.T) {
	d := newTestDeps()
	d.auth.authenticateFn = func(ctx context.Context, username, password string) (*model.User, error) {
		if username == "curry30" && password == "splash" {
			return &model.User{ID: testUserID, Username: "curry30"}, nil
		}
		return nil, nil
	}

	w := postForm(d.router(t), "/login", url.Values{"username": {"curry30"}, "password": {"splash"}}, false)

	assertRedirect(t, w, "/")
	assertFlash(t, w, view.FlashSuccess, "Hello, curry30!")

	session := findCookie(w.Result(), middleware.SessionCookieName)
	if session == nil || session.Value != "new-session" {
		t.Fatalf("session cookie = %+v, want new-session", session)
	}
	if !session.HttpOnly || session.MaxAge != 3600 {
		t.Errorf("session cookie HttpOnly=%v MaxAge=%d", session.HttpOnly, session.MaxAge)
	}
}

func TestLogin_WrongCredentials_RendersError(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/login", url.Values{"username": {"curry30"}, "password": {"wrong"}}, false)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(w.Body.String(), "Invalid credentials.") {
		t.Error("body should contain the invalid credentials message")
	}
	if findCookie(w.Result(), middleware.SessionCookieName) != nil {
		t.Error("session cookie must not be set on failed login")
	}
}

func TestLogin_PassesCurrentStateToAuth(t *testing.T) {
	d := newTestDeps()
	d.auth.authenticateFn = func(ctx context.Context, username, password string) (*model.User, error) {
		return &model.User{ID: "user-2", Username: "klay11"}, nil
	}
	var current model.SessionState
	d.auth.loginFn = func(ctx context.Context, cur model.SessionState, user *model.User) (*model.Session, error) {
		current = cur
		return &model.Session{ID: "relogin", UserID: user.ID}, nil
	}

	w := postForm(d.router(t), "/login", url.Values{"username": {"klay11"}, "password": {"splash"}}, true)

	assertRedirect(t, w, "/")
	if current.SessionID != testSessionID {
		t.Errorf("Login() received SessionID %q, want the previous session %q", current.SessionID, testSessionID)
	}
}

func TestLogin_ValidationError_Returns422(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/login", url.Values{"username": {""}}, false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(w.Body.String(), "This field is required.") {
		t.Error("field errors should be rendered")
	}
}

func TestLogin_StoreFailure_Returns500(t *testing.T) {
	d := newTestDeps()
	d.auth.authenticateFn = func(ctx context.Context, username, password string) (*model.User, error) {
		return nil, errors.New("connection refused")
	}

	w := postForm(d.router(t), "/login", url.Values{"username": {"curry30"}, "password": {"splash"}}, false)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("internal error details must not be rendered")
	}
}

func TestSignup_Success_LogsInAndRedirects(t *testing.T) {
	d := newTestDeps()
	var got auth.SignUpInput
	d.auth.signUpFn = func(ctx context.Context, in auth.SignUpInput) (*model.User, error) {
		got = in
		return &model.User{ID: "new-user", Username: in.Username}, nil
	}

	w := postForm(d.router(t), "/signup", url.Values{
		"username": {"curry30"},
		"email":    {"steph@example.com"},
		"password": {"splash"},
	}, false)

	assertRedirect(t, w, "/")
	if got.Username != "curry30" || got.Email != "steph@example.com" || got.Password != "splash" {
		t.Errorf("SignUp() input = %+v", got)
	}
	if findCookie(w.Result(), middleware.SessionCookieName) == nil {
		t.Error("session cookie should be set after signup")
	}
}

func TestSignup_Duplicate_RendersConflict(t *testing.T) {
	d := newTestDeps()
	d.auth.signUpFn = func(ctx context.Context, in auth.SignUpInput) (*model.User, error) {
		return nil, model.NewDuplicateIdentityError("username")
	}

	w := postForm(d.router(t), "/signup", url.Values{
		"username": {"curry30"},
		"email":    {"steph@example.com"},
		"password": {"splash"},
	}, false)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Username already taken.") {
		t.Error("duplicate message should be rendered")
	}
	if !strings.Contains(body, `value="steph@example.com"`) {
		t.Error("submitted email should be kept in the form")
	}
	if findCookie(w.Result(), middleware.SessionCookieName) != nil {
		t.Error("session cookie must not be set on failed signup")
	}
}

func TestSignup_InvalidForm_DoesNotCallService(t *testing.T) {
	d := newTestDeps()
	called := false
	d.auth.signUpFn = func(ctx context.Context, in auth.SignUpInput) (*model.User, error) {
		called = true
		return nil, nil
	}

	w := postForm(d.router(t), "/signup", url.Values{
		"username": {"curry30"},
		"email":    {"not-an-email"},
		"password": {"123"},
	}, false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if called {
		t.Error("SignUp() should not be called for an invalid form")
	}
}

// bcryptが扱えない72バイト超のパスワードはフォーム検証で弾き、サービスを呼ばない。
func TestSignup_PasswordOverByteLimit_RendersValidationError(t *testing.T) {
	d := newTestDeps()
	called := false
	d.auth.signUpFn = func(ctx context.Context, in auth.SignUpInput) (*model.User, error) {
		called = true
		return &model.User{ID: "new-user", Username: in.Username}, nil
	}

	w := postForm(d.router(t), "/signup", url.Values{
		"username": {"curry30"},
		"email":    {"steph@example.com"},
		"password": {strings.Repeat("s", 73)},
	}, false)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(w.Body.String(), "Must be at most 72 bytes.") {
		t.Error("パスワード長のエラーメッセージが表示されていない")
	}
	if called {
		t.Error("SignUp() should not be called for an over-long password")
	}
}

func TestLogout_ClearsSessionAndRedirects(t *testing.T) {
	d := newTestDeps()
	var loggedOut model.SessionState
	d.auth.logoutFn = func(ctx context.Context, state model.SessionState) error {
		loggedOut = state
		return nil
	}

	w := postForm(d.router(t), "/logout", nil, true)

	assertRedirect(t, w, "/login")
	if loggedOut.SessionID != testSessionID {
		t.Errorf("Logout() state = %+v", loggedOut)
	}
	if c := findCookie(w.Result(), middleware.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie should be expired")
	}
}

func TestLogout_Anonymous_StillRedirects(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/logout", nil, false)

	assertRedirect(t, w, "/login")
}

// GETでのログアウトは受け付けない（外部ページの画像タグ等でログアウトさせられないようにする）。
func TestLogout_GET_IsNotAllowed(t *testing.T) {
	d := newTestDeps()
	called := false
	d.auth.logoutFn = func(ctx context.Context, state model.SessionState) error {
		called = true
		return nil
	}

	w := get(d.router(t), "/logout", true)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if called {
		t.Error("GET /logout でLogout()が呼ばれた")
	}
	if c := findCookie(w.Result(), middleware.SessionCookieName); c != nil {
		t.Error("GET /logout でセッションCookieが変更された")
	}
}

func TestLogout_WithoutCSRFToken_IsRejected(t *testing.T) {
	d := newTestDeps()
	called := false
	d.auth.logoutFn = func(ctx context.Context, state model.SessionState) error {
		called = true
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testSessionID})
	w := httptest.NewRecorder()
	d.router(t).ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if called {
		t.Error("CSRFトークンなしでLogout()が呼ばれた")
	}
}

// --- 選手ページ ---

func TestSearchPlayers_MarksFavorites(t *testing.T) {
	d := newTestDeps()
	d.players.searchFn = func(ctx context.Context, state model.SessionState, name string) (*player.SearchResult, error) {
		if name != "curry" {
			t.Errorf("name = %q, want %q", name, "curry")
		}
		return &player.SearchResult{
			Query: name,
			Players: []model.Player{
				{ID: 115, FirstName: "Stephen", LastName: "Curry"},
				{ID: 116, FirstName: "Seth", LastName: "Curry"},
			},
			Favorited: map[int]bool{115: true},
		}, nil
	}

	w := get(d.router(t), "/active-player/curry", true)
	body := w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(body, `action="/users/add_favorite_player/115"`) {
		t.Error("favorited player should not have an add button")
	}
	if !strings.Contains(body, `action="/users/add_favorite_player/116"`) {
		t.Error("non-favorited player should have an add button")
	}
}

func TestSearchPlayers_GatewayFailure_Returns502(t *testing.T) {
	d := newTestDeps()
	d.players.searchFn = func(ctx context.Context, state model.SessionState, name string) (*player.SearchResult, error) {
		return nil, model.NewGatewayFailureError("search_active_players", errors.New("timeout"))
	}

	w := get(d.router(t), "/active-player/curry", false)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	if !strings.Contains(w.Body.String(), "Error loading data from the stats provider.") {
		t.Error("gateway failure message should be rendered")
	}
}

func TestPlayerStats_RendersAverages(t *testing.T) {
	d := newTestDeps()
	d.players.seasonFn = func(ctx context.Context, playerID int) (*player.SeasonStats, error) {
		avg := stats.Averages{Games: 2, Points: 29.5, Rebounds: 5, Assists: 6.5}
		return &player.SeasonStats{
			PlayerID: playerID,
			Season:   2024,
			Games: []model.GameStat{
				{GameID: 1, Date: time.Date(2024, 10, 22, 0, 0, 0, 0, time.UTC), TeamID: 10, HomeTeamID: 10, VisitorTeamID: 24, Points: 27},
				{GameID: 2, Date: time.Date(2024, 10, 24, 0, 0, 0, 0, time.UTC), TeamID: 10, HomeTeamID: 29, VisitorTeamID: 10, Points: 32},
			},
			Averages:  &avg,
			Recent:    &avg,
			Opponents: map[int]string{24: "Portland Trail Blazers"},
		}, nil
	}

	w := get(d.router(t), "/115/player-stats", false)
	body := w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	for _, want := range []string{"29.5 PTS", "5.0 REB", "6.5 AST", "Portland Trail Blazers", "Team #29", "Oct 22, 2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestPlayerStats_NoGames_RendersMessage(t *testing.T) {
	d := newTestDeps()
	w := get(d.router(t), "/115/player-stats", false)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "No games available") {
		t.Error("empty season should show a no games message")
	}
}

func TestPlayerStats_GatewayFailure_RedirectsHome(t *testing.T) {
	d := newTestDeps()
	d.players.seasonFn = func(ctx context.Context, playerID int) (*player.SeasonStats, error) {
		return nil, model.NewGatewayFailureError("list_season_stats", errors.New("502"))
	}

	w := get(d.router(t), "/115/player-stats", false)

	assertRedirect(t, w, "/")
	assertFlash(t, w, view.FlashDanger, "Error loading player stats.")
}

func TestPlayerStats_InvalidID_Returns404(t *testing.T) {
	d := newTestDeps()
	for _, path := range []string{"/abc/player-stats", "/0/player-stats", "/-3/player-stats"} {
		if w := get(d.router(t), path, false); w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want %d", path, w.Code, http.StatusNotFound)
		}
	}
}

func TestBetLineCheckPage_RendersForm(t *testing.T) {
	d := newTestDeps()
	w := get(d.router(t), "/115/bet-line-check", false)
	body := w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	for _, want := range []string{`value="points" selected`, `value="rebounds"`, `value="assists"`, `name="bet_line"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestBetLineCheck_CountsGamesOverLine(t *testing.T) {
	d := newTestDeps()
	var gotCategory stats.Category
	var gotThreshold float64
	d.players.checkLineFn = func(ctx context.Context, playerID int, category stats.Category, threshold float64) (*player.LineCheck, error) {
		gotCategory, gotThreshold = category, threshold
		return &player.LineCheck{
			PlayerID: playerID, Season: 2024, Category: category, Threshold: threshold,
			Games: []model.GameStat{{GameID: 1}, {GameID: 2}, {GameID: 3}},
			Count: 2, Total: 3, HitRate: 66.7,
		}, nil
	}

	w := postForm(d.router(t), "/115/bet-line-check", url.Values{"stat_cat": {"rebounds"}, "bet_line": {"4.5"}}, false)
	body := w.Body.String()

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotCategory != stats.Rebounds || gotThreshold != 4.5 {
		t.Errorf("CheckLine() got %v / %v, want rebounds / 4.5", gotCategory, gotThreshold)
	}
	for _, want := range []string{"Rebounds over 4.5", "<strong>2</strong> of 3 games", "66.7%"} {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestBetLineCheck_InvalidForm_Returns422(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{name: "unknown category", form: url.Values{"stat_cat": {"steals"}, "bet_line": {"1.5"}}},
		{name: "non numeric line", form: url.Values{"stat_cat": {"points"}, "bet_line": {"lots"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			called := false
			d.players.checkLineFn = func(ctx context.Context, playerID int, category stats.Category, threshold float64) (*player.LineCheck, error) {
				called = true
				return nil, nil
			}

			w := postForm(d.router(t), "/115/bet-line-check", tt.form, false)

			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
			}
			if called {
				t.Error("CheckLine() should not be called for an invalid form")
			}
		})
	}
}

// --- お気に入り ---

func TestAddFavorite_Anonymous_RedirectsToLogin(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/users/add_favorite_player/115", nil, false)

	assertRedirect(t, w, "/login")
	assertFlash(t, w, view.FlashDanger, "You are not logged in. Please log in or create an account to get started!")
	if d.favorites.addCalls != 0 {
		t.Errorf("Add() calls = %d, want 0", d.favorites.addCalls)
	}
}

func TestAddFavorite_Success_RedirectsHome(t *testing.T) {
	d := newTestDeps()
	d.favorites.addFn = func(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error) {
		if state.UserID != testUserID || playerID != 115 {
			t.Errorf("Add() got %+v / %d", state, playerID)
		}
		return &model.FavoriteEntry{ID: "fav", UserID: state.UserID, PlayerID: playerID}, nil
	}

	w := postForm(d.router(t), "/users/add_favorite_player/115", nil, true)

	assertRedirect(t, w, "/")
	if flashes := flashesOf(t, w); len(flashes) != 0 {
		t.Errorf("flashes = %v, want none", flashes)
	}
}

func TestAddFavorite_Duplicate_WarnsAndRedirectsHome(t *testing.T) {
	d := newTestDeps()
	d.favorites.addFn = func(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error) {
		return nil, model.NewAlreadyFavoritedError(playerID)
	}

	w := postForm(d.router(t), "/users/add_favorite_player/115", nil, true)

	assertRedirect(t, w, "/")
	assertFlash(t, w, view.FlashWarning, "This Player is already favorited!")
}

func TestAddFavorite_StoreFailure_ShowsError(t *testing.T) {
	d := newTestDeps()
	d.favorites.addFn = func(ctx context.Context, state model.SessionState, playerID int) (*model.FavoriteEntry, error) {
		return nil, errors.New("db down")
	}

	w := postForm(d.router(t), "/users/add_favorite_player/115", nil, true)

	assertRedirect(t, w, "/")
	assertFlash(t, w, view.FlashDanger, "Error adding player to favorites.")
}

func TestRemoveFavorite_Anonymous_Unauthorized(t *testing.T) {
	d := newTestDeps()
	w := postForm(d.router(t), "/users/115/delete", nil, false)

	assertRedirect(t, w, "/")
	assertFlash(t, w, view.FlashDanger, "Access unauthorized.")
	if d.favorites.removeCalls != 0 {
		t.Errorf("Remove() calls = %d, want 0", d.favorites.removeCalls)
	}
}

func TestRemoveFavorite_NotFavorited_StillRedirectsHome(t *testing.T) {
	d := newTestDeps()
	d.favorites.removeFn = func(ctx context.Context, state model.SessionState, playerID int) (bool, error) {
		return false, nil
	}

	w := postForm(d.router(t), "/users/999/delete", nil, true)

	assertRedirect(t, w, "/")
	if d.favorites.removeCalls != 1 {
		t.Errorf("Remove() calls = %d, want 1", d.favorites.removeCalls)
	}
}

func TestFavoriteRoutes_RequireCSRFToken(t *testing.T) {
	d := newTestDeps()
	router := d.router(t)

	req := httptest.NewRequest(http.MethodPost, "/users/add_favorite_player/115", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testSessionID})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if d.favorites.addCalls != 0 {
		t.Error("Add() should not be called without a CSRF token")
	}
}

// --- 順位表 ---

func TestStandings(t *testing.T) {
	t.Run("renders division", func(t *testing.T) {
		d := newTestDeps()
		d.standings = &mockStandings{listFn: func(ctx context.Context, division string, season int) ([]model.Standing, error) {
			if division != "pacific" || season != 2024 {
				t.Errorf("ListDivision(%q, %d)", division, season)
			}
			return []model.Standing{{TeamName: "Golden State Warriors", DivisionRank: 1, Wins: 10, Losses: 2, GamesBehind: "-"}}, nil
		}}

		w := get(d.router(t), "/standings/Pacific", false)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if !strings.Contains(w.Body.String(), "Pacific Division") || !strings.Contains(w.Body.String(), "Golden State Warriors") {
			t.Error("standings table is not rendered")
		}
	})

	t.Run("unknown division is 404", func(t *testing.T) {
		d := newTestDeps()
		if w := get(d.router(t), "/standings/eastern", false); w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("not configured is 503", func(t *testing.T) {
		d := newTestDeps()
		d.standings = nil
		if w := get(d.router(t), "/standings/pacific", false); w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})
}

// --- 運用エンドポイント ---

func TestHealth(t *testing.T) {
	d := newTestDeps()
	if w := get(d.router(t), "/health", false); w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	d.pinger = mockPinger{err: errors.New("connection refused")}
	w := get(d.router(t), "/health", false)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Error("health response must not leak the cause")
	}
}

func TestMetricsRoute(t *testing.T) {
	d := newTestDeps()
	d.metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("gamblr_metric 1\n"))
	})

	w := get(d.router(t), "/metrics", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gamblr_metric") {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestSecurityHeadersAreApplied(t *testing.T) {
	d := newTestDeps()
	w := get(d.router(t), "/", false)

	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers should be set on pages")
	}
}

func TestLoginRateLimit(t *testing.T) {
	d := newTestDeps()
	d.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		AuthRate:        0.01,
		AuthBurst:       2,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(d.limiter.Stop)
	router := d.router(t)

	form := url.Values{"username": {"curry30"}, "password": {"wrong"}}
	for i := 0; i < 2; i++ {
		if w := postForm(router, "/login", form, false); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want %d", i, w.Code, http.StatusUnauthorized)
		}
	}

	if w := postForm(router, "/login", form, false); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w := get(router, "/login", false); w.Code != http.StatusOK {
		t.Errorf("GET /login status = %d, want %d", w.Code, http.StatusOK)
	}
}

// 転送ヘッダーを書き換えてもレート制限の対象は接続元アドレスのまま変わらない。
func TestLoginRateLimit_IgnoresForwardedHeaders(t *testing.T) {
	d := newTestDeps()
	d.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		AuthRate:        0.01,
		AuthBurst:       1,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(d.limiter.Stop)
	router := d.router(t)

	limited := 0
	for i := 0; i < 20; i++ {
		req := newPostRequest("/login", url.Values{"username": {"curry30"}, "password": {"wrong"}}, false)
		spoofed := fmt.Sprintf("203.0.113.%d", i+1)
		req.Header.Set("X-Real-IP", spoofed)
		req.Header.Set("X-Forwarded-For", spoofed)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	if limited != 19 {
		t.Errorf("rate-limited = %d, want 19", limited)
	}
	if n := d.limiter.LimiterCount(); n != 1 {
		t.Errorf("LimiterCount() = %d, want 1", n)
	}
}
