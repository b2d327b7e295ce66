package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/dbx"
	"github.com/proloapp/sparkle/internal/logging"
	"github.com/proloapp/sparkle/internal/server/auth"
	"github.com/proloapp/sparkle/internal/server/config"
	"github.com/proloapp/sparkle/internal/server/models"
	"github.com/proloapp/sparkle/internal/server/repositories/profiles"
	"github.com/proloapp/sparkle/internal/server/repositories/refreshtokens"
	"github.com/proloapp/sparkle/internal/server/repositories/users"
	"github.com/proloapp/sparkle/internal/server/services"
)

type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	nextID int
}

func (r *fakeUsersRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email || u.Username == user.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.nextID++
	user.ID = fmt.Sprintf("u-%d", r.nextID)
	user.CreatedAt = time.Now()
	r.byID[user.ID] = user
	return user, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeTokensRepo struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func (r *fakeTokensRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeTokensRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.tokens[token]; ok {
		return &row, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeTokensRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokensRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, row := range r.tokens {
		if row.UserID == userID {
			delete(r.tokens, token)
		}
	}
	return nil
}

type fakeProfilesRepo struct {
	mu     sync.Mutex
	byUser map[string]*models.Profile
}

func (r *fakeProfilesRepo) Create(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byUser {
		if existing.UserID == p.UserID || existing.Username == p.Username || existing.Email == p.Email {
			return common.ErrorAlreadyExists
		}
	}
	clone := *p
	r.byUser[p.UserID] = &clone
	return nil
}

func (r *fakeProfilesRepo) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byUser[userID]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, common.ErrorNotFound
}

func (r *fakeProfilesRepo) GetByUsername(_ context.Context, username string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byUser {
		if p.Username == username {
			clone := *p
			return &clone, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeProfilesRepo) FindByEmailOrUsername(_ context.Context, email, username string) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Profile
	for _, p := range r.byUser {
		if p.Email == email || p.Username == username {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *fakeProfilesRepo) Update(_ context.Context, userID string, patch profiles.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byUser[userID]
	if !ok {
		return common.ErrorNotFound
	}
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}
	if patch.FingerprintEnabled != nil {
		p.FingerprintEnabled = *patch.FingerprintEnabled
	}
	return nil
}

type fakeRepoManager struct {
	users    *fakeUsersRepo
	tokens   *fakeTokensRepo
	profiles *fakeProfilesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository { return m.profiles }

func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sql.Open("sqlite", "file:httpapi?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		SecretKey:                    testSecret,
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		CORSAllowedOrigins:           []string{"*"},
		S3Bucket:                     "avatars",
		S3Region:                     "us-east-1",
		S3BaseEndpoint:               "http://127.0.0.1:9000/",
	}

	rm := &fakeRepoManager{
		users:    &fakeUsersRepo{byID: map[string]*models.User{}},
		tokens:   &fakeTokensRepo{tokens: map[string]models.RefreshToken{}},
		profiles: &fakeProfilesRepo{byUser: map[string]*models.Profile{}},
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	accounts := services.NewAccountService(db, rm, cfg, logger)
	profileSvc := services.NewProfileService(db, rm)
	avatars := services.NewAvatarService(cfg)

	handler := NewHandler(accounts, profileSvc, avatars, logger)
	srv := httptest.NewServer(NewRouter(handler, cfg.CORSAllowedOrigins))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do error: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, data
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
}

func register(t *testing.T, srv *httptest.Server, email, username string) sessionResponse {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, srv.URL+"/auth/signup", "", map[string]string{
		"email": email, "password": "secret123", "username": username,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d: %s", resp.StatusCode, data)
	}
	var sess sessionResponse
	if err := json.Unmarshal(data, &sess); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return sess
}

func login(t *testing.T, srv *httptest.Server, email string) sessionResponse {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.StatusCode, data)
	}
	var sess sessionResponse
	if err := json.Unmarshal(data, &sess); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return sess
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal error: %v (%s)", err, data)
	}
	return payload.Message
}

func TestSignUp_ReturnsSession(t *testing.T) {
	srv := newTestServer(t)

	sess := register(t, srv, "ann@example.com", "ann")
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("expected a token pair, got %+v", sess)
	}

	// the signup token is immediately usable
	resp, data := doJSON(t, http.MethodGet, srv.URL+"/auth/user", sess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/auth/signup", "", map[string]string{
		"email": "ann@example.com", "password": "secret123", "username": "other",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if got := errorMessage(t, data); got != "User already registered" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestLogin_InvalidCredentialsMessage(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/auth/login", "", map[string]string{
		"email": "ann@example.com", "password": "wrongpass",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if got := errorMessage(t, data); got != "Invalid login credentials" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestAuthUser_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/auth/user", sess.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	var user struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &user); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if user.ID != sess.User.ID || user.Email != "ann@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthUser_NoToken(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/auth/user", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAuthUser_ExpiredTokenMessage(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	expired, err := auth.GenerateToken(sess.User.ID, []byte(testSecret), -time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	resp, data := doJSON(t, http.MethodGet, srv.URL+"/auth/user", expired, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if got := errorMessage(t, data); got != common.ErrTokenExpired.Error() {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	resp, data := doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": sess.RefreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	var rotated sessionResponse
	if err := json.Unmarshal(data, &rotated); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if rotated.RefreshToken == sess.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/auth/refresh", "", map[string]string{
		"refresh_token": sess.RefreshToken,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reuse, got %d", resp.StatusCode)
	}
}

func TestProfiles_LookupLifecycle(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	// no filter
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/profiles", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	// unknown username resolves to an empty array
	resp, data := doJSON(t, http.MethodGet, srv.URL+"/profiles?username=ghost", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("expected a JSON array, got %s", data)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty array, got %s", data)
	}

	// create the profile, then look it up by username
	resp, data = doJSON(t, http.MethodPost, srv.URL+"/profiles", sess.AccessToken, map[string]any{
		"user_id": sess.User.ID, "username": "ann", "email": "ann@example.com", "level": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, data)
	}

	resp, data = doJSON(t, http.MethodGet, srv.URL+"/profiles?username=ann", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var found []struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := json.Unmarshal(data, &found); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(found) != 1 || found[0].UserID != sess.User.ID {
		t.Fatalf("unexpected lookup result: %s", data)
	}
}

func TestCreateProfile_ForeignOwner(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/profiles", sess.AccessToken, map[string]any{
		"user_id": "someone-else", "username": "ann", "email": "ann@example.com",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestUpdateProfile_OwnershipAndPatch(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/profiles", sess.AccessToken, map[string]any{
		"user_id": sess.User.ID, "username": "ann", "email": "ann@example.com", "level": 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("profile create failed: %d", resp.StatusCode)
	}

	// someone else's profile
	resp, _ = doJSON(t, http.MethodPatch, srv.URL+"/profiles/other-user", sess.AccessToken, map[string]any{
		"fingerprint_enabled": true,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// own profile
	resp, _ = doJSON(t, http.MethodPatch, srv.URL+"/profiles/"+sess.User.ID, sess.AccessToken, map[string]any{
		"fingerprint_enabled": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, data := doJSON(t, http.MethodGet, srv.URL+"/profiles?user_id="+sess.User.ID, "", nil)
	var found []struct {
		FingerprintEnabled bool `json:"fingerprint_enabled"`
	}
	if err := json.Unmarshal(data, &found); err != nil || len(found) != 1 {
		t.Fatalf("lookup failed: %v %s", err, data)
	}
	if !found[0].FingerprintEnabled {
		t.Fatalf("patch was not applied")
	}
}

func TestUploadAvatar_KeyValidation(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "ann@example.com", "ann")
	sess := login(t, srv, "ann@example.com")

	// key owned by another user
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/storage/avatars/other-1700000000000.png", bytes.NewReader([]byte{1}))
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do error: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// malformed key
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/storage/avatars/no_timestamp", bytes.NewReader([]byte{1}))
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do error: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestServeAvatar_Redirects(t *testing.T) {
	srv := newTestServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(srv.URL + "/storage/avatars/u-1-1700000000000.png")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	want := "http://127.0.0.1:9000/avatars/u-1-1700000000000.png"
	if got := resp.Header.Get("Location"); got != want {
		t.Fatalf("unexpected redirect target: %q", got)
	}
}
