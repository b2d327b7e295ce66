package account

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/proloapp/sparkle/internal/common"
)

// HTTPClient talks to the account service's JSON API. It caches the current
// session, transparently refreshes an expired access token once per request,
// and fans session-change events out to OnSessionChange subscribers.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	session      *Session
	subs         map[int]func(SessionEvent)
	nextSubID    int
}

// NewHTTPClient creates a client for the service at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		subs:    make(map[int]func(SessionEvent)),
	}
}

type subscription struct {
	c    *HTTPClient
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.c.mu.Lock()
		delete(s.c.subs, s.id)
		s.c.mu.Unlock()
	})
}

// OnSessionChange registers fn for session-change events. The returned
// handle must be released when the observer goes away.
func (c *HTTPClient) OnSessionChange(fn func(SessionEvent)) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.subs[id] = fn
	return &subscription{c: c, id: id}
}

func (c *HTTPClient) emit(ev SessionEvent) {
	c.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	// callbacks run outside the lock so they may re-subscribe or unsubscribe
	for _, fn := range fns {
		fn(ev)
	}
}

func (c *HTTPClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *HTTPClient) setSession(s *Session) {
	c.mu.Lock()
	if s == nil {
		c.accessToken = ""
		c.refreshToken = ""
		c.session = nil
	} else {
		c.accessToken = s.AccessToken
		c.refreshToken = s.RefreshToken
		c.session = s
	}
	c.mu.Unlock()
}

// doJSON performs one API call. The request body (if any) is JSON-encoded;
// a JSON response is decoded into out when out is non-nil. An expired access
// token is refreshed once and the call retried, mirroring the session
// behavior of the hosted SDK.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	err := c.doOnce(ctx, method, path, body, out)
	if err == nil {
		return nil
	}

	apiErr, ok := asAPIError(err)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != common.ErrTokenExpired.Error() {
		return err
	}

	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()
	if refresh == "" {
		return err
	}

	if rerr := c.refreshSession(ctx, refresh); rerr != nil {
		return err
	}
	return c.doOnce(ctx, method, path, body, out)
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrorUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
}

func asAPIError(err error) (*APIError, bool) {
	apiErr, ok := err.(*APIError)
	return apiErr, ok
}

func (c *HTTPClient) refreshSession(ctx context.Context, refreshToken string) error {
	var sess Session
	err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, &sess)
	if err != nil {
		return err
	}
	c.setSession(&sess)
	c.emit(SessionEvent{Type: EventTokenRefreshed, Session: &sess})
	return nil
}

// SignUp creates the auth identity. The service signs the new account in as
// part of signup, so the returned session is cached right away and follow-up
// calls (such as the profile insert) carry the bearer token.
func (c *HTTPClient) SignUp(ctx context.Context, email, password, username string) (*User, error) {
	var sess Session
	err := c.doOnce(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	}, &sess)
	if err != nil {
		return nil, err
	}

	c.setSession(&sess)
	c.emit(SessionEvent{Type: EventSignedIn, Session: &sess})
	return &sess.User, nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	err := c.doOnce(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &sess)
	if err != nil {
		return nil, err
	}

	c.setSession(&sess)
	c.emit(SessionEvent{Type: EventSignedIn, Session: &sess})
	return &sess, nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	if c.token() == "" {
		return nil
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.setSession(nil)
	c.emit(SessionEvent{Type: EventSignedOut})
	return nil
}

// CurrentSession revalidates the cached session against the service.
// It returns (nil, nil) when no session exists; a session invalidated on
// the server side is dropped locally and announced as a signed-out event.
func (c *HTTPClient) CurrentSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil, nil
	}

	var user User
	err := c.doJSON(ctx, http.MethodGet, "/auth/user", nil, &user)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.setSession(nil)
			c.emit(SessionEvent{Type: EventSignedOut})
			return nil, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.session.User = user
	sess = c.session
	c.mu.Unlock()
	return sess, nil
}

func (c *HTTPClient) ResetPasswordEmail(ctx context.Context, email string) error {
	return c.doOnce(ctx, http.MethodPost, "/auth/recover", map[string]string{"email": email}, nil)
}

func (c *HTTPClient) ProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	return c.singleProfile(ctx, url.Values{"username": {username}})
}

func (c *HTTPClient) ProfileByUserID(ctx context.Context, userID string) (*Profile, error) {
	return c.singleProfile(ctx, url.Values{"user_id": {userID}})
}

func (c *HTTPClient) singleProfile(ctx context.Context, filters url.Values) (*Profile, error) {
	var profiles []Profile
	err := c.doJSON(ctx, http.MethodGet, "/profiles?"+filters.Encode(), nil, &profiles)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, common.ErrorNotFound
	}
	return &profiles[0], nil
}

func (c *HTTPClient) ProfilesByEmailOrUsername(ctx context.Context, email, username string) ([]Profile, error) {
	filters := url.Values{"email": {email}, "username": {username}}
	var profiles []Profile
	err := c.doJSON(ctx, http.MethodGet, "/profiles?"+filters.Encode(), nil, &profiles)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *HTTPClient) InsertProfile(ctx context.Context, p Profile) error {
	return c.doJSON(ctx, http.MethodPost, "/profiles", p, nil)
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error {
	return c.doJSON(ctx, http.MethodPatch, "/profiles/"+url.PathEscape(userID), patch, nil)
}

func (c *HTTPClient) UploadAvatar(ctx context.Context, key string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/storage/avatars/"+url.PathEscape(key), bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if t := c.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrorUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	return nil
}

// AvatarPublicURL builds the public URL for an uploaded avatar. No network
// call is made; the server redirects this path to the backing object store.
func (c *HTTPClient) AvatarPublicURL(key string) string {
	return c.baseURL + "/storage/avatars/" + url.PathEscape(key)
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
