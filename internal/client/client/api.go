package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/apierr"
	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/dmitrijs2005/gophshare/internal/common"
)

const maxErrorBodyBytes = 64 << 10

// LoginResult is the answer to a login or MFA verification. Either
// MFARequired is set together with MFAToken, or User and both credentials
// are present.
type LoginResult struct {
	MFARequired bool         `json:"mfaRequired"`
	UserName    string       `json:"username"`
	MFAToken    string       `json:"mfaToken"`
	User        *models.User `json:"user"`
	Access      string       `json:"access"`
	Refresh     string       `json:"refresh"`
}

// UploadRequest is a file already sealed on the client.
type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	ContentKey  []byte
	Envelope    []byte
}

// APIClient talks to the GophShare REST API. Unauthenticated endpoints
// (register, login, refresh, logout) go through a plain client; everything
// else goes through the authorized client once EnableAuth is called.
type APIClient struct {
	baseURL string
	plain   *http.Client
	authed  *http.Client
}

// NewAPIClient returns a client for baseURL. base is the underlying round
// tripper; nil means http.DefaultTransport.
func NewAPIClient(baseURL string, timeout time.Duration, base http.RoundTripper) *APIClient {
	if base == nil {
		base = http.DefaultTransport
	}
	plain := &http.Client{Timeout: timeout, Transport: base}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		plain:   plain,
		authed:  plain,
	}
}

// EnableAuth routes authorized calls through an AuthTransport bound to
// tokens. The refresh exchange itself always uses the plain client.
func (c *APIClient) EnableAuth(tokens TokenSource, skew time.Duration) *AuthTransport {
	t := NewAuthTransport(c.plain.Transport, tokens, c.Refresh, skew)
	c.authed = &http.Client{Timeout: c.plain.Timeout, Transport: t}
	return t
}

func (c *APIClient) Register(ctx context.Context, userName, email, password string, role models.Role) (*LoginResult, error) {
	req := map[string]string{"username": userName, "email": email, "password": password, "role": string(role)}
	var res LoginResult
	if err := c.doJSON(ctx, c.plain, http.MethodPost, "/user/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *APIClient) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	req := map[string]string{"username": userName, "password": password}
	var res LoginResult
	if err := c.doJSON(ctx, c.plain, http.MethodPost, "/user/login", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyLogin completes an MFA challenge issued by Login.
func (c *APIClient) VerifyLogin(ctx context.Context, userName, mfaToken, code string) (*LoginResult, error) {
	req := map[string]string{"username": userName, "mfaToken": mfaToken, "code": code}
	var res LoginResult
	if err := c.doJSON(ctx, c.plain, http.MethodPost, "/user/mfa/verify-login", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh exchanges a refresh credential for a new access credential.
func (c *APIClient) Refresh(ctx context.Context, refresh string) (string, error) {
	var res struct {
		Access string `json:"access"`
	}
	if err := c.doJSON(ctx, c.plain, http.MethodPost, "/user/token/refresh", map[string]string{"refresh": refresh}, &res); err != nil {
		return "", err
	}
	if res.Access == "" {
		return "", ErrMalformedResponse
	}
	return res.Access, nil
}

// Logout invalidates refresh server-side.
func (c *APIClient) Logout(ctx context.Context, refresh string) error {
	return c.doJSON(ctx, c.plain, http.MethodPost, "/user/logout", map[string]string{"refresh": refresh}, nil)
}

func (c *APIClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/user/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *APIClient) BeginMFA(ctx context.Context) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := c.doJSON(ctx, c.authed, http.MethodPost, "/user/mfa/setup", nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *APIClient) ConfirmMFA(ctx context.Context, code string) error {
	return c.doJSON(ctx, c.authed, http.MethodPost, "/user/mfa/verify", map[string]string{"code": code}, nil)
}

// Upload sends a sealed file as multipart/form-data.
func (c *APIClient) Upload(ctx context.Context, in UploadRequest) (*models.File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"encrypted_key", base64.StdEncoding.EncodeToString(in.ContentKey)},
		{"file_name", in.FileName},
		{"file_type", in.ContentType},
		{"file_size", strconv.FormatInt(in.Size, 10)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", in.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(in.Envelope); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storage/upload", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var f models.File
	if err := c.do(c.authed, req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *APIClient) ListFiles(ctx context.Context) ([]models.File, error) {
	files := []models.File{}
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/storage/files", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *APIClient) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, c.authed, http.MethodDelete, "/storage/files/"+url.PathEscape(fileID), nil, nil)
}

// Download fetches the envelope and content key for a file the caller may
// download. linkToken is optional.
func (c *APIClient) Download(ctx context.Context, fileID, linkToken string) (*models.Payload, error) {
	return c.fetch(ctx, "/storage/download/", fileID, linkToken)
}

// Preview is Download gated by the preview action instead.
func (c *APIClient) Preview(ctx context.Context, fileID, linkToken string) (*models.Payload, error) {
	return c.fetch(ctx, "/storage/preview/", fileID, linkToken)
}

func (c *APIClient) fetch(ctx context.Context, prefix, fileID, linkToken string) (*models.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+prefix+url.PathEscape(fileID), nil)
	if err != nil {
		return nil, err
	}
	if linkToken != "" {
		req.Header.Set(common.ShareTokenHeaderName, linkToken)
	}

	resp, err := c.send(c.authed, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	key, err := base64.StdEncoding.DecodeString(resp.Header.Get(common.EncryptedKeyHeaderName))
	if err != nil {
		return nil, fmt.Errorf("%w: content key: %v", ErrMalformedResponse, err)
	}
	envelope, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	p := &models.Payload{
		ContentType: resp.Header.Get("Content-Type"),
		ContentKey:  key,
		Envelope:    envelope,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		p.FileName = params["filename"]
	}
	return p, nil
}

func (c *APIClient) GrantShare(ctx context.Context, fileID, email string, perm models.Permission) (*models.Grant, error) {
	var g models.Grant
	req := map[string]string{"email": email, "permission": string(perm)}
	if err := c.doJSON(ctx, c.authed, http.MethodPost, "/storage/share/"+url.PathEscape(fileID), req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *APIClient) ListShares(ctx context.Context, fileID string) ([]models.Grant, error) {
	grants := []models.Grant{}
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/storage/share/"+url.PathEscape(fileID), nil, &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

func (c *APIClient) CreateShareLink(ctx context.Context, fileID string, hours int, perm models.Permission) (*models.ShareLink, error) {
	req := struct {
		ExpirationHours int    `json:"expirationHours"`
		Permission      string `json:"permission"`
	}{hours, string(perm)}

	var l models.ShareLink
	if err := c.doJSON(ctx, c.authed, http.MethodPost, "/storage/share/"+url.PathEscape(fileID)+"/share-link", req, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *APIClient) ResolveShareLink(ctx context.Context, token string) (*models.ResolvedLink, error) {
	var r models.ResolvedLink
	if err := c.doJSON(ctx, c.authed, http.MethodGet, "/storage/share/link/"+url.PathEscape(token), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *APIClient) RevokeShareLink(ctx context.Context, token string) error {
	return c.doJSON(ctx, c.authed, http.MethodDelete, "/storage/share/link/"+url.PathEscape(token), nil, nil)
}

func (c *APIClient) doJSON(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(hc, req, out)
}

func (c *APIClient) do(hc *http.Client, req *http.Request, out any) error {
	resp, err := c.send(hc, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// send performs req and turns non-2xx responses into errors. The caller
// closes the body of a successful response.
func (c *APIClient) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, common.ErrSessionExpired) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return nil, apierr.Decode(resp.StatusCode, body)
}
