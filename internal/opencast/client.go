package opencast

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/icholy/digest"

	"castsync/internal/logging"
	"castsync/internal/mediapkg"
)

const (
	defaultConnectTimeout = 1 * time.Second
	defaultRequestTimeout = 10 * time.Second

	defaultPlayerPath    = "/engage/ui/watch.html"
	defaultSchedulerPath = "/admin/index.html#/recordings"
	defaultDashboardPath = "/dashboard/index.html"
)

// RoleResolver expands a role list into the full set of reachable roles
// before accounts are provisioned remotely.
type RoleResolver interface {
	ReachableRoles(roles []string) []string
}

// Client talks to an Opencast-compatible media platform. Requests are
// authenticated with HTTP digest when credentials are configured. The admin
// node URL and the server version are resolved once and cached.
type Client struct {
	host     string
	username string
	password string

	playerPath    string
	schedulerPath string
	dashboardPath string

	deleteArchive    bool
	deletionWorkflow string
	manageUsers      bool
	userPassword     string
	insecure         bool

	connectTimeout time.Duration
	requestTimeout time.Duration

	logger       *slog.Logger
	roleResolver RoleResolver
	httpClient   *http.Client

	mu       sync.Mutex
	adminURL string
	version  string
}

// Option configures the Client.
type Option func(*Client)

// WithCredentials sets the digest authentication credentials.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInsecure disables TLS certificate verification.
func WithInsecure(insecure bool) Option {
	return func(c *Client) { c.insecure = insecure }
}

// WithTimeouts overrides the connect and overall request timeouts.
func WithTimeouts(connect, request time.Duration) Option {
	return func(c *Client) {
		if connect > 0 {
			c.connectTimeout = connect
		}
		if request > 0 {
			c.requestTimeout = request
		}
	}
}

// WithAdminURL pins the admin node base URL, skipping discovery.
func WithAdminURL(adminURL string) Option {
	return func(c *Client) { c.adminURL = strings.TrimRight(adminURL, "/") }
}

// WithPaths overrides the player, scheduler, and dashboard UI paths.
func WithPaths(player, scheduler, dashboard string) Option {
	return func(c *Client) {
		if player != "" {
			c.playerPath = player
		}
		if scheduler != "" {
			c.schedulerPath = scheduler
		}
		if dashboard != "" {
			c.dashboardPath = dashboard
		}
	}
}

// WithDeletionPolicy sets the archive deletion workflow name and whether
// archive deletion is permitted at all.
func WithDeletionPolicy(workflowName string, allowed bool) Option {
	return func(c *Client) {
		if workflowName != "" {
			c.deletionWorkflow = workflowName
		}
		c.deleteArchive = allowed
	}
}

// WithUserManagement enables remote account provisioning. The password is
// assigned to newly created accounts.
func WithUserManagement(enabled bool, password string) Option {
	return func(c *Client) {
		c.manageUsers = enabled
		if password != "" {
			c.userPassword = password
		}
	}
}

// WithRoleResolver sets the role hierarchy resolver used when provisioning
// accounts.
func WithRoleResolver(resolver RoleResolver) Option {
	return func(c *Client) { c.roleResolver = resolver }
}

// WithHTTPClient replaces the underlying HTTP client. Intended for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a Client for the platform at host.
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:             strings.TrimRight(host, "/"),
		playerPath:       defaultPlayerPath,
		schedulerPath:    defaultSchedulerPath,
		dashboardPath:    defaultDashboardPath,
		deletionWorkflow: "delete-archive",
		userPassword:     "changeme",
		connectTimeout:   defaultConnectTimeout,
		requestTimeout:   defaultRequestTimeout,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = c.buildHTTPClient()
	}
	return c
}

func (c *Client) buildHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: c.connectTimeout}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
		Proxy:       http.ProxyFromEnvironment,
	}
	if c.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var rt http.RoundTripper = transport
	if c.username != "" {
		rt = &digest.Transport{
			Username:  c.username,
			Password:  c.password,
			Transport: transport,
		}
	}
	return &http.Client{
		Timeout:   c.requestTimeout,
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Host returns the configured base URL of the platform.
func (c *Client) Host() string { return c.host }

// PlayerURL returns the absolute URL of the engage player UI.
func (c *Client) PlayerURL() string {
	if strings.HasPrefix(c.playerPath, "/") {
		return c.host + c.playerPath
	}
	return c.playerPath
}

// AdminURL returns the admin node base URL, resolving it from
// /info/components.json on first use.
func (c *Client) AdminURL(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.adminURL != "" {
		cached := c.adminURL
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	resp, err := c.request(ctx, "GET", "/info/components.json", nil, false)
	if err != nil {
		return "", err
	}
	decoded, err := decodeJSON(resp)
	if err != nil {
		return "", err
	}

	admin, _ := decoded["admin"].(string)
	if admin == "" {
		return "", &APIError{Op: "admin url", URL: resp.url, Body: "no admin component advertised", Err: ErrCommunication}
	}
	if _, err := url.ParseRequestURI(admin); err != nil {
		return "", &APIError{Op: "admin url", URL: resp.url, Body: "invalid admin URL " + admin, Err: ErrCommunication}
	}
	admin = strings.TrimRight(admin, "/")

	c.mu.Lock()
	c.adminURL = admin
	c.mu.Unlock()
	return admin, nil
}

// SchedulerURL returns the absolute URL of the recording scheduler UI on the
// admin node.
func (c *Client) SchedulerURL(ctx context.Context) (string, error) {
	if !strings.HasPrefix(c.schedulerPath, "/") {
		return c.schedulerPath, nil
	}
	admin, err := c.AdminURL(ctx)
	if err != nil {
		return "", err
	}
	return admin + c.schedulerPath, nil
}

// DashboardURL returns the absolute URL of the dashboard UI on the admin node.
func (c *Client) DashboardURL(ctx context.Context) (string, error) {
	if !strings.HasPrefix(c.dashboardPath, "/") {
		return c.dashboardPath, nil
	}
	admin, err := c.AdminURL(ctx)
	if err != nil {
		return "", err
	}
	return admin + c.dashboardPath, nil
}

// SpatialField fetches the dublin core catalog at rawURL and extracts the
// spatial (capture agent) element, if present.
func (c *Client) SpatialField(ctx context.Context, rawURL string) (string, bool, error) {
	var body []byte
	if strings.HasPrefix(rawURL, c.host) {
		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Path == "" {
			return "", false, nil
		}
		resp, err := c.request(ctx, "GET", parsed.Path, nil, false)
		if err != nil {
			return "", false, err
		}
		body = resp.body
	} else {
		req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
		if err != nil {
			return "", false, transportError("spatial field", rawURL, err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", false, transportError("spatial field", rawURL, err)
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", false, transportError("spatial field", rawURL, err)
		}
	}

	const openTag, closeTag = "<dcterms:spatial>", "</dcterms:spatial>"
	text := string(body)
	start := strings.LastIndex(text, openTag)
	end := strings.LastIndex(text, closeTag)
	if start < 0 || end < 0 || start+len(openTag) > end {
		return "", false, nil
	}
	return text[start+len(openTag) : end], true, nil
}

type response struct {
	status int
	body   []byte
	url    string
}

// request performs one HTTP exchange against the platform. GET requests must
// return 200; any other status is an error. Mutating requests hand the raw
// status back to the caller for endpoint-specific interpretation.
func (c *Client) request(ctx context.Context, method, path string, form url.Values, useAdminURL bool) (*response, error) {
	base := c.host
	if useAdminURL {
		var err error
		base, err = c.AdminURL(ctx)
		if err != nil {
			return nil, err
		}
	}
	requestURL := base + path

	var body io.Reader
	if len(form) > 0 && (method == "POST" || method == "PUT") {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, transportError(method+" "+path, requestURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.username != "" {
		req.Header.Set("X-Requested-Auth", "Digest")
		req.Header.Set("X-Opencast-Matterhorn-Authorization", "true")
	}

	c.logger.DebugContext(ctx, "opencast request",
		slog.String(logging.FieldComponent, "opencast"),
		slog.String("method", method),
		slog.String("url", requestURL))

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(method+" "+path, requestURL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(method+" "+path, requestURL, err)
	}

	resp := &response{status: httpResp.StatusCode, body: respBody, url: requestURL}
	if method == "GET" && resp.status != http.StatusOK {
		c.logger.ErrorContext(ctx, "opencast request failed",
			slog.String(logging.FieldComponent, "opencast"),
			slog.String("url", requestURL),
			slog.Int("status", resp.status))
		return nil, statusError(method+" "+path, requestURL, resp.status, respBody)
	}
	return resp, nil
}

func decodeJSON(resp *response) (map[string]any, error) {
	var decoded map[string]any
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return nil, &APIError{Op: "decode json", URL: resp.url, Body: err.Error(), Err: ErrCommunication}
	}
	return decoded, nil
}

// decodeXML decodes an XML body into the same map shape JSON endpoints
// produce: attributes become plain keys and element text becomes "$".
func decodeXML(resp *response) (map[string]any, error) {
	mv, err := mxj.NewMapXml(resp.body)
	if err != nil {
		return nil, &APIError{Op: "decode xml", URL: resp.url, Body: err.Error(), Err: ErrCommunication}
	}
	normalized, ok := normalizeXMLValue(map[string]any(mv)).(map[string]any)
	if !ok {
		return nil, &APIError{Op: "decode xml", URL: resp.url, Body: "unexpected document shape", Err: ErrCommunication}
	}
	return normalized, nil
}

func normalizeXMLValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			switch {
			case key == "#text":
				key = "$"
			case strings.HasPrefix(key, "-"):
				key = key[1:]
			}
			out[key] = normalizeXMLValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeXMLValue(item)
		}
		return out
	default:
		return v
	}
}

func mediaPackageFromResult(result any) (mediapkg.MediaPackage, bool) {
	item, ok := result.(map[string]any)
	if !ok {
		return nil, false
	}
	mp, ok := item["mediapackage"].(map[string]any)
	if !ok {
		return nil, false
	}
	return mediapkg.MediaPackage(mp), true
}

func formatCount(n int) string { return fmt.Sprintf("%d", n) }
