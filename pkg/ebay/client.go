package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/haulpoints/haulpoints-backend/pkg/config"
	pkgerrors "github.com/haulpoints/haulpoints-backend/pkg/errors"
)

const (
	defaultAPIBaseURL  = "https://api.ebay.com"
	defaultAuthBaseURL = "https://api.ebay.com"
	oauthTokenPath     = "/identity/v1/oauth2/token"
	browseScope        = "https://api.ebay.com/oauth/api_scope"

	requestBodyReadLimit int64 = 1024
	imageReadLimit       int64 = 5 << 20
)

var (
	errClientIDRequired     = errors.New("ebay client id is required")
	errClientSecretRequired = errors.New("ebay client secret is required")
)

// Client wraps the eBay Browse API used to source catalog items.
type Client struct {
	httpClient  *http.Client
	apiBaseURL  string
	authBaseURL string
	clientID    string
	secret      string
	tokens      TokenSource
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource overrides the built-in cached client-credentials source.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		if source != nil {
			c.tokens = source
		}
	}
}

// NewClient builds the eBay client from configuration.
func NewClient(cfg config.EbayConfig, opts ...Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret := strings.TrimSpace(cfg.ClientSecret)
	if secret == "" {
		return nil, errClientSecretRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiBaseURL:  defaultAPIBaseURL,
		authBaseURL: defaultAuthBaseURL,
		clientID:    clientID,
		secret:      secret,
	}
	if trimmed := strings.TrimSpace(cfg.APIBaseURL); trimmed != "" {
		client.apiBaseURL = trimmed
	}
	if trimmed := strings.TrimSpace(cfg.AuthBaseURL); trimmed != "" {
		client.authBaseURL = trimmed
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.tokens == nil {
		client.tokens = newCachedTokenSource(client.fetchToken, cfg.TokenTTLSlack)
	}

	return client, nil
}

// Item mirrors the Browse API item summary payload fields the platform uses.
type Item struct {
	ItemID              string
	Title               string
	ShortDescription    string
	Condition           string
	PriceValue          string
	PriceCurrency       string
	ImageURL            string
	AdditionalImageURLs []string
	ItemWebURL          string
	Availability        string
}

// SearchRequest queries the marketplace item summary search.
type SearchRequest struct {
	Query string
	Limit int
}

// Search returns marketplace items matching the query.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Item, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ebay client not configured")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := c.buildURL("/buy/browse/v1/item_summary/search") + "?" + params.Encode()

	var apiResp struct {
		ItemSummaries []itemPayload `json:"itemSummaries"`
	}
	if err := c.doAuthorized(ctx, http.MethodGet, endpoint, &apiResp, "search items"); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(apiResp.ItemSummaries))
	for _, payload := range apiResp.ItemSummaries {
		items = append(items, payload.toItem())
	}
	return items, nil
}

// GetItem fetches the canonical marketplace record for one item.
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ebay client not configured")
	}
	trimmed := strings.TrimSpace(itemID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	endpoint := c.buildURL("/buy/browse/v1/item/" + url.PathEscape(trimmed))

	var payload itemPayload
	if err := c.doAuthorized(ctx, http.MethodGet, endpoint, &payload, "get item"); err != nil {
		return nil, err
	}
	item := payload.toItem()
	return &item, nil
}

// Image is a fetched marketplace image ready to stream to a client.
type Image struct {
	ContentType string
	Data        []byte
}

// FetchImage downloads an item image from the marketplace CDN. Only eBay
// image hosts are allowed; the proxy must not fetch arbitrary URLs.
func (c *Client) FetchImage(ctx context.Context, rawURL string) (*Image, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ebay client not configured")
	}
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme != "https" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url must be https")
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "ebayimg.com" && !strings.HasSuffix(host, ".ebayimg.com") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image url host not allowed")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build image request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute image request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("image request failed: status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, imageReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read image body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &Image{ContentType: contentType, Data: data}, nil
}

type itemPayload struct {
	ItemID           string `json:"itemId"`
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
	Condition        string `json:"condition"`
	Price            struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"price"`
	Image struct {
		ImageURL string `json:"imageUrl"`
	} `json:"image"`
	AdditionalImages []struct {
		ImageURL string `json:"imageUrl"`
	} `json:"additionalImages"`
	ItemWebURL                  string `json:"itemWebUrl"`
	EstimatedAvailabilityStatus string `json:"estimatedAvailabilityStatus,omitempty"`
	EstimatedAvailabilities     []struct {
		EstimatedAvailabilityStatus string `json:"estimatedAvailabilityStatus"`
	} `json:"estimatedAvailabilities"`
}

func (p itemPayload) toItem() Item {
	item := Item{
		ItemID:           p.ItemID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		Condition:        p.Condition,
		PriceValue:       p.Price.Value,
		PriceCurrency:    p.Price.Currency,
		ImageURL:         p.Image.ImageURL,
		ItemWebURL:       p.ItemWebURL,
		Availability:     p.EstimatedAvailabilityStatus,
	}
	for _, img := range p.AdditionalImages {
		if img.ImageURL != "" {
			item.AdditionalImageURLs = append(item.AdditionalImageURLs, img.ImageURL)
		}
	}
	if item.Availability == "" && len(p.EstimatedAvailabilities) > 0 {
		item.Availability = p.EstimatedAvailabilities[0].EstimatedAvailabilityStatus
	}
	return item
}

// tokenInvalidator is implemented by token sources that can drop a cached
// token early, such as when the marketplace revokes it before expiry.
type tokenInvalidator interface {
	Invalidate()
}

func (c *Client) doAuthorized(ctx context.Context, method, endpoint string, out any, action string) error {
	status, err := c.attemptAuthorized(ctx, method, endpoint, out, action)
	if status != http.StatusUnauthorized {
		return err
	}
	source, ok := c.tokens.(tokenInvalidator)
	if !ok {
		return err
	}

	// A 401 on a cached token means it was revoked early. Refresh once and
	// replay the request.
	source.Invalidate()
	_, err = c.attemptAuthorized(ctx, method, endpoint, out, action)
	return err
}

func (c *Client) attemptAuthorized(ctx context.Context, method, endpoint string, out any, action string) (int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtain ebay token")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+action+" request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+action+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, pkgerrors.New(pkgerrors.CodeNotFound, "marketplace item not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), action+" request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+action+" response")
	}
	return resp.StatusCode, nil
}

// fetchToken performs the client-credentials grant against the identity API.
func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", browseScope)

	endpoint := strings.TrimRight(c.authBaseURL, "/") + oauthTokenPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	httpReq.SetBasicAuth(c.clientID, c.secret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("execute token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", 0, fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}
	return tokenResp.AccessToken, time.Duration(tokenResp.ExpiresIn) * time.Second, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.apiBaseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
