package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	config "github.com/maheshrc27/pageflow/configs"
	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/repository"
	"github.com/maheshrc27/pageflow/internal/transfer"
	"github.com/maheshrc27/pageflow/pkg/utils"
)

// FacebookService manages app credentials and long-lived user tokens, and
// resolves the pages a token can post to. Tokens are encrypted at rest.
type FacebookService interface {
	LoginURL(appName, state string) (string, error)
	HandleCallback(ctx context.Context, appName, code string) error
	SaveToken(ctx context.Context, req *transfer.SaveTokenRequest) error
	RefreshToken(ctx context.Context, appName string) error
	ListTokens(ctx context.Context) ([]*models.AppToken, error)
	DeleteToken(ctx context.Context, appName string) error
	ListPages(ctx context.Context, appName string) ([]models.Page, error)
	PageToken(ctx context.Context, appName, pageID string) (string, error)
}

type facebookService struct {
	cfg     config.Config
	tokens  repository.AppTokenRepository
	client  *http.Client
	baseURL string
}

func NewFacebookService(cfg config.Config, tokens repository.AppTokenRepository) FacebookService {
	return &facebookService{
		cfg:     cfg,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://graph.facebook.com",
	}
}

func (s *facebookService) oauthConfig(appID, appSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     appID,
		ClientSecret: appSecret,
		RedirectURL:  s.cfg.FacebookRedirectURI,
		Scopes: []string{
			"pages_show_list",
			"pages_manage_posts",
			"pages_read_engagement",
		},
		Endpoint: facebook.Endpoint,
	}
}

func (s *facebookService) LoginURL(appName, state string) (string, error) {
	t, err := s.tokens.GetByAppName(context.Background(), appName)
	if err != nil {
		return "", err
	}
	appID, appSecret := s.cfg.FacebookAppID, s.cfg.FacebookAppSecret
	if t != nil {
		if appID, appSecret, err = s.decryptApp(t); err != nil {
			return "", err
		}
	}
	if appID == "" {
		return "", errors.New("no facebook app configured")
	}
	return s.oauthConfig(appID, appSecret).AuthCodeURL(state), nil
}

// HandleCallback exchanges the login code for a short-lived token, upgrades
// it to a long-lived one and stores it under the app name.
func (s *facebookService) HandleCallback(ctx context.Context, appName, code string) error {
	t, err := s.tokens.GetByAppName(ctx, appName)
	if err != nil {
		return err
	}
	appID, appSecret := s.cfg.FacebookAppID, s.cfg.FacebookAppSecret
	if t != nil {
		if appID, appSecret, err = s.decryptApp(t); err != nil {
			return err
		}
	}

	token, err := s.oauthConfig(appID, appSecret).Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("code exchange failed: %w", err)
	}

	return s.SaveToken(ctx, &transfer.SaveTokenRequest{
		AppName:     appName,
		AppID:       appID,
		AppSecret:   appSecret,
		AccessToken: token.AccessToken,
	})
}

// SaveToken upgrades the supplied token to a long-lived one and persists it
// encrypted. A failed exchange keeps the original token with the default
// sixty-day expiry; the Graph API sometimes hands out tokens that are
// already long-lived and refuse re-exchange.
func (s *facebookService) SaveToken(ctx context.Context, req *transfer.SaveTokenRequest) error {
	if req.AppName == "" || req.AccessToken == "" {
		return errors.New("app_name and access_token are required")
	}

	accessToken := req.AccessToken
	expiresIn := int64(models.DefaultTokenExpirySeconds)
	if req.AppID != "" && req.AppSecret != "" {
		if exchanged, err := s.exchangeLongLived(ctx, req.AppID, req.AppSecret, req.AccessToken); err == nil {
			accessToken = exchanged.AccessToken
			if exchanged.ExpiresIn > 0 {
				expiresIn = exchanged.ExpiresIn
			}
		} else {
			slog.Warn("long-lived token exchange failed, keeping supplied token", "app", req.AppName, "error", err.Error())
		}
	}

	encToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encSecret, err := utils.Encrypt([]byte(req.AppSecret), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	return s.tokens.Upsert(ctx, &models.AppToken{
		AppName:        req.AppName,
		AppID:          req.AppID,
		AppSecret:      encSecret,
		AccessToken:    encToken,
		TokenExpiresAt: &expiresAt,
	})
}

func (s *facebookService) RefreshToken(ctx context.Context, appName string) error {
	t, err := s.tokens.GetByAppName(ctx, appName)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("no token stored for app %s", appName)
	}

	appID, appSecret, err := s.decryptApp(t)
	if err != nil {
		return err
	}
	accessToken, err := utils.Decrypt(t.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.SaveToken(ctx, &transfer.SaveTokenRequest{
		AppName:     appName,
		AppID:       appID,
		AppSecret:   appSecret,
		AccessToken: accessToken,
	})
}

func (s *facebookService) exchangeLongLived(ctx context.Context, appID, appSecret, token string) (*transfer.TokenExchangeResponse, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", appID)
	q.Set("client_secret", appSecret)
	q.Set("fb_exchange_token", token)

	reqURL := fmt.Sprintf("%s/%s/oauth/access_token?%s", s.baseURL, s.cfg.GraphAPIVersion, q.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange status %d: %s", resp.StatusCode, body)
	}

	var exchanged transfer.TokenExchangeResponse
	if err := json.Unmarshal(body, &exchanged); err != nil {
		return nil, fmt.Errorf("decode exchange response: %w", err)
	}
	if exchanged.AccessToken == "" {
		return nil, errors.New("exchange returned no access_token")
	}
	return &exchanged, nil
}

func (s *facebookService) ListTokens(ctx context.Context) ([]*models.AppToken, error) {
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, err
	}
	// Never hand ciphertext or secrets to callers.
	for _, t := range tokens {
		t.AccessToken = ""
		t.AppSecret = ""
	}
	return tokens, nil
}

func (s *facebookService) DeleteToken(ctx context.Context, appName string) error {
	return s.tokens.Delete(ctx, appName)
}

// ListPages walks the /me/accounts edge with cursor paging. The iteration
// cap guards against a paging loop on a misbehaving response.
func (s *facebookService) ListPages(ctx context.Context, appName string) ([]models.Page, error) {
	t, err := s.tokens.GetByAppName(ctx, appName)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("no token stored for app %s", appName)
	}
	accessToken, err := utils.Decrypt(t.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	after := ""
	for i := 0; i < models.PagesFetchMaxIterations; i++ {
		q := url.Values{}
		q.Set("access_token", accessToken)
		q.Set("limit", fmt.Sprintf("%d", models.PagesFetchLimit))
		q.Set("fields", "id,name,access_token,category")
		if after != "" {
			q.Set("after", after)
		}

		reqURL := fmt.Sprintf("%s/%s/me/accounts?%s", s.baseURL, s.cfg.GraphAPIVersion, q.Encode())
		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("list pages status %d: %s", resp.StatusCode, body)
		}

		var list transfer.PageListResponse
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode pages response: %w", err)
		}
		for _, p := range list.Data {
			pages = append(pages, models.Page{
				ID:          p.ID,
				Name:        p.Name,
				AccessToken: p.AccessToken,
				Category:    p.Category,
				AppName:     appName,
			})
		}
		if list.Paging.Next == "" || list.Paging.Cursors.After == "" {
			break
		}
		after = list.Paging.Cursors.After
	}
	return pages, nil
}

// PageToken resolves the page access token for pageID under appName's user
// token. Used as a fallback when a job carries no token of its own.
func (s *facebookService) PageToken(ctx context.Context, appName, pageID string) (string, error) {
	pages, err := s.ListPages(ctx, appName)
	if err != nil {
		return "", err
	}
	for _, p := range pages {
		if p.ID == pageID {
			return p.AccessToken, nil
		}
	}
	return "", fmt.Errorf("page %s not accessible with app %s", pageID, appName)
}

func (s *facebookService) decryptApp(t *models.AppToken) (string, string, error) {
	secret, err := utils.Decrypt(t.AppSecret, []byte(s.cfg.SecretKey))
	if err != nil {
		return "", "", err
	}
	return t.AppID, secret, nil
}
