package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mchmarny/cryptorec/pkg/net"
)

const (
	deviceScopes = "" // public repositories only
	grantType    = "urn:ietf:params:oauth:grant-type:device_code"
)

var (
	deviceCodeURL = "https://github.com/login/device/code"
	accessCodeURL = "https://github.com/login/oauth/access_token"

	// ErrAuthorizationPending is returned by GetToken when the user has not
	// entered the code yet.
	ErrAuthorizationPending = errors.New("authorization pending")
)

type DeviceCode struct {
	// The device verification code is 40 characters and used to verify the device.
	DeviceCode string `json:"device_code,omitempty"`
	// The user verification code is displayed on the device so the user
	// can enter the code in a browser.
	UserCode string `json:"user_code,omitempty"`
	// The verification URL where users need to enter the user_code
	VerificationURL string `json:"verification_uri,omitempty"`
	// The number of seconds before the device_code and user_code expire.
	ExpiresInSec int `json:"expires_in,omitempty"`
	// The minimum number of seconds between access token requests.
	Interval int `json:"interval,omitempty"`
}

type AccessTokenResponse struct {
	AccessToken      string `json:"access_token,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// GetDeviceCode starts the GitHub device flow for the OAuth app clientID.
func GetDeviceCode(ctx context.Context, clientID string) (*DeviceCode, error) {
	if clientID == "" {
		return nil, errors.New("clientID is required")
	}

	q := url.Values{}
	q.Add("client_id", clientID)
	q.Add("scope", deviceScopes)

	res, err := post(ctx, deviceCodeURL, q)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body := ""
		if b, err := io.ReadAll(res.Body); err == nil {
			body = string(b)
		}
		return nil, fmt.Errorf("failed to get device code: %s - %s", res.Status, body)
	}

	var dc DeviceCode
	if err := json.NewDecoder(res.Body).Decode(&dc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &dc, nil
}

// GetToken exchanges the device code for an access token once the user
// authorized it.
func GetToken(ctx context.Context, clientID string, code *DeviceCode) (*AccessTokenResponse, error) {
	if clientID == "" {
		return nil, errors.New("clientID is required")
	}
	if code == nil {
		return nil, errors.New("device code is nil")
	}

	expiresAt := time.Now().UTC().Add(time.Duration(code.ExpiresInSec) * time.Second)

	q := url.Values{}
	q.Add("client_id", clientID)
	q.Add("device_code", code.DeviceCode)
	q.Add("grant_type", grantType)

	res, err := post(ctx, accessCodeURL, q)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var t AccessTokenResponse
	if err := json.NewDecoder(res.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// https://docs.github.com/en/apps/oauth-apps/building-oauth-apps/authorizing-oauth-apps#error-codes-for-the-device-flow
	switch t.Error {
	case "":
	case "authorization_pending", "slow_down":
		return nil, ErrAuthorizationPending
	default:
		return nil, fmt.Errorf("device flow error: %s: %s", t.Error, t.ErrorDescription)
	}

	if time.Now().UTC().After(expiresAt) {
		return nil, errors.New("access token expired")
	}

	if t.AccessToken == "" {
		return nil, errors.New("access token is empty")
	}

	return &t, nil
}

func post(ctx context.Context, u string, q url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Add("content-type", "application/x-www-form-urlencoded")
	req.Header.Add("Accept", "application/json")

	client, err := net.GetHTTPClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get http client: %w", err)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return res, nil
}
