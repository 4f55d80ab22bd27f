// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

// Package msauth drives the Microsoft device-code login flow and the
// Xbox Live -> XSTS -> Minecraft token exchange it unlocks. It implements
// ports.AuthPort for accountservice, and separately exposes the
// device-code steps a CLI login command drives interactively.
package msauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Jeffail/gabs"

	"minesync/internal/apperr"
)

const (
	deviceCodeURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode"
	tokenURL      = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	xblAuthURL    = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthURL   = "https://xsts.auth.xboxlive.com/xsts/authorize"
	mcAuthURL     = "https://api.minecraftservices.com/authentication/loginWithXbox"
	mcProfileURL  = "https://api.minecraftservices.com/minecraft/profile"

	xboxScope = "XboxLive.signin offline_access"

	// fallbackClientID is used when no Azure AD application has been
	// registered for this build; device-code login will fail against
	// Microsoft's endpoint until a real client ID is supplied.
	fallbackClientID = "00000000-0000-0000-0000-000000000000"
)

// Client drives Microsoft's OAuth device-code flow and the Xbox Live/XSTS
// chain it unlocks, using clientID as the registered Azure AD application.
type Client struct {
	http     *http.Client
	clientID string
}

func New(httpClient *http.Client, clientID string) *Client {
	if clientID == "" {
		clientID = fallbackClientID
	}
	return &Client{http: httpClient, clientID: clientID}
}

// DeviceCodeInfo is the user-facing half of a started device-code flow: the
// code to enter and where to enter it.
type DeviceCodeInfo struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int
	Interval        int
	Message         string
}

// StartDeviceCode requests a fresh device code from Microsoft; the caller
// shows Message/VerificationURI/UserCode to the user and then polls with
// PollForToken using the returned DeviceCode.
func (c *Client) StartDeviceCode(ctx context.Context) (DeviceCodeInfo, error) {
	body, err := c.postForm(ctx, deviceCodeURL, url.Values{
		"client_id": {c.clientID},
		"scope":     {xboxScope},
	})
	if err != nil {
		return DeviceCodeInfo{}, err
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return DeviceCodeInfo{}, apperr.Wrap(apperr.KindParse, err, "parse device code response")
	}

	return DeviceCodeInfo{
		DeviceCode:      stringField(container, "device_code"),
		UserCode:        stringField(container, "user_code"),
		VerificationURI: stringField(container, "verification_uri"),
		ExpiresIn:       intField(container, "expires_in"),
		Interval:        intField(container, "interval"),
		Message:         stringField(container, "message"),
	}, nil
}

// PollStatus is the outcome of one PollForToken attempt.
type PollStatus string

const (
	PollPending PollStatus = "pending"
	PollSuccess PollStatus = "success"
	PollExpired PollStatus = "expired"
)

// PollResult is returned on every poll; Account is populated only when
// Status is PollSuccess.
type PollResult struct {
	Status  PollStatus
	Account LoginResult
}

// LoginResult is the full outcome of a successful login or refresh: the
// Minecraft access token ready to use, the Microsoft refresh token to
// persist, and the Minecraft profile identity.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Username     string
	UUID         string
}

// PollForToken makes a single poll of Microsoft's device-code token
// endpoint; callers loop this at the interval StartDeviceCode returned
// until it stops reporting PollPending.
func (c *Client) PollForToken(ctx context.Context, deviceCode string) (PollResult, error) {
	body, status, err := c.postFormStatus(ctx, tokenURL, url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
	})
	if err != nil {
		return PollResult{}, err
	}

	if status != http.StatusOK {
		container, parseErr := gabs.ParseJSON(body)
		errName := "unknown"
		if parseErr == nil {
			errName = stringField(container, "error")
		}
		switch errName {
		case "authorization_pending", "slow_down":
			return PollResult{Status: PollPending}, nil
		case "expired_token":
			return PollResult{Status: PollExpired}, nil
		default:
			return PollResult{}, apperr.New(apperr.KindNetwork, "device code poll failed: %s", errName)
		}
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return PollResult{}, apperr.Wrap(apperr.KindParse, err, "parse token response")
	}

	result, err := c.completeAuthChain(ctx, stringField(container, "access_token"))
	if err != nil {
		return PollResult{}, err
	}
	result.RefreshToken = stringField(container, "refresh_token")

	return PollResult{Status: PollSuccess, Account: result}, nil
}

// Refresh implements ports.AuthPort: it trades a stored Microsoft refresh
// token for a fresh Minecraft access token, re-running the Xbox Live/XSTS
// chain (Microsoft's refresh tokens authorize that chain, not Minecraft
// directly).
func (c *Client) Refresh(ctx context.Context, refreshToken string) (accessToken, newRefreshToken, username, externalUUID string, err error) {
	body, err := c.postForm(ctx, tokenURL, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"refresh_token": {refreshToken},
		"scope":         {xboxScope},
	})
	if err != nil {
		return "", "", "", "", err
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return "", "", "", "", apperr.Wrap(apperr.KindParse, err, "parse refresh response")
	}

	result, err := c.completeAuthChain(ctx, stringField(container, "access_token"))
	if err != nil {
		return "", "", "", "", err
	}

	return result.AccessToken, stringField(container, "refresh_token"), result.Username, result.UUID, nil
}

// completeAuthChain runs Xbox Live -> XSTS -> Minecraft auth -> profile
// against a valid Microsoft access token, producing a ready-to-use
// Minecraft identity.
func (c *Client) completeAuthChain(ctx context.Context, msAccessToken string) (LoginResult, error) {
	xblToken, uhs, err := c.authenticateXboxLive(ctx, msAccessToken)
	if err != nil {
		return LoginResult{}, err
	}

	xstsToken, err := c.authenticateXSTS(ctx, xblToken)
	if err != nil {
		return LoginResult{}, err
	}

	mcAccessToken, err := c.authenticateMinecraft(ctx, uhs, xstsToken)
	if err != nil {
		return LoginResult{}, err
	}

	username, uuid, err := c.fetchProfile(ctx, mcAccessToken)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{AccessToken: mcAccessToken, Username: username, UUID: uuid}, nil
}

func (c *Client) authenticateXboxLive(ctx context.Context, msAccessToken string) (token, uhs string, err error) {
	payload := map[string]any{
		"Properties": map[string]any{
			"AuthMethod": "RPS",
			"SiteName":   "user.auth.xboxlive.com",
			"RpsTicket":  "d=" + msAccessToken,
		},
		"RelyingParty": "http://auth.xboxlive.com",
		"TokenType":    "JWT",
	}
	body, err := c.postJSON(ctx, xblAuthURL, payload)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindNetwork, err, "xbox live authentication")
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindParse, err, "parse xbox live response")
	}

	token = stringField(container, "Token")
	xui, _ := container.Path("DisplayClaims.xui").Children()
	if len(xui) == 0 {
		return "", "", apperr.New(apperr.KindParse, "xbox live response has no user hash")
	}
	uhs = stringField(xui[0], "uhs")
	return token, uhs, nil
}

func (c *Client) authenticateXSTS(ctx context.Context, xblToken string) (string, error) {
	payload := map[string]any{
		"Properties": map[string]any{
			"SandboxId":  "RETAIL",
			"UserTokens": []string{xblToken},
		},
		"RelyingParty": "rp://api.minecraftservices.com/",
		"TokenType":    "JWT",
	}
	body, err := c.postJSON(ctx, xstsAuthURL, payload)
	if err != nil {
		container, parseErr := gabs.ParseJSON(body)
		if parseErr == nil {
			if xerr := intField(container, "XErr"); xerr != 0 {
				return "", apperr.New(apperr.KindConflict, "%s", xstsErrorMessage(xerr))
			}
		}
		return "", apperr.Wrap(apperr.KindNetwork, err, "xsts authorization")
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindParse, err, "parse xsts response")
	}
	return stringField(container, "Token"), nil
}

func xstsErrorMessage(xerr int) string {
	switch xerr {
	case 2148916233:
		return "this Microsoft account has no Xbox account; create one first"
	case 2148916235:
		return "Xbox Live is not available in your region"
	case 2148916238:
		return "this is a child account; a parent must add it to a Microsoft family"
	default:
		return fmt.Sprintf("xsts authorization failed (error code: %d)", xerr)
	}
}

func (c *Client) authenticateMinecraft(ctx context.Context, uhs, xstsToken string) (string, error) {
	payload := map[string]any{
		"identityToken": fmt.Sprintf("XBL3.0 x=%s;%s", uhs, xstsToken),
	}
	body, err := c.postJSON(ctx, mcAuthURL, payload)
	if err != nil {
		return "", apperr.Wrap(apperr.KindNetwork, err, "minecraft authentication")
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindParse, err, "parse minecraft auth response")
	}
	return stringField(container, "access_token"), nil
}

func (c *Client) fetchProfile(ctx context.Context, mcAccessToken string) (username, uuid string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mcProfileURL, nil)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindNetwork, err, "build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+mcAccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindNetwork, err, "fetch minecraft profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", "", apperr.New(apperr.KindNotFound, "this Microsoft account does not own Minecraft Java Edition")
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", apperr.New(apperr.KindNetwork, "fetch minecraft profile: HTTP %d", resp.StatusCode)
	}

	container, err := gabs.ParseJSONBuffer(resp.Body)
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindParse, err, "parse profile response")
	}

	return stringField(container, "name"), formatMinecraftUUID(stringField(container, "id")), nil
}

// formatMinecraftUUID inserts the dashes Mojang's profile endpoint omits.
func formatMinecraftUUID(id string) string {
	if len(id) == 32 && !strings.Contains(id, "-") {
		return fmt.Sprintf("%s-%s-%s-%s-%s", id[:8], id[8:12], id[12:16], id[16:20], id[20:])
	}
	return id
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	body, status, err := c.postFormStatus(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apperr.New(apperr.KindNetwork, "%s: HTTP %d: %s", endpoint, status, string(body))
	}
	return body, nil
}

func (c *Client) postFormStatus(ctx context.Context, endpoint string, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindNetwork, err, "build request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindNetwork, err, "request failed: %s", endpoint)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParse, err, "encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "build request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-xbl-contract-version", "1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "request failed: %s", endpoint)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return body, apperr.New(apperr.KindNetwork, "%s: HTTP %d: %s", endpoint, resp.StatusCode, string(body))
	}
	return body, nil
}

func readResponse(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "read response body")
	}
	return buf.Bytes(), nil
}

func stringField(c *gabs.Container, path string) string {
	v, _ := c.Path(path).Data().(string)
	return v
}

func intField(c *gabs.Container, path string) int {
	switch v := c.Path(path).Data().(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
