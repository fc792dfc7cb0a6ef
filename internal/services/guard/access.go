// Package guard verifies that the configured API credentials are
// read-only before a run touches any venue. Keys that can place orders
// or withdraw are rejected outright.
package guard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const roTokenPrefix = "ro:"

// binance error codes that indicate the capability is blocked for this
// key, which is exactly what we want to see.
var binanceAuthDeniedCodes = map[int64]struct{}{
	-1002: {}, // unauthorized
	-2014: {}, // bad api key format
	-2015: {}, // invalid key, IP, or permissions
}

// AccessGuard probes venue credentials for dangerous capabilities.
type AccessGuard struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates an AccessGuard.
func New(logger *zap.Logger) *AccessGuard {
	return &AccessGuard{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// CheckLighterToken verifies the token is a read-only token and that it
// actually authenticates against the account endpoint.
func (g *AccessGuard) CheckLighterToken(ctx context.Context, baseURL, token string, accountIndex int64) error {
	if token == "" {
		return errors.New("lighter token is not set")
	}
	if !strings.HasPrefix(token, roTokenPrefix) {
		return errors.New("lighter token is not read-only, refuse to use it")
	}

	params := url.Values{}
	params.Set("auth", token)
	params.Set("by", "index")
	params.Set("value", strconv.FormatInt(accountIndex, 10))

	endpoint := fmt.Sprintf("%s/api/v1/account?%s", strings.TrimSuffix(baseURL, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build account probe request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "lighter token probe")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return errors.Errorf("lighter token rejected (HTTP %d): %s", resp.StatusCode, string(body))
	}

	g.logger.Info("lighter token verified read-only")
	return nil
}

// CheckBinance sends empty order and withdraw requests and expects the
// server to deny them for lack of permission. A parameter validation
// error instead means the key holds that capability.
func (g *AccessGuard) CheckBinance(ctx context.Context, client *binance.Client) error {
	probes := []struct {
		name string
		call func() error
	}{
		{"order", func() error {
			_, err := client.NewCreateOrderService().Do(ctx)
			return err
		}},
		{"withdraw", func() error {
			_, err := client.NewCreateWithdrawService().Do(ctx)
			return err
		}},
	}

	for _, p := range probes {
		err := p.call()
		if err == nil {
			return errors.Errorf("binance %s probe unexpectedly succeeded, key is not read-only", p.name)
		}

		apiErr, ok := err.(*common.APIError)
		if !ok {
			return errors.Wrapf(err, "binance %s probe failed", p.name)
		}
		if _, denied := binanceAuthDeniedCodes[apiErr.Code]; denied {
			continue
		}

		// the server got past the permission check, so the key can
		// reach this endpoint
		return errors.Errorf("binance key holds %s permission (code %d), use a read-only key", p.name, apiErr.Code)
	}

	g.logger.Info("binance key verified read-only")
	return nil
}
