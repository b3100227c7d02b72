package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the signed REST client used for the balance pass-through.
type Client struct {
	restURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

func NewClient(restURL, apiKey, apiSecret string) *Client {
	return &Client{
		restURL:   restURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: 6 * time.Second},
	}
}

type accountResp struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// Balances fetches the account's free balances, dropping zero entries.
func (c *Client) Balances(ctx context.Context) (map[string]float64, error) {
	params := url.Values{}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	params.Set("signature", c.sign(params.Encode()))

	endpoint := c.restURL + "/api/v3/account?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("account %d: %s", resp.StatusCode, string(b))
	}

	var acc accountResp
	if err := json.NewDecoder(resp.Body).Decode(&acc); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(acc.Balances))
	for _, b := range acc.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil || free == 0 {
			continue
		}
		out[b.Asset] = free
	}
	return out, nil
}

func (c *Client) sign(q string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(q))
	return hex.EncodeToString(mac.Sum(nil))
}
