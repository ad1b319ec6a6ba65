package upshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ShipQuery/internal/integrations/ups"
	"github.com/pkg/errors"
)

const tokenExpiryBuffer = 60 * time.Second

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpc        *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func New(baseURL, clientID, clientSecret string) *Client {
	if baseURL == "" {
		baseURL = "https://onlinetools.ups.com"
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	// UPS returns expires_in as a string.
	ExpiresIn string `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "new token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "do token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ups oauth http %d", resp.StatusCode)
	}

	var tr tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.Wrap(err, "decode token")
	}
	expires, err := strconv.Atoi(tr.ExpiresIn)
	if err != nil {
		return "", errors.Wrap(err, "parse expires_in")
	}

	c.token = tr.AccessToken
	c.tokenExpiry = now.Add(time.Duration(expires)*time.Second - tokenExpiryBuffer)
	return c.token, nil
}

type trackResp struct {
	TrackResponse struct {
		Shipment []struct {
			ScheduledDeliveryDate   string `json:"scheduledDeliveryDate"`
			RescheduledDeliveryDate string `json:"rescheduledDeliveryDate"`
			Package                 []struct {
				CurrentStatus struct {
					Type        string `json:"type"`
					Code        string `json:"code"`
					Description string `json:"description"`
				} `json:"currentStatus"`
				DeliveryDate []struct {
					Type string `json:"type"`
					Date string `json:"date"`
				} `json:"deliveryDate"`
				DeliveryTime struct {
					EndTime string `json:"endTime"`
				} `json:"deliveryTime"`
			} `json:"package"`
		} `json:"shipment"`
	} `json:"trackResponse"`
}

func (c *Client) Track(ctx context.Context, trackingNumber string) (ups.TrackResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return ups.TrackResult{}, err
	}

	u := c.baseURL + "/api/track/v1/details/" + url.PathEscape(trackingNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ups.TrackResult{}, errors.Wrap(err, "new track request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("transId", "track_"+trackingNumber)
	req.Header.Set("transactionSrc", "shipquery")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ups.TrackResult{}, errors.Wrap(err, "do track request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return ups.TrackResult{}, fmt.Errorf("ups track http %d", resp.StatusCode)
	}

	var tr trackResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return ups.TrackResult{}, errors.Wrap(err, "decode track response")
	}

	return resultFromResponse(tr), nil
}

// A shipment with no package data is not an error: the label exists but UPS
// has not scanned anything yet. The empty result maps to a label-created
// status downstream.
func resultFromResponse(tr trackResp) ups.TrackResult {
	var out ups.TrackResult

	if len(tr.TrackResponse.Shipment) == 0 {
		return out
	}
	sh := tr.TrackResponse.Shipment[0]

	if sh.RescheduledDeliveryDate != "" {
		out.EstimatedDeliveryDate = parseUPSDate(sh.RescheduledDeliveryDate)
	} else if sh.ScheduledDeliveryDate != "" {
		out.EstimatedDeliveryDate = parseUPSDate(sh.ScheduledDeliveryDate)
	}

	if len(sh.Package) == 0 {
		return out
	}
	pkg := sh.Package[0]

	out.StatusType = pkg.CurrentStatus.Type
	out.StatusCode = pkg.CurrentStatus.Code
	out.StatusDescription = pkg.CurrentStatus.Description

	if len(pkg.DeliveryDate) > 0 && pkg.DeliveryDate[0].Date != "" {
		out.ActualDeliveryDate = parseUPSDate(pkg.DeliveryDate[0].Date)
		if out.ActualDeliveryDate != nil {
			out.ActualDeliveryTime = formatUPSTime(pkg.DeliveryTime.EndTime)
		}
	}

	return out
}

func parseUPSDate(s string) *time.Time {
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &d
		}
	}
	return nil
}

// UPS delivery times arrive as HHMMSS.
func formatUPSTime(s string) string {
	t, err := time.Parse("150405", s)
	if err != nil {
		return s
	}
	return t.Format("15:04:05")
}
