package sensit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tanksense/tanksense/pkg/log"
	"github.com/tanksense/tanksense/pkg/types"
)

const (
	authenticatePath   = "/v3/V3_SoapMobileApp/Authenticate_v3_Async"
	getLatestLevelPath = "/v1/V1_SoapMobileApp/GetLatestLevel_v1_Async?culture=EN"
	getCallHistoryPath = "/v1/V1_SoapMobileApp/GetCallHistory_v1_Async"
	requestDateLayout  = "2006-01-02T15:04:05"
)

// Client talks to the SENSiT Connect API on behalf of one account. A Client
// starts unauthenticated; Login must succeed before any other call. A second
// Login re-runs the same transition and replaces the tank list.
type Client struct {
	transport *Transport
	password  string
	userID    json.Number
	tanks     []*Tank
	loggedIn  bool
}

// NewClient returns a Client against the vendor's published endpoint.
func NewClient() *Client {
	return NewClientWithTransport(NewTransport("", "", nil))
}

// NewClientWithTransport returns a Client using the given Transport.
func NewClientWithTransport(t *Transport) *Client {
	return &Client{transport: t}
}

type authResult struct {
	APIUserID json.Number `json:"apiUserID"`
	Tanks     []tankEntry `json:"tanks"`
}

type tankEntry struct {
	SignalmanNo json.Number `json:"signalmanNo"`
}

// Login authenticates with the remote service. On success it stores the
// issued user id and builds one Tank per device entry, replacing any prior
// list. Classified transport/API errors propagate untouched.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var res authResult
	err := c.transport.send(ctx, authenticatePath, map[string]string{
		"emailAddress": username,
		"password":     password,
	}, &res)
	if err != nil {
		return err
	}

	c.password = password
	c.userID = res.APIUserID
	c.loggedIn = true
	c.tanks = make([]*Tank, 0, len(res.Tanks))
	for _, entry := range res.Tanks {
		c.tanks = append(c.tanks, &Tank{client: c, signalmanNo: entry.SignalmanNo})
	}
	log.Ctx(ctx).DebugContext(ctx, "login succeeded", slog.Int("tanks", len(c.tanks)))
	return nil
}

// Tanks returns the tank list built at login, stable across calls within a
// session. Calling it before a successful Login is a precondition violation
// and returns ErrNotLoggedIn.
func (c *Client) Tanks() ([]*Tank, error) {
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	return c.tanks, nil
}

type levelResult struct {
	Level    levelData   `json:"level"`
	TankInfo []nameValue `json:"tankInfo"`
}

type levelData struct {
	LevelPercentage float64 `json:"levelPercentage"`
	LevelLitres     int     `json:"levelLitres"`
	ReadingDate     string  `json:"readingDate"`
}

type nameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (c *Client) getLatestLevel(ctx context.Context, signalmanNo json.Number) (levelResult, error) {
	if !c.loggedIn {
		return levelResult{}, ErrNotLoggedIn
	}
	var res levelResult
	err := c.transport.send(ctx, getLatestLevelPath, map[string]interface{}{
		"userId":      c.userID,
		"signalmanNo": signalmanNo,
		"password":    c.password,
	}, &res)
	if err != nil {
		return levelResult{}, err
	}
	return res, nil
}

type historyResult struct {
	Levels []historyLevel `json:"levels"`
}

type historyLevel struct {
	ReadingDate     string  `json:"readingDate"`
	LevelPercentage float64 `json:"levelPercentage"`
	LevelLitres     int     `json:"levelLitres"`
}

// getHistory fetches readings for the given device. Zero start/end default
// to the epoch and now, i.e. the entire available history.
func (c *Client) getHistory(ctx context.Context, signalmanNo json.Number, start, end time.Time) ([]types.Reading, error) {
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	if end.IsZero() {
		end = time.Now()
	}

	var res historyResult
	err := c.transport.send(ctx, getCallHistoryPath, map[string]interface{}{
		"userIdPairWithSN": map[string]interface{}{
			"userId":      c.userID,
			"signalmanNo": signalmanNo,
			"password":    c.password,
		},
		"startDate": start.Format(requestDateLayout),
		"endDate":   end.Format(requestDateLayout),
	}, &res)
	if err != nil {
		return nil, err
	}

	readings := make([]types.Reading, 0, len(res.Levels))
	for _, lvl := range res.Levels {
		ts, err := parseReadingDate(lvl.ReadingDate)
		if err != nil {
			return nil, err
		}
		readings = append(readings, types.Reading{
			ReadingDate:  ts,
			LevelPercent: lvl.LevelPercentage,
			LevelLitres:  lvl.LevelLitres,
		})
	}
	return readings, nil
}

// readingDateLayouts covers the vendor's ISO-8601 variants, with and
// without a zone offset.
var readingDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseReadingDate(s string) (time.Time, error) {
	for _, layout := range readingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &APIError{Description: fmt.Sprintf("malformed response from API: cannot parse reading date %q", s)}
}
