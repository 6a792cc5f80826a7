package sensit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tanksense/tanksense/pkg/types"
)

// Vendor field names in the GetLatestLevel tankInfo list.
const (
	infoTankName    = "Tank Name"
	infoCapacity    = "Tank Capacity(L)"
	infoSignalmanNo = "Signalman No"
	infoModel       = "Model"
)

// Tank is one SENSiT tank sensor, identified by its signalman number.
// Metadata and the latest level are fetched together in one call and cached
// together; the first accessor to need them triggers the fetch and every
// later accessor reuses the cached snapshot. There is no re-fetch policy:
// create a new Tank (via a fresh Login) to refresh.
type Tank struct {
	client      *Client
	signalmanNo json.Number

	// snapshot is nil until the first successful fetch. It is not set on
	// failure so a later call retries.
	snapshot *types.Snapshot
}

// SignalmanNo returns the vendor device identifier for this tank.
func (t *Tank) SignalmanNo() string {
	return t.signalmanNo.String()
}

// Snapshot returns the combined metadata and latest level bundle.
func (t *Tank) Snapshot(ctx context.Context) (types.Snapshot, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return types.Snapshot{}, err
	}
	return *t.snapshot, nil
}

// Level returns the current oil level in litres.
func (t *Tank) Level(ctx context.Context) (int, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return 0, err
	}
	return t.snapshot.LevelLitres, nil
}

// Capacity returns the rated capacity of the tank in litres.
func (t *Tank) Capacity(ctx context.Context) (int, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return 0, err
	}
	return t.snapshot.Capacity, nil
}

// Name returns the human-readable tank name.
func (t *Tank) Name(ctx context.Context) (string, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return "", err
	}
	return t.snapshot.Name, nil
}

// Model returns the sensor model string.
func (t *Tank) Model(ctx context.Context) (string, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return "", err
	}
	return t.snapshot.Model, nil
}

// SerialNumber returns the sensor serial number.
func (t *Tank) SerialNumber(ctx context.Context) (string, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return "", err
	}
	return t.snapshot.SerialNumber, nil
}

// LastRead returns the timestamp of the latest level reading.
func (t *Tank) LastRead(ctx context.Context) (time.Time, error) {
	if err := t.ensureSnapshot(ctx); err != nil {
		return time.Time{}, err
	}
	return t.snapshot.LastRead, nil
}

// History fetches the tank's reading history from the remote service. It is
// never cached at this layer: freshness matters more than call cost here.
// Ordering is as received from the service; downstream consumers sort.
func (t *Tank) History(ctx context.Context) ([]types.Reading, error) {
	return t.client.getHistory(ctx, t.signalmanNo, time.Time{}, time.Time{})
}

// HistoryBetween fetches readings within [start, end]. Zero bounds default
// to the epoch and now.
func (t *Tank) HistoryBetween(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	return t.client.getHistory(ctx, t.signalmanNo, start, end)
}

func (t *Tank) ensureSnapshot(ctx context.Context) error {
	if t.snapshot != nil {
		return nil
	}
	res, err := t.client.getLatestLevel(ctx, t.signalmanNo)
	if err != nil {
		return err
	}
	snap, err := parseSnapshot(res)
	if err != nil {
		return err
	}
	t.snapshot = &snap
	return nil
}

// parseSnapshot turns the vendor's name/value tankInfo list and level record
// into a strongly-typed Snapshot once, at fetch time.
func parseSnapshot(res levelResult) (types.Snapshot, error) {
	info := make(map[string]string, len(res.TankInfo))
	for _, nv := range res.TankInfo {
		info[nv.Name] = nv.Value
	}
	for _, required := range []string{infoTankName, infoCapacity, infoSignalmanNo, infoModel} {
		if _, ok := info[required]; !ok {
			return types.Snapshot{}, &APIError{Description: fmt.Sprintf("malformed response from API: missing tank info %q", required)}
		}
	}

	capacity, err := strconv.Atoi(info[infoCapacity])
	if err != nil {
		return types.Snapshot{}, &APIError{Description: fmt.Sprintf("malformed response from API: bad tank capacity %q", info[infoCapacity])}
	}

	lastRead, err := parseReadingDate(res.Level.ReadingDate)
	if err != nil {
		return types.Snapshot{}, err
	}

	return types.Snapshot{
		Name:         info[infoTankName],
		SerialNumber: info[infoSignalmanNo],
		Model:        info[infoModel],
		Capacity:     capacity,
		LevelLitres:  res.Level.LevelLitres,
		LevelPercent: res.Level.LevelPercentage,
		LastRead:     lastRead,
	}, nil
}
