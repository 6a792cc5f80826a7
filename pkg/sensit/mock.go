package sensit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/tanksense/tanksense/pkg/types"
)

// MockAPI is a fake vendor service implementing http.Handler. Tests point a
// Transport at an httptest.Server wrapping one of these and assert against
// its call counters.
type MockAPI struct {
	Username string
	Password string
	UserID   int64
	Tanks    []MockTank

	mu               sync.Mutex
	authCalls        int
	latestLevelCalls int
	historyCalls     int
}

// MockTank is the remote state the MockAPI reports for one device.
type MockTank struct {
	SignalmanNo  int64
	Name         string
	Model        string
	Capacity     int
	LevelLitres  int
	LevelPercent float64
	LastRead     string
	History      []types.Reading
}

// AuthCalls reports how many authenticate requests were served.
func (m *MockAPI) AuthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authCalls
}

// LatestLevelCalls reports how many latest-level requests were served.
func (m *MockAPI) LatestLevelCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestLevelCalls
}

// HistoryCalls reports how many call-history requests were served.
func (m *MockAPI) HistoryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls
}

func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.Contains(r.URL.Path, "Authenticate_v3"):
		m.serveAuthenticate(w, r)
	case strings.Contains(r.URL.Path, "GetLatestLevel_v1"):
		m.serveLatestLevel(w, r)
	case strings.Contains(r.URL.Path, "GetCallHistory_v1"):
		m.serveHistory(w, r)
	default:
		http.Error(w, "not found: "+r.URL.Path, http.StatusNotFound)
	}
}

func writeEnvelope(w http.ResponseWriter, code int, description string, extra map[string]interface{}) {
	body := map[string]interface{}{
		"apiResult": map[string]interface{}{
			"code":        code,
			"description": description,
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (m *MockAPI) serveAuthenticate(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.authCalls++
	m.mu.Unlock()

	var req struct {
		EmailAddress string `json:"emailAddress"`
		Password     string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.EmailAddress != m.Username || req.Password != m.Password {
		writeEnvelope(w, 202, "Authentication Failed: invalid user name or password", nil)
		return
	}

	tanks := make([]map[string]interface{}, len(m.Tanks))
	for i, t := range m.Tanks {
		tanks[i] = map[string]interface{}{"signalmanNo": t.SignalmanNo}
	}
	writeEnvelope(w, 0, "Success", map[string]interface{}{
		"apiUserID": m.UserID,
		"tanks":     tanks,
	})
}

func (m *MockAPI) serveLatestLevel(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.latestLevelCalls++
	m.mu.Unlock()

	var req struct {
		SignalmanNo json.Number `json:"signalmanNo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	tank, ok := m.findTank(req.SignalmanNo)
	if !ok {
		writeEnvelope(w, 101, "Unknown signalman number", nil)
		return
	}

	writeEnvelope(w, 0, "Success", map[string]interface{}{
		"level": map[string]interface{}{
			"levelPercentage": tank.LevelPercent,
			"levelLitres":     tank.LevelLitres,
			"readingDate":     tank.LastRead,
		},
		"tankInfo": []map[string]interface{}{
			{"name": "Tank Name", "value": tank.Name},
			{"name": "Tank Capacity(L)", "value": strconv.Itoa(tank.Capacity)},
			{"name": "Signalman No", "value": strconv.FormatInt(tank.SignalmanNo, 10)},
			{"name": "Model", "value": tank.Model},
		},
	})
}

func (m *MockAPI) serveHistory(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.historyCalls++
	m.mu.Unlock()

	var req struct {
		Pair struct {
			SignalmanNo json.Number `json:"signalmanNo"`
		} `json:"userIdPairWithSN"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	tank, ok := m.findTank(req.Pair.SignalmanNo)
	if !ok {
		writeEnvelope(w, 101, "Unknown signalman number", nil)
		return
	}

	levels := make([]map[string]interface{}, len(tank.History))
	for i, reading := range tank.History {
		levels[i] = map[string]interface{}{
			"readingDate":     reading.ReadingDate.Format("2006-01-02T15:04:05"),
			"levelPercentage": reading.LevelPercent,
			"levelLitres":     reading.LevelLitres,
		}
	}
	writeEnvelope(w, 0, "Success", map[string]interface{}{"levels": levels})
}

func (m *MockAPI) findTank(no json.Number) (MockTank, bool) {
	for _, t := range m.Tanks {
		if no.String() == strconv.FormatInt(t.SignalmanNo, 10) {
			return t, true
		}
	}
	return MockTank{}, false
}
