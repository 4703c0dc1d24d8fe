package result

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type (
	// TargetStats are the statistics of one target over one reporting window
	TargetStats struct {
		RunID    string `json:"run_id,omitempty"`
		Window   int64  `json:"window"`
		Target   string `json:"target"`
		Hostname string `json:"hostname,omitempty"`

		Sent     int     `json:"sent"`
		Received int     `json:"received"`
		Loss     int     `json:"loss"`
		LossRate float64 `json:"loss_rate"`

		// Latency is the mean over replies that could be matched to a send;
		// zero when none could
		Latency    time.Duration `json:"-"`
		MinLatency time.Duration `json:"-"`
		MaxLatency time.Duration `json:"-"`

		Corrupted int `json:"bitflip_count"`
	}

	// Session describes a running ping session
	Session struct {
		RunID       string            `json:"run_id"`
		StartedAt   time.Time         `json:"started_at"`
		Targets     []string          `json:"targets"`
		Ident       uint16            `json:"ident"`
		Clock       string            `json:"clock"`
		SourceAddrs map[string]string `json:"source_addrs,omitempty"`
		PublicIP    string            `json:"public_ip,omitempty"`
	}
)

// NewSession returns a session with a fresh run id
func NewSession(targets []string, ident uint16) *Session {
	return &Session{
		RunID:     NewRunID(),
		StartedAt: time.Now().UTC(),
		Targets:   targets,
		Ident:     ident,
	}
}

// Normalize derives Loss and LossRate from Sent and Received
func (s *TargetStats) Normalize() {
	s.Loss = s.Sent - s.Received
	if s.Loss < 0 {
		// orphan replies can outnumber the sends of a window
		s.Loss = 0
	}
	if total := s.Received + s.Loss; total > 0 {
		s.LossRate = float64(s.Loss) / float64(total)
	} else {
		s.LossRate = 0
	}
}

// Line formats the stats the way they are logged
func (s TargetStats) Line() string {
	return fmt.Sprintf("%s: sent:%d, recv:%d, loss rate: %.2f%%, latency: %.2fms",
		s.Target, s.Sent, s.Received, s.LossRate*100, durationMs(s.Latency))
}

// MarshalJSON encodes the latencies as float milliseconds
func (s TargetStats) MarshalJSON() ([]byte, error) {
	type plain TargetStats
	return json.Marshal(struct {
		plain
		LatencyMs    float64 `json:"latency_ms"`
		MinLatencyMs float64 `json:"min_latency_ms"`
		MaxLatencyMs float64 `json:"max_latency_ms"`
	}{
		plain:        plain(s),
		LatencyMs:    durationMs(s.Latency),
		MinLatencyMs: durationMs(s.MinLatency),
		MaxLatencyMs: durationMs(s.MaxLatency),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (s *TargetStats) UnmarshalJSON(data []byte) error {
	type plain TargetStats
	var aux struct {
		plain
		LatencyMs    float64 `json:"latency_ms"`
		MinLatencyMs float64 `json:"min_latency_ms"`
		MaxLatencyMs float64 `json:"max_latency_ms"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = TargetStats(aux.plain)
	s.Latency = msDuration(aux.LatencyMs)
	s.MinLatency = msDuration(aux.MinLatencyMs)
	s.MaxLatency = msDuration(aux.MaxLatencyMs)
	return nil
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func msDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
