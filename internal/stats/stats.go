package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	// Depth of the response-time ring: only the most recent samples feed
	// the average.
	responseTimeWindow = 100

	// Cosmetic average shown before any real sample exists; the dashboard
	// renders it as-is.
	defaultAvgResponseTime = 2.4

	dateLayout = "2006-01-02"
)

// snapshot is the persisted statistics document.
type snapshot struct {
	TotalMessages     int             `json:"totalMessages"`
	SuccessCount      int             `json:"successCount"`
	FailedCount       int             `json:"failedCount"`
	SentToday         int             `json:"sentToday"`
	LastReset         string          `json:"lastReset"`
	ActiveContacts    map[string]bool `json:"activeContacts"`
	HourlyStats       map[int]int     `json:"hourlyStats"`
	DailyStats        map[string]int  `json:"dailyStats"`
	ResponseTimes     []float64       `json:"responseTimes"`
	ScheduledMessages int             `json:"scheduledMessages"`
}

// HourCount is one entry of the popular-hours ranking.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// View is the computed snapshot served to the dashboard.
type View struct {
	TotalMessages       int         `json:"totalMessages"`
	SentToday           int         `json:"sentToday"`
	SuccessRate         float64     `json:"successRate"`
	FailedMessages      int         `json:"failedMessages"`
	AverageResponseTime float64     `json:"averageResponseTime"`
	ActiveContacts      int         `json:"activeContacts"`
	ScheduledMessages   int         `json:"scheduledMessages"`
	PopularHours        []HourCount `json:"popularHours"`
}

// Store accumulates send statistics and mirrors them to a single JSON
// document after every mutation. RecordSend is safe to call from
// concurrent dispatches.
type Store struct {
	path string

	mu   sync.Mutex
	data snapshot
}

func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		s.ensureMapsLocked()
		s.rolloverLocked(time.Now())
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		s.data = defaults(time.Now())
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return s, nil
}

// RecordSend applies one completed send attempt: overall and daily
// counters, contact set, hourly/daily histograms and the response-time
// ring, then persists the snapshot.
func (s *Store) RecordSend(recipient string, success bool, responseTimeSeconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.rolloverLocked(now)

	s.data.TotalMessages++
	if success {
		s.data.SuccessCount++
	} else {
		s.data.FailedCount++
	}
	s.data.SentToday++

	if recipient != "" {
		s.data.ActiveContacts[recipient] = true
	}

	s.data.HourlyStats[now.Hour()]++
	s.data.DailyStats[now.Format(dateLayout)]++

	if responseTimeSeconds > 0 {
		s.data.ResponseTimes = append(s.data.ResponseTimes, responseTimeSeconds)
		if len(s.data.ResponseTimes) > responseTimeWindow {
			s.data.ResponseTimes = s.data.ResponseTimes[len(s.data.ResponseTimes)-responseTimeWindow:]
		}
	}

	return s.persistLocked()
}

// SetScheduledCount updates the cached pending scheduled-message count.
func (s *Store) SetScheduledCount(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.ScheduledMessages = n
	return s.persistLocked()
}

// Reset clears every counter back to defaults and persists immediately.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = defaults(time.Now())
	return s.persistLocked()
}

// View derives the dashboard snapshot from the raw counters.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rolloverLocked(time.Now())

	v := View{
		TotalMessages:       s.data.TotalMessages,
		SentToday:           s.data.SentToday,
		FailedMessages:      s.data.FailedCount,
		ActiveContacts:      len(s.data.ActiveContacts),
		ScheduledMessages:   s.data.ScheduledMessages,
		AverageResponseTime: defaultAvgResponseTime,
		PopularHours:        popularHours(s.data.HourlyStats),
	}

	if s.data.TotalMessages > 0 {
		v.SuccessRate = float64(s.data.SuccessCount) / float64(s.data.TotalMessages) * 100
	}

	if len(s.data.ResponseTimes) > 0 {
		var sum float64
		for _, rt := range s.data.ResponseTimes {
			sum += rt
		}
		v.AverageResponseTime = sum / float64(len(s.data.ResponseTimes))
	}

	return v
}

// popularHours ranks hours by cumulative count descending, ties broken by
// ascending hour, and keeps the top four. With no data it falls back to
// the dashboard's placeholder hours.
func popularHours(hourly map[int]int) []HourCount {
	if len(hourly) == 0 {
		return []HourCount{{Hour: 9}, {Hour: 14}, {Hour: 18}, {Hour: 20}}
	}

	ranked := make([]HourCount, 0, len(hourly))
	for hour, count := range hourly {
		ranked = append(ranked, HourCount{Hour: hour, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Hour < ranked[j].Hour
	})

	if len(ranked) > 4 {
		ranked = ranked[:4]
	}
	return ranked
}

// rolloverLocked resets the daily counter when the calendar date has
// moved past the stored marker. Checked lazily on every mutation and
// read; no timer is involved.
func (s *Store) rolloverLocked(now time.Time) {
	today := now.Format(dateLayout)
	if s.data.LastReset != today {
		s.data.SentToday = 0
		s.data.LastReset = today
	}
}

func (s *Store) ensureMapsLocked() {
	if s.data.ActiveContacts == nil {
		s.data.ActiveContacts = map[string]bool{}
	}
	if s.data.HourlyStats == nil {
		s.data.HourlyStats = map[int]int{}
	}
	if s.data.DailyStats == nil {
		s.data.DailyStats = map[string]int{}
	}
}

func defaults(now time.Time) snapshot {
	return snapshot{
		LastReset:      now.Format(dateLayout),
		ActiveContacts: map[string]bool{},
		HourlyStats:    map[int]int{},
		DailyStats:     map[string]int{},
		ResponseTimes:  []float64{},
	}
}

func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
