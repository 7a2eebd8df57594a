package facility

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"facility/internal/transport"
)

// DefaultLogsPrefix is where the raw log routes are mounted.
const DefaultLogsPrefix = "/logs"

const (
	DefaultDailyDays      = 7
	DefaultTopInmatesDays = 30
	DefaultRecentVerified = 5
	DefaultRecentLogs     = 10
)

// Dimension selects a distribution report.
type Dimension string

const (
	ByAge         Dimension = "age"
	BySex         Dimension = "sex"
	ByLegalStatus Dimension = "legal-status"
	ByFacility    Dimension = "facility"
)

// LogsService reads aggregate recognition reports. Reports are always
// fetched fresh.
type LogsService struct {
	t      *transport.Client
	prefix string
}

func intQuery(name string, n int) url.Values {
	return url.Values{name: {strconv.Itoa(n)}}
}

// DailyRecognitions counts recognitions per day over the last days days.
// days <= 0 means DefaultDailyDays.
func (s *LogsService) DailyRecognitions(ctx context.Context, days int) ([]DailyCount, error) {
	out, err := send[struct {
		Daily []DailyCount `json:"daily"`
	}](ctx, s.t, transport.Request{
		Op:     "stats.daily",
		Method: http.MethodGet,
		Path:   "/stats/recognitions-daily",
		Query:  intQuery("days", withDefault(days, DefaultDailyDays)),
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.DailyRecognitions: %w", err)
	}
	return out.Daily, nil
}

// TopInmates lists the most recognized inmates over the last days days.
// days <= 0 means DefaultTopInmatesDays.
func (s *LogsService) TopInmates(ctx context.Context, days int) ([]InmateCount, error) {
	out, err := send[struct {
		TopInmates []InmateCount `json:"top_inmates"`
	}](ctx, s.t, transport.Request{
		Op:     "stats.top_inmates",
		Method: http.MethodGet,
		Path:   "/stats/top-inmates",
		Query:  intQuery("days", withDefault(days, DefaultTopInmatesDays)),
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.TopInmates: %w", err)
	}
	return out.TopInmates, nil
}

func (s *LogsService) RecognitionsByOfficer(ctx context.Context) ([]OfficerCount, error) {
	out, err := send[struct {
		ByOfficer []OfficerCount `json:"by_officer"`
	}](ctx, s.t, transport.Request{
		Op:     "stats.by_officer",
		Method: http.MethodGet,
		Path:   "/stats/recognitions-by-officer",
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.RecognitionsByOfficer: %w", err)
	}
	return out.ByOfficer, nil
}

// RecognitionsToday counts the calling officer's recognitions for the
// current UTC day.
func (s *LogsService) RecognitionsToday(ctx context.Context) (int, error) {
	out, err := send[struct {
		Count int `json:"count"`
	}](ctx, s.t, transport.Request{
		Op:     "stats.today",
		Method: http.MethodGet,
		Path:   "/stats/recognitions-today-by-officer",
	})
	if err != nil {
		return 0, fmt.Errorf("facility.Logs.RecognitionsToday: %w", err)
	}
	return out.Count, nil
}

// RecentVerifications returns the latest recognitions, newest first.
// limit <= 0 means DefaultRecentVerified.
func (s *LogsService) RecentVerifications(ctx context.Context, limit int) ([]Verification, error) {
	out, err := send[struct {
		Recent []Verification `json:"recent"`
	}](ctx, s.t, transport.Request{
		Op:     "stats.recent",
		Method: http.MethodGet,
		Path:   "/stats/recent-verifications",
		Query:  intQuery("limit", withDefault(limit, DefaultRecentVerified)),
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.RecentVerifications: %w", err)
	}
	return out.Recent, nil
}

// Distribution groups enrolled inmates by one dimension.
func (s *LogsService) Distribution(ctx context.Context, d Dimension) ([]Bucket, error) {
	out, err := send[map[string][]Bucket](ctx, s.t, transport.Request{
		Op:     "stats.distribution",
		Method: http.MethodGet,
		Path:   "/stats/" + url.PathEscape(string(d)) + "-distribution",
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.Distribution: %w", err)
	}
	return out[strings.ReplaceAll(string(d), "-", "_")+"_distribution"], nil
}

// All returns every raw recognition log.
func (s *LogsService) All(ctx context.Context) ([]LogEntry, error) {
	out, err := send[struct {
		Logs []LogEntry `json:"logs"`
	}](ctx, s.t, transport.Request{Op: "logs.all", Method: http.MethodGet, Path: s.prefix + "/"})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.All: %w", err)
	}
	return out.Logs, nil
}

// Recent returns the newest raw logs. limit <= 0 means DefaultRecentLogs.
func (s *LogsService) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	out, err := send[struct {
		Logs []LogEntry `json:"logs"`
	}](ctx, s.t, transport.Request{
		Op:     "logs.recent",
		Method: http.MethodGet,
		Path:   s.prefix + "/recent",
		Query:  intQuery("limit", withDefault(limit, DefaultRecentLogs)),
	})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.Recent: %w", err)
	}
	return out.Logs, nil
}

// DailyLogs counts raw logs per day, keyed YYYY-MM-DD.
func (s *LogsService) DailyLogs(ctx context.Context) (map[string]int, error) {
	out, err := send[struct {
		DailyLogs map[string]int `json:"daily_logs"`
	}](ctx, s.t, transport.Request{Op: "logs.daily", Method: http.MethodGet, Path: s.prefix + "/daily"})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.DailyLogs: %w", err)
	}
	return out.DailyLogs, nil
}

// LogsByOfficer groups raw logs by officer name.
func (s *LogsService) LogsByOfficer(ctx context.Context) (map[string][]LogEntry, error) {
	out, err := send[struct {
		LogsByOfficer map[string][]LogEntry `json:"logs_by_officer"`
	}](ctx, s.t, transport.Request{Op: "logs.by_officer", Method: http.MethodGet, Path: s.prefix + "/by_officer"})
	if err != nil {
		return nil, fmt.Errorf("facility.Logs.LogsByOfficer: %w", err)
	}
	return out.LogsByOfficer, nil
}
