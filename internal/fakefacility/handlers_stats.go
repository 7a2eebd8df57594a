package fakefacility

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"facility/internal/facility"
)

const dayLayout = "2006-01-02"

func (s *Server) logsSince(days int) []logEntry {
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	var out []logEntry
	for _, l := range s.state.snapshotLogs() {
		if !l.RecognizedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out
}

func (s *Server) dailyRecognitions(c *gin.Context) {
	days, ok := queryInt(c, "days", facility.DefaultDailyDays, 1, 0)
	if !ok {
		return
	}
	counts := map[string]int{}
	for _, l := range s.logsSince(days) {
		counts[l.RecognizedAt.Format(dayLayout)]++
	}
	daily := make([]facility.DailyCount, 0, len(counts))
	for d, n := range counts {
		daily = append(daily, facility.DailyCount{Date: d, Count: n})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	c.JSON(http.StatusOK, gin.H{"daily": daily})
}

func (s *Server) topInmates(c *gin.Context) {
	days, ok := queryInt(c, "days", facility.DefaultTopInmatesDays, 1, 0)
	if !ok {
		return
	}
	counts := map[string]int{}
	for _, l := range s.logsSince(days) {
		counts[l.InmateID]++
	}
	top := make([]facility.InmateCount, 0, len(counts))
	for id, n := range counts {
		name := "Unknown"
		if rec, ok := s.state.inmate(id); ok {
			name = rec.Name
		}
		top = append(top, facility.InmateCount{Inmate: name, Count: n})
	}
	sortCounts(top, func(x facility.InmateCount) (string, int) { return x.Inmate, x.Count })
	if len(top) > 5 {
		top = top[:5]
	}
	c.JSON(http.StatusOK, gin.H{"top_inmates": top})
}

func (s *Server) recognitionsByOfficer(c *gin.Context) {
	counts := map[string]int{}
	for _, l := range s.state.snapshotLogs() {
		counts[l.RecognizedBy]++
	}
	out := make([]facility.OfficerCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, facility.OfficerCount{Officer: s.state.officerName(id), Count: n})
	}
	sortCounts(out, func(x facility.OfficerCount) (string, int) { return x.Officer, x.Count })
	c.JSON(http.StatusOK, gin.H{"by_officer": out})
}

func (s *Server) recognitionsToday(c *gin.Context) {
	me := officerFrom(c)
	start := s.now().Truncate(24 * time.Hour)
	n := 0
	for _, l := range s.state.snapshotLogs() {
		if l.RecognizedBy == me.ID && !l.RecognizedAt.Before(start) {
			n++
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) recentVerifications(c *gin.Context) {
	limit, ok := queryInt(c, "limit", facility.DefaultRecentVerified, 1, 20)
	if !ok {
		return
	}
	logs := newestFirst(s.state.snapshotLogs(), limit)
	out := make([]facility.Verification, 0, len(logs))
	for _, l := range logs {
		out = append(out, facility.Verification{
			InmateID:     l.InmateID,
			InmateName:   l.InmateName,
			OfficerName:  s.state.officerName(l.RecognizedBy),
			Score:        l.Score,
			RecognizedAt: l.RecognizedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"recent": out})
}

func ageRange(age int) string {
	switch {
	case age <= 20:
		return "0-20"
	case age <= 40:
		return "21-40"
	case age <= 60:
		return "41-60"
	default:
		return "61+"
	}
}

// distribution groups inmates by key; an empty key drops the inmate.
func (s *Server) distribution(key func(facility.ExtraInfo) string) []facility.Bucket {
	counts := map[string]int{}
	for _, rec := range s.state.listInmates() {
		if k := key(rec.ExtraInfo); k != "" {
			counts[k]++
		}
	}
	out := make([]facility.Bucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, facility.Bucket{Key: k, Count: n})
	}
	sortCounts(out, func(b facility.Bucket) (string, int) { return b.Key, b.Count })
	return out
}

func orUnknown(p *string) string {
	if p == nil {
		return "Unknown"
	}
	return *p
}

func (s *Server) ageDistribution(c *gin.Context) {
	out := s.distribution(func(x facility.ExtraInfo) string {
		if x.Age == nil {
			return ""
		}
		return ageRange(*x.Age)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	c.JSON(http.StatusOK, gin.H{"age_distribution": out})
}

func (s *Server) sexDistribution(c *gin.Context) {
	out := s.distribution(func(x facility.ExtraInfo) string {
		switch strings.ToLower(orUnknown(x.Sex)) {
		case "male":
			return "Male"
		case "female":
			return "Female"
		}
		return "Unknown"
	})
	c.JSON(http.StatusOK, gin.H{"sex_distribution": out})
}

func (s *Server) legalStatusDistribution(c *gin.Context) {
	out := s.distribution(func(x facility.ExtraInfo) string { return orUnknown(x.LegalStatus) })
	c.JSON(http.StatusOK, gin.H{"legal_status_distribution": out})
}

func (s *Server) facilityDistribution(c *gin.Context) {
	out := s.distribution(func(x facility.ExtraInfo) string { return orUnknown(x.FacilityName) })
	c.JSON(http.StatusOK, gin.H{"facility_distribution": out})
}

func toLogEntry(l logEntry) facility.LogEntry {
	return facility.LogEntry{
		ID:           l.ID,
		InmateID:     l.InmateID,
		InmateName:   l.InmateName,
		Score:        l.Score,
		Image:        l.Image,
		RecognizedBy: l.RecognizedBy,
		RecognizedAt: l.RecognizedAt.Format(time.RFC3339),
	}
}

func (s *Server) allLogs(c *gin.Context) {
	logs := s.state.snapshotLogs()
	out := make([]facility.LogEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogEntry(l))
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}

func (s *Server) recentLogs(c *gin.Context) {
	limit, ok := queryInt(c, "limit", facility.DefaultRecentLogs, 1, 100)
	if !ok {
		return
	}
	logs := newestFirst(s.state.snapshotLogs(), limit)
	out := make([]facility.LogEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, toLogEntry(l))
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}

func (s *Server) dailyLogs(c *gin.Context) {
	daily := map[string]int{}
	for _, l := range s.state.snapshotLogs() {
		daily[l.RecognizedAt.Format(dayLayout)]++
	}
	c.JSON(http.StatusOK, gin.H{"daily_logs": daily})
}

func (s *Server) logsByOfficer(c *gin.Context) {
	grouped := map[string][]facility.LogEntry{}
	for _, l := range s.state.snapshotLogs() {
		name := s.state.officerName(l.RecognizedBy)
		grouped[name] = append(grouped[name], toLogEntry(l))
	}
	c.JSON(http.StatusOK, gin.H{"logs_by_officer": grouped})
}

func newestFirst(logs []logEntry, limit int) []logEntry {
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].RecognizedAt.After(logs[j].RecognizedAt) })
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs
}

// sortCounts orders by count descending, then key ascending.
func sortCounts[T any](items []T, key func(T) (string, int)) {
	sort.Slice(items, func(i, j int) bool {
		ki, ni := key(items[i])
		kj, nj := key(items[j])
		if ni != nj {
			return ni > nj
		}
		return ki < kj
	})
}
