package fakefacility

import (
	"crypto/sha256"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"facility/internal/facility"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

type officer struct {
	facility.User
	password string
}

type enrolled struct {
	facility.InmateRecord
	digests [][sha256.Size]byte
}

type logEntry struct {
	ID           string
	InmateID     string
	InmateName   string
	Score        float64
	Image        string
	RecognizedBy string
	RecognizedAt time.Time
}

// state is the stub's in-memory database.
type state struct {
	mu       sync.RWMutex
	officers map[string]*officer
	inmates  map[string]*enrolled
	order    []string
	logs     []logEntry
	lastSeen map[string]time.Time
}

func newState() *state {
	return &state{
		officers: make(map[string]*officer),
		inmates:  make(map[string]*enrolled),
		lastSeen: make(map[string]time.Time),
	}
}

func (s *state) addOfficer(u facility.User, password string) (facility.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.officers {
		if strings.EqualFold(o.Email, u.Email) {
			return facility.User{}, errDuplicate
		}
	}
	u.ID = uuid.NewString()
	s.officers[u.ID] = &officer{User: u, password: password}
	return u, nil
}

func (s *state) officerByEmail(email string) (*officer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.officers {
		if strings.EqualFold(o.Email, email) {
			cp := *o
			return &cp, true
		}
	}
	return nil, false
}

func (s *state) officer(id string) (facility.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.officers[id]
	if !ok {
		return facility.User{}, false
	}
	u := o.User
	u.RecognitionsToday = s.countToday(id, time.Now().UTC())
	return u, true
}

func (s *state) listOfficers() []facility.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]facility.User, 0, len(s.officers))
	now := time.Now().UTC()
	for id, o := range s.officers {
		u := o.User
		u.RecognitionsToday = s.countToday(id, now)
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *state) updateOfficer(id string, upd facility.OfficerUpdate) (facility.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.officers[id]
	if !ok {
		return facility.User{}, errNotFound
	}
	if upd.Email != nil {
		for oid, other := range s.officers {
			if oid != id && strings.EqualFold(other.Email, *upd.Email) {
				return facility.User{}, errDuplicate
			}
		}
		o.Email = *upd.Email
	}
	if upd.Name != nil {
		o.Name = *upd.Name
	}
	if upd.Password != nil {
		o.password = *upd.Password
	}
	if upd.PrisonName != nil {
		o.PrisonName = *upd.PrisonName
	}
	return o.User, nil
}

func (s *state) deleteOfficer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[id]; !ok {
		return false
	}
	delete(s.officers, id)
	return true
}

// countToday must be called with mu held.
func (s *state) countToday(officerID string, now time.Time) int {
	start := now.Truncate(24 * time.Hour)
	n := 0
	for _, l := range s.logs {
		if l.RecognizedBy == officerID && !l.RecognizedAt.Before(start) {
			n++
		}
	}
	return n
}

func (s *state) addInmate(rec facility.InmateRecord, images []facility.Image) (facility.InmateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inmates[rec.InmateID]; ok {
		return facility.InmateRecord{}, errDuplicate
	}
	rec.ID = uuid.NewString()
	e := &enrolled{InmateRecord: rec}
	e.attach(images, time.Now().UTC())
	s.inmates[rec.InmateID] = e
	s.order = append(s.order, rec.InmateID)
	return e.record(), nil
}

// record returns a copy safe to use after the lock is released.
func (e *enrolled) record() facility.InmateRecord {
	rec := e.InmateRecord
	rec.Images = append([]facility.StoredImage{}, e.Images...)
	return rec
}

func (e *enrolled) attach(images []facility.Image, at time.Time) {
	for _, img := range images {
		e.Images = append(e.Images, facility.StoredImage{Filename: img.Filename, UploadedAt: at.Format(time.RFC3339)})
		e.digests = append(e.digests, sha256.Sum256(img.Data))
	}
}

func (s *state) inmate(inmateID string) (facility.InmateRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.inmates[inmateID]
	if !ok {
		return facility.InmateRecord{}, false
	}
	return e.record(), true
}

func (s *state) listInmates() []facility.InmateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]facility.InmateRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.inmates[id].record())
	}
	return out
}

// patchInmate applies only the non-nil fields of upd.
func (s *state) patchInmate(inmateID string, upd facility.UpdateInmateRequest) (facility.InmateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.inmates[inmateID]
	if !ok {
		return facility.InmateRecord{}, errNotFound
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if x := upd.ExtraInfo; x != nil {
		cur := &e.ExtraInfo
		if x.Cell != nil {
			cur.Cell = x.Cell
		}
		if x.Crime != nil {
			cur.Crime = x.Crime
		}
		if x.Sentence != nil {
			cur.Sentence = x.Sentence
		}
		if x.Age != nil {
			cur.Age = x.Age
		}
		if x.LegalStatus != nil {
			cur.LegalStatus = x.LegalStatus
		}
		if x.FacilityName != nil {
			cur.FacilityName = x.FacilityName
		}
		if x.Sex != nil {
			cur.Sex = x.Sex
		}
	}
	e.attach(upd.Images, time.Now().UTC())
	return e.record(), nil
}

func (s *state) deleteInmate(inmateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inmates[inmateID]; !ok {
		return false
	}
	delete(s.inmates, inmateID)
	for i, id := range s.order {
		if id == inmateID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// match finds the inmate enrolled with exactly these image bytes.
func (s *state) match(data []byte) (facility.InmateRecord, bool) {
	sum := sha256.Sum256(data)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		e := s.inmates[id]
		for _, d := range e.digests {
			if d == sum {
				return e.record(), true
			}
		}
	}
	return facility.InmateRecord{}, false
}

// recordRecognition logs a match unless the inmate was seen within cooldown.
func (s *state) recordRecognition(rec facility.InmateRecord, officerID, image string, score float64, at time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastSeen[rec.InmateID]; ok && at.Sub(last) < cooldown {
		return false
	}
	s.lastSeen[rec.InmateID] = at
	s.logs = append(s.logs, logEntry{
		ID:           uuid.NewString(),
		InmateID:     rec.InmateID,
		InmateName:   rec.Name,
		Score:        score,
		Image:        image,
		RecognizedBy: officerID,
		RecognizedAt: at,
	})
	return true
}

func (s *state) snapshotLogs() []logEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]logEntry(nil), s.logs...)
}

func (s *state) officerName(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.officers[id]; ok {
		return o.Name
	}
	return "Unknown"
}
