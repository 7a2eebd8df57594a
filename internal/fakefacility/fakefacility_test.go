package fakefacility

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility/internal/facility"
	"facility/internal/session"
	"facility/internal/transport"
)

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

func startStub(t *testing.T, cfg Config) (*Server, *facility.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := New(cfg, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, facility.New(transport.New(srv.URL, session.NewMemory()))
}

func loggedIn(t *testing.T, cfg Config) (*Server, *facility.Client) {
	t.Helper()
	s, c := startStub(t, cfg)
	_, err := s.SeedOfficer("Ann", "ann@prison.com", "secret1", "North")
	require.NoError(t, err)
	_, err = c.Auth.Login(context.Background(), "ann@prison.com", "secret1")
	require.NoError(t, err)
	return s, c
}

func requireStatus(t *testing.T, err error, code int, detail string) {
	t.Helper()
	var te *transport.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, code, te.StatusCode)
	if detail != "" {
		assert.Equal(t, detail, te.Message())
	}
}

var (
	img1 = facility.Image{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("face-one")}
	img2 = facility.Image{Filename: "b.png", ContentType: "image/png", Data: []byte("face-two")}
)

func TestRegisterLoginMe(t *testing.T) {
	_, c := startStub(t, Config{AllowedEmails: []string{"ann@prison.com"}})
	ctx := context.Background()

	_, err := c.Auth.Register(ctx, facility.RegisterRequest{Name: "Eve", Email: "eve@x.com", Password: "secret1"})
	requireStatus(t, err, http.StatusBadRequest, "This email is not allowed to register")

	u, err := c.Auth.Register(ctx, facility.RegisterRequest{Name: "Ann", Email: "ann@prison.com", Password: "secret1", PrisonName: "North"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = c.Auth.Register(ctx, facility.RegisterRequest{Name: "Ann", Email: "ann@prison.com", Password: "secret1"})
	requireStatus(t, err, http.StatusBadRequest, "Email already registered")

	_, err = c.Auth.Me(ctx)
	requireStatus(t, err, http.StatusUnauthorized, "Not authenticated")

	_, err = c.Auth.Login(ctx, "ann@prison.com", "wrong-pw")
	requireStatus(t, err, http.StatusUnauthorized, "Wrong email or password")

	resp, err := c.Auth.Login(ctx, "ann@prison.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "bearer", resp.TokenType)

	me, err := c.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)
	assert.Equal(t, "North", me.PrisonName)

	require.NoError(t, c.Auth.Logout(ctx))
	_, err = c.Auth.Me(ctx)
	requireStatus(t, err, http.StatusUnauthorized, "")
}

func TestInvalidTokenRejected(t *testing.T) {
	_, c := startStub(t, Config{})
	require.NoError(t, c.Session().Save(context.Background(), "abc"))

	_, err := c.Inmates.List(context.Background())
	requireStatus(t, err, http.StatusUnauthorized, "Could not validate credentials")
}

func TestInmateLifecycle(t *testing.T) {
	_, c := loggedIn(t, Config{})
	ctx := context.Background()

	rec, err := c.Inmates.Create(ctx, facility.CreateInmateRequest{
		InmateID:  "I1",
		Name:      "Jane",
		ExtraInfo: &facility.ExtraInfo{Cell: strp("C3"), Age: intp(34)},
		Images:    []facility.Image{img1, img2},
	})
	require.NoError(t, err)
	assert.Equal(t, "I1", rec.InmateID)
	require.Len(t, rec.Images, 2)
	assert.Equal(t, "a.jpg", rec.Images[0].Filename)
	assert.Nil(t, rec.ExtraInfo.Crime)

	_, err = c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I1", Name: "Dup", Images: []facility.Image{img1}})
	requireStatus(t, err, http.StatusBadRequest, "Inmate ID already exists")

	_, err = c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I2", Name: "NoImg"})
	requireStatus(t, err, http.StatusBadRequest, "Upload between 1 and 5 images")

	_, err = c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I2", Name: "Gif", Images: []facility.Image{{Filename: "x.gif", Data: []byte("g")}}})
	requireStatus(t, err, http.StatusBadRequest, "Invalid image type: .gif")

	updated, err := c.Inmates.Update(ctx, "I1", facility.UpdateInmateRequest{ExtraInfo: &facility.ExtraInfo{Crime: strp("theft")}})
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.Name)
	assert.Equal(t, "C3", *updated.ExtraInfo.Cell)
	assert.Equal(t, 34, *updated.ExtraInfo.Age)
	assert.Equal(t, "theft", *updated.ExtraInfo.Crime)

	_, err = c.Inmates.Update(ctx, "I1", facility.UpdateInmateRequest{})
	requireStatus(t, err, http.StatusBadRequest, "No fields provided for update")

	_, err = c.Inmates.Update(ctx, "nope", facility.UpdateInmateRequest{Name: strp("X")})
	requireStatus(t, err, http.StatusNotFound, "Inmate not found")

	got, err := c.Inmates.GetByID(ctx, "I1")
	require.NoError(t, err)
	assert.Equal(t, "theft", *got.ExtraInfo.Crime)

	list, err := c.Inmates.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Inmates.DeleteByInmateID(ctx, "I1"))
	err = c.Inmates.DeleteByInmateID(ctx, "I1")
	requireStatus(t, err, http.StatusNotFound, "Inmate not found")

	_, err = c.Inmates.GetByID(ctx, "I1")
	requireStatus(t, err, http.StatusNotFound, "")
}

func TestDeleteWithLegacyPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := New(Config{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	_, err := s.SeedOfficer("Ann", "ann@prison.com", "secret1", "")
	require.NoError(t, err)

	c := facility.New(transport.New(srv.URL, session.NewMemory()), facility.WithDeletePrefix("/inmates"))
	ctx := context.Background()
	_, err = c.Auth.Login(ctx, "ann@prison.com", "secret1")
	require.NoError(t, err)
	_, err = c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I9", Name: "Old", Images: []facility.Image{img1}})
	require.NoError(t, err)

	require.NoError(t, c.Inmates.DeleteByInmateID(ctx, "I9"))
}

func TestRecognitionAndReports(t *testing.T) {
	_, c := loggedIn(t, Config{})
	ctx := context.Background()

	_, err := c.Inmates.Create(ctx, facility.CreateInmateRequest{
		InmateID:  "I1",
		Name:      "Jane",
		ExtraInfo: &facility.ExtraInfo{Sex: strp("FEMALE"), Age: intp(34), LegalStatus: strp("remand")},
		Images:    []facility.Image{img1},
	})
	require.NoError(t, err)
	_, err = c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I2", Name: "Bob", Images: []facility.Image{img2}})
	require.NoError(t, err)

	res, err := c.Recognition.RecognizeImage(ctx, img1, false)
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, "I1", *res.InmateID)
	assert.Equal(t, 1.0, res.Score)
	require.Len(t, res.Boxes, 1)
	assert.True(t, res.Boxes[0].Recognized)

	res, err = c.Recognition.RecognizeImage(ctx, facility.Image{Filename: "q.jpg", Data: []byte("stranger")}, true)
	require.NoError(t, err)
	assert.False(t, res.Matched())
	assert.Equal(t, "none", res.Method)

	_, err = c.Recognition.RecognizeImage(ctx, img2, false)
	require.NoError(t, err)
	_, err = c.Recognition.RecognizeImage(ctx, img1, false)
	require.NoError(t, err)

	daily, err := c.Logs.DailyRecognitions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), daily[0].Date)
	assert.Equal(t, 3, daily[0].Count)

	top, err := c.Logs.TopInmates(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []facility.InmateCount{{Inmate: "Jane", Count: 2}, {Inmate: "Bob", Count: 1}}, top)

	by, err := c.Logs.RecognitionsByOfficer(ctx)
	require.NoError(t, err)
	assert.Equal(t, []facility.OfficerCount{{Officer: "Ann", Count: 3}}, by)

	today, err := c.Logs.RecognitionsToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, today)

	recent, err := c.Logs.RecentVerifications(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Ann", recent[0].OfficerName)

	logs, err := c.Logs.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
	all, err := c.Logs.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sex, err := c.Logs.Distribution(ctx, facility.BySex)
	require.NoError(t, err)
	assert.ElementsMatch(t, []facility.Bucket{{Key: "Female", Count: 1}, {Key: "Unknown", Count: 1}}, sex)

	age, err := c.Logs.Distribution(ctx, facility.ByAge)
	require.NoError(t, err)
	assert.Equal(t, []facility.Bucket{{Key: "21-40", Count: 1}}, age)

	legal, err := c.Logs.Distribution(ctx, facility.ByLegalStatus)
	require.NoError(t, err)
	assert.ElementsMatch(t, []facility.Bucket{{Key: "remand", Count: 1}, {Key: "Unknown", Count: 1}}, legal)

	fac, err := c.Logs.Distribution(ctx, facility.ByFacility)
	require.NoError(t, err)
	assert.Equal(t, []facility.Bucket{{Key: "Unknown", Count: 2}}, fac)

	_, err = c.Logs.RecentVerifications(ctx, 50)
	requireStatus(t, err, http.StatusUnprocessableEntity, "")
}

func TestRecognitionCooldown(t *testing.T) {
	_, c := loggedIn(t, Config{Cooldown: time.Hour})
	ctx := context.Background()

	_, err := c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I1", Name: "Jane", Images: []facility.Image{img1}})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := c.Recognition.RecognizeImage(ctx, img1, false)
		require.NoError(t, err)
		assert.True(t, res.Matched())
	}

	logs, err := c.Logs.All(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestOfficersCRUD(t *testing.T) {
	_, c := loggedIn(t, Config{})
	ctx := context.Background()

	bo, err := c.Officers.Create(ctx, facility.RegisterRequest{Name: "Bo", Email: "bo@prison.com", Password: "secret2", PrisonName: "South"})
	require.NoError(t, err)

	_, err = c.Officers.Create(ctx, facility.RegisterRequest{Name: "Bo", Email: "bo@prison.com", Password: "secret2"})
	requireStatus(t, err, http.StatusBadRequest, "Email already registered")

	_, err = c.Officers.Create(ctx, facility.RegisterRequest{Name: "Cy", Email: "cy@prison.com", Password: "123"})
	requireStatus(t, err, http.StatusUnprocessableEntity, "")

	n, err := c.Officers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	upd, err := c.Officers.Update(ctx, bo.ID, facility.OfficerUpdate{PrisonName: strp("East")})
	require.NoError(t, err)
	assert.Equal(t, "East", upd.PrisonName)
	assert.Equal(t, "Bo", upd.Name)

	_, err = c.Officers.Update(ctx, bo.ID, facility.OfficerUpdate{Email: strp("ann@prison.com")})
	requireStatus(t, err, http.StatusBadRequest, "Email already used by another officer")

	got, err := c.Officers.Get(ctx, bo.ID)
	require.NoError(t, err)
	assert.Equal(t, "East", got.PrisonName)

	list, err := c.Officers.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	total, err := c.Officers.RecognitionsToday(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, c.Officers.Delete(ctx, bo.ID))
	_, err = c.Officers.Get(ctx, bo.ID)
	requireStatus(t, err, http.StatusNotFound, "Officer not found")
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(Config{}, nil).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLimiter_RefillsPerMinute(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newLimiter(2, func() time.Time { return now })

	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"), "buckets are per client")

	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
}

func TestRateLimit_SurfacesAs429(t *testing.T) {
	_, c := startStub(t, Config{RatePerMinute: 1})
	ctx := context.Background()

	_, err := c.Auth.Me(ctx)
	requireStatus(t, err, http.StatusUnauthorized, "Not authenticated")

	_, err = c.Auth.Me(ctx)
	requireStatus(t, err, http.StatusTooManyRequests, "Too many requests")
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(Config{CORSOrigins: []string{"http://localhost:5173"}}, nil).Handler()

	r := httptest.NewRequest(http.MethodOptions, "/inmates/", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	r.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRawLogReports(t *testing.T) {
	s, c := loggedIn(t, Config{})
	ctx := context.Background()
	_, err := c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I1", Name: "Jane", Images: []facility.Image{img1}})
	require.NoError(t, err)
	_, err = c.Recognition.RecognizeImage(ctx, img1, false)
	require.NoError(t, err)
	today := time.Now().UTC().Format("2006-01-02")

	daily, err := c.Logs.DailyLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{today: 1}, daily)

	grouped, err := c.Logs.LogsByOfficer(ctx)
	require.NoError(t, err)
	require.Len(t, grouped["Ann"], 1)
	assert.Equal(t, "I1", grouped["Ann"][0].InmateID)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	nested := facility.New(transport.New(srv.URL, c.Session()), facility.WithLogsPrefix("/logs/logs"))
	recent, err := nested.Logs.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	daily, err = nested.Logs.DailyLogs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{today: 1}, daily)
}

func TestActivityFeed(t *testing.T) {
	s, c := loggedIn(t, Config{Cooldown: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := c.Inmates.Create(ctx, facility.CreateInmateRequest{InmateID: "I1", Name: "Jane", Images: []facility.Image{img1}})
	require.NoError(t, err)

	events := make(chan facility.ActivityEvent, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Activity.Watch(ctx, func(ev facility.ActivityEvent) { events <- ev })
	}()
	require.Eventually(t, func() bool { return s.hub.size() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = c.Recognition.RecognizeImage(context.Background(), facility.Image{Filename: "q.jpg", Data: []byte("stranger")}, false)
	require.NoError(t, err)
	_, err = c.Recognition.RecognizeImage(context.Background(), img1, false)
	require.NoError(t, err)
	_, err = c.Recognition.RecognizeImage(context.Background(), img1, false)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, "I1", ev.InmateID)
		assert.Equal(t, "Jane", ev.InmateName)
		assert.Equal(t, "Ann", ev.OfficerName)
		assert.Equal(t, "exact", ev.Method)
		assert.NotEmpty(t, ev.RecognizedAt)
	case <-time.After(2 * time.Second):
		t.Fatal("no activity event")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
	assert.Empty(t, events, "unmatched and cooled-down recognitions are not broadcast")
	require.Eventually(t, func() bool { return s.hub.size() == 0 }, 2*time.Second, 10*time.Millisecond)
}
