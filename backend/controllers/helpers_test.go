package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cognitory/backend/config"
	"cognitory/backend/controllers"
	"cognitory/backend/models"
	"cognitory/backend/routes"
	"cognitory/backend/services"
	"cognitory/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []services.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg services.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Sent() []services.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.Message(nil), m.sent...)
}

type fakeStorage struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func (s *fakeStorage) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.puts == nil {
		s.puts = map[string][]byte{}
	}
	s.puts[key] = content
	return "https://cdn.test/" + key, nil
}

var errMailDown = errors.New("mail server unreachable")

type testEnv struct {
	t       *testing.T
	app     *fiber.App
	db      *gorm.DB
	cfg     *config.Config
	mailer  *fakeMailer
	storage *fakeStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		DBDriver:             "sqlite",
		DatabaseURL:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		JWTSecret:            "test-secret",
		FrontendLink:         "http://frontend.test",
		MaxLevelsPerSubtopic: 5,
		BcryptCost:           bcrypt.MinCost,
		LogLevel:             "error",
	}
	db, err := utils.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() { utils.CloseDB(db, zerolog.Nop()) })

	env := &testEnv{
		t:       t,
		db:      db,
		cfg:     cfg,
		mailer:  &fakeMailer{},
		storage: &fakeStorage{},
	}
	env.app = routes.NewApp(routes.Deps{
		DB:      db,
		Cfg:     cfg,
		Mailer:  env.mailer,
		Storage: env.storage,
	}, zerolog.Nop(), prometheus.NewRegistry())
	return env
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *utils.PageMeta `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func (r envelope) decode(t *testing.T, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, dest), string(r.Data))
}

func (r envelope) fields(t *testing.T) map[string]string {
	t.Helper()
	var fields map[string]string
	require.NoError(t, json.Unmarshal(r.Error, &fields), string(r.Error))
	return fields
}

func (e *testEnv) send(req *http.Request, token string) (int, envelope) {
	e.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	var body envelope
	require.NoError(e.t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func (e *testEnv) do(method, path, token string, payload interface{}) (int, envelope) {
	e.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(e.t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return e.send(req, token)
}

// raw returns the undecoded body, for assertions on exact JSON shape.
func (e *testEnv) raw(method, path, token string) (int, string) {
	e.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, string(raw)
}

// login creates an approved user with role and returns it with a token.
func (e *testEnv) login(role string) (*models.User, string) {
	e.t.Helper()
	user, err := controllers.BootstrapUser(context.Background(), e.db, e.cfg, controllers.BootstrapUserInput{
		Name:     role + " tester",
		Email:    fmt.Sprintf("%s-%s@cognitory.test", role, uuid.NewString()[:8]),
		Password: "password123",
		Role:     role,
	})
	require.NoError(e.t, err)
	token, err := utils.GenerateJWTToken(user, e.cfg)
	require.NoError(e.t, err)
	return user, token
}

// chain is one path through the hierarchy, built over HTTP.
type chain struct {
	Enterprise models.Enterprise
	Class      models.Class
	Subject    models.Subject
	Topic      models.Topic
	Subtopic   models.Subtopic
	Level      models.Level
}

func (e *testEnv) create(path, token string, payload interface{}, dest interface{}) {
	e.t.Helper()
	status, body := e.do(http.MethodPost, path, token, payload)
	require.Equal(e.t, http.StatusCreated, status, "%s: %s %s", path, body.Message, string(body.Error))
	body.decode(e.t, dest)
}

func (e *testEnv) enterprise(token, name string) models.Enterprise {
	e.t.Helper()
	var enterprise models.Enterprise
	e.create("/api/v1/enterprise", token, map[string]string{"name": name, "email": "hello@" + utils.Slugify(name) + ".test"}, &enterprise)
	return enterprise
}

func (e *testEnv) subtopicChain(token string, enterprise models.Enterprise) chain {
	e.t.Helper()
	c := chain{Enterprise: enterprise}
	e.create("/api/v1/class", token, map[string]string{
		"name": "Grade 9", "enterpriseId": c.Enterprise.ID,
	}, &c.Class)
	e.create("/api/v1/subject", token, map[string]string{
		"name": "Mathematics", "enterpriseId": c.Enterprise.ID, "classId": c.Class.ID,
	}, &c.Subject)
	e.create("/api/v1/topic", token, map[string]string{
		"name": "Algebra", "enterpriseId": c.Enterprise.ID, "classId": c.Class.ID, "subjectId": c.Subject.ID,
	}, &c.Topic)
	e.create("/api/v1/subtopic", token, map[string]string{
		"name": "Linear equations", "enterpriseId": c.Enterprise.ID, "classId": c.Class.ID,
		"subjectId": c.Subject.ID, "topicId": c.Topic.ID,
	}, &c.Subtopic)
	return c
}

func (c chain) levelPayload(name string, rank int) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"rank":         rank,
		"enterpriseId": c.Enterprise.ID,
		"classId":      c.Class.ID,
		"subjectId":    c.Subject.ID,
		"topicId":      c.Topic.ID,
		"subtopicId":   c.Subtopic.ID,
	}
}

func (e *testEnv) fullChain(token string) chain {
	e.t.Helper()
	c := e.subtopicChain(token, e.enterprise(token, "Acme"))
	e.create("/api/v1/level", token, c.levelPayload("Beginner", 1), &c.Level)
	return c
}

func (c chain) questionPayload(overrides map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"text":         "Solve 2x + 3 = 7",
		"textType":     "text",
		"type":         "multiple",
		"options":      []string{"1", "2", "3", "4"},
		"answer":       "2",
		"hint":         "Subtract 3 first",
		"enterpriseId": c.Enterprise.ID,
		"classId":      c.Class.ID,
		"subjectId":    c.Subject.ID,
		"topicId":      c.Topic.ID,
		"subtopicId":   c.Subtopic.ID,
		"levelId":      c.Level.ID,
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload
}
