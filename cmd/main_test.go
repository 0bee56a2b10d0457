package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sbilibin2017/task-tracker/internal/apikey"
	"github.com/sbilibin2017/task-tracker/internal/hasher"
	"github.com/sbilibin2017/task-tracker/internal/jwt"
	"github.com/sbilibin2017/task-tracker/internal/models"
	"github.com/sbilibin2017/task-tracker/internal/repositories"
	"github.com/sbilibin2017/task-tracker/internal/services"
)

var configKeys = []string{
	"APP_HOST", "APP_PORT", "APP_LOG_LEVEL", "CORS_ALLOWED_ORIGINS",
	"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
	"POSTGRES_MAX_OPEN_CONNS", "POSTGRES_MAX_IDLE_CONNS",
	"REDIS_HOST", "REDIS_PORT", "REDIS_DB", "REDIS_PASSWORD",
	"REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_EXP_SECOND",
	"KAFKA_BROKERS", "KAFKA_TOPIC",
	"JWT_SECRET_KEY", "JWT_ALGORITHM", "JWT_EXP_MINUTES",
	"BCRYPT_COST",
}

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

// resetEnv blanks every variable parseConfig reads; empty values fall back to defaults.
func resetEnv(t *testing.T) {
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	resetFlags()
	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())

	resetFlags()
	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	buildVersion = "v1.0.0"
	buildCommit = "abcd1234"
	buildDate = "2025-09-26"

	printBuildInfo()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	assert.Equal(t, "Starting service version v1.0.0, commit abcd1234, build 2025-09-26\n", buf.String())
}

func TestParseConfig_Defaults(t *testing.T) {
	resetEnv(t)
	t.Setenv("JWT_SECRET_KEY", "supersecret")

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, config{
		AppHost:            "localhost",
		AppPort:            "8080",
		LogLevel:           "info",
		CORSAllowedOrigins: []string{"*"},
		PGHost:             "localhost",
		PGPort:             5432,
		PGUser:             "user",
		PGPassword:         "password",
		PGDB:               "database",
		PGMaxOpenConns:     16,
		PGMaxIdleConns:     8,
		RedisHost:          "localhost",
		RedisPort:          6379,
		RedisDB:            0,
		RedisPoolSize:      10,
		RedisMinIdleConns:  2,
		RedisExp:           60 * time.Second,
		KafkaTopic:         "task-events",
		JWTSecretKey:       "supersecret",
		JWTAlgorithm:       "HS256",
		JWTExp:             120 * time.Minute,
		BcryptCost:         bcrypt.DefaultCost,
	}, cfg)
}

func TestParseConfig_CustomEnv(t *testing.T) {
	resetEnv(t)
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com/, http://localhost:3000,")
	t.Setenv("POSTGRES_HOST", "pg.example.com")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "20")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_EXP_SECOND", "120")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("KAFKA_TOPIC", "tasks")
	t.Setenv("JWT_SECRET_KEY", "supersecret")
	t.Setenv("JWT_ALGORITHM", "HS512")
	t.Setenv("JWT_EXP_MINUTES", "5")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.AppHost)
	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "pg.example.com", cfg.PGHost)
	assert.Equal(t, 5433, cfg.PGPort)
	assert.Equal(t, 20, cfg.PGMaxOpenConns)
	assert.Equal(t, 6380, cfg.RedisPort)
	assert.Equal(t, 2*time.Minute, cfg.RedisExp)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "tasks", cfg.KafkaTopic)
	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
	assert.Equal(t, 5*time.Minute, cfg.JWTExp)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestParseConfig_EnvFile(t *testing.T) {
	resetEnv(t)
	path := t.TempDir() + "/test.env"
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET_KEY=fromfile\nAPP_PORT=7070\n"), 0o600))
	// godotenv does not override variables that are already set, even to "".
	os.Unsetenv("JWT_SECRET_KEY")
	os.Unsetenv("APP_PORT")

	cfg, err := parseConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.JWTSecretKey)
	assert.Equal(t, "7070", cfg.AppPort)
}

func TestParseConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{},
			wantErr: "JWT_SECRET_KEY is required",
		},
		{
			name:    "asymmetric algorithm",
			env:     map[string]string{"JWT_SECRET_KEY": "s", "JWT_ALGORITHM": "RS256"},
			wantErr: "unsupported signing algorithm",
		},
		{
			name:    "non-numeric port",
			env:     map[string]string{"JWT_SECRET_KEY": "s", "POSTGRES_PORT": "abc"},
			wantErr: "POSTGRES_PORT",
		},
		{
			name:    "non-positive ttl",
			env:     map[string]string{"JWT_SECRET_KEY": "s", "JWT_EXP_MINUTES": "0"},
			wantErr: "JWT_EXP_MINUTES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := parseConfig("nonexistent.env")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// memAccounts is an in-memory account directory.
type memAccounts struct {
	mu       sync.Mutex
	accounts []models.AccountDB
}

func (m *memAccounts) find(match func(a models.AccountDB) bool) *models.AccountDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			found := a
			return &found
		}
	}
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (*models.AccountDB, error) {
	return m.find(func(a models.AccountDB) bool { return a.UserID == id }), nil
}

func (m *memAccounts) GetByUsername(_ context.Context, username string) (*models.AccountDB, error) {
	return m.find(func(a models.AccountDB) bool { return a.Username == username }), nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*models.AccountDB, error) {
	return m.find(func(a models.AccountDB) bool { return a.Email == email }), nil
}

func (m *memAccounts) GetByAPIKey(_ context.Context, apiKey string) (*models.AccountDB, error) {
	return m.find(func(a models.AccountDB) bool { return a.APIKey == apiKey }), nil
}

// remove deletes the account from the directory.
func (m *memAccounts) remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.accounts {
		if a.UserID == id {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			return
		}
	}
}

// setAPIKey replaces the stored key of an account.
func (m *memAccounts) setAPIKey(id int64, apiKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.accounts {
		if m.accounts[i].UserID == id {
			m.accounts[i].APIKey = apiKey
		}
	}
}

func (m *memAccounts) Save(_ context.Context, account *models.AccountDB) (*models.AccountDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == account.Username {
			return nil, repositories.ErrUsernameConflict
		}
		if a.Email == account.Email {
			return nil, repositories.ErrEmailConflict
		}
	}
	saved := *account
	saved.UserID = int64(len(m.accounts) + 1)
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	m.accounts = append(m.accounts, saved)
	return &saved, nil
}

// memTasks is an in-memory task store.
type memTasks struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]models.TaskDB
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: map[int64]models.TaskDB{}}
}

func (m *memTasks) Save(_ context.Context, userID int64, title, description, status string) (*models.TaskDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task := models.TaskDB{TaskID: m.nextID, UserID: userID, Title: title, Description: description, Status: status, CreatedAt: time.Now()}
	m.tasks[task.TaskID] = task
	return &task, nil
}

func (m *memTasks) Update(_ context.Context, userID, taskID int64, patch models.TaskPatch) (*models.TaskDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	m.tasks[taskID] = task
	return &task, nil
}

func (m *memTasks) Delete(_ context.Context, userID, taskID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return false, nil
	}
	delete(m.tasks, taskID)
	return true, nil
}

func (m *memTasks) ListByUserID(_ context.Context, userID int64) ([]models.TaskDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := []models.TaskDB{}
	for _, task := range m.tasks {
		if task.UserID == userID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskID > tasks[j].TaskID })
	return tasks, nil
}

func (m *memTasks) GetByID(_ context.Context, userID, taskID int64) (*models.TaskDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, nil
	}
	return &task, nil
}

// newTestRouter wires the router over in-memory stores. CORS allows any origin
// unless corsOrigins is given.
func newTestRouter(corsOrigins ...string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	accounts := &memAccounts{}
	tasks := newMemTasks()
	tokens := jwt.New(jwt.WithSecretKey("test-secret"))

	authService := services.NewAuthService(accounts, accounts, hasher.New(bcrypt.MinCost), apikey.New(), tokens)
	resolver := services.NewPrincipalResolver(tokens, accounts)
	taskService := services.NewTaskService(tasks, tasks, nil, nil)
	passthrough := func(next http.Handler) http.Handler { return next }

	return newRouter(authService, resolver, taskService, tokens, passthrough, corsOrigins, "/swagger/doc.json")
}

type testClient struct {
	t      *testing.T
	router http.Handler
}

func (c testClient) do(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)

	var body map[string]any
	if strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "{") {
		require.NoError(c.t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func (c testClient) signup(username, email, password string) (*httptest.ResponseRecorder, map[string]any) {
	payload, _ := json.Marshal(map[string]string{"username": username, "email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c testClient) login(username, password string) (*httptest.ResponseRecorder, map[string]any) {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c testClient) authed(method, target, body, token, apiKey string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	return c.do(req)
}

func TestRouter_DualCredentialFlow(t *testing.T) {
	c := testClient{t: t, router: newTestRouter()}

	rr, _ := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// Sign up
	rr, alice := c.signup("alice", "a@x.com", "Secret1A")
	require.Equal(t, http.StatusCreated, rr.Code)
	aliceKey, _ := alice["api_key"].(string)
	assert.True(t, strings.HasPrefix(aliceKey, "sk_"))
	assert.GreaterOrEqual(t, len(aliceKey), len("sk_")+43)
	assert.NotContains(t, alice, "password")
	assert.NotContains(t, alice, "hashed_password")

	// Duplicates
	rr, body := c.signup("alice", "other@x.com", "Secret1A")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Username already registered", body["error"])
	rr, body = c.signup("alice2", "a@x.com", "Secret1A")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email already registered", body["error"])

	// Login
	rr, body = c.login("alice", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Incorrect username or password", body["error"])
	rr, body = c.login("nobody", "Secret1A")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Incorrect username or password", body["error"])

	rr, body = c.login("alice", "Secret1A")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "bearer", body["token_type"])
	assert.Equal(t, aliceKey, body["api_key"])
	aliceToken, _ := body["access_token"].(string)
	require.NotEmpty(t, aliceToken)

	// Protected route with both credentials
	rr, _ = c.authed(http.MethodGet, "/tasks", "", aliceToken, aliceKey)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	// Second account
	rr, bob := c.signup("bob", "b@x.com", "Secret1B")
	require.Equal(t, http.StatusCreated, rr.Code)
	bobKey, _ := bob["api_key"].(string)
	_, body = c.login("bob", "Secret1B")
	bobToken, _ := body["access_token"].(string)

	unauthorized := []struct {
		name   string
		token  string
		apiKey string
	}{
		{"token only", aliceToken, ""},
		{"api key only", "", aliceKey},
		{"fabricated api key", aliceToken, "sk_" + strings.Repeat("A", 43)},
		{"garbage token", "not-a-token", aliceKey},
		{"alice token with bob key", aliceToken, bobKey},
		{"bob token with alice key", bobToken, aliceKey},
	}
	for _, tt := range unauthorized {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := c.authed(http.MethodGet, "/tasks", "", tt.token, tt.apiKey)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "Could not validate credentials", body["error"])
		})
	}
}

func TestRouter_TaskLifecycle(t *testing.T) {
	c := testClient{t: t, router: newTestRouter()}

	_, alice := c.signup("alice", "a@x.com", "Secret1A")
	aliceKey, _ := alice["api_key"].(string)
	_, body := c.login("alice", "Secret1A")
	aliceToken, _ := body["access_token"].(string)

	_, bob := c.signup("bob", "b@x.com", "Secret1B")
	bobKey, _ := bob["api_key"].(string)
	_, body = c.login("bob", "Secret1B")
	bobToken, _ := body["access_token"].(string)

	rr, task := c.authed(http.MethodPost, "/tasks", `{"title":"Write report","description":"Q3"}`, aliceToken, aliceKey)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "pending", task["status"])
	id := strconv.FormatInt(int64(task["id"].(float64)), 10)

	rr, _ = c.authed(http.MethodPost, "/tasks", `{"title":"t","description":"d","status":"archived"}`, aliceToken, aliceKey)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, task = c.authed(http.MethodPut, "/tasks/"+id, `{"status":"completed"}`, aliceToken, aliceKey)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "completed", task["status"])
	assert.Equal(t, "Write report", task["title"])

	// Another account cannot see the task
	rr, body = c.authed(http.MethodGet, "/tasks/"+id, "", bobToken, bobKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Task not found", body["error"])

	rr, _ = c.authed(http.MethodDelete, "/tasks/"+id, "", aliceToken, aliceKey)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = c.authed(http.MethodGet, "/tasks/"+id, "", aliceToken, aliceKey)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
