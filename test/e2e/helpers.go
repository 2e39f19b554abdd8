//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/api/handlers"
	"github.com/lectern-ai/lectern/internal/repository"
	"github.com/lectern-ai/lectern/internal/server"
	"github.com/lectern-ai/lectern/internal/service"
	"github.com/lectern-ai/lectern/internal/testutil"
)

const embeddingDimensions = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Ingest       *service.IngestService
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a pgvector container
// and an in-process server backed by deterministic model fakes.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	catalogRepo := repository.NewCatalogRepository(pool)
	contentRepo := repository.NewContentRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	embedder := &wordHashEmbedder{}
	searchSvc := service.NewSearchService(catalogRepo, contentRepo, embedder, 5)
	ingestSvc := service.NewIngestService(catalogRepo, embedder, txRunner, service.DefaultChunkConfig())

	registry := service.NewToolRegistry()
	registry.Register(service.NewSearchTool(searchSvc))

	generator := service.NewGenerator(&scriptedChatClient{}, registry)
	sessions := service.NewSessionStore(2)
	assistant := service.NewAssistant(generator, sessions, searchSvc)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, assistant, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		Ingest:       ingestSvc,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	waitForServer(t, serverURL+"/health", 10*time.Second)
	return env
}

// Cleanup releases the environment's resources.
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse is a decoded API reply
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage
	Error      string
}

func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Data:       envelope.Data,
		Error:      envelope.Error,
	}, nil
}

func startServer(t *testing.T, assistant *service.Assistant, port int) (string, func()) {
	router := server.NewRouter(server.RouterConfig{
		QueryHandler:   handlers.NewQueryHandler(assistant),
		CoursesHandler: handlers.NewCoursesHandler(assistant),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}

	return fmt.Sprintf("http://localhost:%d", port), closer
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become ready within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// wordHashEmbedder produces deterministic bag-of-words vectors so cosine
// similarity follows word overlap. Texts sharing vocabulary land close
// together, which is all retrieval needs here.
type wordHashEmbedder struct{}

func (e *wordHashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;()[]\"'")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%embeddingDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// scriptedChatClient drives the two-call protocol without a model provider.
// With tools available it requests one search for the user query; without
// tools it answers from the first tool turn it finds.
type scriptedChatClient struct{}

func (c *scriptedChatClient) CreateResponse(ctx context.Context, input service.ChatInput) (*service.ModelResponse, error) {
	if len(input.Tools) > 0 {
		if strings.HasPrefix(strings.ToLower(input.Query), "hello") {
			return &service.ModelResponse{Text: "Hello! Ask me about the courses."}, nil
		}
		args, err := json.Marshal(map[string]string{"query": input.Query})
		if err != nil {
			return nil, err
		}
		return &service.ModelResponse{
			ToolCalls: []service.ToolCallRequest{
				{ID: "call_1", Name: "search_course_content", Arguments: args},
			},
		}, nil
	}

	for _, turn := range input.Turns {
		if turn.Role == service.RoleTool {
			return &service.ModelResponse{Text: "Based on the course material: " + turn.Content}, nil
		}
	}
	return &service.ModelResponse{Text: "I could not find anything relevant."}, nil
}
