package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"polyglot-chat/internal/model"
	"polyglot-chat/internal/service"
	"polyglot-chat/pkg/llm"
	"polyglot-chat/pkg/translate"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu     sync.Mutex
	turns  []model.ChatTurn
	nextID uint
	down   bool
}

func (r *memoryRepo) EnsureSchema(context.Context) error { return nil }

func (r *memoryRepo) Append(_ context.Context, turn *model.ChatTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errors.New("database unreachable")
	}
	r.nextID++
	turn.ID = r.nextID
	turn.CreatedAt = time.Date(2024, 5, 1, 10, 0, int(r.nextID), 0, time.UTC)
	r.turns = append(r.turns, *turn)
	return nil
}

func (r *memoryRepo) ListAll(context.Context) ([]model.ChatTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errors.New("database unreachable")
	}
	return append([]model.ChatTurn{}, r.turns...), nil
}

func (r *memoryRepo) ClearAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = nil
	return nil
}

// prefixTranslator 识别 "Bonjour" 开头的文本为法语，其余为英语。
type prefixTranslator struct{}

func (prefixTranslator) Detect(_ context.Context, text string) (string, error) {
	switch {
	case strings.HasPrefix(text, "Bonjour"):
		return "fr", nil
	case strings.HasPrefix(text, "???"):
		return "", translate.ErrUnrecognized
	}
	return "en", nil
}

func (prefixTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	return "[" + target + "]" + text, nil
}

type stubModel struct {
	err error
}

func (m *stubModel) Complete(_ context.Context, prompt string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "echo: " + prompt, nil
}

type memoryStore struct{}

func (memoryStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return "mem://" + name, err
}

type testServer struct {
	repo   *memoryRepo
	model  *stubModel
	router *gin.Engine
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	repo := &memoryRepo{}
	m := &stubModel{}
	chatSvc := service.NewChatService(prefixTranslator{}, m, repo, nil, "en")
	historySvc := service.NewHistoryService(repo, nil)
	exportSvc := service.NewExportService(repo, service.ExportOptions{Title: "AI Chat History"})
	uploadSvc := service.NewUploadService(memoryStore{}, repo, nil, "en", 1<<20)
	router := NewRouter(NewChatHandler(chatSvc), NewHistoryHandler(historySvc, exportSvc), NewUploadHandler(uploadSvc))
	return &testServer{repo: repo, model: m, router: router}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) chat(t *testing.T, message string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"message": message})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func (s *testServer) history(t *testing.T) []map[string]string {
	t.Helper()
	w := s.do(httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"Backend running"}`, w.Body.String())
}

func TestChatEnglishPassthrough(t *testing.T) {
	s := newTestServer()
	w, out := s.chat(t, "Hello")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en", out["language"])
	assert.Equal(t, "echo: Hello", out["response"])
	_, err := time.Parse(time.RFC3339, out["timestamp"])
	assert.NoError(t, err)
}

func TestChatFrenchRoundTrip(t *testing.T) {
	s := newTestServer()
	w, out := s.chat(t, "Bonjour")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fr", out["language"])
	assert.Equal(t, "[fr]echo: [en]Bonjour", out["response"])
}

func TestHistoryAfterNChatsHasTwoNTurns(t *testing.T) {
	s := newTestServer()
	const n = 3
	for i := 0; i < n; i++ {
		w, _ := s.chat(t, "Hello")
		require.Equal(t, http.StatusOK, w.Code)
	}

	turns := s.history(t)
	require.Len(t, turns, 2*n)
	for i, turn := range turns {
		want := "user"
		if i%2 == 1 {
			want = "assistant"
		}
		assert.Equal(t, want, turn["role"])
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, turn["timestamp"])
	}
}

func TestChatBlankMessageIsRejected(t *testing.T) {
	s := newTestServer()
	w, out := s.chat(t, "   ")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, out["response"])
	assert.Empty(t, s.history(t))
}

func TestChatMalformedBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatUnrecognizedLanguageIsBadRequest(t *testing.T) {
	s := newTestServer()
	w, _ := s.chat(t, "???")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.history(t))
}

func TestChatModelTimeoutLeavesOnlyUserTurn(t *testing.T) {
	s := newTestServer()
	s.model.err = &llm.Error{Diagnostic: "no completion within 120s", Timeout: true, Err: context.DeadlineExceeded}

	w, out := s.chat(t, "Hello")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, out["response"], "timed out")

	turns := s.history(t)
	require.Len(t, turns, 1)
	assert.Equal(t, "user", turns[0]["role"])
}

func TestChatStorageFailure(t *testing.T) {
	s := newTestServer()
	s.repo.down = true
	w, _ := s.chat(t, "Hello")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestClearHistory(t *testing.T) {
	s := newTestServer()
	s.chat(t, "Hello")

	w := s.do(httptest.NewRequest(http.MethodPost, "/clear-history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"History cleared"}`, w.Body.String())
	assert.Empty(t, s.history(t))
}

func TestSearchDisabled(t *testing.T) {
	s := newTestServer()
	w := s.do(httptest.NewRequest(http.MethodGet, "/history/search?q=hello", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDownloadPDF(t *testing.T) {
	s := newTestServer()
	s.chat(t, "Hello")

	w := s.do(httptest.NewRequest(http.MethodGet, "/download-pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename=chat_\d{8}_\d{6}\.pdf$`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestDownloadPDFStorageFailure(t *testing.T) {
	s := newTestServer()
	s.repo.down = true
	w := s.do(httptest.NewRequest(http.MethodGet, "/download-pdf", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func multipartRequest(t *testing.T, field, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	s := newTestServer()
	w := s.do(multipartRequest(t, "file", "notes.txt", "hello"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"response":"File 'notes.txt' uploaded successfully"}`, w.Body.String())

	turns := s.history(t)
	require.Len(t, turns, 2)
	assert.Equal(t, "Uploaded file: notes.txt", turns[0]["message"])
	assert.Equal(t, "file", turns[0]["language"])
}

func TestUploadWithoutFile(t *testing.T) {
	s := newTestServer()
	w := s.do(multipartRequest(t, "other", "notes.txt", "hello"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"response":"No file received"}`, w.Body.String())
	assert.Empty(t, s.history(t))
}

func TestUploadInvalidName(t *testing.T) {
	s := newTestServer()
	w := s.do(multipartRequest(t, "file", "..", "hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
