package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"polyglot-chat/internal/model"
	"polyglot-chat/pkg/llm"
	"polyglot-chat/pkg/tasks"
)

// memoryRepo 是 TurnRepository 的内存实现。
type memoryRepo struct {
	mu        sync.Mutex
	turns     []model.ChatTurn
	nextID    uint
	appendErr error
	listErr   error
	clearErr  error
	lists     int
	clock     time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clock: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (r *memoryRepo) EnsureSchema(context.Context) error { return nil }

func (r *memoryRepo) Append(_ context.Context, turn *model.ChatTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	turn.ID = r.nextID
	turn.CreatedAt = r.clock
	r.turns = append(r.turns, *turn)
	return nil
}

func (r *memoryRepo) ListAll(context.Context) ([]model.ChatTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]model.ChatTurn, len(r.turns))
	copy(out, r.turns)
	return out, nil
}

func (r *memoryRepo) ClearAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clearErr != nil {
		return r.clearErr
	}
	r.turns = nil
	return nil
}

func (r *memoryRepo) snapshot() []model.ChatTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatTurn, len(r.turns))
	copy(out, r.turns)
	return out
}

type translateCall struct {
	Text, Source, Target string
}

// fakeTranslator 用前缀模拟翻译，便于断言调用链路。
type fakeTranslator struct {
	mu           sync.Mutex
	languages    map[string]string
	detectErr    error
	translateErr map[string]error // key: target language
	calls        []translateCall
}

func (f *fakeTranslator) Detect(_ context.Context, text string) (string, error) {
	if f.detectErr != nil {
		return "", f.detectErr
	}
	if lang, ok := f.languages[text]; ok {
		return lang, nil
	}
	return "en", nil
}

func (f *fakeTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, translateCall{Text: text, Source: source, Target: target})
	f.mu.Unlock()
	if err := f.translateErr[target]; err != nil {
		return "", err
	}
	return "[" + target + "]" + text, nil
}

// fakeModel 记录收到的 prompt。
type fakeModel struct {
	prompts []string
	reply   string
	err     error
}

func (m *fakeModel) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	tasks []tasks.TurnIndexTask
	err   error
}

func (p *recordingPublisher) PublishTurn(_ context.Context, task tasks.TurnIndexTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = append(p.tasks, task)
	return p.err
}

type memoryStore struct {
	saved map[string]string
	err   error
}

func (s *memoryStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if s.saved == nil {
		s.saved = map[string]string{}
	}
	s.saved[name] = string(data)
	return "mem://" + name, nil
}

var (
	errDown    = errors.New("connection refused")
	errTimeout = &llm.Error{Diagnostic: "no completion within 120s", Timeout: true, Err: context.DeadlineExceeded}
)
