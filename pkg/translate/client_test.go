package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"polyglot-chat/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibreServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/detect", func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Q {
		case "Bonjour":
			_ = json.NewEncoder(w).Encode([]detection{{Language: "en", Confidence: 10}, {Language: "FR", Confidence: 92}})
		case "???":
			_ = json.NewEncoder(w).Encode([]detection{})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
		}
	})
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "k", req.APIKey)
		if req.Target == "xx" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(translateResponse{Error: "xx is not supported"})
			return
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: req.Source + ">" + req.Target + ":" + req.Q})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientDetectPicksMostConfident(t *testing.T) {
	srv := newLibreServer(t)
	c := NewHTTPClient(config.TranslationConfig{BaseURL: srv.URL + "/", APIKey: "k", Timeout: time.Second})

	lang, err := c.Detect(context.Background(), "Bonjour")
	require.NoError(t, err)
	assert.Equal(t, "fr", lang)
}

func TestHTTPClientDetectUnrecognized(t *testing.T) {
	srv := newLibreServer(t)
	c := NewHTTPClient(config.TranslationConfig{BaseURL: srv.URL, APIKey: "k"})

	_, err := c.Detect(context.Background(), "???")
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestHTTPClientDetectServerError(t *testing.T) {
	srv := newLibreServer(t)
	c := NewHTTPClient(config.TranslationConfig{BaseURL: srv.URL, APIKey: "k"})

	_, err := c.Detect(context.Background(), "anything")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnrecognized)
}

func TestHTTPClientTranslate(t *testing.T) {
	srv := newLibreServer(t)
	c := NewHTTPClient(config.TranslationConfig{BaseURL: srv.URL, APIKey: "k"})

	out, err := c.Translate(context.Background(), "Bonjour", "fr", "en")
	require.NoError(t, err)
	assert.Equal(t, "fr>en:Bonjour", out)

	_, err = c.Translate(context.Background(), "Bonjour", "fr", "xx")
	assert.ErrorIs(t, err, ErrUnsupportedPair)
}

func TestHTTPClientUnreachable(t *testing.T) {
	srv := newLibreServer(t)
	url := srv.URL
	srv.Close()
	c := NewHTTPClient(config.TranslationConfig{BaseURL: url, APIKey: "k"})

	_, err := c.Detect(context.Background(), "Bonjour")
	assert.Error(t, err)
}

func TestSameLanguage(t *testing.T) {
	assert.True(t, SameLanguage("en", "EN"))
	assert.True(t, SameLanguage(" en", "en "))
	assert.False(t, SameLanguage("en", "fr"))
}

type fakeInvoker struct {
	input  *lambda.InvokeInput
	output *lambda.InvokeOutput
	err    error
}

func (f *fakeInvoker) Invoke(_ context.Context, params *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.input = params
	return f.output, f.err
}

type fixedDetector string

func (d fixedDetector) Detect(context.Context, string) (string, error) { return string(d), nil }

func TestLambdaClientTranslate(t *testing.T) {
	payload, _ := json.Marshal(managerResponse{Translations: []string{"Hello"}})
	inv := &fakeInvoker{output: &lambda.InvokeOutput{Payload: payload}}
	c := &lambdaClient{invoker: inv, functionName: "translation-manager", detector: fixedDetector("es")}

	out, err := c.Translate(context.Background(), "Hola", "es", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
	assert.Equal(t, "translation-manager", *inv.input.FunctionName)

	var sent managerRequest
	require.NoError(t, json.Unmarshal(inv.input.Payload, &sent))
	assert.Equal(t, managerRequest{Texts: []string{"Hola"}, SourceLang: "es", TargetLang: "en"}, sent)

	lang, err := c.Detect(context.Background(), "Hola")
	require.NoError(t, err)
	assert.Equal(t, "es", lang)
}

func TestLambdaClientErrors(t *testing.T) {
	fnErr := "Unhandled"
	inv := &fakeInvoker{output: &lambda.InvokeOutput{FunctionError: &fnErr}}
	c := &lambdaClient{invoker: inv, functionName: "f", detector: fixedDetector("es")}
	_, err := c.Translate(context.Background(), "Hola", "es", "en")
	assert.ErrorContains(t, err, "Unhandled")

	payload, _ := json.Marshal(managerResponse{Error: "no translator for ru→en"})
	inv.output = &lambda.InvokeOutput{Payload: payload}
	_, err = c.Translate(context.Background(), "Привет", "ru", "en")
	assert.ErrorIs(t, err, ErrUnsupportedPair)

	inv.err = errors.New("network down")
	_, err = c.Translate(context.Background(), "Hola", "es", "en")
	assert.ErrorContains(t, err, "network down")
}
