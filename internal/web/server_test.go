package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/arogya/internal/camera"
	"github.com/vbonduro/arogya/internal/domain"
	"github.com/vbonduro/arogya/internal/inference"
	"github.com/vbonduro/arogya/internal/session"
)

type clientFunc func(ctx context.Context, req inference.Request) (*inference.Response, error)

func (f clientFunc) Generate(ctx context.Context, req inference.Request) (*inference.Response, error) {
	return f(ctx, req)
}

func reply(text string) clientFunc {
	return func(context.Context, inference.Request) (*inference.Response, error) {
		return &inference.Response{Candidates: []inference.Candidate{{Parts: []string{text}}}}, nil
	}
}

type fakeStream struct{ frame image.Image }

func (s *fakeStream) Frame() (image.Image, error) { return s.frame, nil }
func (s *fakeStream) Stop() error                 { return nil }

type fakeDevices struct {
	mu     sync.Mutex
	opened []domain.FacingMode
}

func (d *fakeDevices) Open(_ context.Context, facing domain.FacingMode) (camera.Stream, error) {
	d.mu.Lock()
	d.opened = append(d.opened, facing)
	d.mu.Unlock()
	return &fakeStream{frame: image.NewRGBA(image.Rect(0, 0, 32, 24))}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// harness is a running server plus a cookie-keeping client.
type harness struct {
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T, client inference.Client, devices camera.MediaDevices) *harness {
	t.Helper()
	registry := session.NewRegistry(client, devices, time.Hour, nil)
	srv := httptest.NewServer(NewServer(registry, 1<<20, nil))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{srv: srv, client: &http.Client{Jar: jar}}
}

func (h *harness) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) upload(t *testing.T, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "lesion.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return h.do(t, http.MethodPost, "/image", &body, mw.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})

	resp := h.do(t, http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestSessionCookieIsReused(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})

	first := decode[map[string]string](t, h.do(t, http.MethodPost, "/session", nil, ""))
	second := decode[map[string]string](t, h.do(t, http.MethodPost, "/session", nil, ""))

	require.NotEmpty(t, first["session_id"])
	assert.Equal(t, first["session_id"], second["session_id"])
}

func TestEndSessionStartsFresh(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})
	require.Equal(t, http.StatusOK, h.upload(t, pngBytes(t)).StatusCode)

	resp := h.do(t, http.MethodDelete, "/session", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/image", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadAndFetchImage(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})
	data := pngBytes(t)

	resp := h.upload(t, data)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[imageView](t, resp)
	assert.Equal(t, "image/png", view.MIMEType)
	assert.Equal(t, domain.OriginFile, view.Origin)
	assert.Equal(t, len(data), view.Size)

	resp = h.do(t, http.MethodGet, "/image", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUploadRejectsNonImage(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})

	resp := h.upload(t, []byte("%PDF-1.4 not an image"))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "invalid_image", body.Error.Kind)
	assert.Equal(t, "The selected file is not a supported image.", body.Error.Message)
}

func TestUploadRequiresImageField(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())

	resp := h.do(t, http.MethodPost, "/image", &body, mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeWithoutImage(t *testing.T) {
	called := false
	h := newHarness(t, clientFunc(func(context.Context, inference.Request) (*inference.Response, error) {
		called = true
		return nil, nil
	}), camera.NoDevices{})

	resp := h.do(t, http.MethodPost, "/analysis", nil, "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "no_image", body.Error.Kind)
	assert.Equal(t, "Please select an image first", body.Error.Message)
	assert.False(t, called)
}

func TestAnalyzeSucceeds(t *testing.T) {
	h := newHarness(t, reply("Condition: Eczema\nConfidence: 80%\nDescription: Dry patches.\nDisclaimer: Not medical advice."), camera.NoDevices{})
	require.Equal(t, http.StatusOK, h.upload(t, pngBytes(t)).StatusCode)

	resp := h.do(t, http.MethodPost, "/analysis", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[analysisView](t, resp)

	assert.Equal(t, "succeeded", string(view.State))
	require.NotNil(t, view.Result)
	assert.Equal(t, "Eczema", view.Result.Sections.Condition)
	assert.Nil(t, view.Error)
	assert.NotNil(t, view.ImageAt)

	// A new image clears the result.
	require.Equal(t, http.StatusOK, h.upload(t, pngBytes(t)).StatusCode)
	view = decode[analysisView](t, h.do(t, http.MethodGet, "/analysis", nil, ""))
	assert.Equal(t, "idle", string(view.State))
	assert.Nil(t, view.Result)
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name    string
		client  clientFunc
		kind    string
		message string
	}{
		{
			name:    "empty response",
			client:  func(context.Context, inference.Request) (*inference.Response, error) { return &inference.Response{}, nil },
			kind:    "empty_response",
			message: "No analysis received from AI",
		},
		{
			name: "transport failure",
			client: func(context.Context, inference.Request) (*inference.Response, error) {
				return nil, errors.New("connection refused")
			},
			kind:    "transport_failure",
			message: "Analysis failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.client, camera.NoDevices{})
			require.Equal(t, http.StatusOK, h.upload(t, pngBytes(t)).StatusCode)

			resp := h.do(t, http.MethodPost, "/analysis", nil, "")
			assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			assert.Equal(t, tt.kind, body.Error.Kind)
			assert.Equal(t, tt.message, body.Error.Message)

			view := decode[analysisView](t, h.do(t, http.MethodGet, "/analysis", nil, ""))
			assert.Equal(t, "failed", string(view.State))
			require.NotNil(t, view.Error)
			assert.Equal(t, tt.message, view.Error.Message)

			// The image is kept for a retry.
			assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/image", nil, "").StatusCode)
		})
	}
}

func TestCancelAnalysisWhenIdle(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})

	resp := h.do(t, http.MethodDelete, "/analysis", nil, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "idle", string(decode[analysisView](t, resp).State))
}

func TestCameraFlow(t *testing.T) {
	devices := &fakeDevices{}
	h := newHarness(t, reply("ok"), devices)

	resp := h.do(t, http.MethodPost, "/camera/start?facing=user", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[cameraView](t, resp)
	assert.Equal(t, camera.StateLive, view.State)
	assert.Equal(t, domain.FacingFront, view.Facing)

	resp = h.do(t, http.MethodPost, "/camera/switch", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.FacingBack, decode[cameraView](t, resp).Facing)

	resp = h.do(t, http.MethodGet, "/camera/preview", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	resp = h.do(t, http.MethodPost, "/camera/capture", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img := decode[imageView](t, resp)
	assert.Equal(t, domain.OriginCamera, img.Origin)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	state := decode[cameraView](t, h.do(t, http.MethodGet, "/camera/state", nil, ""))
	assert.Equal(t, camera.StateClosed, state.State)

	resp = h.do(t, http.MethodPost, "/camera/capture", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_live", decode[errorResponse](t, resp).Error.Kind)

	assert.Equal(t, []domain.FacingMode{domain.FacingFront, domain.FacingBack}, devices.opened)
}

func TestCameraStartErrors(t *testing.T) {
	h := newHarness(t, reply("ok"), camera.NoDevices{})

	resp := h.do(t, http.MethodPost, "/camera/start?facing=sideways", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/camera/start", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "device_unavailable", body.Error.Kind)
	assert.Equal(t, "Camera not supported on this device.", body.Error.Message)

	resp = h.do(t, http.MethodPost, "/camera/stop", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, camera.StateClosed, decode[cameraView](t, resp).State)
}

func TestChat(t *testing.T) {
	var prompts []string
	var mu sync.Mutex
	h := newHarness(t, clientFunc(func(_ context.Context, req inference.Request) (*inference.Response, error) {
		mu.Lock()
		prompts = append(prompts, req.Prompt())
		mu.Unlock()
		return &inference.Response{Candidates: []inference.Candidate{{Parts: []string{"Acne is caused by clogged pores."}}}}, nil
	}), camera.NoDevices{})

	view := decode[chatView](t, h.do(t, http.MethodGet, "/chat", nil, ""))
	require.Len(t, view.Transcript, 1)
	assert.Equal(t, domain.SpeakerAssistant, view.Transcript[0].Speaker)
	assert.Len(t, view.Suggestions, 2)

	resp := h.do(t, http.MethodPut, "/chat/draft", strings.NewReader(`{"text":"What ca"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "What ca", decode[chatView](t, resp).Draft)

	resp = h.do(t, http.MethodPost, "/chat/messages", strings.NewReader(`{"text":"What causes acne?"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sent struct {
		Reply domain.Turn `json:"reply"`
		Chat  chatView    `json:"chat"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	assert.Equal(t, "Acne is caused by clogged pores.", sent.Reply.Text)
	assert.Len(t, sent.Chat.Transcript, 3)
	assert.Empty(t, sent.Chat.Draft)
	assert.Equal(t, []string{inference.QuestionPrompt("What causes acne?")}, prompts)

	resp = h.do(t, http.MethodPost, "/chat/messages", strings.NewReader(`{"text":"   "}`), "application/json")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/chat/messages", strings.NewReader(`not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, statusFor(domain.KindPermissionDenied))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.KindDeviceUnavailable))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.KindInvalidImage))
	assert.Equal(t, http.StatusBadGateway, statusFor(domain.KindEmptyResponse))
	assert.Equal(t, http.StatusInternalServerError, statusFor("unknown"))
}
