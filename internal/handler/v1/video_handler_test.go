package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
)

func videoPayload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

// storeVideo uploads payload through the API and returns its URL.
func storeVideo(t *testing.T, env *testEnv, token, id, date string, payload []byte) string {
	t.Helper()
	w := env.do(t, uploadRequest(t, uploadForm{
		consultationID: id,
		date:           date,
		contentType:    "video/webm",
		video:          payload,
	}), token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return "/api/v1/videos/" + date + "/" + id + ".webm"
}

func TestStreamVideo_UploadThenFullFetch(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.token(t, domain.RoleDoctor, "APH")
	payload := videoPayload(10_000)
	url := storeVideo(t, env, token, idA, "15-03-2024", payload)

	w := env.do(t, httptest.NewRequest(http.MethodGet, url, nil), token)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
	assert.Equal(t, strconv.Itoa(len(payload)), w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/webm", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=0", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))
}

func TestStreamVideo_Ranges(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.token(t, domain.RoleDoctor, "APH")
	payload := videoPayload(1000)
	n := len(payload)
	url := storeVideo(t, env, token, idA, "15-03-2024", payload)

	cases := []struct {
		name       string
		rangeHdr   string
		wantStatus int
		wantBody   []byte
		wantRange  string
	}{
		{"closed range", "bytes=100-199", http.StatusPartialContent, payload[100:200], fmt.Sprintf("bytes 100-199/%d", n)},
		{"open ended", "bytes=100-", http.StatusPartialContent, payload[100:], fmt.Sprintf("bytes 100-%d/%d", n-1, n)},
		{"suffix", "bytes=-10", http.StatusPartialContent, payload[n-10:], fmt.Sprintf("bytes %d-%d/%d", n-10, n-1, n)},
		{"end past file is clamped", "bytes=990-5000", http.StatusPartialContent, payload[990:], fmt.Sprintf("bytes 990-%d/%d", n-1, n)},
		{"malformed falls back to full", "bytes=abc", http.StatusOK, payload, ""},
		{"multi range falls back to full", "bytes=0-1,5-6", http.StatusOK, payload, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, url, nil)
			req.Header.Set("Range", tc.rangeHdr)
			w := env.do(t, req, token)

			require.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantBody, w.Body.Bytes())
			assert.Equal(t, strconv.Itoa(len(tc.wantBody)), w.Header().Get("Content-Length"))
			assert.Equal(t, tc.wantRange, w.Header().Get("Content-Range"))
		})
	}
}

func TestStreamVideo_UnsatisfiableRange(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.token(t, domain.RoleDoctor, "APH")
	url := storeVideo(t, env, token, idA, "15-03-2024", videoPayload(1000))

	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Range", "bytes=1000-")
	w := env.do(t, req, token)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */1000", w.Header().Get("Content-Range"))
	body := decode[ErrorResponse](t, w.Body)
	assert.False(t, body.Success)
}

func TestStreamVideo_HeadRequest(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.token(t, domain.RoleDoctor, "APH")
	url := storeVideo(t, env, token, idA, "15-03-2024", videoPayload(1000))

	w := env.do(t, httptest.NewRequest(http.MethodHead, url, nil), token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000", w.Header().Get("Content-Length"))
	assert.Zero(t, w.Body.Len())

	req := httptest.NewRequest(http.MethodHead, url, nil)
	req.Header.Set("Range", "bytes=0-99")
	w = env.do(t, req, token)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "100", w.Header().Get("Content-Length"))
	assert.Zero(t, w.Body.Len())

	missing := httptest.NewRequest(http.MethodHead, "/api/v1/videos/15-03-2024/"+idB+".webm", nil)
	w = env.do(t, missing, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamVideo_SeekingAuditsOnePlayback(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.token(t, domain.RoleDoctor, "APH")
	url := storeVideo(t, env, token, idA, "15-03-2024", videoPayload(1000))

	for _, rangeHdr := range []string{"bytes=0-", "bytes=200-399", "bytes=400-", "bytes=-100", "bytes=900-999"} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("Range", rangeHdr)
		w := env.do(t, req, token)
		require.Equal(t, http.StatusPartialContent, w.Code, rangeHdr)
	}
	w := env.do(t, httptest.NewRequest(http.MethodHead, url, nil), token)
	require.Equal(t, http.StatusOK, w.Code)

	streams := 0
	for _, a := range env.auditActions(t) {
		if a == domain.ActionStream {
			streams++
		}
	}
	assert.Equal(t, 1, streams)
}

func TestStreamVideo_MissingFileLeaksNoPath(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	token := env.token(t, domain.RoleDoctor, "APH")
	storeVideo(t, env, token, idA, "15-03-2024", videoPayload(10))

	for _, url := range []string{
		"/api/v1/videos/15-03-2024/" + idB + ".webm",
		"/api/v1/videos/16-03-2024/" + idA + ".webm",
		"/api/v1/videos/2024-03-15/" + idA + ".webm",
		"/api/v1/videos/15-03-2024/..",
		"/api/v1/videos/15-03-2024/.hidden.webm",
	} {
		w := env.do(t, httptest.NewRequest(http.MethodGet, url, nil), token)
		assert.Equal(t, http.StatusNotFound, w.Code, url)
		assert.NotContains(t, w.Body.String(), env.root, url)
		assert.NotContains(t, w.Body.String(), "videos/", url)

		body := decode[ErrorResponse](t, bytes.NewReader(w.Body.Bytes()))
		assert.False(t, body.Success)
		assert.Equal(t, "video not found", body.Message)
	}
}

func TestStreamVideo_RequiresToken(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/videos/15-03-2024/"+idA+".webm", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/videos/15-03-2024/"+idA+".webm", nil), "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode[ErrorResponse](t, w.Body).Success)
}

func TestStreamVideo_ScopeEnforcement(t *testing.T) {
	date := time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local)

	t.Run("off by default", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		env.seed(t, idA, "OtherSite", date)
		url := storeVideo(t, env, env.token(t, domain.RoleDoctor, "OtherSite"), idA, "15-03-2024", videoPayload(10))

		w := env.do(t, httptest.NewRequest(http.MethodGet, url, nil), env.token(t, domain.RoleDoctor, "APH"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("enforced", func(t *testing.T) {
		env := newTestEnv(t, envOptions{scopeEnforced: true})
		env.seed(t, idA, "OtherSite", date)
		url := storeVideo(t, env, env.token(t, domain.RoleDoctor, "OtherSite"), idA, "15-03-2024", videoPayload(10))

		w := env.do(t, httptest.NewRequest(http.MethodGet, url, nil), env.token(t, domain.RoleDoctor, "APH"))
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, httptest.NewRequest(http.MethodGet, url, nil), env.token(t, domain.RoleDoctor, "othersite"))
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, httptest.NewRequest(http.MethodGet, url, nil), env.token(t, domain.RoleDoctor, "OtherSite"))
		assert.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, httptest.NewRequest(http.MethodGet, url, nil), env.token(t, domain.RoleAdmin, ""))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
