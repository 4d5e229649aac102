package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickshare/quickshare/pkg/config"
)

type roomState struct {
	Code     string `json:"code"`
	Identity string `json:"identity"`
	Host     string `json:"host"`
	Files    []struct {
		OriginalName string `json:"original_name"`
		Sender       string `json:"sender"`
	} `json:"files"`
	History []struct {
		Identity string `json:"identity"`
		Action   string `json:"action"`
	} `json:"history"`
	Timer struct {
		Valid bool `json:"valid"`
	} `json:"timer"`
}

func parseRoomState(t *testing.T, rec *httptest.ResponseRecorder) roomState {
	t.Helper()
	var state roomState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

// createRoom posts /create-room and returns the room state plus the
// identity cookie for follow-up requests from the same "browser".
func createRoom(t *testing.T, env *testEnv) (roomState, string) {
	t.Helper()
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/create-room", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "create-room must set an identity cookie")

	var cookie string
	for _, c := range cookies {
		if c.Name == "qs_identity" {
			cookie = c.Name + "=" + c.Value
		}
	}
	require.NotEmpty(t, cookie)

	return parseRoomState(t, rec), cookie
}

func (e *testEnv) roomUpload(t *testing.T, code, cookie string, files []formFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/room/"+code, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cookie", cookie)
	return e.do(t, req)
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t, nil)

	state, _ := createRoom(t, env)
	assert.Len(t, state.Code, 6)
	assert.NotEmpty(t, state.Identity)
	assert.Equal(t, state.Identity, state.Host)
	assert.True(t, state.Timer.Valid)

	require.Len(t, state.History, 1)
	assert.Equal(t, "created the room", state.History[0].Action)
	assert.Equal(t, state.Host, state.History[0].Identity)
}

func TestIdentityCookieIsReused(t *testing.T) {
	env := newTestEnv(t, nil)

	first, cookie := createRoom(t, env)

	req := httptest.NewRequest(http.MethodPost, "/create-room", nil)
	req.Header.Set("Cookie", cookie)
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	second := parseRoomState(t, rec)
	assert.Equal(t, first.Identity, second.Identity)
}

func TestRoomUploadAppends(t *testing.T) {
	env := newTestEnv(t, nil)

	state, cookie := createRoom(t, env)

	rec := env.roomUpload(t, state.Code, cookie, []formFile{{"a.txt", "alpha"}})
	require.Equal(t, http.StatusOK, rec.Code)

	// A second post appends rather than replaces.
	rec = env.roomUpload(t, state.Code, cookie, []formFile{{"b.txt", "beta"}})
	require.Equal(t, http.StatusOK, rec.Code)

	got := parseRoomState(t, rec)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "a.txt", got.Files[0].OriginalName)
	assert.Equal(t, "b.txt", got.Files[1].OriginalName)
	assert.Equal(t, state.Identity, got.Files[0].Sender)

	// History is newest first: shares on top, creation at the bottom.
	require.Len(t, got.History, 3)
	assert.Equal(t, "shared b.txt", got.History[0].Action)
	assert.Equal(t, "shared a.txt", got.History[1].Action)
	assert.Equal(t, "created the room", got.History[2].Action)

	// Room blobs carry the timestamped naming convention.
	for _, name := range env.diskFiles(t) {
		assert.Regexp(t, `^\d{6}_\d+_`, name)
	}
}

func TestRoomDownloadByIndex(t *testing.T) {
	env := newTestEnv(t, nil)

	state, cookie := createRoom(t, env)
	rec := env.roomUpload(t, state.Code, cookie, []formFile{{"notes.txt", "room content"}})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/download/"+state.Code+"/0", nil)
	req.Header.Set("Cookie", cookie)
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "room content", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "notes.txt")
}

func TestJoinRoom(t *testing.T) {
	env := newTestEnv(t, nil)

	state, _ := createRoom(t, env)

	// A different browser (no cookie) joins by code.
	form := url.Values{"code": {state.Code}}
	req := httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	joined := parseRoomState(t, rec)
	assert.Equal(t, state.Code, joined.Code)
	assert.NotEqual(t, state.Identity, joined.Identity)
	require.NotEmpty(t, joined.History)
	assert.Equal(t, "joined the room", joined.History[0].Action)
}

func TestJoinUnknownCode(t *testing.T) {
	env := newTestEnv(t, nil)

	form := url.Values{"code": {"000000"}}
	req := httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJoinRejectsNonRoomCode(t *testing.T) {
	env := newTestEnv(t, nil)

	// A base-variant upload code is not a room.
	code, _ := env.upload(t, []formFile{{"a.txt", "x"}})

	form := url.Values{"code": {code}}
	req := httptest.NewRequest(http.MethodPost, "/join", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomUploadAggregateCeilingKeepsEarlierFiles(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Limits.MaxTotalBytes = 100000
	})

	state, cookie := createRoom(t, env)

	rec := env.roomUpload(t, state.Code, cookie, []formFile{{"first.bin", strings.Repeat("a", 60000)}})
	require.Equal(t, http.StatusOK, rec.Code)

	// The second batch would push the room past the ceiling; only that
	// batch is rolled back, the room and its first file survive.
	rec = env.roomUpload(t, state.Code, cookie, []formFile{{"second.bin", strings.Repeat("b", 60000)}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/room/"+state.Code, nil)
	req.Header.Set("Cookie", cookie)
	rec = env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got := parseRoomState(t, rec)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "first.bin", got.Files[0].OriginalName)

	names := env.diskFiles(t)
	require.Len(t, names, 1)
	assert.True(t, bytes.HasPrefix([]byte(names[0]), []byte(state.Code)))
}

func TestRoomStateUnknownCode(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/room/000000", nil)
	rec := env.do(t, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomTimer(t *testing.T) {
	env := newTestEnv(t, nil)

	state, cookie := createRoom(t, env)

	req := httptest.NewRequest(http.MethodGet, "/api/timer/"+state.Code, nil)
	req.Header.Set("Cookie", cookie)
	rec := env.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
}
