package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"sparknote/internal/note"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return New(note.NewRegistry(nil), nil).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

const testSecretHex = "0102030405060708"

func createNote(t *testing.T, router *gin.Engine, id string, value uint64) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/v1/notes", gin.H{
		"id": id, "value": value, "secret": testSecretHex,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

func TestCreateNote(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/v1/notes", gin.H{
		"id": "n1", "value": 1000, "secret": testSecretHex,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		ID   string          `json:"id"`
		Note note.PublicNote `json:"note"`
	}
	decode(t, w, &resp)
	require.Equal(t, "n1", resp.ID)
	require.EqualValues(t, 1000, resp.Note.Value)
	require.Len(t, resp.Note.Commitment, 32)
	require.NotContains(t, w.Body.String(), testSecretHex, "secret must not echo back")
}

func TestCreateNoteValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/v1/notes", gin.H{
		"value": 1000, "secret": "01020304", // 4 bytes
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	require.Equal(t, note.CodeSecretTooShort, resp.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/notes", gin.H{
		"value": 0, "secret": testSecretHex,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &resp)
	require.Equal(t, note.CodeValueZero, resp.Code)
}

func TestCreateNoteDuplicateID(t *testing.T) {
	router := newTestRouter(t)
	createNote(t, router, "dup", 1)
	w := doJSON(t, router, http.MethodPost, "/v1/notes", gin.H{
		"id": "dup", "value": 2, "secret": testSecretHex,
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestGetNote(t *testing.T) {
	router := newTestRouter(t)
	id := createNote(t, router, "", 42)

	w := doJSON(t, router, http.MethodGet, "/v1/notes/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entry note.Entry
	decode(t, w, &entry)
	require.Equal(t, id, entry.ID)
	require.Equal(t, note.StateUnspent, entry.State)

	w = doJSON(t, router, http.MethodGet, "/v1/notes/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveNote(t *testing.T) {
	router := newTestRouter(t)
	id := createNote(t, router, "", 42)

	w := doJSON(t, router, http.MethodDelete, "/v1/notes/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/v1/notes/"+id, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSpendLifecycle(t *testing.T) {
	router := newTestRouter(t)
	id := createNote(t, router, "", 1000)

	// Spending before nullifier generation must fail.
	w := doJSON(t, router, http.MethodPost, "/v1/notes/"+id+"/spend", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/notes/"+id+"/nullifier", gin.H{
		"secret": testSecretHex,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var nfResp struct {
		Nullifier string `json:"nullifier"`
	}
	decode(t, w, &nfResp)
	require.Len(t, nfResp.Nullifier, 64)

	w = doJSON(t, router, http.MethodPost, "/v1/notes/"+id+"/spend", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Double spend.
	w = doJSON(t, router, http.MethodPost, "/v1/notes/"+id+"/spend", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/nullifiers/"+nfResp.Nullifier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		Spent bool `json:"spent"`
	}
	decode(t, w, &check)
	require.True(t, check.Spent)
}

func TestGenerateNullifierWrongSecret(t *testing.T) {
	router := newTestRouter(t)
	id := createNote(t, router, "", 1000)

	w := doJSON(t, router, http.MethodPost, "/v1/notes/"+id+"/nullifier", gin.H{
		"secret": "0909090909090909",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	var resp errorResponse
	decode(t, w, &resp)
	require.Equal(t, note.CodeOperation, resp.Code)
}

func TestCheckNullifierValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/v1/nullifiers/abcd", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/v1/nullifiers/zz", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchCheckAndSpend(t *testing.T) {
	router := newTestRouter(t)
	h1 := hex.EncodeToString(bytes.Repeat([]byte{1}, 32))
	h2 := hex.EncodeToString(bytes.Repeat([]byte{2}, 32))

	w := doJSON(t, router, http.MethodPost, "/v1/nullifiers/spend", gin.H{
		"nullifiers": []string{h1, h2},
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/nullifiers/check", gin.H{
		"nullifiers": []string{h1, h2},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		Spent []bool `json:"spent"`
	}
	decode(t, w, &check)
	require.Equal(t, []bool{true, true}, check.Spent)

	// A batch containing a spent member is rejected whole.
	h3 := hex.EncodeToString(bytes.Repeat([]byte{3}, 32))
	w = doJSON(t, router, http.MethodPost, "/v1/nullifiers/spend", gin.H{
		"nullifiers": []string{h1, h3},
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/nullifiers/check", gin.H{
		"nullifiers": []string{h3},
	})
	decode(t, w, &check)
	require.Equal(t, []bool{false}, check.Spent, "failed batch must not record anything")
}

func TestExportImport(t *testing.T) {
	router := newTestRouter(t)
	for i := 1; i <= 3; i++ {
		h := hex.EncodeToString(bytes.Repeat([]byte{byte(i)}, 32))
		w := doJSON(t, router, http.MethodPost, "/v1/nullifiers/spend", gin.H{
			"nullifiers": []string{h},
		})
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/v1/spentset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exported := w.Body.Bytes()

	var wire struct {
		Version    uint32   `json:"version"`
		Nullifiers []string `json:"nullifiers"`
	}
	require.NoError(t, json.Unmarshal(exported, &wire))
	require.EqualValues(t, 1, wire.Version)
	require.Len(t, wire.Nullifiers, 3)

	// Import into a fresh server.
	other := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/spentset", bytes.NewReader(exported))
	rec := httptest.NewRecorder()
	other.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var imp struct {
		Imported int `json:"imported"`
		Added    int `json:"added"`
	}
	decode(t, rec, &imp)
	require.Equal(t, 3, imp.Imported)
	require.Equal(t, 3, imp.Added)

	w = doJSON(t, other, http.MethodGet, "/v1/spentset/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats note.Stats
	decode(t, w, &stats)
	require.EqualValues(t, 3, stats.Count)
}

func TestImportUnsupportedVersion(t *testing.T) {
	router := newTestRouter(t)
	body := []byte(fmt.Sprintf(`{"version":2,"nullifiers":["%s"]}`,
		hex.EncodeToString(bytes.Repeat([]byte{1}, 32))))
	req := httptest.NewRequest(http.MethodPost, "/v1/spentset", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotes(t *testing.T) {
	router := newTestRouter(t)
	createNote(t, router, "a", 1)
	createNote(t, router, "b", 2)

	w := doJSON(t, router, http.MethodGet, "/v1/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Notes []note.Entry `json:"notes"`
	}
	decode(t, w, &resp)
	require.Len(t, resp.Notes, 2)
}
