package sheets

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scmdash/model"
	"scmdash/upstream"
)

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient("  ", nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestReadTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "read", r.URL.Query().Get("action"))
		switch r.URL.Query().Get("table") {
		case "demanda":
			w.Write([]byte(`[{"codigo":"PC1","stock":"10"},"junk",{"codigo":"PC2"}]`))
		case "licitaciones":
			w.Write([]byte(`{"ok":true,"data":[{"id":"1"}]}`))
		default:
			w.Write([]byte(`{"ok":false,"error":"unknown table"}`))
		}
	}))
	defer srv.Close()
	c, err := NewClient(srv.URL+"/exec", srv.Client(), zap.NewNop())
	require.NoError(t, err)

	rows, err := c.ReadTable(t.Context(), "demanda")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PC1", rows[0]["codigo"])

	rows, err = c.ReadTable(t.Context(), "licitaciones")
	require.NoError(t, err)
	assert.Equal(t, []model.Row{{"id": "1"}}, rows)

	_, err = c.ReadTable(t.Context(), "nope")
	assert.ErrorContains(t, err, "unknown table")
}

func TestReadTableUpstreamFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("table") {
		case "captcha":
			w.Write([]byte(`<!doctype html><p>captcha required</p>`))
		case "down":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`plain text`))
		}
	}))
	defer srv.Close()
	c, _ := NewClient(srv.URL, srv.Client(), zap.NewNop())

	_, err := c.ReadTable(t.Context(), "captcha")
	assert.ErrorIs(t, err, upstream.ErrBlocked)

	_, err = c.ReadTable(t.Context(), "down")
	var se *upstream.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Status)

	_, err = c.ReadTable(t.Context(), "text")
	assert.ErrorContains(t, err, "not JSON")
}

func TestMutations(t *testing.T) {
	var got []mutation
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var m mutation
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		got = append(got, m)
		if m.ID == "missing" {
			w.Write([]byte(`{"ok":false,"error":"Row not found"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()
	c, _ := NewClient(srv.URL, srv.Client(), zap.NewNop())

	created, err := c.WriteRow(t.Context(), "comunicaciones", model.Row{"asunto": "hola"})
	require.NoError(t, err)
	assert.NotEmpty(t, RowID(created))
	assert.Equal(t, "hola", created["asunto"])

	updated, err := c.UpdateRow(t.Context(), "comunicaciones", "abc", model.Row{"asunto": "x"})
	require.NoError(t, err)
	assert.Equal(t, "abc", updated["id"])

	require.NoError(t, c.DeleteRow(t.Context(), "comunicaciones", "abc"))
	assert.ErrorIs(t, c.DeleteRow(t.Context(), "comunicaciones", "missing"), ErrRowNotFound)

	require.Len(t, got, 4)
	assert.Equal(t, "create", got[0].Action)
	assert.Equal(t, "update", got[1].Action)
	assert.Equal(t, "abc", got[1].ID)
	assert.Equal(t, "delete", got[2].Action)
}

func TestWithIDKeepsExistingID(t *testing.T) {
	in := model.Row{"ID": "7"}
	out := WithID(in)
	assert.Equal(t, "7", RowID(out))
	_, hasLower := out["id"]
	assert.False(t, hasLower)

	fresh := WithID(model.Row{})
	assert.Len(t, RowID(fresh), 36)
}
