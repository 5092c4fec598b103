package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/", APIKey: "anon", MaxRetries: retries, Backoff: time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestNewRequiresURLAndKey(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}

func TestExecuteBuildsQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`[]`))
	}, 0)

	_, err := c.From("applications").
		Select("*").
		In("id", []string{"a1", "a,2"}).
		OrILike(`re"act`, "name", "app_code").
		Order("updated_at", false).
		Limit(5).
		Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/applications", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "*", q.Get("select"))
	assert.Equal(t, `in.("a1","a,2")`, q.Get("id"))
	assert.Equal(t, `(name.ilike."*re\"act*",app_code.ilike."*re\"act*")`, q.Get("or"))
	assert.Equal(t, "updated_at.desc", q.Get("order"))
	assert.Equal(t, "5", q.Get("limit"))
	assert.Equal(t, "anon", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon", got.Header.Get("Authorization"))
}

func TestExecuteInsertSendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write(body)
	}, 0)

	resp, err := c.From("users").ExecuteInsert(context.Background(), map[string]string{"id": "u1"})
	require.NoError(t, err)
	require.NoError(t, resp.Error())

	var row map[string]string
	require.NoError(t, resp.JSON(&row))
	assert.Equal(t, "u1", row["id"])
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}, 3)

	resp, err := c.From("applications").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"slow down"}`))
	}, 2)

	resp, err := c.From("applications").Execute(context.Background())
	require.NoError(t, err)
	assert.EqualError(t, resp.Error(), "supabase error: slow down")
	assert.True(t, IsStatus(resp.Error(), http.StatusTooManyRequests))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint"}`))
	}, 3)

	resp, err := c.From("applications").ExecuteInsert(context.Background(), map[string]string{})
	require.NoError(t, err)
	var se *StatusError
	require.ErrorAs(t, resp.Error(), &se)
	assert.Equal(t, "23505", se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuthSignIn(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "secret123" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok","user":{"id":"u1","email":"a@example.com"}}`))
	}, 0)

	resp, err := c.Auth().SignIn(context.Background(), "a@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)

	_, err = c.Auth().SignIn(context.Background(), "a@example.com", "wrong")
	assert.EqualError(t, err, "supabase error: Invalid login credentials")
}

func TestAuthSignUpTopLevelUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		w.Write([]byte(`{"id":"u2","email":"b@example.com"}`))
	}, 0)

	resp, err := c.Auth().SignUp(context.Background(), "b@example.com", "secret123")
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u2", resp.User.ID)
}

func TestAuthNumericErrorCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":422,"error_code":"weak_password","msg":"Password should be at least 6 characters"}`))
	}, 0)

	_, err := c.Auth().SignUp(context.Background(), "b@example.com", "123")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "422", se.Code)
	assert.Equal(t, "Password should be at least 6 characters", se.Message)
}
