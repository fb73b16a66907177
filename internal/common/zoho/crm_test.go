package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRMClient_CreateLead(t *testing.T) {
	var received struct {
		Data []Lead `json:"data"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Leads", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken token-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","status":"success","details":{"id":"4150868000001"}}]}`))
	}))
	defer server.Close()

	client := NewCRMClient(server.URL, "token-1", 5*time.Second)
	id, err := client.CreateLead(context.Background(), &Lead{Company: "Acme", LastName: "Martin", Email: "j.martin@acme.fr"})

	require.NoError(t, err)
	assert.Equal(t, "4150868000001", id)
	require.Len(t, received.Data, 1)
	assert.Equal(t, "Acme", received.Data[0].Company)
}

func TestCRMClient_CreateLead_RejectedRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"code":"MANDATORY_NOT_FOUND","status":"error","message":"required field not found"}]}`))
	}))
	defer server.Close()

	_, err := NewCRMClient(server.URL, "t", time.Second).CreateLead(context.Background(), &Lead{Company: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required field not found")
}

func TestCRMClient_UpdateLead_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/Leads/42", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"INVALID_TOKEN"}`))
	}))
	defer server.Close()

	err := NewCRMClient(server.URL, "expired", time.Second).UpdateLead(context.Background(), "42", &Lead{Company: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
