package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/pkg/config"
	"pairchat/pkg/models"
	"pairchat/pkg/store"
)

const signingKey = "test-signing-secret"

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{signingKey: {}},
		SigningKeys: map[string]struct{}{signingKey: {}},
	})
	srv := httptest.NewServer(Handler())
	t.Cleanup(func() {
		srv.Close()
		config.SetRuntime(nil)
		_ = store.Close()
	})
	return srv
}

func sign(user string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(user))
	return hex.EncodeToString(mac.Sum(nil))
}

// do issues a request with a signed caller identity. An empty user sends no
// identity headers.
func do(t *testing.T, srv *httptest.Server, method, path, user string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-User-ID", user)
		req.Header.Set("X-User-Signature", sign(user))
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func syncUser(t *testing.T, srv *httptest.Server, ext, name string) models.User {
	t.Helper()
	resp, raw := do(t, srv, http.MethodPost, "/v1/users/sync", ext, map[string]string{
		"external_key": ext,
		"name":         name,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var u models.User
	require.NoError(t, json.Unmarshal(raw, &u))
	require.NotEmpty(t, u.ID)
	return u
}

func TestSyncIdentityChecks(t *testing.T) {
	srv := startServer(t)

	// no identity at all
	resp, _ := do(t, srv, http.MethodPost, "/v1/users/sync", "", map[string]string{"external_key": "ext|alice"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// caller may not sync someone else's identity
	resp, _ = do(t, srv, http.MethodPost, "/v1/users/sync", "ext|alice", map[string]string{"external_key": "ext|bob"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// matching identity creates the user, re-sync keeps the id
	u1 := syncUser(t, srv, "ext|alice", "Alice")
	u2 := syncUser(t, srv, "ext|alice", "Alice A.")
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, "Alice A.", u2.Name)
}

func TestBadSignatureRejected(t *testing.T) {
	srv := startServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/sidebar", nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "ext|alice")
	req.Header.Set("X-User-Signature", "deadbeef")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConversationLifecycle(t *testing.T) {
	srv := startServer(t)
	alice := syncUser(t, srv, "ext|alice", "Alice")
	bob := syncUser(t, srv, "ext|bob", "Bob")
	carol := syncUser(t, srv, "ext|carol", "Carol")

	// alice opens the chat naming only bob; user_a defaults to the caller
	resp, raw := do(t, srv, http.MethodPost, "/v1/conversations", "ext|alice", map[string]string{"user_b": bob.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotEmpty(t, created.ID)

	// bob opening it from his side lands on the same conversation
	resp, raw = do(t, srv, http.MethodPost, "/v1/conversations", "ext|bob", map[string]string{"user_a": bob.ID, "user_b": alice.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &again))
	assert.Equal(t, created.ID, again.ID)

	// participants can read the record, outsiders cannot
	resp, _ = do(t, srv, http.MethodGet, "/v1/conversations/"+created.ID, "ext|alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/v1/conversations/"+created.ID, "ext|carol", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/v1/conversations/ghost", "ext|alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// a user cannot open a conversation with themselves
	resp, _ = do(t, srv, http.MethodPost, "/v1/conversations", "ext|carol", map[string]string{"user_b": carol.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMessageFlow(t *testing.T) {
	srv := startServer(t)
	alice := syncUser(t, srv, "ext|alice", "Alice")
	bob := syncUser(t, srv, "ext|bob", "Bob")
	syncUser(t, srv, "ext|carol", "Carol")

	resp, raw := do(t, srv, http.MethodPost, "/v1/conversations", "ext|alice", map[string]string{"user_b": bob.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &conv))

	// send defaults the sender to the caller
	resp, raw = do(t, srv, http.MethodPost, "/v1/messages", "ext|alice", map[string]string{
		"conversation": conv.ID,
		"body":         "hello bob",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var m models.Message
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, alice.ID, m.Sender)
	assert.NotZero(t, m.TS)

	// reply threading
	resp, raw = do(t, srv, http.MethodPost, "/v1/messages", "ext|bob", map[string]string{
		"conversation": conv.ID,
		"body":         "hi alice",
		"reply_to":     m.ID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply models.Message
	require.NoError(t, json.Unmarshal(raw, &reply))
	assert.Equal(t, m.ID, reply.ReplyTo)

	// bad reply target
	resp, _ = do(t, srv, http.MethodPost, "/v1/messages", "ext|bob", map[string]string{
		"conversation": conv.ID,
		"body":         "bad",
		"reply_to":     "msg-ghost",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// outsiders cannot read or send
	resp, _ = do(t, srv, http.MethodGet, "/v1/messages?conversation="+conv.ID, "ext|carol", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodPost, "/v1/messages", "ext|carol", map[string]string{
		"conversation": conv.ID,
		"body":         "let me in",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// participants list in order
	resp, raw = do(t, srv, http.MethodGet, "/v1/messages?conversation="+conv.ID, "ext|bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(raw, &listing))
	require.Len(t, listing.Messages, 2)
	assert.Equal(t, m.ID, listing.Messages[0].ID)

	// only the sender may delete
	resp, _ = do(t, srv, http.MethodDelete, "/v1/messages/"+m.ID, "ext|bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodDelete, "/v1/messages/"+m.ID, "ext|alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// deleting an unknown id succeeds quietly
	resp, _ = do(t, srv, http.MethodDelete, "/v1/messages/msg-ghost", "ext|alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = do(t, srv, http.MethodGet, "/v1/messages?conversation="+conv.ID, "ext|alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &listing))
	require.Len(t, listing.Messages, 2)
	assert.True(t, listing.Messages[0].IsDeleted)
	assert.Equal(t, models.DeletedBody, listing.Messages[0].Body)
}

func TestReadStateAndSidebar(t *testing.T) {
	srv := startServer(t)
	syncUser(t, srv, "ext|alice", "Alice")
	bob := syncUser(t, srv, "ext|bob", "Bob")

	resp, raw := do(t, srv, http.MethodPost, "/v1/conversations", "ext|alice", map[string]string{"user_b": bob.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &conv))

	for i := 0; i < 3; i++ {
		resp, _ = do(t, srv, http.MethodPost, "/v1/messages", "ext|alice", map[string]string{
			"conversation": conv.ID,
			"body":         fmt.Sprintf("msg %d", i),
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// bob's sidebar shows three unread from alice
	resp, raw = do(t, srv, http.MethodGet, "/v1/sidebar", "ext|bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed struct {
		Entries []models.SidebarEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(raw, &feed))
	require.Len(t, feed.Entries, 1)
	assert.Equal(t, 3, feed.Entries[0].UnreadCount)
	assert.Equal(t, conv.ID, feed.Entries[0].ConversationID)

	// viewing the conversation clears them
	resp, _ = do(t, srv, http.MethodPost, "/v1/conversations/"+conv.ID+"/read", "ext|bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = do(t, srv, http.MethodGet, "/v1/sidebar", "ext|bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &feed))
	require.Len(t, feed.Entries, 1)
	assert.Zero(t, feed.Entries[0].UnreadCount)

	// sidebar needs an identity
	resp, _ = do(t, srv, http.MethodGet, "/v1/sidebar", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPresenceEndpoints(t *testing.T) {
	srv := startServer(t)
	alice := syncUser(t, srv, "ext|alice", "Alice")

	resp, _ := do(t, srv, http.MethodPost, "/v1/presence", "ext|alice", map[string]interface{}{
		"is_online": true,
		"typing_in": "c1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := do(t, srv, http.MethodGet, "/v1/presence/"+alice.ID, "ext|alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p models.Presence
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.True(t, p.IsOnline)
	assert.Equal(t, "c1", p.TypingIn)

	// never-reported user reads as null
	resp, raw = do(t, srv, http.MethodGet, "/v1/presence/ghost", "ext|alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", string(bytes.TrimSpace(raw)))

	// heartbeat from a caller that never synced is a silent no-op
	resp, _ = do(t, srv, http.MethodPost, "/v1/presence", "ext|stranger", map[string]interface{}{"is_online": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSigningEndpointBackendOnly(t *testing.T) {
	srv := startServer(t)

	// without the backend role the endpoint is off limits
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/_sign", bytes.NewBufferString(`{"userId":"ext|alice"}`))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// with the role (normally set by the gateway) the signature matches
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/v1/_sign", bytes.NewBufferString(`{"userId":"ext|alice"}`))
	require.NoError(t, err)
	req.Header.Set("X-Role-Name", "backend")
	req.Header.Set("X-API-Key", signingKey)
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		UserID    string `json:"userId"`
		Signature string `json:"signature"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, sign("ext|alice"), out.Signature)
}
