package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chupacabra07-bot/night-campus/internal/modules/core"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Middleware_Resolves_Valid_Token_Into_Session(t *testing.T) {
	// Arrange
	store := NewStore(time.Hour)
	userID := uuid.New()
	session := store.Issue(userID)

	var resolved core.ContextSession
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = core.Session(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/matching/current_pool/", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, resolved.UserID)
}

func Test_Middleware_Rejects_Missing_Authorization_Header(t *testing.T) {
	// Arrange
	store := NewStore(time.Hour)

	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/mutual/", nil)
	rec := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_Middleware_Rejects_Unknown_Token(t *testing.T) {
	// Arrange
	store := NewStore(time.Hour)

	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/mutual/", nil)
	req.Header.Set("Authorization", "Bearer "+uuid.NewString())
	rec := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rec, req)

	// Assert
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_Store_Revoke_Invalidates_Session(t *testing.T) {
	// Arrange
	store := NewStore(time.Hour)
	session := store.Issue(uuid.New())

	// Act
	store.Revoke(session.Token)

	// Assert
	_, found := store.Resolve(session.Token)
	require.False(t, found)
}
