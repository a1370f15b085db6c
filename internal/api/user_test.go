package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paywallet/internal/account"
	"paywallet/internal/db/dbtest"
	"paywallet/internal/domain"
	"paywallet/internal/security"
	"paywallet/internal/service"
	"paywallet/internal/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	tokens *token.Service
	now    time.Time
}

func newTestServer(t *testing.T, withRedis bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{db: dbtest.New(t), now: time.Now()}
	tokens, err := token.New([]byte("api-secret"), time.Hour, token.WithClock(func() time.Time { return ts.now }))
	require.NoError(t, err)
	ts.tokens = tokens

	var rdb *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	prov := account.NewProvisioner(account.FixedPolicy{Amount: decimal.RequireFromString("100.00")})
	svc := service.NewIdentityService(ts.db, security.NewHasher(bcrypt.MinCost), tokens, prov)
	ts.router = NewRouter(RouterDeps{
		DB:       ts.db,
		Redis:    rdb,
		Identity: svc,
		Tokens:   tokens,
		Prefix:   "/api/v1",
		CacheTTL: time.Minute,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, bearer string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func (ts *testServer) signup(t *testing.T, username, first, last, password string) string {
	t.Helper()
	w, out := ts.do(t, http.MethodPost, "/api/v1/user/signup", gin.H{
		"username": username, "firstName": first, "lastName": last, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return out["token"].(string)
}

func searchNames(t *testing.T, out map[string]any) []string {
	t.Helper()
	users, ok := out["users"].([]any)
	require.True(t, ok, "users should be a list: %v", out)
	names := make([]string, 0, len(users))
	for _, u := range users {
		m := u.(map[string]any)
		_, leaked := m["password"]
		assert.False(t, leaked)
		_, leaked = m["passwordHash"]
		assert.False(t, leaked)
		names = append(names, m["firstName"].(string))
	}
	return names
}

func TestSignupThenDuplicate(t *testing.T) {
	ts := newTestServer(t, false)
	body := gin.H{"username": "a@b.com", "firstName": "A", "lastName": "B", "password": "p1"}

	w, out := ts.do(t, http.MethodPost, "/api/v1/user/signup", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User created successfully", out["message"])
	assert.NotEmpty(t, out["token"])

	w, out = ts.do(t, http.MethodPost, "/api/v1/user/signup", body, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DuplicateIdentity", out["error"])
}

func TestSignup_InvalidInput(t *testing.T) {
	ts := newTestServer(t, false)

	w, out := ts.do(t, http.MethodPost, "/api/v1/user/signup", gin.H{"username": "nope", "firstName": "A", "lastName": "B", "password": "p1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidInput", out["error"])

	w, out = ts.do(t, http.MethodPost, "/api/v1/user/signup", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidInput", out["error"])
}

func TestSignup_AccountCreatedWithBalance(t *testing.T) {
	ts := newTestServer(t, true)
	tok := ts.signup(t, "a@b.com", "A", "B", "p1")

	w, out := ts.do(t, http.MethodGet, "/api/v1/account/balance", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100.00", out["balance"])

	// Second read is served from the cache
	w, out = ts.do(t, http.MethodGet, "/api/v1/account/balance", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100.00", out["balance"])

	w, _ = ts.do(t, http.MethodGet, "/api/v1/account/balance", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignin(t *testing.T) {
	ts := newTestServer(t, false)
	ts.signup(t, "a@b.com", "A", "B", "p1")

	w, out := ts.do(t, http.MethodPost, "/api/v1/user/signin", gin.H{"username": "a@b.com", "password": "p1"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User signed-in successfully", out["message"])
	assert.NotEmpty(t, out["token"])

	wWrong, outWrong := ts.do(t, http.MethodPost, "/api/v1/user/signin", gin.H{"username": "a@b.com", "password": "bad"}, "")
	wGhost, outGhost := ts.do(t, http.MethodPost, "/api/v1/user/signin", gin.H{"username": "ghost@b.com", "password": "p1"}, "")
	assert.Equal(t, http.StatusUnauthorized, wWrong.Code)
	assert.Equal(t, http.StatusUnauthorized, wGhost.Code)
	assert.Equal(t, outWrong, outGhost, "response must not reveal whether the username exists")

	w, _ = ts.do(t, http.MethodPost, "/api/v1/user/signin", gin.H{"username": "a@b.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t, false)
	tok := ts.signup(t, "a@b.com", "A", "B", "p1")

	w, out := ts.do(t, http.MethodPut, "/api/v1/user", gin.H{"firstName": "Alice"}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Updated successfully", out["message"])

	var ident domain.Identity
	require.NoError(t, ts.db.First(&ident, "username = ?", "a@b.com").Error)
	assert.Equal(t, "Alice", ident.FirstName)

	w, out = ts.do(t, http.MethodPut, "/api/v1/user", gin.H{"firstName": ""}, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidInput", out["error"])
}

func TestUpdateProfile_ExpiredToken(t *testing.T) {
	ts := newTestServer(t, false)
	tok := ts.signup(t, "a@b.com", "A", "B", "p1")

	ts.now = ts.now.Add(2 * time.Hour)
	w, out := ts.do(t, http.MethodPut, "/api/v1/user", gin.H{"firstName": "Mallory"}, tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", out["error"])

	var ident domain.Identity
	require.NoError(t, ts.db.First(&ident, "username = ?", "a@b.com").Error)
	assert.Equal(t, "A", ident.FirstName)
}

func TestUpdateProfile_BodyCannotRetarget(t *testing.T) {
	ts := newTestServer(t, false)
	aliceTok := ts.signup(t, "alice@b.com", "Alice", "A", "p1")
	ts.signup(t, "bob@b.com", "Bob", "B", "p1")

	var bob domain.Identity
	require.NoError(t, ts.db.First(&bob, "username = ?", "bob@b.com").Error)

	for _, body := range []gin.H{
		{"id": bob.ID, "firstName": "Hacked"},
		{"userId": bob.ID, "firstName": "Hacked"},
		{"username": "bob@b.com", "firstName": "Hacked"},
	} {
		w, out := ts.do(t, http.MethodPut, "/api/v1/user", body, aliceTok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "InvalidInput", out["error"])
	}

	require.NoError(t, ts.db.First(&bob, "username = ?", "bob@b.com").Error)
	assert.Equal(t, "Bob", bob.FirstName)
	var alice domain.Identity
	require.NoError(t, ts.db.First(&alice, "username = ?", "alice@b.com").Error)
	assert.Equal(t, "Alice", alice.FirstName)
}

func TestUpdateProfile_TrailingDataRejected(t *testing.T) {
	ts := newTestServer(t, false)
	tok := ts.signup(t, "alice@b.com", "Alice", "A", "p1")

	for _, body := range []string{
		`{"firstName":"x"} trailing`,
		`{"firstName":"x"}{"lastName":"y"}`,
		`{"firstName":"x"}}`,
	} {
		w, out := ts.do(t, http.MethodPut, "/api/v1/user", body, tok)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "InvalidInput", out["error"])
	}

	// Trailing whitespace is fine
	w, _ := ts.do(t, http.MethodPut, "/api/v1/user", "{\"firstName\":\"Alicia\"}\n", tok)
	assert.Equal(t, http.StatusOK, w.Code)

	var alice domain.Identity
	require.NoError(t, ts.db.First(&alice, "username = ?", "alice@b.com").Error)
	assert.Equal(t, "Alicia", alice.FirstName)
	assert.Equal(t, "A", alice.LastName)
}

func TestUpdateProfile_DeletedUser(t *testing.T) {
	ts := newTestServer(t, false)
	tok := ts.signup(t, "a@b.com", "A", "B", "p1")
	id, err := ts.tokens.Verify(tok)
	require.NoError(t, err)
	require.NoError(t, ts.db.Where("owner_id = ?", id).Delete(&domain.Account{}).Error)
	require.NoError(t, ts.db.Where("id = ?", id).Delete(&domain.Identity{}).Error)

	w, out := ts.do(t, http.MethodPut, "/api/v1/user", gin.H{"lastName": "Z"}, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", out["error"])
}

func TestSearch(t *testing.T) {
	for _, withRedis := range []bool{false, true} {
		ts := newTestServer(t, withRedis)
		ts.signup(t, "a@b.com", "A", "B", "p1")
		ts.signup(t, "c@d.com", "Carl", "Zed", "p1")

		w, out := ts.do(t, http.MethodGet, "/api/v1/user/bulk?filter=A", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.ElementsMatch(t, []string{"A", "Carl"}, searchNames(t, out))

		w, out = ts.do(t, http.MethodGet, "/api/v1/user/bulk", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, searchNames(t, out), 2)

		w, out = ts.do(t, http.MethodGet, "/api/v1/user/bulk?filter=zz", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, searchNames(t, out))
	}
}

func TestSearch_CacheInvalidatedByMutations(t *testing.T) {
	ts := newTestServer(t, true)
	tok := ts.signup(t, "a@b.com", "Anna", "B", "p1")

	_, out := ts.do(t, http.MethodGet, "/api/v1/user/bulk?filter=ann", nil, "")
	assert.Equal(t, []string{"Anna"}, searchNames(t, out))

	ts.signup(t, "c@d.com", "Annabel", "C", "p1")
	_, out = ts.do(t, http.MethodGet, "/api/v1/user/bulk?filter=ann", nil, "")
	assert.ElementsMatch(t, []string{"Anna", "Annabel"}, searchNames(t, out))

	w, _ := ts.do(t, http.MethodPut, "/api/v1/user", gin.H{"firstName": "Zoe"}, tok)
	require.Equal(t, http.StatusOK, w.Code)
	_, out = ts.do(t, http.MethodGet, "/api/v1/user/bulk?filter=ann", nil, "")
	assert.Equal(t, []string{"Annabel"}, searchNames(t, out))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	w, out := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}
