// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

//go:build integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stockroom/stockroom/internal/auth"
	authpg "github.com/stockroom/stockroom/internal/auth/postgres"
	"github.com/stockroom/stockroom/internal/httpapi"
	"github.com/stockroom/stockroom/internal/item"
	itempg "github.com/stockroom/stockroom/internal/item/postgres"
	"github.com/stockroom/stockroom/internal/observability"
	"github.com/stockroom/stockroom/internal/store"
)

const (
	suiteSecret = "integration-signing-secret"
	suiteTTL    = 30 * time.Minute
)

var (
	pool       *pgxpool.Pool
	teardown   func()
	server     *httptest.Server
	suiteCodec *auth.TokenCodec
	suiteGuard *auth.Guard
	suiteUsers *authpg.UserRepository
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockroom_test"),
		tcpostgres.WithUsername("stockroom"),
		tcpostgres.WithPassword("stockroom"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	pool, err = store.Connect(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())

	hasher := auth.NewArgon2idHasher(auth.Argon2Params{Time: 1, MemoryKiB: 1024, Threads: 1})
	suiteCodec, err = auth.NewTokenCodec([]byte(suiteSecret), "HS256")
	Expect(err).NotTo(HaveOccurred())

	suiteUsers = authpg.NewUserRepository(pool)
	items := itempg.NewItemRepository(pool)
	suiteGuard = auth.NewGuard(suiteCodec, suiteUsers)

	api := httpapi.NewAPI(httpapi.Deps{
		Registrar:     auth.NewRegistrar(suiteUsers, hasher),
		Authenticator: auth.NewAuthenticator(suiteUsers, hasher, suiteCodec, suiteTTL),
		Guard:         suiteGuard,
		Items:         item.NewService(items, suiteGuard),
		Version:       "integration",
	})
	server = httptest.NewServer(api.Router())

	teardown = func() {
		server.Close()
		pool.Close()
		_ = container.Terminate(ctx)
	}
})

var _ = AfterSuite(func() {
	if teardown != nil {
		teardown()
	}
})

var _ = BeforeEach(func() {
	_, err := pool.Exec(context.Background(), "TRUNCATE items, users CASCADE")
	Expect(err).NotTo(HaveOccurred())
})

// doJSON sends a request with an optional JSON body and bearer token.
func doJSON(method, path, token string, body any) *http.Response {
	GinkgoHelper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeBody(resp *http.Response) map[string]any {
	GinkgoHelper()

	var decoded map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())

	return decoded
}

func register(username, email, password string) map[string]any {
	GinkgoHelper()

	resp := doJSON(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	})
	Expect(resp.StatusCode).To(Equal(http.StatusCreated))

	return decodeBody(resp)
}

func login(username, password string) (*http.Response, map[string]any) {
	GinkgoHelper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := server.Client().Post(
		server.URL+"/api/v1/auth/token",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = resp.Body.Close() })

	return resp, decodeBody(resp)
}

func mustLogin(username, password string) string {
	GinkgoHelper()

	resp, body := login(username, password)
	Expect(resp.StatusCode).To(Equal(http.StatusOK))

	token, _ := body["access_token"].(string)
	Expect(token).NotTo(BeEmpty())

	return token
}

var _ = Describe("Authentication flow", func() {
	It("registers, logs in, and resolves the identity", func() {
		registered := register("alice", "alice@example.com", "secret123")
		Expect(registered["username"]).To(Equal("alice"))
		Expect(registered).NotTo(HaveKey("password_hash"))

		token := mustLogin("alice", "secret123")

		resp := doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decodeBody(resp)["username"]).To(Equal("alice"))
	})

	It("rejects a token after its validity window", func() {
		registered := register("alice", "alice@example.com", "secret123")

		// Issue a token whose window has already passed
		subject, err := suiteUsers.GetByUsername(context.Background(), registered["username"].(string))
		Expect(err).NotTo(HaveOccurred())
		expired, err := suiteCodec.Issue(subject.ID, time.Now().UTC().Add(-suiteTTL-time.Minute), suiteTTL)
		Expect(err).NotTo(HaveOccurred())

		resp := doJSON(http.MethodGet, "/api/v1/auth/me", expired, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(decodeBody(resp)["code"]).To(Equal("AUTH_UNAUTHORIZED"))
	})

	It("answers wrong-password and unknown-user identically", func() {
		register("alice", "alice@example.com", "secret123")

		wrongResp, wrongBody := login("alice", "wrong-password")
		unknownResp, unknownBody := login("nobody", "anything-at-all")

		Expect(wrongResp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(unknownResp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(wrongBody).To(Equal(unknownBody))
	})

	It("rejects a structurally valid token for a deactivated account", func() {
		register("alice", "alice@example.com", "secret123")
		token := mustLogin("alice", "secret123")

		user, err := suiteUsers.GetByUsername(context.Background(), "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(suiteUsers.SetActive(context.Background(), user.ID, false)).To(Succeed())

		resp := doJSON(http.MethodGet, "/api/v1/auth/me", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("reports conflicts for duplicate registrations", func() {
		register("alice", "alice@example.com", "secret123")

		resp := doJSON(http.MethodPost, "/api/v1/auth/register", "", map[string]any{
			"username": "alice2",
			"email":    "alice@example.com",
			"password": "secret123",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		Expect(decodeBody(resp)["code"]).To(Equal("USER_EMAIL_TAKEN"))
	})
})

var _ = Describe("Ownership enforcement", func() {
	var aliceToken, bobToken, itemID string

	BeforeEach(func() {
		register("alice", "alice@example.com", "secret123")
		register("bob", "bob@example.com", "secret456")
		aliceToken = mustLogin("alice", "secret123")
		bobToken = mustLogin("bob", "secret456")

		resp := doJSON(http.MethodPost, "/api/v1/items", aliceToken, map[string]any{
			"title": "Alice's widget",
			"price": 500,
		})
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		itemID, _ = decodeBody(resp)["id"].(string)
		Expect(itemID).NotTo(BeEmpty())
	})

	It("lets any authenticated user read", func() {
		resp := doJSON(http.MethodGet, "/api/v1/items/"+itemID, bobToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("forbids mutation by a non-owner", func() {
		resp := doJSON(http.MethodPut, "/api/v1/items/"+itemID, bobToken, map[string]any{
			"title": "stolen",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(decodeBody(resp)["code"]).To(Equal("AUTH_FORBIDDEN"))
	})

	It("forbids deletion by a non-owner", func() {
		resp := doJSON(http.MethodDelete, "/api/v1/items/"+itemID, bobToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("lets the owner update and delete", func() {
		resp := doJSON(http.MethodPut, "/api/v1/items/"+itemID, aliceToken, map[string]any{
			"title": "renamed",
		})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp = doJSON(http.MethodDelete, "/api/v1/items/"+itemID, aliceToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		resp = doJSON(http.MethodGet, "/api/v1/items/"+itemID, aliceToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("Item listings", func() {
	var token string

	BeforeEach(func() {
		register("alice", "alice@example.com", "secret123")
		token = mustLogin("alice", "secret123")

		for _, title := range []string{"one", "two", "three"} {
			resp := doJSON(http.MethodPost, "/api/v1/items", token, map[string]any{
				"title": title,
				"price": 100,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		}
	})

	It("paginates the full listing", func() {
		resp := doJSON(http.MethodGet, "/api/v1/items?page=1&size=2", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body := decodeBody(resp)
		Expect(body["total"]).To(BeEquivalentTo(3))
		Expect(body["pages"]).To(BeEquivalentTo(2))
		Expect(body["items"]).To(HaveLen(2))
	})

	It("scopes my-items to the caller", func() {
		register("bob", "bob@example.com", "secret456")
		bobToken := mustLogin("bob", "secret456")

		resp := doJSON(http.MethodGet, "/api/v1/items/my-items", bobToken, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decodeBody(resp)["total"]).To(BeEquivalentTo(0))
	})
})

var _ = Describe("Observability endpoints", func() {
	It("reports readiness from a live database ping", func() {
		obs := observability.NewServer("127.0.0.1:0", pool.Ping)
		_, err := obs.Start()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(ctx)
		})

		resp, err := http.Get("http://" + obs.Addr() + "/healthz/readiness")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		metricsResp, err := http.Get("http://" + obs.Addr() + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer metricsResp.Body.Close()
		Expect(metricsResp.StatusCode).To(Equal(http.StatusOK))
	})
})
