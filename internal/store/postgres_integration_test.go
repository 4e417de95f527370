// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stockroom/stockroom/internal/auth"
	authpg "github.com/stockroom/stockroom/internal/auth/postgres"
	"github.com/stockroom/stockroom/internal/item"
	itempg "github.com/stockroom/stockroom/internal/item/postgres"
	"github.com/stockroom/stockroom/internal/store"
)

// setupPostgresContainer starts a PostgreSQL container, applies all
// migrations, and returns a connected pool.
func setupPostgresContainer() (*pgxpool.Pool, func(), error) {
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
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	if err := migrator.Close(); err != nil {
		return nil, nil, err
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("Schema", func() {
	var (
		pool    *pgxpool.Pool
		cleanup func()
		users   *authpg.UserRepository
		items   *itempg.ItemRepository
	)

	// Hash content is irrelevant to schema behavior; rows just need a
	// syntactically plausible value.
	const placeholderHash = "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHQ$aGFzaGJ5dGVzaGFzaGJ5dGVzaGFzaGI"

	newUser := func(username, email string) *auth.User {
		user, err := auth.NewUser(username, email, placeholderHash, nil)
		Expect(err).NotTo(HaveOccurred())
		return user
	}

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
		users = authpg.NewUserRepository(pool)
		items = itempg.NewItemRepository(pool)
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("users", func() {
		It("enforces case-insensitive username uniqueness", func() {
			ctx := context.Background()
			Expect(users.Create(ctx, newUser("alice", "alice@example.com"))).To(Succeed())

			err := users.Create(ctx, newUser("ALICE", "other@example.com"))
			Expect(errors.Is(err, auth.ErrUsernameTaken)).To(BeTrue(), "got: %v", err)
		})

		It("enforces case-insensitive email uniqueness", func() {
			ctx := context.Background()
			Expect(users.Create(ctx, newUser("alice", "alice@example.com"))).To(Succeed())

			err := users.Create(ctx, newUser("bob", "Alice@EXAMPLE.com"))
			Expect(errors.Is(err, auth.ErrEmailTaken)).To(BeTrue(), "got: %v", err)
		})

		It("preserves original casing on case-insensitive lookup", func() {
			ctx := context.Background()
			created := newUser("Alice", "Alice@Example.com")
			Expect(users.Create(ctx, created)).To(Succeed())

			got, err := users.GetByUsername(ctx, "aLiCe")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(created.ID))
			Expect(got.Username).To(Equal("Alice"))
			Expect(got.Email).To(Equal("Alice@Example.com"))
		})

		It("round-trips activation state", func() {
			ctx := context.Background()
			created := newUser("alice", "alice@example.com")
			Expect(users.Create(ctx, created)).To(Succeed())

			Expect(users.SetActive(ctx, created.ID, false)).To(Succeed())

			got, err := users.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
		})
	})

	Describe("items", func() {
		It("cascades deletion when the owner is removed", func() {
			ctx := context.Background()
			owner := newUser("alice", "alice@example.com")
			Expect(users.Create(ctx, owner)).To(Succeed())

			created, err := item.NewItem("Anvil", nil, 2500, owner.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(items.Create(ctx, created)).To(Succeed())

			_, err = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, owner.ID.String())
			Expect(err).NotTo(HaveOccurred())

			_, err = items.GetByID(ctx, created.ID)
			Expect(errors.Is(err, item.ErrNotFound)).To(BeTrue(), "got: %v", err)
		})

		It("rejects non-positive prices at the schema level", func() {
			ctx := context.Background()
			owner := newUser("alice", "alice@example.com")
			Expect(users.Create(ctx, owner)).To(Succeed())

			_, err := pool.Exec(ctx,
				`INSERT INTO items (id, title, price, owner_id) VALUES ($1, $2, $3, $4)`,
				"01ARZ3NDEKTSV4RRFFQ69G5FAV", "Freebie", 0, owner.ID.String())
			Expect(err).To(HaveOccurred())
		})

		It("pages deterministically by id", func() {
			ctx := context.Background()
			owner := newUser("alice", "alice@example.com")
			Expect(users.Create(ctx, owner)).To(Succeed())

			for _, title := range []string{"Anvil", "Bellows", "Crucible"} {
				created, err := item.NewItem(title, nil, 1000, owner.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(items.Create(ctx, created)).To(Succeed())
			}

			first, err := items.List(ctx, 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(2))

			second, err := items.List(ctx, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(HaveLen(1))

			total, err := items.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(3))
		})
	})
})
