// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/store/postgres"
	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

var _ = Describe("MemberStore", Ordered, func() {
	var (
		ctx       context.Context
		container *tcpostgres.PostgresContainer
		pool      *pgxpool.Pool
		store     *postgres.MemberStore
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("holobot_test"),
			tcpostgres.WithUsername("holobot"),
			tcpostgres.WithPassword("holobot"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := postgres.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = postgres.Connect(ctx, connStr, 3)
		Expect(err).NotTo(HaveOccurred())
		store = postgres.NewMemberStore(pool)
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	BeforeEach(func() {
		_, err := pool.Exec(ctx, `TRUNCATE members`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates and loads a record", func() {
		rec := directory.MemberRecord{UserID: 11, CommunityID: 22, Level: trust.Moderator}
		Expect(store.CreateMember(ctx, rec)).To(Succeed())

		got, found, err := store.LoadMember(ctx, 11, 22)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(got).To(Equal(rec))
	})

	It("reports a missing record as not found", func() {
		_, found, err := store.LoadMember(ctx, 11, 23)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("rejects a second record for the same pair", func() {
		rec := directory.MemberRecord{UserID: 11, CommunityID: 22}
		Expect(store.CreateMember(ctx, rec)).To(Succeed())

		err := store.CreateMember(ctx, rec)
		Expect(err).To(HaveOccurred())
		Expect(errutil.Code(err)).To(Equal(directory.CodeDuplicateEntity))
	})

	It("updates the permission field", func() {
		Expect(store.CreateMember(ctx, directory.MemberRecord{UserID: 11, CommunityID: 22})).To(Succeed())
		Expect(store.UpdateMemberField(ctx, 11, 22, directory.FieldPermission, "owner")).To(Succeed())

		got, _, err := store.LoadMember(ctx, 11, 22)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Level).To(Equal(trust.Owner))
	})

	It("fails to update a missing record", func() {
		err := store.UpdateMemberField(ctx, 11, 22, directory.FieldPermission, 1)
		Expect(errutil.Code(err)).To(Equal(directory.CodeNotFound))
	})

	It("lists records by community then user", func() {
		for _, rec := range []directory.MemberRecord{
			{UserID: 2, CommunityID: 9},
			{UserID: 1, CommunityID: 9, Level: trust.Admin},
			{UserID: 3, CommunityID: 4},
		} {
			Expect(store.CreateMember(ctx, rec)).To(Succeed())
		}

		recs, err := store.ListMembers(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(recs).To(Equal([]directory.MemberRecord{
			{UserID: 3, CommunityID: 4},
			{UserID: 1, CommunityID: 9, Level: trust.Admin},
			{UserID: 2, CommunityID: 9},
		}))
	})

	It("backs a directory across restarts", func() {
		dir, err := directory.New(store)
		Expect(err).NotTo(HaveOccurred())
		member, err := dir.Member(ctx, 50, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(member.SetLevel(ctx, trust.Admin)).To(Succeed())

		restarted, err := directory.New(store)
		Expect(err).NotTo(HaveOccurred())
		again, err := restarted.Member(ctx, 50, 60)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.LocalLevel()).To(Equal(trust.Admin))
	})
})
