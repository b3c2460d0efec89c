// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository over one shared connection or transaction.
type Repos struct {
	Networks    NetworkRepository
	Members     MembershipRepository
	Joins       JoinRequestRepository
	Invitations InvitationRepository
	Goals       GoalRepository
	Users       UserRepository
}

// NewRepos builds the repository bundle over the given gorm handle.
func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Networks:    NewNetworkRepository(db),
		Members:     NewMembershipRepository(db),
		Joins:       NewJoinRequestRepository(db),
		Invitations: NewInvitationRepository(db),
		Goals:       NewGoalRepository(db),
		Users:       NewUserRepository(db),
	}
}

// UnitOfWork runs multi-step writes atomically. Services receive a fresh
// Repos bound to the transaction; returning an error rolls everything back.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a gorm-backed unit of work.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) InTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepos(tx))
	})
}
