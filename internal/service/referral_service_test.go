package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/visitka/visitka-backend/internal/domain"
)

func TestReferralAllocator_Allocate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.store.AddUser(domain.User{Email: "a@x.io", Name: "A"})

	code, err := env.referrals.WithGenerator(sequence("CODE0001")).Allocate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "CODE0001", code)

	user, ok := env.store.User(id)
	require.True(t, ok)
	assert.Equal(t, "CODE0001", user.ReferralCode)
}

func TestReferralAllocator_AllocateStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.AddUser(domain.User{Email: "a@x.io", Name: "A"})
	env.store.FailOn("users.set_referral_code", errors.New("disk full"))

	_, err := env.referrals.WithGenerator(sequence("CODE0001")).Allocate(context.Background(), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errReferralCodesExhausted)
	assert.Contains(t, err.Error(), "failed to store referral code")
}

func TestReferralAllocator_ApplyIgnoresMalformedCode(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.AddUser(domain.User{Email: "a@x.io", Name: "A"})

	require.NoError(t, env.referrals.Apply(context.Background(), id, "not a code!"))
	require.NoError(t, env.referrals.Apply(context.Background(), id, "   "))
	assert.Empty(t, env.store.Referrals())
}

func TestReferralAllocator_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.referrals.WithGenerator(sequence("OWNER001"))

	owner := env.store.AddUser(domain.User{Email: "owner@x.io", Name: "Owner"})
	_, err := env.referrals.Allocate(ctx, owner)
	require.NoError(t, err)

	friend := env.store.AddUser(domain.User{Email: "friend@x.io", Name: "Friend"})
	require.NoError(t, env.referrals.Apply(ctx, friend, "owner001"))

	stats, err := env.referrals.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "OWNER001", stats.ReferralCode)
	assert.Equal(t, 1, stats.ReferredCount)
	require.Len(t, stats.Referred, 1)
	assert.Equal(t, friend, stats.Referred[0].UserID)
	assert.Equal(t, "Friend", stats.Referred[0].Name)

	empty, err := env.referrals.Stats(ctx, friend)
	require.NoError(t, err)
	assert.Zero(t, empty.ReferredCount)
	assert.NotNil(t, empty.Referred)
}

func TestReferralAllocator_StatsUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.referrals.Stats(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
