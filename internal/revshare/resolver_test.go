package revshare

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabidey/privity-sub003/pkg/auth"
	"github.com/kabidey/privity-sub003/pkg/db/models"
	"github.com/kabidey/privity-sub003/pkg/enums"
	pkgerrors "github.com/kabidey/privity-sub003/pkg/errors"
)

type fakeDirectory struct {
	partners map[uuid.UUID]*models.ReferralPartner
	err      error
}

func (f *fakeDirectory) GetBookableClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
}

func (f *fakeDirectory) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
}

func (f *fakeDirectory) GetActiveReferralPartner(ctx context.Context, id uuid.UUID) (*models.ReferralPartner, error) {
	if f.err != nil {
		return nil, f.err
	}
	partner, ok := f.partners[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "referral partner not found")
	}
	return partner, nil
}

func newTestResolver(t *testing.T, dir *fakeDirectory) *Resolver {
	t.Helper()
	resolver, err := NewResolver(dir, decimal.NewFromInt(30), decimal.NewFromInt(10))
	require.NoError(t, err)
	return resolver
}

func employeeCaller() auth.Caller {
	return auth.NewCaller(uuid.New(), enums.MemberRoleEmployee)
}

func bpCaller() auth.Caller {
	return auth.NewCaller(uuid.New(), enums.MemberRoleBusinessPartner)
}

func TestResolveCreationBpCallerGetsDefaultShare(t *testing.T) {
	resolver := newTestResolver(t, &fakeDirectory{})
	client := &models.Client{ID: uuid.New()}

	terms, err := resolver.ResolveCreation(context.Background(), bpCaller(), client, CreationInput{})
	require.NoError(t, err)

	assert.True(t, terms.IsBpBooking)
	require.NotNil(t, terms.BpSharePercent)
	assert.True(t, terms.BpSharePercent.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, terms.ReferralPartnerID)
	assert.Nil(t, terms.RpSharePercent)
}

func TestResolveCreationBpCallerRejectsReferralPartner(t *testing.T) {
	resolver := newTestResolver(t, &fakeDirectory{})
	client := &models.Client{ID: uuid.New()}
	partnerID := uuid.New()

	_, err := resolver.ResolveCreation(context.Background(), bpCaller(), client, CreationInput{
		ReferralPartnerID: &partnerID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestResolveCreationNoPartnerNoShare(t *testing.T) {
	resolver := newTestResolver(t, &fakeDirectory{})
	client := &models.Client{ID: uuid.New()}

	terms, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{})
	require.NoError(t, err)
	assert.False(t, terms.IsBpBooking)
	assert.Nil(t, terms.ReferralPartnerID)
	assert.Nil(t, terms.RpSharePercent)
}

func TestResolveCreationShareWithoutPartnerRejected(t *testing.T) {
	resolver := newTestResolver(t, &fakeDirectory{})
	client := &models.Client{ID: uuid.New()}
	share := decimal.NewFromInt(5)

	_, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{
		RpSharePercent: &share,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestResolveCreationUsesPartnerDefaultShare(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID, DefaultSharePercent: decimal.NewFromFloat(7.5)},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New()}

	terms, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{
		ReferralPartnerID: &partnerID,
	})
	require.NoError(t, err)
	require.NotNil(t, terms.RpSharePercent)
	assert.True(t, terms.RpSharePercent.Equal(decimal.NewFromFloat(7.5)))
	assert.Empty(t, terms.Warnings)
}

func TestResolveCreationExplicitShareOverridesDefault(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID, DefaultSharePercent: decimal.NewFromInt(5)},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New()}
	share := decimal.NewFromInt(12)

	terms, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{
		ReferralPartnerID: &partnerID,
		RpSharePercent:    &share,
	})
	require.NoError(t, err)
	require.NotNil(t, terms.RpSharePercent)
	assert.True(t, terms.RpSharePercent.Equal(decimal.NewFromInt(12)))
}

func TestResolveCreationShareAboveCeilingRecordedWithWarning(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID, DefaultSharePercent: decimal.NewFromInt(5)},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New()}
	share := decimal.NewFromInt(45)

	terms, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{
		ReferralPartnerID: &partnerID,
		RpSharePercent:    &share,
	})
	require.NoError(t, err)
	require.NotNil(t, terms.RpSharePercent)
	assert.True(t, terms.RpSharePercent.Equal(decimal.NewFromInt(45)))
	require.Len(t, terms.Warnings, 1)
	assert.Contains(t, terms.Warnings[0], "exceeds the 30.00% ceiling")
}

func TestResolveCreationNegativeShareRejected(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New()}
	share := decimal.NewFromInt(-1)

	_, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{
		ReferralPartnerID: &partnerID,
		RpSharePercent:    &share,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestResolveCreationClientIsPartnerRejected(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID, DefaultSharePercent: decimal.NewFromInt(5)},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New(), ReferralPartnerID: &partnerID}

	_, err := resolver.ResolveCreation(context.Background(), employeeCaller(), client, CreationInput{
		ReferralPartnerID: &partnerID,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestValidateRpRemapIdentityClash(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New(), ReferralPartnerID: &partnerID}

	_, err := resolver.ValidateRpRemap(context.Background(), client, partnerID, decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestValidateRpRemapWarnsAboveCeiling(t *testing.T) {
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]*models.ReferralPartner{
		partnerID: {ID: partnerID},
	}}
	resolver := newTestResolver(t, dir)
	client := &models.Client{ID: uuid.New()}

	warnings, err := resolver.ValidateRpRemap(context.Background(), client, partnerID, decimal.NewFromInt(35))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "manual approval required")
}

func TestEmployeeSharePercent(t *testing.T) {
	rpShare := decimal.NewFromInt(20)
	bpShare := decimal.NewFromInt(10)
	override := decimal.NewFromInt(15)

	t.Run("plain booking keeps full share", func(t *testing.T) {
		b := &models.Booking{}
		assert.True(t, EmployeeSharePercent(b).Equal(decimal.NewFromInt(100)))
	})

	t.Run("rp share deducted", func(t *testing.T) {
		b := &models.Booking{RpRevenueSharePercent: &rpShare}
		assert.True(t, EmployeeSharePercent(b).Equal(decimal.NewFromInt(80)))
	})

	t.Run("bp default deducted", func(t *testing.T) {
		b := &models.Booking{IsBpBooking: true, BpSharePercent: &bpShare}
		assert.True(t, EmployeeSharePercent(b).Equal(decimal.NewFromInt(90)))
	})

	t.Run("approved override replaces bp default", func(t *testing.T) {
		b := &models.Booking{
			IsBpBooking:       true,
			BpSharePercent:    &bpShare,
			BpOverridePercent: &override,
			BpOverrideStatus:  enums.BpOverrideStatusApproved,
		}
		assert.True(t, EmployeeSharePercent(b).Equal(decimal.NewFromInt(85)))
	})

	t.Run("pending override keeps bp default", func(t *testing.T) {
		b := &models.Booking{
			IsBpBooking:       true,
			BpSharePercent:    &bpShare,
			BpOverridePercent: &override,
			BpOverrideStatus:  enums.BpOverrideStatusPending,
		}
		assert.True(t, EmployeeSharePercent(b).Equal(decimal.NewFromInt(90)))
	})
}
