package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/TradeCatalog/internal/domain"
	"github.com/utafrali/TradeCatalog/internal/repository"
	"github.com/utafrali/TradeCatalog/internal/repository/memory"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

// stubDirectory resolves suppliers from a fixed map.
type stubDirectory struct {
	suppliers map[string]*domain.Supplier
	err       error
	calls     int
}

func (d *stubDirectory) Lookup(_ context.Context, id string) (*domain.Supplier, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	s, ok := d.suppliers[id]
	if !ok {
		return nil, apperrors.NotFound("supplier", id)
	}
	return s, nil
}

func newDirectory() *stubDirectory {
	return &stubDirectory{suppliers: map[string]*domain.Supplier{
		"supplier-a": {ID: "supplier-a", Role: domain.RoleSupplier},
		"supplier-b": {ID: "supplier-b", Role: domain.RoleSupplierMerchant},
		"gone":       {ID: "gone", Role: domain.RoleSupplier, IsDeleted: true},
		"buyer":      {ID: "buyer", Role: domain.RoleCorporate},
	}}
}

type fixture struct {
	svc     *CatalogService
	repo    *memory.ProductRepository
	dir     *stubDirectory
	metrics *Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewProductRepository()
	dir := newDirectory()
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewCatalogService(repo, dir, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &fixture{svc: svc, repo: repo, dir: dir, metrics: metrics}
}

func (f *fixture) create(t *testing.T, mutate func(in *domain.CreateProductInput)) string {
	t.Helper()
	in := validInput()
	if mutate != nil {
		mutate(in)
	}
	v, err := f.svc.Create(context.Background(), supplierActor, in)
	require.NoError(t, err)
	return v.ID
}

func (f *fixture) failures(kind string) float64 {
	return testutil.ToFloat64(f.metrics.validationFailures.WithLabelValues(kind))
}

// ─── Create ──────────────────────────────────────────────────────────────────

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)

	v, err := f.svc.Create(context.Background(), supplierActor, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "supplier-a", v.SupplierID)
	assert.Equal(t, domain.TierWholesale, v.PriceTier)
	assert.True(t, v.Price.Equal(decimal.NewFromInt(1800)))

	stored, err := f.repo.GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted())
	assert.Equal(t, stored.CreatedAt, stored.UpdatedAt)
}

func TestCreate_RejectedBeforeSupplierLookup(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.WholesalePrice = dec(5000)

	_, err := f.svc.Create(context.Background(), supplierActor, in)
	assert.ErrorIs(t, err, domain.ErrPriceOrdering)
	assert.Zero(t, f.dir.calls)
	assert.Equal(t, 1.0, f.failures("price_ordering_violation"))
}

func TestCreate_SupplierReference(t *testing.T) {
	tests := []struct {
		name     string
		supplier string
	}{
		{"unknown", "nobody"},
		{"deleted", "gone"},
		{"not a supplier", "buyer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			in.SupplierID = tt.supplier

			_, err := f.svc.Create(context.Background(), adminActor, in)
			assert.ErrorIs(t, err, domain.ErrOwnership)
			assert.Equal(t, 403, apperrors.HTTPStatus(err))
			assert.Equal(t, 1.0, f.failures("ownership_violation"))
		})
	}
}

func TestCreate_DirectoryUnavailable(t *testing.T) {
	f := newFixture(t)
	f.dir.err = apperrors.ServiceUnavailable("user directory unavailable", errors.New("dial tcp: refused"))

	_, err := f.svc.Create(context.Background(), supplierActor, validInput())
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
	assert.Zero(t, f.failures("ownership_violation"))

	_, total, listErr := f.repo.List(context.Background(), repository.SearchFilter{}.Normalize())
	require.NoError(t, listErr)
	assert.Zero(t, total)
}

// ─── Get ─────────────────────────────────────────────────────────────────────

func TestGet_PricesForCaller(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)
	ctx := context.Background()

	tests := []struct {
		actor    domain.Actor
		quantity int
		price    int64
		tier     domain.Tier
	}{
		{domain.Actor{}, 1, 150, domain.TierEndUser},
		{domain.Actor{UserID: "b", Role: domain.RoleB2CVisitor}, 1, 2000, domain.TierB2C},
		{domain.Actor{UserID: "c", Role: domain.RoleCorporate}, 4, 1850, domain.TierCorporate},
		{domain.Actor{UserID: "c", Role: domain.RoleCorporate}, 5, 1800, domain.TierWholesale},
		{domain.Actor{UserID: "h", Role: domain.RoleHoreca}, 50, 1900, domain.TierHoreca},
		{adminActor, 1, 150, domain.TierEndUser},
	}
	for _, tt := range tests {
		v, err := f.svc.Get(ctx, tt.actor, id, tt.quantity)
		require.NoError(t, err)
		assert.True(t, v.Price.Equal(decimal.NewFromInt(tt.price)), "role %s q=%d got %s", tt.actor.Role, tt.quantity, v.Price)
		assert.Equal(t, tt.tier, v.PriceTier)
	}
}

func TestGet_DeletedVisibleToAdminOnly(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.SoftDelete(ctx, supplierActor, id))

	v, err := f.svc.Get(ctx, adminActor, id, 1)
	require.NoError(t, err)
	require.NotNil(t, v.IsDeleted)
	assert.True(t, *v.IsDeleted)
	assert.NotNil(t, v.DeletedAt)

	for _, actor := range []domain.Actor{supplierActor, {}, {UserID: "c", Role: domain.RoleCorporate}} {
		_, err := f.svc.Get(ctx, actor, id, 1)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	}
}

func TestGet_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), adminActor, "missing", 1)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
}

// ─── Update ──────────────────────────────────────────────────────────────────

func TestUpdate_Success(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)

	v, err := f.svc.Update(context.Background(), supplierActor, id, &domain.UpdateProductInput{StockQuantity: intPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, 40, v.StockQuantity)
	assert.True(t, v.UpdatedAt.After(v.CreatedAt))
}

func TestUpdate_OtherSupplier(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)

	_, err := f.svc.Update(context.Background(), otherSupplier, id, &domain.UpdateProductInput{StockQuantity: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrOwnership)

	stored, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, stored.StockQuantity)
}

func TestUpdate_DeletedProduct(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.SoftDelete(ctx, adminActor, id))
	patch := &domain.UpdateProductInput{StockQuantity: intPtr(1)}

	_, err := f.svc.Update(ctx, adminActor, id, patch)
	assert.ErrorIs(t, err, domain.ErrProductDeleted)

	_, err = f.svc.Update(ctx, supplierActor, id, patch)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdate_SupplierLostStatus(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)
	f.dir.suppliers["supplier-a"].IsDeleted = true

	_, err := f.svc.Update(context.Background(), adminActor, id, &domain.UpdateProductInput{StockQuantity: intPtr(1)})
	assert.ErrorIs(t, err, domain.ErrOwnership)
}

// ─── SoftDelete / Restore ────────────────────────────────────────────────────

func TestSoftDelete_Idempotent(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.SoftDelete(ctx, supplierActor, id))
	first, err := f.repo.GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, f.svc.SoftDelete(ctx, supplierActor, id))
	second, err := f.repo.GetByID(ctx, id)
	require.NoError(t, err)

	assert.True(t, second.IsDeleted())
	assert.Equal(t, first.Lifecycle.DeletedTime(), second.Lifecycle.DeletedTime())
}

func TestSoftDelete_NotOwner(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)

	err := f.svc.SoftDelete(context.Background(), otherSupplier, id)
	assert.ErrorIs(t, err, domain.ErrOwnership)

	stored, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted())
}

func TestSoftDelete_Missing(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SoftDelete(context.Background(), adminActor, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.SoftDelete(ctx, supplierActor, id))

	_, err := f.svc.Restore(ctx, supplierActor, id)
	assert.ErrorIs(t, err, domain.ErrOwnership)

	v, err := f.svc.Restore(ctx, adminActor, id)
	require.NoError(t, err)
	require.NotNil(t, v.IsDeleted)
	assert.False(t, *v.IsDeleted)
	assert.Nil(t, v.DeletedAt)

	v, err = f.svc.Restore(ctx, adminActor, id)
	require.NoError(t, err)
	assert.False(t, *v.IsDeleted)

	_, err = f.svc.Get(ctx, supplierActor, id, 1)
	assert.NoError(t, err)
}

// ─── List / Search ───────────────────────────────────────────────────────────

func TestList_ExcludesDeletedAndPricesPerRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.create(t, nil)
	drop := f.create(t, func(in *domain.CreateProductInput) { in.NameEn = "Jasmine Rice" })
	require.NoError(t, f.svc.SoftDelete(ctx, supplierActor, drop))

	corporate := domain.Actor{UserID: "c", Role: domain.RoleCorporate}
	res, err := f.svc.List(ctx, corporate, repository.SearchFilter{Quantity: 10, Query: "ignored"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, keep, res.Items[0].ID)
	assert.Equal(t, domain.TierWholesale, res.Items[0].PriceTier)
	assert.True(t, res.Items[0].WholesaleEligible)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 20, res.PageSize)

	res, err = f.svc.List(ctx, adminActor, repository.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func TestList_PriceRangeUsesCallerPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, nil)
	ceiling := decimal.NewFromInt(1000)

	res, err := f.svc.List(ctx, domain.Actor{}, repository.SearchFilter{MaxPrice: &ceiling})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	res, err = f.svc.List(ctx, domain.Actor{UserID: "b", Role: domain.RoleB2CVisitor}, repository.SearchFilter{MaxPrice: &ceiling})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, nil)
	f.create(t, func(in *domain.CreateProductInput) {
		in.NameEn = "Olive Oil"
		in.Category = "oils"
	})

	_, err := f.svc.Search(ctx, domain.Actor{}, repository.SearchFilter{Query: "  "})
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	res, err := f.svc.Search(ctx, domain.Actor{}, repository.SearchFilter{Query: "basmati"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Basmati Rice", res.Items[0].NameEn)
}

func TestMetrics_PriceResolutions(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, nil)

	_, err := f.svc.Get(context.Background(), domain.Actor{UserID: "h", Role: domain.RoleHoreca}, id, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.priceResolutions.WithLabelValues("horeca", string(domain.TierHoreca))))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.priceResolutions.WithLabelValues("supplier", string(domain.TierWholesale))))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PriceResolved(domain.RoleAdmin, domain.TierEndUser)
		m.ValidationFailed(errors.New("x"))
		m.CacheResult("product", "hit")
	})
}
