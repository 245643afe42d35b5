package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/TradeCatalog/internal/domain"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

var (
	adminActor    = domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	supplierActor = domain.Actor{UserID: "supplier-a", Role: domain.RoleSupplier}
	otherSupplier = domain.Actor{UserID: "supplier-b", Role: domain.RoleSupplierMerchant}
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// validInput is the reference product: end_user=150, b2c=2000,
// corporate=1850, horeca=1900, wholesale=1800.
func validInput() *domain.CreateProductInput {
	return &domain.CreateProductInput{
		NameEn:               "Basmati Rice",
		NameAr:               "أرز بسمتي",
		Category:             "grains",
		Unit:                 "KG",
		EndUserPrice:         dec(150),
		RetailPriceB2C:       dec(2000),
		RetailPriceCorporate: dec(1850),
		RetailPriceHoreca:    dec(1900),
		WholesalePrice:       dec(1800),
	}
}

func existingProduct() *domain.Product {
	p, err := NewCatalogValidator().ValidateCreate(validInput(), supplierActor)
	if err != nil {
		panic(err)
	}
	p.ID = "p-1"
	return p
}

func assertAppError(t *testing.T, err error, code, field string) {
	t.Helper()
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, field, appErr.Field)
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidateCreate
// ─────────────────────────────────────────────────────────────────────────────

func TestValidateCreate_AppliesDefaults(t *testing.T) {
	p, err := NewCatalogValidator().ValidateCreate(validInput(), supplierActor)
	require.NoError(t, err)

	assert.Equal(t, "supplier-a", p.SupplierID)
	assert.True(t, p.UnitSize.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 5, p.WholesaleMinQuantity)
	assert.Equal(t, 0, p.StockQuantity)
	assert.True(t, p.IsAvailable)
	assert.False(t, p.IsDeleted())
}

func TestValidateCreate_CreationPermission(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleB2CVisitor, domain.RoleCorporate, domain.RoleHoreca, domain.RoleStorageClient, domain.RoleAnonymous} {
		t.Run(role.String(), func(t *testing.T) {
			_, err := NewCatalogValidator().ValidateCreate(validInput(), domain.Actor{UserID: "u-1", Role: role})
			assertAppError(t, err, "OWNERSHIP_VIOLATION", "")
		})
	}
}

func TestValidateCreate_SupplierCreatesOnlyForItself(t *testing.T) {
	in := validInput()
	in.SupplierID = "supplier-b"

	_, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
	assertAppError(t, err, "OWNERSHIP_VIOLATION", "")

	in.SupplierID = "supplier-a"
	p, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
	require.NoError(t, err)
	assert.Equal(t, "supplier-a", p.SupplierID)
}

func TestValidateCreate_AdminMustNameSupplier(t *testing.T) {
	_, err := NewCatalogValidator().ValidateCreate(validInput(), adminActor)
	assertAppError(t, err, "MISSING_REQUIRED_FIELD", "supplier_id")

	in := validInput()
	in.SupplierID = "supplier-b"
	p, err := NewCatalogValidator().ValidateCreate(in, adminActor)
	require.NoError(t, err)
	assert.Equal(t, "supplier-b", p.SupplierID)
}

func TestValidateCreate_RequiredFieldsInOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *domain.CreateProductInput)
		field  string
	}{
		{"end user price", func(in *domain.CreateProductInput) { in.EndUserPrice = nil }, "end_user_price"},
		{"negative b2c", func(in *domain.CreateProductInput) { in.RetailPriceB2C = dec(-1) }, "retail_price_b2c"},
		{"corporate", func(in *domain.CreateProductInput) { in.RetailPriceCorporate = nil }, "retail_price_corporate"},
		{"horeca", func(in *domain.CreateProductInput) { in.RetailPriceHoreca = nil }, "retail_price_horeca"},
		{"wholesale", func(in *domain.CreateProductInput) { in.WholesalePrice = nil }, "wholesale_price"},
		{"category", func(in *domain.CreateProductInput) { in.Category = "" }, "category"},
		{"blank unit", func(in *domain.CreateProductInput) { in.Unit = "   " }, "unit"},
		{"name", func(in *domain.CreateProductInput) { in.NameEn = "" }, "name_en"},
		{"first of several", func(in *domain.CreateProductInput) {
			in.NameEn = ""
			in.Category = ""
			in.RetailPriceHoreca = nil
		}, "retail_price_horeca"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			_, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
			assertAppError(t, err, "MISSING_REQUIRED_FIELD", tt.field)
			assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
		})
	}
}

func TestValidateCreate_ZeroPriceIsPresent(t *testing.T) {
	in := validInput()
	in.EndUserPrice = dec(0)
	_, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
	assert.NoError(t, err)
}

func TestValidateCreate_Quantities(t *testing.T) {
	zero := decimal.Zero
	tests := []struct {
		name   string
		mutate func(in *domain.CreateProductInput)
		field  string
	}{
		{"min quantity zero", func(in *domain.CreateProductInput) { in.WholesaleMinQuantity = intPtr(0) }, "wholesale_min_quantity"},
		{"negative stock", func(in *domain.CreateProductInput) { in.StockQuantity = intPtr(-1) }, "stock_quantity"},
		{"zero unit size", func(in *domain.CreateProductInput) { in.UnitSize = &zero }, "unit_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			_, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
			assertAppError(t, err, "INVALID_QUANTITY", tt.field)
		})
	}
}

func TestValidateCreate_PriceOrdering(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *domain.CreateProductInput)
		field   string
		message string
	}{
		{"above corporate", func(in *domain.CreateProductInput) {
			in.WholesalePrice = dec(2000)
			in.RetailPriceCorporate = dec(1800)
			in.RetailPriceB2C = dec(2500)
			in.RetailPriceHoreca = dec(2500)
		}, "retail_price_corporate", "wholesale_price > retail_price_corporate"},
		{"above b2c checked first", func(in *domain.CreateProductInput) {
			in.WholesalePrice = dec(5000)
		}, "retail_price_b2c", "wholesale_price > retail_price_b2c"},
		{"above horeca", func(in *domain.CreateProductInput) {
			in.RetailPriceHoreca = dec(1700)
		}, "retail_price_horeca", "wholesale_price > retail_price_horeca"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			_, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
			assertAppError(t, err, "PRICE_ORDERING_VIOLATION", tt.field)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, 422, apperrors.HTTPStatus(err))
		})
	}
}

func TestValidateCreate_EqualWholesaleIsAccepted(t *testing.T) {
	in := validInput()
	in.WholesalePrice = dec(1850)
	in.RetailPriceHoreca = dec(1850)
	_, err := NewCatalogValidator().ValidateCreate(in, supplierActor)
	assert.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidateUpdate
// ─────────────────────────────────────────────────────────────────────────────

func TestValidateUpdate_MergesPatch(t *testing.T) {
	existing := existingProduct()
	patch := &domain.UpdateProductInput{
		NameEn:        strPtr("  Premium Basmati "),
		StockQuantity: intPtr(12),
		EndUserPrice:  dec(175),
	}

	p, err := NewCatalogValidator().ValidateUpdate(existing, patch, supplierActor)
	require.NoError(t, err)
	assert.Equal(t, "Premium Basmati", p.NameEn)
	assert.Equal(t, 12, p.StockQuantity)
	assert.True(t, p.Prices.EndUser.Equal(decimal.NewFromInt(175)))
	assert.True(t, p.Prices.Wholesale.Equal(decimal.NewFromInt(1800)))

	assert.Equal(t, "Basmati Rice", existing.NameEn)
}

func TestValidateUpdate_Ownership(t *testing.T) {
	existing := existingProduct()
	patch := &domain.UpdateProductInput{NameEn: strPtr("Stolen")}

	_, err := NewCatalogValidator().ValidateUpdate(existing, patch, otherSupplier)
	assertAppError(t, err, "OWNERSHIP_VIOLATION", "")

	_, err = NewCatalogValidator().ValidateUpdate(existing, patch, domain.Actor{UserID: "supplier-a", Role: domain.RoleCorporate})
	assertAppError(t, err, "OWNERSHIP_VIOLATION", "")

	_, err = NewCatalogValidator().ValidateUpdate(existing, patch, adminActor)
	assert.NoError(t, err)
}

func TestValidateUpdate_SupplierCannotBeReassigned(t *testing.T) {
	existing := existingProduct()

	_, err := NewCatalogValidator().ValidateUpdate(existing, &domain.UpdateProductInput{SupplierID: strPtr("supplier-b")}, adminActor)
	assertAppError(t, err, "OWNERSHIP_VIOLATION", "")

	_, err = NewCatalogValidator().ValidateUpdate(existing, &domain.UpdateProductInput{SupplierID: strPtr("supplier-a")}, adminActor)
	assert.NoError(t, err)
}

func TestValidateUpdate_DeletedProduct(t *testing.T) {
	existing := existingProduct()
	existing.Lifecycle = domain.DeletedAt(time.Now())
	patch := &domain.UpdateProductInput{NameEn: strPtr("x")}

	_, err := NewCatalogValidator().ValidateUpdate(existing, patch, adminActor)
	assertAppError(t, err, "PRODUCT_DELETED", "")
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	_, err = NewCatalogValidator().ValidateUpdate(existing, patch, supplierActor)
	assertAppError(t, err, "NOT_FOUND", "")
}

func TestValidateUpdate_RevalidatesMergedRecord(t *testing.T) {
	tests := []struct {
		name  string
		patch *domain.UpdateProductInput
		code  string
		field string
	}{
		{"blank category", &domain.UpdateProductInput{Category: strPtr(" ")}, "MISSING_REQUIRED_FIELD", "category"},
		{"negative price", &domain.UpdateProductInput{RetailPriceHoreca: dec(-5)}, "MISSING_REQUIRED_FIELD", "retail_price_horeca"},
		{"zero minimum", &domain.UpdateProductInput{WholesaleMinQuantity: intPtr(0)}, "INVALID_QUANTITY", "wholesale_min_quantity"},
		{"wholesale above corporate", &domain.UpdateProductInput{WholesalePrice: dec(1860)}, "PRICE_ORDERING_VIOLATION", "retail_price_corporate"},
		{"corporate below wholesale", &domain.UpdateProductInput{RetailPriceCorporate: dec(1000)}, "PRICE_ORDERING_VIOLATION", "retail_price_corporate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalogValidator().ValidateUpdate(existingProduct(), tt.patch, supplierActor)
			assertAppError(t, err, tt.code, tt.field)
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidateDelete / ValidateRestore / ValidateSupplier
// ─────────────────────────────────────────────────────────────────────────────

func TestValidateDelete(t *testing.T) {
	v := NewCatalogValidator()
	active := existingProduct()
	deleted := existingProduct()
	deleted.Lifecycle = domain.DeletedAt(time.Now())

	noop, err := v.ValidateDelete(active, supplierActor)
	require.NoError(t, err)
	assert.False(t, noop)

	noop, err = v.ValidateDelete(deleted, supplierActor)
	require.NoError(t, err)
	assert.True(t, noop)

	noop, err = v.ValidateDelete(deleted, adminActor)
	require.NoError(t, err)
	assert.True(t, noop)

	_, err = v.ValidateDelete(active, otherSupplier)
	assertAppError(t, err, "OWNERSHIP_VIOLATION", "")
}

func TestValidateRestore(t *testing.T) {
	v := NewCatalogValidator()
	active := existingProduct()
	deleted := existingProduct()
	deleted.Lifecycle = domain.DeletedAt(time.Now())

	noop, err := v.ValidateRestore(deleted, adminActor)
	require.NoError(t, err)
	assert.False(t, noop)

	noop, err = v.ValidateRestore(active, adminActor)
	require.NoError(t, err)
	assert.True(t, noop)

	_, err = v.ValidateRestore(deleted, supplierActor)
	assertAppError(t, err, "OWNERSHIP_VIOLATION", "")
}

func TestValidateSupplier(t *testing.T) {
	v := NewCatalogValidator()

	assert.NoError(t, v.ValidateSupplier(&domain.Supplier{ID: "s", Role: domain.RoleSupplier}))
	for _, s := range []*domain.Supplier{
		nil,
		{ID: "s", Role: domain.RoleSupplier, IsDeleted: true},
		{ID: "s", Role: domain.RoleHoreca},
	} {
		err := v.ValidateSupplier(s)
		assertAppError(t, err, "OWNERSHIP_VIOLATION", "")
		assert.Contains(t, err.Error(), "supplier reference is not an active supplier")
	}
}

func TestValidateImageChange(t *testing.T) {
	v := NewCatalogValidator()
	active := existingProduct()
	deleted := existingProduct()
	deleted.Lifecycle = domain.DeletedAt(time.Now())
	buyer := domain.Actor{UserID: "buyer-1", Role: domain.RoleHoreca}

	assert.NoError(t, v.ValidateImageChange(active, supplierActor))
	assert.NoError(t, v.ValidateImageChange(active, adminActor))
	assertAppError(t, v.ValidateImageChange(active, otherSupplier), "OWNERSHIP_VIOLATION", "")
	assertAppError(t, v.ValidateImageChange(active, buyer), "OWNERSHIP_VIOLATION", "")

	assertAppError(t, v.ValidateImageChange(deleted, adminActor), "PRODUCT_DELETED", "")
	assertAppError(t, v.ValidateImageChange(deleted, supplierActor), "NOT_FOUND", "")
}
