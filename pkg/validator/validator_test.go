package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productInput struct {
	NameEN     string `json:"name_en" validate:"omitempty,max=10"`
	Unit       string `json:"unit" validate:"omitempty,oneof=kg box piece"`
	SupplierID string `json:"supplier_id" validate:"omitempty,uuid"`
	Stock      *int   `json:"stock_quantity,omitempty" validate:"omitempty,gte=0,lte=1000"`
	Category   string `json:"category" validate:"required"`
	Internal   string `json:"-" validate:"omitempty,max=1"`
	NoTag      string `validate:"omitempty,max=2"`
}

func intPtr(v int) *int { return &v }

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	err := Validate(productInput{
		NameEN:     "Rice",
		Unit:       "kg",
		SupplierID: "550e8400-e29b-41d4-a716-446655440000",
		Stock:      intPtr(3),
		Category:   "grains",
	})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	tests := []struct {
		name  string
		input productInput
		field string
		msg   string
	}{
		{"required", productInput{}, "category", "is required"},
		{"max", productInput{Category: "c", NameEN: "a very long name"}, "name_en", "must be at most 10 characters"},
		{"oneof", productInput{Category: "c", Unit: "crate"}, "unit", "must be one of: kg box piece"},
		{"uuid", productInput{Category: "c", SupplierID: "sup-1"}, "supplier_id", "must be a valid UUID"},
		{"gte on pointer", productInput{Category: "c", Stock: intPtr(-1)}, "stock_quantity", "must be greater than or equal to 0"},
		{"no json tag", productInput{Category: "c", NoTag: "abc"}, "NoTag", "must be at most 2 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldsOf(t, Validate(tt.input))
			assert.Equal(t, tt.msg, fields[tt.field])
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	fields := fieldsOf(t, Validate(productInput{Unit: "crate"}))

	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "unit")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(productInput{})
	require.Error(t, err)
	assert.Equal(t, "field 'category' is required", err.Error())
}
