package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearvn/storefront/internal/domain"
)

func TestDecode_Valid(t *testing.T) {
	items, err := Decode([]byte(`[
		{"product":{"id":"a","name":"RAM 16GB","salePrice":500000.0,"finalPrice":450000},"quantity":2},
		{"product":{"id":"b","salePrice":"300000"},"quantity":1.0}
	]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.Money(450_000), items[0].Product.Price())
	assert.Equal(t, 1, items[1].Quantity)
}

func TestDecode_EmptyArray(t *testing.T) {
	items, err := Decode([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecode_RejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":           `{{{`,
		"object":             `{"items":[]}`,
		"null":               `null`,
		"empty":              ``,
		"entry not object":   `[1]`,
		"missing product":    `[{"quantity":1}]`,
		"null product":       `[{"product":null,"quantity":1}]`,
		"numeric id":         `[{"product":{"id":12},"quantity":1}]`,
		"empty id":           `[{"product":{"id":""},"quantity":1}]`,
		"missing quantity":   `[{"product":{"id":"a"}}]`,
		"string quantity":    `[{"product":{"id":"a"},"quantity":"2"}]`,
		"zero quantity":      `[{"product":{"id":"a"},"quantity":0}]`,
		"negative quantity":  `[{"product":{"id":"a"},"quantity":-1}]`,
		"fractional":         `[{"product":{"id":"a"},"quantity":1.5}]`,
		"bad price":          `[{"product":{"id":"a","salePrice":"cheap"},"quantity":1}]`,
		"duplicate product":  `[{"product":{"id":"a"},"quantity":1},{"product":{"id":"a"},"quantity":2}]`,
		"one bad among good": `[{"product":{"id":"a"},"quantity":1},{"product":{"id":"b"},"quantity":0}]`,
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			items, err := Decode([]byte(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Nil(t, items)
		})
	}
}

func TestEncode_EmptyIsArray(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
