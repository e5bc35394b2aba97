// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoteDType(t *testing.T) {
	tests := []struct {
		a, b DType
		want DType
	}{
		{DTypeFloat64, DTypeFloat64, DTypeFloat64},
		{DTypeFloat64, DTypeInt64, DTypeFloat64},
		{DTypeFloat32, DTypeInt32, DTypeFloat64},
		{DTypeInt64, DTypeInt32, DTypeInt64},
		{DTypeInt32, DTypeInt32, DTypeInt32},
	}
	for _, tt := range tests {
		got, err := promoteDType(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s + %s", tt.a, tt.b)
		// Promotion is symmetric.
		got, err = promoteDType(tt.b, tt.a)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := promoteDType(DTypeFloat64, DTypeString)
	assert.Error(t, err)
	_, err = promoteDType(DTypeBool, DTypeBool)
	assert.NoError(t, err) // same dtype never promotes
}

func TestIndexPairLen(t *testing.T) {
	assert.Equal(t, int64(0), IndexPair{}.Len())
	assert.Equal(t, int64(5), IndexPair{Begin: 2, End: 7}.Len())
}
