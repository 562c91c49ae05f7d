package criteria_test

import (
	"testing"

	"invoicing-service/internal/criteria"

	"github.com/stretchr/testify/require"
)

func TestParseQuery_PreservesOrder(t *testing.T) {
	t.Parallel()
	q, err := criteria.ParseQuery("sort%5Bnumber%5D=asc&filter[customerName]=John+Doe&limit=5&sort[date]=desc&offset=0")
	require.NoError(t, err)
	require.Equal(t, []criteria.Param{{Key: "customerName", Value: "John Doe"}}, q.Filter)
	require.Equal(t, []criteria.Param{
		{Key: "number", Value: "asc"},
		{Key: "date", Value: "desc"},
	}, q.Sort)
}

func TestParseQuery_IgnoresMalformedKeys(t *testing.T) {
	t.Parallel()
	q, err := criteria.ParseQuery("filter[]=x&filter[name=y&sortx[a]=b&&filter[number]")
	require.NoError(t, err)
	require.Equal(t, []criteria.Param{{Key: "number", Value: ""}}, q.Filter)
	require.Empty(t, q.Sort)
}

func TestParseQuery_BadEscape(t *testing.T) {
	t.Parallel()
	_, err := criteria.ParseQuery("filter[number]=%zz")
	require.ErrorIs(t, err, criteria.ErrInvalidValue)
}

func TestParseQuery_FeedsSort(t *testing.T) {
	t.Parallel()
	q, err := criteria.ParseQuery("sort[number]=asc&sort[date]=desc")
	require.NoError(t, err)
	s := criteria.NewSort(itemSort, q.Sort)
	require.Equal(t, []criteria.Order{{Field: "number", Direction: criteria.Asc}}, s.Orders())
}
