package repository

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticRow is a pgx.Row backed by fixed column values; nil values leave
// the destination untouched (a NULL column).
type staticRow struct {
	err    error
	values []any
}

func (r staticRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if r.values[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func TestContactOrNilMissingRow(t *testing.T) {
	contact, err := contactOrNil(staticRow{err: pgx.ErrNoRows})
	require.NoError(t, err)
	assert.Nil(t, contact)
}

func TestContactOrNilScanError(t *testing.T) {
	_, err := contactOrNil(staticRow{err: errors.New("conn closed")})
	assert.Error(t, err)
}

func TestContactOrNilScansIdentifiers(t *testing.T) {
	phone := "628111"
	now := time.Now()
	contact, err := contactOrNil(staticRow{values: []any{
		3, 1, &phone, (*string)(nil), (*string)(nil), (*string)(nil),
		"Budi", "id", []string{"vip"}, now, now,
	}})
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, 3, contact.ID)
	assert.Equal(t, "628111", contact.Identifiers.Phone)
	assert.Empty(t, contact.Identifiers.TelegramID)
	assert.Equal(t, "Budi", contact.Name)
	assert.Equal(t, []string{"vip"}, contact.Tags)
}
