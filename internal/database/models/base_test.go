package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArray_ScanValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  StringArray
	}{
		{"nil", nil, nil},
		{"empty_string", "", nil},
		{"json_string", `["a","b"]`, StringArray{"a", "b"}},
		{"json_bytes", []byte(`["ctrl-1"]`), StringArray{"ctrl-1"}},
		{"empty_list", "[]", StringArray{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a StringArray
			require.NoError(t, a.Scan(tt.input))
			assert.Equal(t, tt.want, a)
		})
	}

	var a StringArray
	assert.Error(t, a.Scan(42))
	assert.Error(t, a.Scan("{not json"))

	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringArray{"x", "y"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["x","y"]`, v)
}

func TestBase_BeforeCreate(t *testing.T) {
	b := &Base{}
	require.NoError(t, b.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, b.ID)

	fixed := uuid.New()
	b = &Base{ID: fixed}
	require.NoError(t, b.BeforeCreate(nil))
	assert.Equal(t, fixed, b.ID)
}

func TestDatabaseVersion_Valid(t *testing.T) {
	assert.True(t, DatabaseVersionFree.Valid())
	assert.True(t, DatabaseVersionPremium.Valid())
	assert.True(t, DatabaseVersionProfessional.Valid())
	assert.False(t, DatabaseVersion("enterprise").Valid())
	assert.False(t, DatabaseVersion("").Valid())
}

func TestUser_Accessors(t *testing.T) {
	u := &User{}
	assert.Equal(t, "", u.EmailValue())
	assert.Equal(t, "", u.PrincipalValue())

	email, principal := "a@example.com", "aaaaa-aa"
	u.Email, u.PrincipalID = &email, &principal
	assert.Equal(t, email, u.EmailValue())
	assert.Equal(t, principal, u.PrincipalValue())
}
