package repository

import (
	"testing"

	"github.com/hitoshi/carbonmarket/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFilter_Empty(t *testing.T) {
	f := NewFilter()
	assert.Equal(t, "", f.Where())
	assert.Empty(t, f.Args())
}

func TestFilter_SkipsBlankValues(t *testing.T) {
	f := NewFilter("p.delete_flag = false").
		ILike("  ", "p.name").
		Eq("p.status", "").
		Contains("up.sectors", " ")

	assert.Equal(t, "WHERE p.delete_flag = false", f.Where())
	assert.Empty(t, f.Args())
}

func TestFilter_DirectoryPredicates(t *testing.T) {
	f := NewFilter("up.delete_flag = false", "up.is_public = true").
		ILike("forest", "up.full_name", "up.bio").
		Eq("up.country", "KE").
		Contains("up.expertise_tags", "MRV")

	assert.Equal(t,
		"WHERE up.delete_flag = false AND up.is_public = true"+
			" AND (up.full_name ILIKE $1 OR up.bio ILIKE $1)"+
			" AND up.country = $2"+
			" AND up.expertise_tags @> ARRAY[$3]::text[]",
		f.Where())
	assert.Equal(t, []any{"%forest%", "KE", "MRV"}, f.Args())
}

func TestFilter_PagedDoesNotAliasCountArgs(t *testing.T) {
	f := NewFilter().Eq("c.owner_user_id", "u1")

	clause, args := f.Paged(model.PageRequest{Page: 3, PageSize: 20})
	assert.Equal(t, "LIMIT $2 OFFSET $3", clause)
	assert.Equal(t, []any{"u1", 20, 40}, args)

	assert.Equal(t, []any{"u1"}, f.Args(), "count args must not include LIMIT/OFFSET")
}

func TestBuildSet(t *testing.T) {
	set, args := buildSet([]model.FieldValue{
		{Column: "name", Value: "Mangrove restoration"},
		{Column: "crediting_start", Value: nil},
	})
	assert.Equal(t, "name = $1, crediting_start = $2", set)
	assert.Equal(t, []any{"Mangrove restoration", nil}, args)
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "c.id, c.legal_name", prefixed("c", []string{"id", "legal_name"}))
}
