package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	cases := []struct {
		name   string
		a, b   any
		want   int
		wantOK bool
	}{
		{"numbers", float64(2), float64(10), -1, true},
		{"strings", "b", "a", 1, true},
		{"timestamps", "2025-03-01T10:00:00Z", "2025-03-01T09:00:00+00:00", 1, true},
		{"bools", false, true, -1, true},
		{"nil pair", nil, nil, 0, true},
		{"mixed kinds", "5", float64(5), 0, false},
		{"nil vs value", nil, "x", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := compare(tc.a, tc.b)
			assert.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestMatchesNormalizesFilterValues(t *testing.T) {
	when := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := Document{"guests": float64(3), "tourDate": "2025-03-01T09:00:00Z"}

	assert.True(t, matches(doc, []Filter{Where("guests", OpEq, 3)}))
	assert.True(t, matches(doc, []Filter{Where("guests", OpGt, int64(2)), Where("guests", OpLte, 3)}))
	assert.True(t, matches(doc, []Filter{Where("tourDate", OpEq, when)}))
	assert.False(t, matches(doc, []Filter{Where("missing", OpEq, "x")}))
}

func TestEncodeDecode(t *testing.T) {
	type tour struct {
		ID     string   `json:"id,omitempty"`
		Title  string   `json:"title"`
		Price  float64  `json:"price"`
		Tags   []string `json:"tags"`
		Active bool     `json:"isActive"`
	}
	doc, err := Encode(tour{Title: "Atlas trek", Price: 410, Tags: []string{"hiking"}, Active: true})
	require.NoError(t, err)
	assert.NotContains(t, doc, "id")
	assert.Equal(t, float64(410), doc["price"])
	assert.Equal(t, []any{"hiking"}, doc["tags"])

	doc[FieldID] = "t-1"
	var back tour
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, "t-1", back.ID)
	assert.Equal(t, "Atlas trek", back.Title)
}

func TestFaulty(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("unavailable")
	f := NewFaulty(NewMemory(nil))

	id, err := f.Create(ctx, "profiles", Document{"role": "vendor"}, "u1")
	require.NoError(t, err)

	f.FailOnCollection(OpRead, "tours", boom)
	_, err = f.Read(ctx, "tours", "x")
	require.ErrorIs(t, err, boom)
	doc, err := f.Read(ctx, "profiles", id)
	require.NoError(t, err)
	assert.Equal(t, "vendor", doc["role"])

	f.FailOn(OpQuery, boom)
	_, err = f.Query(ctx, "profiles", Query{})
	require.ErrorIs(t, err, boom)

	f.Heal(OpQuery)
	docs, err := f.Query(ctx, "profiles", Query{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 2, f.Calls(OpQuery))
}
