// Package storagetest holds a shared fixture and conformance checks for
// storage backends.
package storagetest

import (
	"context"
	"encoding/json"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/fieldmap/internal/storage"
	"github.com/OCAP2/fieldmap/pkg/core"
)

// SampleJSON is a small document with both timestamp forms and both color
// forms.
const SampleJSON = `{
  "Soldiers": [
    {
      "Id": 1,
      "FirstName": "John",
      "LastName": "Doe",
      "Rank": "Sergeant",
      "Country": "USA",
      "TrainingInfo": "Infantry",
      "Color": "Red"
    },
    {
      "Id": 2,
      "FirstName": "Anna",
      "LastName": "Berg",
      "Rank": "Lieutenant",
      "Country": "Sweden",
      "TrainingInfo": "Recon",
      "Color": "#1A2B3C"
    }
  ],
  "PositionUpdates": [
    {
      "Timestamp": "2024-05-01T12:00:00",
      "Positions": [
        {
          "SoldierId": 1,
          "Latitude": 32.0853,
          "Longitude": 34.7818
        },
        {
          "SoldierId": 2,
          "Latitude": 32.1,
          "Longitude": 34.8
        },
        {
          "SoldierId": 99,
          "Latitude": 31,
          "Longitude": 35
        }
      ]
    },
    {
      "Timestamp": "2024-05-01T12:00:02.5+03:00",
      "Positions": [
        {
          "SoldierId": 1,
          "Latitude": 32.09,
          "Longitude": 34.79
        }
      ]
    }
  ]
}`

// Sample decodes SampleJSON.
func Sample(t testing.TB) *core.RootObject {
	t.Helper()
	var root core.RootObject
	require.NoError(t, json.Unmarshal([]byte(SampleJSON), &root))
	return &root
}

// Canonical renders root as indented JSON for comparisons.
func Canonical(t testing.TB, root *core.RootObject) string {
	t.Helper()
	data, err := json.MarshalIndent(root, "", "  ")
	require.NoError(t, err)
	return string(data)
}

// Run exercises the Backend contract on an initialized, empty backend.
func Run(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("EmptyIsNotFound", func(t *testing.T) {
		_, err := b.Load(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		root := Sample(t)
		require.NoError(t, b.Save(ctx, root))

		got, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, Canonical(t, root), Canonical(t, got))
	})

	t.Run("SaveRewritesWholeDocument", func(t *testing.T) {
		root := Sample(t)
		root.Soldiers = root.Soldiers[:1]
		root.Soldiers[0].Color = core.Color(color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80})
		root.PositionUpdates = append(root.PositionUpdates, core.PositionUpdate{
			Timestamp: core.NewTimestamp(time.Date(2024, 5, 1, 13, 0, 0, 1234567e2, time.UTC)),
			Positions: []core.Position{{SoldierID: 1, Latitude: 1.5, Longitude: -2.25}},
		})
		require.NoError(t, b.Save(ctx, root))

		got, err := b.Load(ctx)
		require.NoError(t, err)
		require.Len(t, got.Soldiers, 1)
		require.Len(t, got.PositionUpdates, 3)
		assert.Equal(t, Canonical(t, root), Canonical(t, got))
	})

	t.Run("EmptyLogLoadsAsEmptySlice", func(t *testing.T) {
		root := &core.RootObject{Soldiers: Sample(t).Soldiers}
		require.NoError(t, b.Save(ctx, root))

		got, err := b.Load(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got.PositionUpdates)
		assert.Empty(t, got.PositionUpdates)
	})
}
