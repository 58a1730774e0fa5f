package rejections

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook-backend/internal/model"
)

func TestStoreAppendsDailyFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	s.now = func() time.Time { return time.Date(2026, 3, 4, 22, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	evt := model.Event{ID: "e1", Type: model.EventReviewCreated, TourID: "t1"}
	require.NoError(t, s.WriteEvent(ctx, evt, errors.New("recompute failed")))
	require.NoError(t, s.WriteRaw(ctx, model.TopicBookings, []byte("{bad"), errors.New("decode")))

	f, err := os.Open(filepath.Join(dir, "rejections_2026-03-04.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		recs = append(recs, r)
	}
	require.Len(t, recs, 2)
	assert.Equal(t, model.TopicReviews, recs[0].Topic)
	assert.Equal(t, "e1", recs[0].Event.ID)
	assert.Equal(t, "recompute failed", recs[0].Reason)
	assert.Equal(t, "{bad", recs[1].Raw)
	assert.Nil(t, recs[1].Event)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewStore(t.TempDir()).WriteEvent(ctx, model.Event{Type: model.EventBookingCreated}, errors.New("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
