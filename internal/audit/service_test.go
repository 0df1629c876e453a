package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows       []TimelineRow
	gotOffset  int
	gotLimit   int
	gotFilters TimelineFilters
}

func (r *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	r.gotFilters = filters
	r.gotOffset = offset
	r.gotLimit = limit
	if offset >= len(r.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.rows) {
		end = len(r.rows)
	}
	return r.rows[offset:end], nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, 0, n)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			At:       base.Add(time.Duration(i) * time.Minute),
			ActorID:  "op1",
			Action:   "CLINIC_SUSPENDED",
			Entity:   "clinic",
			EntityID: fmt.Sprintf("c%d", i),
		})
	}
	return rows
}

func TestTimelinePagingFirstPage(t *testing.T) {
	repo := &stubTimelineRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)

	assert.Len(t, result.Rows, 20)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.Equal(t, 21, repo.gotLimit, "over-fetch one row to detect the next page")
}

func TestTimelinePagingLastPage(t *testing.T) {
	repo := &stubTimelineRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)

	assert.Len(t, result.Rows, 5)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
	assert.Equal(t, 20, repo.gotOffset)
}

func TestTimelineDefaultsAndCaps(t *testing.T) {
	repo := &stubTimelineRepo{rows: makeRows(5)}
	svc := NewService(repo)

	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, 21, repo.gotLimit, "default page size is 20")

	_, err = svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 51, repo.gotLimit, "page size is capped at 50")
}
