package service_test

import (
	"encoding/base64"
	"testing"
	"time"

	"eventfeed/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, service.SortLatest, service.ParseSortType(""))
	assert.Equal(t, service.SortLatest, service.ParseSortType("LATEST"))
	assert.Equal(t, service.SortLatest, service.ParseSortType("latest"))
	assert.Equal(t, service.SortTopLiked, service.ParseSortType("TOP_LIKED"))
	assert.Equal(t, service.SortTopLiked, service.ParseSortType("top_liked"))

	// Unknown values fall back to the default ordering
	assert.Equal(t, service.SortLatest, service.ParseSortType("OLDEST"))
}

func TestLatestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 6, 14, 9, 30, 15, 123456789, time.UTC)
	cursor := service.EncodeLatestCursor(createdAt, 42)

	gotTime, gotID, err := service.DecodeLatestCursor(cursor)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, uint64(42), gotID)
}

func TestLatestCursorNormalizesToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+7", 7*3600)
	createdAt := time.Date(2025, 6, 14, 16, 30, 15, 0, loc)

	gotTime, _, err := service.DecodeLatestCursor(service.EncodeLatestCursor(createdAt, 1))
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, time.UTC, gotTime.Location())
}

func TestLatestCursorAcceptsBareTimestamp(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2025, 6, 14, 9, 30, 15, 0, time.UTC)
	cursor := base64.StdEncoding.EncodeToString([]byte(createdAt.Format(time.RFC3339Nano)))

	gotTime, gotID, err := service.DecodeLatestCursor(cursor)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(gotTime))
	assert.Equal(t, uint64(0), gotID)
}

func TestLatestCursorRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not base64":       "%%%not-base64%%%",
		"garbage payload":  base64.StdEncoding.EncodeToString([]byte("garbage")),
		"bad id":           base64.StdEncoding.EncodeToString([]byte("2025-06-14T09:30:15Z_abc")),
		"too many parts":   base64.StdEncoding.EncodeToString([]byte("2025-06-14T09:30:15Z_1_2")),
		"empty payload":    base64.StdEncoding.EncodeToString([]byte("")),
		"numeric payload":  base64.StdEncoding.EncodeToString([]byte("12345")),
		"top liked cursor": service.EncodeTopLikedCursor(10, 5),
	}

	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := service.DecodeLatestCursor(cursor)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidCursor)
		})
	}
}

func TestTopLikedCursorRoundTrip(t *testing.T) {
	t.Parallel()

	cursor := service.EncodeTopLikedCursor(17, 93)

	likeCount, id, err := service.DecodeTopLikedCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, int64(17), likeCount)
	assert.Equal(t, uint64(93), id)
}

func TestTopLikedCursorZeroLikes(t *testing.T) {
	t.Parallel()

	likeCount, id, err := service.DecodeTopLikedCursor(service.EncodeTopLikedCursor(0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(0), likeCount)
	assert.Equal(t, uint64(1), id)
}

func TestTopLikedCursorRejectsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not base64":     "!!!",
		"one part":       base64.StdEncoding.EncodeToString([]byte("42")),
		"three parts":    base64.StdEncoding.EncodeToString([]byte("1:2:3")),
		"bad like count": base64.StdEncoding.EncodeToString([]byte("x:2")),
		"bad id":         base64.StdEncoding.EncodeToString([]byte("1:y")),
		"negative id":    base64.StdEncoding.EncodeToString([]byte("1:-2")),
		"empty payload":  base64.StdEncoding.EncodeToString([]byte("")),
	}

	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := service.DecodeTopLikedCursor(cursor)
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrInvalidCursor)
		})
	}
}

func TestCursorsAreOpaque(t *testing.T) {
	t.Parallel()

	cursor := service.EncodeLatestCursor(time.Now(), 7)
	_, err := base64.StdEncoding.DecodeString(cursor)
	assert.NoError(t, err, "cursor must be valid base64")
	assert.NotContains(t, cursor, " ")
}
