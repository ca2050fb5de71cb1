package service

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SortType selects the ordering of a top-level comment listing. A cursor is
// only meaningful under the sort type that produced it, so callers echo the
// sort type back with the cursor on every request.
type SortType string

const (
	SortLatest   SortType = "LATEST"
	SortTopLiked SortType = "TOP_LIKED"
)

// ParseSortType maps a query parameter to a sort type, defaulting to LATEST.
func ParseSortType(s string) SortType {
	if strings.EqualFold(s, string(SortTopLiked)) {
		return SortTopLiked
	}
	return SortLatest
}

// Cursors are opaque base64 strings encoding the sort key of the last row of
// a page. LATEST carries "<RFC3339Nano timestamp>_<id>"; TOP_LIKED carries
// "<likeCount>:<id>". Nothing about the ordering is reconstructible from the
// exposed string without decoding it.

// EncodeLatestCursor encodes a resume position in the newest-first ordering.
func EncodeLatestCursor(createdAt time.Time, id uint64) string {
	payload := fmt.Sprintf("%s_%d", createdAt.UTC().Format(time.RFC3339Nano), id)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// DecodeLatestCursor decodes a LATEST cursor. A bare timestamp payload
// (an older cursor shape) is accepted and treated as (timestamp, id 0),
// which filters strictly before the timestamp.
func DecodeLatestCursor(cursor string) (time.Time, uint64, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	parts := strings.Split(string(raw), "_")
	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}

	var id uint64
	if len(parts) == 2 {
		id, err = strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return time.Time{}, 0, fmt.Errorf("%w: bad id", ErrInvalidCursor)
		}
	} else if len(parts) > 2 {
		return time.Time{}, 0, fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}

	return createdAt, id, nil
}

// EncodeTopLikedCursor encodes a resume position in the most-liked ordering.
// The like count is the live count at encoding time.
func EncodeTopLikedCursor(likeCount int64, id uint64) string {
	payload := fmt.Sprintf("%d:%d", likeCount, id)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// DecodeTopLikedCursor decodes a TOP_LIKED cursor into its (likeCount, id)
// tuple.
func DecodeTopLikedCursor(cursor string) (int64, uint64, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed payload", ErrInvalidCursor)
	}

	likeCount, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad like count", ErrInvalidCursor)
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad id", ErrInvalidCursor)
	}

	return likeCount, id, nil
}
