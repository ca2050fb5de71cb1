package service

import (
	"log"

	"eventfeed/internal/model"
	"eventfeed/internal/repository"
)

// maxSubtreeFetch bounds how many direct replies are fetched per level when
// a subtree is walked. Threads deeper or wider than this are truncated; see
// GetAllRepliesFlattened.
const maxSubtreeFetch = 1000

// CounterResolver derives like counts, transitive reply counts and the
// viewer's liked flag on demand. Counts are never stored or cached, so a
// concurrent like or reply is visible on the very next read.
type CounterResolver struct {
	commentRepo repository.CommentRepository
	likeRepo    repository.LikeRepository
}

func NewCounterResolver(commentRepo repository.CommentRepository, likeRepo repository.LikeRepository) *CounterResolver {
	return &CounterResolver{
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
	}
}

// Enrich fills the derived fields of a single comment. viewerID is nil for
// unauthenticated reads, which yields IsLikedByCurrentUser=false.
func (cr *CounterResolver) Enrich(comment *model.Comment, viewerID *uint64) {
	cr.EnrichAll([]*model.Comment{comment}, viewerID)
}

// EnrichAll fills the derived fields of a page of comments. Like counts and
// liked flags are resolved in one query each; the transitive reply count
// walks each comment's subtree. Failures downgrade to zero values and a log
// line rather than failing the read.
func (cr *CounterResolver) EnrichAll(comments []*model.Comment, viewerID *uint64) {
	if len(comments) == 0 {
		return
	}

	ids := make([]uint64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	likeCounts, err := cr.likeRepo.CountByComments(ids)
	if err != nil {
		log.Printf("Failed to resolve like counts: %v", err)
		likeCounts = map[uint64]int64{}
	}

	liked := map[uint64]bool{}
	if viewerID != nil {
		liked, err = cr.likeRepo.FindUserLikedComments(*viewerID, ids)
		if err != nil {
			log.Printf("Failed to resolve liked flags for user %d: %v", *viewerID, err)
			liked = map[uint64]bool{}
		}
	}

	for _, c := range comments {
		c.LikeCount = likeCounts[c.ID]
		c.IsLikedByCurrentUser = liked[c.ID]
		c.ReplyCount = cr.TransitiveReplyCount(c.ID)

		if c.Parent != nil && c.Parent.User.ID != 0 {
			c.ParentAuthorName = c.Parent.User.DisplayName()
			c.ParentUsername = c.Parent.User.Username
		}
	}
}

// LikeCount returns the live like count of a comment.
func (cr *CounterResolver) LikeCount(commentID uint64) int64 {
	count, err := cr.likeRepo.CountByComment(commentID)
	if err != nil {
		log.Printf("Failed to count likes for comment %d: %v", commentID, err)
		return 0
	}
	return count
}

// TransitiveReplyCount counts all descendants of a comment, not just its
// direct children, by walking the reply tree through parent-keyed lookups.
func (cr *CounterResolver) TransitiveReplyCount(commentID uint64) int64 {
	var count int64
	replies, err := cr.commentRepo.FindRepliesLatest(commentID, maxSubtreeFetch)
	if err != nil {
		log.Printf("Failed to load replies for comment %d: %v", commentID, err)
		return 0
	}
	count += int64(len(replies))
	for _, reply := range replies {
		count += cr.TransitiveReplyCount(reply.ID)
	}
	return count
}

// IsLikedBy reports whether the viewer has liked the comment. A nil viewer
// is an unauthenticated read and always yields false.
func (cr *CounterResolver) IsLikedBy(viewerID *uint64, commentID uint64) bool {
	if viewerID == nil {
		return false
	}
	like, err := cr.likeRepo.FindByUserAndComment(*viewerID, commentID)
	return err == nil && like != nil
}
