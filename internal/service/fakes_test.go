package service_test

import (
	"errors"
	"sort"
	"sync"
	"time"

	"eventfeed/internal/model"
	"eventfeed/internal/service"
	"eventfeed/internal/util"
)

var errFakeNotFound = errors.New("record not found")

// fakeStore is an in-memory stand-in for the database shared by the fake
// repositories, so like counts observed through the comment repository stay
// consistent with the like repository.
type fakeStore struct {
	mu sync.Mutex

	users    map[uint64]*model.User
	posts    map[uint64]*model.Post
	comments map[uint64]*model.Comment
	likes    map[uint64]map[uint64]bool // commentID -> set of userIDs

	nextCommentID uint64
	nextLikeID    uint64
	clock         time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uint64]*model.User),
		posts:    make(map[uint64]*model.Post),
		comments: make(map[uint64]*model.Comment),
		likes:    make(map[uint64]map[uint64]bool),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) addUser(id uint64, username string) *model.User {
	u := &model.User{ID: id, Username: username, FullName: username}
	s.users[id] = u
	return u
}

func (s *fakeStore) addPost(id, userID uint64) *model.Post {
	p := &model.Post{ID: id, UserID: userID}
	s.posts[id] = p
	return p
}

// tick advances the logical clock so successive creates get distinct
// timestamps.
func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// seedComment inserts a comment at an explicit timestamp, for tests that
// need controlled orderings and ties.
func (s *fakeStore) seedComment(postID, userID uint64, parentID *uint64, content string, createdAt time.Time) *model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	c := &model.Comment{
		ID:        s.nextCommentID,
		PostID:    postID,
		UserID:    userID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: createdAt,
	}
	s.comments[c.ID] = c
	return c
}

func (s *fakeStore) seedLike(userID, commentID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.likes[commentID] == nil {
		s.likes[commentID] = make(map[uint64]bool)
	}
	s.likes[commentID][userID] = true
}

func (s *fakeStore) likeCount(commentID uint64) int64 {
	return int64(len(s.likes[commentID]))
}

// ---- comment repository ----

type fakeCommentRepo struct {
	store *fakeStore

	// repliesErr injects a failure into FindRepliesLatest for a given
	// parent, to exercise error paths in subtree walks.
	repliesErr map[uint64]error
}

func (r *fakeCommentRepo) Create(comment *model.Comment, files []*model.FileRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	comment.ID = s.nextCommentID
	comment.CreatedAt = s.tick()
	if comment.ParentID != nil {
		// Snapshot the parent ID like a real insert would; the caller may
		// reuse the pointed-to variable after Create returns.
		pid := *comment.ParentID
		comment.ParentID = &pid
	}
	for _, f := range files {
		f.CommentID = &comment.ID
		comment.Files = append(comment.Files, *f)
	}
	s.comments[comment.ID] = comment
	return nil
}

func (r *fakeCommentRepo) FindByID(id uint64) (*model.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, errFakeNotFound
	}
	if u, ok := s.users[c.UserID]; ok {
		c.User = *u
	}
	if c.ParentID != nil {
		if p, ok := s.comments[*c.ParentID]; ok {
			parent := *p
			if pu, ok := s.users[p.UserID]; ok {
				parent.User = *pu
			}
			c.Parent = &parent
		}
	}
	return c, nil
}

func (r *fakeCommentRepo) topLevel(postID uint64) []*model.Comment {
	var out []*model.Comment
	for _, c := range r.store.comments {
		if c.PostID == postID && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out
}

func sortLatest(comments []*model.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
}

func trim(comments []*model.Comment, limit int) []*model.Comment {
	if len(comments) > limit {
		return comments[:limit]
	}
	return comments
}

func (r *fakeCommentRepo) FindTopLevelByPostLatest(postID uint64, limit int) ([]*model.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := r.topLevel(postID)
	sortLatest(out)
	return trim(out, limit), nil
}

func (r *fakeCommentRepo) FindTopLevelByPostLatestCursor(postID uint64, before time.Time, beforeID uint64, limit int) ([]*model.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Comment
	for _, c := range r.topLevel(postID) {
		if c.CreatedAt.Before(before) || (c.CreatedAt.Equal(before) && c.ID < beforeID) {
			out = append(out, c)
		}
	}
	sortLatest(out)
	return trim(out, limit), nil
}

func (r *fakeCommentRepo) sortTopLiked(comments []*model.Comment) {
	s := r.store
	sort.Slice(comments, func(i, j int) bool {
		li, lj := s.likeCount(comments[i].ID), s.likeCount(comments[j].ID)
		if li != lj {
			return li > lj
		}
		return comments[i].ID > comments[j].ID
	})
}

func (r *fakeCommentRepo) FindTopLevelByPostTopLiked(postID uint64, limit int) ([]*model.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := r.topLevel(postID)
	r.sortTopLiked(out)
	return trim(out, limit), nil
}

func (r *fakeCommentRepo) FindTopLevelByPostTopLikedCursor(postID uint64, likeCount int64, beforeID uint64, limit int) ([]*model.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Comment
	for _, c := range r.topLevel(postID) {
		lc := s.likeCount(c.ID)
		if lc < likeCount || (lc == likeCount && c.ID < beforeID) {
			out = append(out, c)
		}
	}
	r.sortTopLiked(out)
	return trim(out, limit), nil
}

func (r *fakeCommentRepo) replies(parentID uint64) []*model.Comment {
	var out []*model.Comment
	for _, c := range r.store.comments {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}

func (r *fakeCommentRepo) FindRepliesLatest(parentID uint64, limit int) ([]*model.Comment, error) {
	if err := r.repliesErr[parentID]; err != nil {
		return nil, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := r.replies(parentID)
	sortLatest(out)
	return trim(out, limit), nil
}

func (r *fakeCommentRepo) FindRepliesLatestCursor(parentID uint64, before time.Time, beforeID uint64, limit int) ([]*model.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Comment
	for _, c := range r.replies(parentID) {
		if c.CreatedAt.Before(before) || (c.CreatedAt.Equal(before) && c.ID < beforeID) {
			out = append(out, c)
		}
	}
	sortLatest(out)
	return trim(out, limit), nil
}

func (r *fakeCommentRepo) Update(comment *model.Comment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[comment.ID]; !ok {
		return errFakeNotFound
	}
	s.comments[comment.ID] = comment
	return nil
}

// Delete cascades to the reply subtree and its likes, like the database
// foreign keys do.
func (r *fakeCommentRepo) Delete(id uint64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	r.deleteLocked(id)
	return nil
}

func (r *fakeCommentRepo) deleteLocked(id uint64) {
	delete(r.store.comments, id)
	delete(r.store.likes, id)
	for _, c := range r.store.comments {
		if c.ParentID != nil && *c.ParentID == id {
			r.deleteLocked(c.ID)
		}
	}
}

func (r *fakeCommentRepo) CountByPostID(postID uint64) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (r *fakeCommentRepo) CountByParentID(parentID uint64) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(r.replies(parentID))), nil
}

// cachingCommentRepo layers a cache-aside read path over fakeCommentRepo,
// the way the production repository does with Redis: FindByID serves cached
// snapshots until they are invalidated, and Delete must drop the whole
// deleted subtree from the cache rather than just the root, or cascade
// deletion leaves ghost replies readable until the entries expire.
type cachingCommentRepo struct {
	*fakeCommentRepo

	mu    sync.Mutex
	cache map[uint64]model.Comment
}

func newCachingCommentRepo(inner *fakeCommentRepo) *cachingCommentRepo {
	return &cachingCommentRepo{
		fakeCommentRepo: inner,
		cache:           make(map[uint64]model.Comment),
	}
}

func (r *cachingCommentRepo) FindByID(id uint64) (*model.Comment, error) {
	r.mu.Lock()
	if snap, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return &snap, nil
	}
	r.mu.Unlock()

	c, err := r.fakeCommentRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[id] = *c
	r.mu.Unlock()
	return c, nil
}

func (r *cachingCommentRepo) Delete(id uint64) error {
	r.store.mu.Lock()
	ids := []uint64{id}
	frontier := []uint64{id}
	for len(frontier) > 0 {
		var children []uint64
		for _, pid := range frontier {
			for _, c := range r.store.comments {
				if c.ParentID != nil && *c.ParentID == pid {
					children = append(children, c.ID)
				}
			}
		}
		ids = append(ids, children...)
		frontier = children
	}
	r.store.mu.Unlock()

	if err := r.fakeCommentRepo.Delete(id); err != nil {
		return err
	}

	r.mu.Lock()
	for _, cid := range ids {
		delete(r.cache, cid)
	}
	r.mu.Unlock()
	return nil
}

// ---- like repository ----

type fakeLikeRepo struct {
	store *fakeStore
}

func (r *fakeLikeRepo) Create(like *model.Like) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLikeID++
	like.ID = s.nextLikeID
	if s.likes[like.CommentID] == nil {
		s.likes[like.CommentID] = make(map[uint64]bool)
	}
	s.likes[like.CommentID][like.UserID] = true
	return nil
}

func (r *fakeLikeRepo) FindByUserAndComment(userID, commentID uint64) (*model.Like, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.likes[commentID][userID] {
		return &model.Like{UserID: userID, CommentID: commentID}, nil
	}
	return nil, errFakeNotFound
}

func (r *fakeLikeRepo) CountByComment(commentID uint64) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likeCount(commentID), nil
}

func (r *fakeLikeRepo) CountByComments(commentIDs []uint64) (map[uint64]int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]int64, len(commentIDs))
	for _, id := range commentIDs {
		out[id] = s.likeCount(id)
	}
	return out, nil
}

func (r *fakeLikeRepo) FindUserLikedComments(userID uint64, commentIDs []uint64) (map[uint64]bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]bool, len(commentIDs))
	for _, id := range commentIDs {
		if s.likes[id][userID] {
			out[id] = true
		}
	}
	return out, nil
}

func (r *fakeLikeRepo) DeleteByUserAndComment(userID, commentID uint64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.likes[commentID], userID)
	return nil
}

// ---- user and post repositories ----

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) FindByID(id uint64) (*model.User, error) {
	if u, ok := r.store.users[id]; ok {
		return u, nil
	}
	return nil, errFakeNotFound
}

type fakePostRepo struct {
	store *fakeStore
}

func (r *fakePostRepo) FindByID(id uint64) (*model.Post, error) {
	if p, ok := r.store.posts[id]; ok {
		return p, nil
	}
	return nil, errFakeNotFound
}

// ---- notification service ----

type notifyCall struct {
	kind       string
	receiverID uint64
	senderID   uint64
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeNotifier) record(kind string, receiverID, senderID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{kind: kind, receiverID: receiverID, senderID: senderID})
}

func (f *fakeNotifier) recorded() []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifyCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeNotifier) NotifyCommentReply(receiverID, senderID uint64, senderName string, commentID, postID uint64, content string) {
	f.record("comment_reply", receiverID, senderID)
}

func (f *fakeNotifier) NotifyPostComment(receiverID, senderID uint64, senderName string, commentID, postID uint64, content string) {
	f.record("post_comment", receiverID, senderID)
}

func (f *fakeNotifier) NotifyCommentLiked(receiverID, senderID uint64, senderName string, commentID uint64) {
	f.record("comment_liked", receiverID, senderID)
}

func (f *fakeNotifier) GetNotificationsByUserID(userID uint64, limit, offset int) ([]*model.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) GetUnreadCount(userID uint64) (int64, error) { return 0, nil }

func (f *fakeNotifier) MarkAsRead(notificationID, userID uint64) error { return nil }

func (f *fakeNotifier) MarkAllAsRead(userID uint64) error { return nil }

func (f *fakeNotifier) DeleteNotification(notificationID, userID uint64) error { return nil }

func (f *fakeNotifier) SetWSHub(hub service.UserHub) {}

func (f *fakeNotifier) Stop() {}

// ---- hubs and uploader ----

type recordingHub struct {
	mu       sync.Mutex
	messages map[string][]map[string]interface{}
}

func newRecordingHub() *recordingHub {
	return &recordingHub{messages: make(map[string][]map[string]interface{})}
}

func (h *recordingHub) BroadcastToTopic(topic string, payload map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[topic] = append(h.messages[topic], payload)
}

func (h *recordingHub) topicMessages(topic string) []map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.messages[topic]
}

type panickingHub struct{}

func (panickingHub) BroadcastToTopic(topic string, payload map[string]interface{}) {
	panic("hub is down")
}

type fakeUploader struct {
	fail bool
}

func (u *fakeUploader) UploadAttachment(data []byte, filename string) (*util.UploadResult, error) {
	if u.fail {
		return nil, errors.New("upstream unavailable")
	}
	return &util.UploadResult{
		URL:      "https://cdn.example.com/" + filename,
		FileName: filename,
		FileType: "image/jpeg",
	}, nil
}

// ---- fixture ----

type engineFixture struct {
	store       *fakeStore
	commentRepo *fakeCommentRepo
	notifier    *fakeNotifier
	hub         *recordingHub
	uploader    *fakeUploader
	comments    service.CommentService
	likes       service.LikeService
}

func newEngineFixture() *engineFixture {
	store := newFakeStore()
	store.addUser(1, "alice")
	store.addUser(2, "bob")
	store.addUser(3, "carol")
	store.addPost(100, 1)

	commentRepo := &fakeCommentRepo{store: store}
	likeRepo := &fakeLikeRepo{store: store}
	userRepo := &fakeUserRepo{store: store}
	postRepo := &fakePostRepo{store: store}

	notifier := &fakeNotifier{}
	hub := newRecordingHub()
	uploader := &fakeUploader{}
	counters := service.NewCounterResolver(commentRepo, likeRepo)
	broadcaster := service.NewBroadcaster(nil, hub)

	return &engineFixture{
		store:       store,
		commentRepo: commentRepo,
		notifier:    notifier,
		hub:         hub,
		uploader:    uploader,
		comments:    service.NewCommentService(commentRepo, userRepo, postRepo, counters, uploader, notifier, broadcaster),
		likes:       service.NewLikeService(likeRepo, commentRepo, userRepo, notifier),
	}
}
