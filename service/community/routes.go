package community

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/models"
	"github.com/pawstory/pawstory-server/cmd/utils"
)

type PostHandler struct {
	db   *gorm.DB
	auth *utils.Auth
}

func NewPostHandler(db *gorm.DB, auth *utils.Auth) *PostHandler {
	return &PostHandler{db: db, auth: auth}
}

func (h *PostHandler) RegisterRoutes(router *mux.Router) {
	// Post routes
	router.HandleFunc("/community/posts", h.auth.Middleware(h.CreatePost)).Methods("POST")
	router.HandleFunc("/community/posts", h.auth.Middleware(h.GetPosts)).Methods("GET")
	router.HandleFunc("/community/posts/tag/{part}", h.auth.Middleware(h.GetPostsByTag)).Methods("GET")
	router.HandleFunc("/community/posts/{id}", h.auth.Middleware(h.GetPost)).Methods("GET")
	router.HandleFunc("/community/posts/{id}", h.auth.Middleware(h.UpdatePost)).Methods("PUT")
	router.HandleFunc("/community/posts/{id}", h.auth.Middleware(h.DeletePost)).Methods("DELETE")

	// Like routes
	router.HandleFunc("/community/posts/{id}/like", h.auth.Middleware(h.LikePost)).Methods("POST")
	router.HandleFunc("/community/posts/{id}/unlike", h.auth.Middleware(h.UnlikePost)).Methods("DELETE")

	// Comment routes
	router.HandleFunc("/community/posts/{id}/comments", h.auth.Middleware(h.AddComment)).Methods("POST")
	router.HandleFunc("/community/posts/{id}/comments", h.auth.Middleware(h.GetComments)).Methods("GET")
	router.HandleFunc("/community/posts/{id}/comments/{commentId}", h.auth.Middleware(h.DeleteComment)).Methods("DELETE")
}

// resolveTag finds or creates the tag for a free-text name. The category
// code is derived from the fixed name table; unknown names land in OTH.
/// It runs on the root session, never inside a transaction: on postgres a
// duplicate-key error aborts the surrounding transaction, which would make
// the recovery query below fail too.
func (h *PostHandler) resolveTag(name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultTagName
	}
	part := models.TagPartForName(name)

	var tag models.Tag
	err := h.db.Where("name = ? AND part = ?", name, part).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	tag = models.Tag{Name: name, Part: part}
	if err := h.db.Create(&tag).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			// concurrent create resolved it for us
			if err := h.db.Where("name = ? AND part = ?", name, part).First(&tag).Error; err != nil {
				return nil, err
			}
			return &tag, nil
		}
		return nil, err
	}
	return &tag, nil
}

// CreatePost creates a community post, resolving its tag by name.
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Tag     string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if len([]rune(req.Title)) > 50 {
		http.Error(w, "Title must be at most 50 characters", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}

	tag, err := h.resolveTag(req.Tag)
	if err != nil {
		http.Error(w, "Error resolving tag", http.StatusInternalServerError)
		return
	}

	post := models.Post{
		MemberID: memberID,
		Title:    req.Title,
		Content:  req.Content,
		TagID:    tag.ID,
	}

	if err := h.db.Create(&post).Error; err != nil {
		http.Error(w, "Error creating post", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Member").Preload("Tag").First(&post, post.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(post)
}

// GetPosts retrieves all posts with pagination.
func (h *PostHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var posts []models.Post
	var total int64

	query := h.db.Model(&models.Post{}).Preload("Member").Preload("Tag")
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"posts":       posts,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetPostsByTag lists posts whose tag carries the given category code.
func (h *PostHandler) GetPostsByTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	part := vars["part"]

	if !models.ValidTagPart(part) {
		http.Error(w, "Invalid tag category", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var posts []models.Post
	var total int64

	query := h.db.Model(&models.Post{}).
		Where("tag_id IN (?)", h.db.Model(&models.Tag{}).Select("id").Where("part = ?", part)).
		Preload("Member").Preload("Tag")
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		http.Error(w, "Error retrieving posts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"posts":       posts,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetPost retrieves a post with its tag, comments and live counts.
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.Preload("Member").Preload("Tag").Preload("Comments.Member").First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	var likeCount, commentCount int64
	h.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likeCount)
	h.db.Model(&models.PostComment{}).Where("post_id = ?", post.ID).Count(&commentCount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"post":          post,
		"like_count":    likeCount,
		"comment_count": commentCount,
	})
}

// UpdatePost updates a post's title, content or tag, owner only.
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var updateData struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Tag     string `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if post.MemberID != memberID {
		http.Error(w, "Not the post owner", http.StatusForbidden)
		return
	}

	if updateData.Title != "" {
		if len([]rune(updateData.Title)) > 50 {
			http.Error(w, "Title must be at most 50 characters", http.StatusBadRequest)
			return
		}
		post.Title = updateData.Title
	}
	if updateData.Content != "" {
		post.Content = updateData.Content
	}
	if updateData.Tag != "" {
		tag, err := h.resolveTag(updateData.Tag)
		if err != nil {
			http.Error(w, "Error resolving tag", http.StatusInternalServerError)
			return
		}
		post.TagID = tag.ID
	}

	if err := h.db.Save(&post).Error; err != nil {
		http.Error(w, "Error updating post", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Member").Preload("Tag").First(&post, post.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(post)
}

// DeletePost deletes a post and its likes and comments in one transaction.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	if post.MemberID != memberID {
		http.Error(w, "Not the post owner", http.StatusForbidden)
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting likes", http.StatusInternalServerError)
		return
	}

	if err := tx.Where("post_id = ?", postID).Delete(&models.PostComment{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting comments", http.StatusInternalServerError)
		return
	}

	if err := tx.Delete(&post).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting post", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LikePost records a like. A second like from the same member conflicts.
func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	var existingLike models.PostLike
	if err := h.db.Where("member_id = ? AND post_id = ?", memberID, postID).First(&existingLike).Error; err == nil {
		http.Error(w, "Post already liked", http.StatusConflict)
		return
	}

	like := models.PostLike{
		MemberID: memberID,
		PostID:   uint(postID),
	}

	if err := h.db.Create(&like).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			http.Error(w, "Post already liked", http.StatusConflict)
			return
		}
		http.Error(w, "Error liking post", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(like)
}

// UnlikePost removes the caller's like from a post.
func (h *PostHandler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	result := h.db.Where("member_id = ? AND post_id = ?", memberID, postID).Delete(&models.PostLike{})
	if result.Error != nil {
		http.Error(w, "Error unliking post", http.StatusInternalServerError)
		return
	}

	if result.RowsAffected == 0 {
		http.Error(w, "Post was not liked", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment adds a comment to a post.
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	var commentRequest struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&commentRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if commentRequest.Content == "" {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}

	comment := models.PostComment{
		MemberID: memberID,
		PostID:   uint(postID),
		Content:  commentRequest.Content,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		http.Error(w, "Error creating comment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(comment)
}

// GetComments retrieves comments for a post with pagination.
func (h *PostHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var comments []models.PostComment
	var total int64

	query := h.db.Model(&models.PostComment{}).Where("post_id = ?", postID).Preload("Member")
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&comments).Error; err != nil {
		http.Error(w, "Error retrieving comments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"comments":    comments,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// DeleteComment deletes a comment, author only.
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	postID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}
	commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var comment models.PostComment
	if err := h.db.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error; err != nil {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}

	if comment.MemberID != memberID {
		http.Error(w, "Not the comment author", http.StatusForbidden)
		return
	}

	if err := h.db.Delete(&comment).Error; err != nil {
		http.Error(w, "Error deleting comment", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
