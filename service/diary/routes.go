package diary

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/config"
	"github.com/pawstory/pawstory-server/cmd/models"
	"github.com/pawstory/pawstory-server/cmd/utils"
)

type Handler struct {
	db   *gorm.DB
	auth *utils.Auth
	cfg  *config.Config
}

func NewHandler(db *gorm.DB, auth *utils.Auth, cfg *config.Config) *Handler {
	return &Handler{db: db, auth: auth, cfg: cfg}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Diary routes
	router.HandleFunc("/diary", h.auth.Middleware(h.CreateDiary)).Methods("POST")
	router.HandleFunc("/diary", h.auth.Middleware(h.GetDiaries)).Methods("GET")
	router.HandleFunc("/diary/{id}", h.auth.Middleware(h.GetDiary)).Methods("GET")
	router.HandleFunc("/diary/{id}", h.auth.Middleware(h.UpdateDiary)).Methods("PUT")
	router.HandleFunc("/diary/{id}", h.auth.Middleware(h.DeleteDiary)).Methods("DELETE")

	// Like routes
	router.HandleFunc("/diary/{id}/like", h.auth.Middleware(h.LikeDiary)).Methods("POST")
	router.HandleFunc("/diary/{id}/unlike", h.auth.Middleware(h.UnlikeDiary)).Methods("DELETE")

	// Comment routes
	router.HandleFunc("/diary/{id}/comments", h.auth.Middleware(h.AddComment)).Methods("POST")
	router.HandleFunc("/diary/{id}/comments", h.auth.Middleware(h.GetComments)).Methods("GET")
	router.HandleFunc("/diary/{id}/comments/{commentId}", h.auth.Middleware(h.DeleteComment)).Methods("DELETE")
}

// canView applies the diary visibility policy: owners see everything,
// followers of the owner additionally see followers-only entries, everyone
// else sees public entries only.
func (h *Handler) canView(viewerID uint, diary *models.Diary) bool {
	if diary.MemberID == viewerID {
		return true
	}
	switch diary.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityFollowers:
		var count int64
		h.db.Model(&models.Follow{}).
			Where("follower_id = ? AND following_id = ?", viewerID, diary.MemberID).
			Count(&count)
		return count > 0
	}
	return false
}

// visibleScope reproduces canView as a query filter for listings.
func (h *Handler) visibleScope(viewerID uint) *gorm.DB {
	return h.db.Model(&models.Diary{}).Where(
		"member_id = ? OR visibility = ? OR (visibility = ? AND member_id IN (?))",
		viewerID,
		models.VisibilityPublic,
		models.VisibilityFollowers,
		h.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", viewerID),
	)
}

// CreateDiary creates a new diary entry for the authenticated member.
func (h *Handler) CreateDiary(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(utils.MaxPhotoSize); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	content := r.FormValue("content")
	if content == "" {
		http.Error(w, "Content is required", http.StatusBadRequest)
		return
	}
	if len([]rune(content)) > 100 {
		http.Error(w, "Content must be at most 100 characters", http.StatusBadRequest)
		return
	}

	visibility := r.FormValue("visibility")
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		http.Error(w, "Invalid visibility", http.StatusBadRequest)
		return
	}

	diary := models.Diary{
		MemberID:   memberID,
		Content:    content,
		Visibility: visibility,
	}

	if file, header, err := r.FormFile("photo"); err == nil {
		defer file.Close()

		photoURL, err := utils.SavePhoto(file, header, h.cfg.UploadDir)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error saving photo: %v", err), http.StatusBadRequest)
			return
		}
		diary.PhotoPath = photoURL
	}

	if err := h.db.Create(&diary).Error; err != nil {
		if diary.PhotoPath != "" {
			utils.DeletePhoto(diary.PhotoPath, h.cfg.UploadDir)
		}
		http.Error(w, "Error creating diary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(diary)
}

// GetDiaries lists diaries visible to the caller, newest first.
func (h *Handler) GetDiaries(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var diaries []models.Diary
	var total int64

	query := h.visibleScope(memberID).Preload("Member")
	query.Count(&total)

	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&diaries).Error; err != nil {
		http.Error(w, "Error retrieving diaries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"diaries":     diaries,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetDiary retrieves a diary with its likes, comments and live counts.
// Entries hidden from the caller respond 404 rather than revealing that the
// diary exists.
func (h *Handler) GetDiary(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}

	var diary models.Diary
	if err := h.db.Preload("Member").Preload("Likes").Preload("Comments.Member").First(&diary, diaryID).Error; err != nil {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	if !h.canView(memberID, &diary) {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	var likeCount, commentCount int64
	h.db.Model(&models.DiaryLike{}).Where("diary_id = ?", diary.ID).Count(&likeCount)
	h.db.Model(&models.DiaryComment{}).Where("diary_id = ?", diary.ID).Count(&commentCount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"diary":         diary,
		"like_count":    likeCount,
		"comment_count": commentCount,
	})
}

// UpdateDiary updates a diary's content or visibility, owner only.
func (h *Handler) UpdateDiary(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}

	var updateData struct {
		Content    string `json:"content"`
		Visibility string `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var diary models.Diary
	if err := h.db.First(&diary, diaryID).Error; err != nil {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	if diary.MemberID != memberID {
		http.Error(w, "Not the diary owner", http.StatusForbidden)
		return
	}

	if updateData.Content != "" {
		if len([]rune(updateData.Content)) > 100 {
			http.Error(w, "Content must be at most 100 characters", http.StatusBadRequest)
			return
		}
		diary.Content = updateData.Content
	}
	if updateData.Visibility != "" {
		if !models.ValidVisibility(updateData.Visibility) {
			http.Error(w, "Invalid visibility", http.StatusBadRequest)
			return
		}
		diary.Visibility = updateData.Visibility
	}

	if err := h.db.Save(&diary).Error; err != nil {
		http.Error(w, "Error updating diary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(diary)
}

// DeleteDiary deletes a diary and its likes and comments in one
// transaction. The dependent rows are removed explicitly; nothing relies on
// the store cascading for us.
func (h *Handler) DeleteDiary(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}

	var diary models.Diary
	if err := h.db.First(&diary, diaryID).Error; err != nil {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	if diary.MemberID != memberID {
		http.Error(w, "Not the diary owner", http.StatusForbidden)
		return
	}

	tx := h.db.Begin()

	if err := tx.Where("diary_id = ?", diaryID).Delete(&models.DiaryLike{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting likes", http.StatusInternalServerError)
		return
	}

	if err := tx.Where("diary_id = ?", diaryID).Delete(&models.DiaryComment{}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting comments", http.StatusInternalServerError)
		return
	}

	if err := tx.Delete(&diary).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting diary", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error deleting diary", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LikeDiary records a like. A second like from the same member conflicts.
func (h *Handler) LikeDiary(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}

	var diary models.Diary
	if err := h.db.First(&diary, diaryID).Error; err != nil {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	if !h.canView(memberID, &diary) {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	var existingLike models.DiaryLike
	if err := h.db.Where("member_id = ? AND diary_id = ?", memberID, diaryID).First(&existingLike).Error; err == nil {
		http.Error(w, "Diary already liked", http.StatusConflict)
		return
	}

	like := models.DiaryLike{
		MemberID: memberID,
		DiaryID:  uint(diaryID),
	}

	if err := h.db.Create(&like).Error; err != nil {
		// two like requests racing past the existence check
		if utils.IsUniqueViolation(err) {
			http.Error(w, "Diary already liked", http.StatusConflict)
			return
		}
		http.Error(w, "Error liking diary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(like)
}

// UnlikeDiary removes the caller's like from a diary.
func (h *Handler) UnlikeDiary(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}

	result := h.db.Where("member_id = ? AND diary_id = ?", memberID, diaryID).Delete(&models.DiaryLike{})
	if result.Error != nil {
		http.Error(w, "Error unliking diary", http.StatusInternalServerError)
		return
	}

	if result.RowsAffected == 0 {
		http.Error(w, "Diary was not liked", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddComment attaches a comment to a visible diary.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
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
	if len([]rune(commentRequest.Content)) > 100 {
		http.Error(w, "Content must be at most 100 characters", http.StatusBadRequest)
		return
	}

	var diary models.Diary
	if err := h.db.First(&diary, diaryID).Error; err != nil {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	if !h.canView(memberID, &diary) {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	comment := models.DiaryComment{
		MemberID: memberID,
		DiaryID:  uint(diaryID),
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

// GetComments retrieves comments for a diary with pagination.
func (h *Handler) GetComments(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}

	var diary models.Diary
	if err := h.db.First(&diary, diaryID).Error; err != nil {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	if !h.canView(memberID, &diary) {
		http.Error(w, "Diary not found", http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	var comments []models.DiaryComment
	var total int64

	query := h.db.Model(&models.DiaryComment{}).Where("diary_id = ?", diaryID).Preload("Member")
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
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	diaryID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid diary ID", http.StatusBadRequest)
		return
	}
	commentID, err := strconv.ParseUint(vars["commentId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid comment ID", http.StatusBadRequest)
		return
	}

	var comment models.DiaryComment
	if err := h.db.Where("id = ? AND diary_id = ?", commentID, diaryID).First(&comment).Error; err != nil {
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
