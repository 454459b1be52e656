package social

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/models"
	"github.com/pawstory/pawstory-server/cmd/utils"
)

type Handler struct {
	db   *gorm.DB
	auth *utils.Auth
}

func NewHandler(db *gorm.DB, auth *utils.Auth) *Handler {
	return &Handler{db: db, auth: auth}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/follow", h.auth.Middleware(h.Follow)).Methods("POST")
	router.HandleFunc("/unfollow", h.auth.Middleware(h.Unfollow)).Methods("DELETE")
	router.HandleFunc("/users/{id}/followers", h.auth.Middleware(h.GetFollowers)).Methods("GET")
	router.HandleFunc("/users/{id}/following", h.auth.Middleware(h.GetFollowing)).Methods("GET")
}

// FollowerCount counts members watching the given member, i.e. edges where
// the member is on the following side.
func FollowerCount(db *gorm.DB, memberID uint) int64 {
	var count int64
	db.Model(&models.Follow{}).Where("following_id = ?", memberID).Count(&count)
	return count
}

// FollowingCount counts members the given member watches.
func FollowingCount(db *gorm.DB, memberID uint) int64 {
	var count int64
	db.Model(&models.Follow{}).Where("follower_id = ?", memberID).Count(&count)
	return count
}

// Follow creates an edge from the caller to the target member. Self-follow
// and duplicate edges fail with distinct statuses, self-follow checked first.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		FollowingID uint `json:"following_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.FollowingID == 0 {
		http.Error(w, "following_id is required", http.StatusBadRequest)
		return
	}

	if req.FollowingID == memberID {
		http.Error(w, "Cannot follow yourself", http.StatusBadRequest)
		return
	}

	var target models.Member
	if err := h.db.First(&target, req.FollowingID).Error; err != nil {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}

	var existing models.Follow
	if err := h.db.Where("follower_id = ? AND following_id = ?", memberID, req.FollowingID).First(&existing).Error; err == nil {
		http.Error(w, "Already following this member", http.StatusConflict)
		return
	}

	follow := models.Follow{
		FollowerID:  memberID,
		FollowingID: req.FollowingID,
	}

	if err := h.db.Create(&follow).Error; err != nil {
		// two follow requests racing past the existence check
		if utils.IsUniqueViolation(err) {
			http.Error(w, "Already following this member", http.StatusConflict)
			return
		}
		http.Error(w, "Error creating follow", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(follow)
}

// Unfollow removes the caller's edge to the target member.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		FollowingID uint `json:"following_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := h.db.Where("follower_id = ? AND following_id = ?", memberID, req.FollowingID).Delete(&models.Follow{})
	if result.Error != nil {
		http.Error(w, "Error removing follow", http.StatusInternalServerError)
		return
	}

	if result.RowsAffected == 0 {
		http.Error(w, "Not following this member", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetFollowers lists members watching the given member.
func (h *Handler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	memberID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	var member models.Member
	if err := h.db.First(&member, memberID).Error; err != nil {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}

	var follows []models.Follow
	if err := h.db.Where("following_id = ?", memberID).Preload("Follower").Find(&follows).Error; err != nil {
		http.Error(w, "Error retrieving followers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"followers": follows,
		"count":     len(follows),
	})
}

// GetFollowing lists members the given member watches.
func (h *Handler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	memberID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid member ID", http.StatusBadRequest)
		return
	}

	var member models.Member
	if err := h.db.First(&member, memberID).Error; err != nil {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}

	var follows []models.Follow
	if err := h.db.Where("follower_id = ?", memberID).Preload("Following").Find(&follows).Error; err != nil {
		http.Error(w, "Error retrieving following", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"following": follows,
		"count":     len(follows),
	})
}
