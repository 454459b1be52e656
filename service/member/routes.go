package member

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/config"
	"github.com/pawstory/pawstory-server/cmd/models"
	"github.com/pawstory/pawstory-server/cmd/utils"
	"github.com/pawstory/pawstory-server/service/social"
)

const accessTokenTTL = 2 * time.Hour

type Handler struct {
	db   *gorm.DB
	auth *utils.Auth
	cfg  *config.Config
}

func NewHandler(db *gorm.DB, auth *utils.Auth, cfg *config.Config) *Handler {
	return &Handler{db: db, auth: auth, cfg: cfg}
}

// RegisterRoutes sets up all member-related routes. Signup, login, refresh
// and the handle availability check are the only public endpoints.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/signup", h.HandleSignup).Methods("POST")
	router.HandleFunc("/users/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/users/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/users/check_user_id", h.CheckHandleAvailable).Methods("POST")
	router.HandleFunc("/users/pet_info", h.auth.Middleware(h.UpdatePetInfo)).Methods("POST")
	router.HandleFunc("/users/profile/{id}", h.auth.Middleware(h.GetProfile)).Methods("GET")
	router.HandleFunc("/photos/{filename}", h.ServePhoto).Methods("GET")
}

type signupRequest struct {
	Handle    string `json:"handle"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	Password  string `json:"password"`
}

// validateSignup returns field-level errors for a signup request. An empty
// map means the request is valid.
func validateSignup(req signupRequest) map[string]string {
	fieldErrors := make(map[string]string)

	if req.Handle == "" {
		fieldErrors["handle"] = "handle is required"
	} else if len(req.Handle) > 20 {
		fieldErrors["handle"] = "handle must be at most 20 characters"
	}
	if req.Email == "" {
		fieldErrors["email"] = "email is required"
	}
	if req.Name == "" {
		fieldErrors["name"] = "name is required"
	} else if len(req.Name) > 50 {
		fieldErrors["name"] = "name must be at most 50 characters"
	}
	if req.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", req.BirthDate); err != nil {
			fieldErrors["birth_date"] = "birth_date must be YYYY-MM-DD"
		}
	}
	if req.Password == "" {
		fieldErrors["password"] = "password is required"
	} else if len(req.Password) < 6 {
		fieldErrors["password"] = "password must be at least 6 characters"
	}

	return fieldErrors
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if fieldErrors := validateSignup(req); len(fieldErrors) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"errors": fieldErrors})
		return
	}

	// Pre-check duplicates so the caller gets a useful message; the unique
	// indexes remain the real safeguard under concurrent signups.
	var existing models.Member
	if result := h.db.Where("handle = ? OR email = ?", req.Handle, req.Email).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if result.Error != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}

		var errorMessage string
		if existing.Handle == req.Handle && existing.Email == req.Email {
			errorMessage = "Handle and email are already in use"
		} else if existing.Handle == req.Handle {
			errorMessage = "Handle is already in use"
		} else {
			errorMessage = "Email is already in use"
		}
		log.Printf("Signup attempt with duplicate %s", errorMessage)
		http.Error(w, errorMessage, http.StatusConflict)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	member := models.Member{
		Handle:       req.Handle,
		Email:        req.Email,
		Name:         req.Name,
		BirthDate:    req.BirthDate,
		PasswordHash: string(passwordHash),
		IsActive:     true,
	}

	if err := h.db.Create(&member).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			http.Error(w, "Handle or email is already in use", http.StatusConflict)
			return
		}
		http.Error(w, "Error registering member", http.StatusInternalServerError)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(member.ID)
	if err != nil {
		http.Error(w, "Error generating tokens", http.StatusInternalServerError)
		return
	}

	if h.cfg.MailEnabled() {
		go func() {
			if err := h.sendWelcomeEmail(member.Email, member.Name); err != nil {
				log.Printf("Error sending welcome email: %v", err)
			}
		}()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"member":        member,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Handle   string `json:"handle"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var member models.Member
	if result := h.db.Where("handle = ?", loginRequest.Handle).First(&member); result.Error != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !member.IsActive {
		http.Error(w, "Account is inactive", http.StatusUnauthorized)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(member.ID)
	if err != nil {
		http.Error(w, "Error generating tokens", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":       "Login successful",
		"member_id":     member.ID,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// issueTokens mints an access/refresh pair and persists the refresh token
// on the member row for rotation.
func (h *Handler) issueTokens(memberID uint) (string, string, error) {
	accessToken, err := h.auth.GenerateAccessToken(memberID, accessTokenTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := h.auth.GenerateRefreshToken(memberID)
	if err != nil {
		return "", "", err
	}

	err = h.db.Model(&models.Member{}).Where("id = ?", memberID).Updates(map[string]interface{}{
		"refresh_token":            refreshToken,
		"refresh_token_expired_at": time.Now().Add(utils.RefreshTokenTTL),
	}).Error
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var member models.Member
	if err := h.db.Where("refresh_token = ?", refreshRequest.RefreshToken).First(&member).Error; err != nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	if member.RefreshTokenExpiredAt.Before(time.Now()) {
		log.Printf("Expired refresh token for member ID: %d", member.ID)
		http.Error(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(member.ID)
	if err != nil {
		http.Error(w, "Error generating tokens", http.StatusInternalServerError)
		return
	}

	log.Printf("Successful token refresh for member ID: %d", member.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// CheckHandleAvailable reports whether a handle is still free to register.
func (h *Handler) CheckHandleAvailable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Handle == "" {
		http.Error(w, "Handle is required", http.StatusBadRequest)
		return
	}

	var count int64
	if err := h.db.Model(&models.Member{}).Where("handle = ?", req.Handle).Count(&count).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"handle":    req.Handle,
		"available": count == 0,
	})
}

// UpdatePetInfo overwrites the caller's pet fields. The target is always the
// authenticated member; no other member id is accepted.
func (h *Handler) UpdatePetInfo(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.GetMemberIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(utils.MaxPhotoSize); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	petName := r.FormValue("pet_name")
	petType := r.FormValue("pet_type")

	if petName == "" {
		http.Error(w, "Pet name is required", http.StatusBadRequest)
		return
	}
	if !models.ValidPetType(petType) {
		http.Error(w, "Invalid pet type", http.StatusBadRequest)
		return
	}

	var member models.Member
	if err := h.db.First(&member, memberID).Error; err != nil {
		http.Error(w, "Member not found", http.StatusNotFound)
		return
	}

	member.PetName = petName
	member.PetType = petType

	if file, header, err := r.FormFile("pet_photo"); err == nil {
		defer file.Close()

		photoURL, err := utils.SavePhoto(file, header, h.cfg.UploadDir)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error saving photo: %v", err), http.StatusBadRequest)
			return
		}
		member.PetPhotoPath = photoURL
	}

	if err := h.db.Save(&member).Error; err != nil {
		http.Error(w, "Error updating pet info", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(member)
}

// GetProfile returns a member's public profile with live engagement counts.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
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

	var postCount int64
	h.db.Model(&models.Diary{}).Where("member_id = ?", member.ID).Count(&postCount)
	followerCount := social.FollowerCount(h.db, member.ID)
	followingCount := social.FollowingCount(h.db, member.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":              member.ID,
		"handle":          member.Handle,
		"pet_name":        member.PetName,
		"pet_type":        member.PetType,
		"pet_photo_path":  member.PetPhotoPath,
		"post_count":      postCount,
		"follower_count":  followerCount,
		"following_count": followingCount,
	})
}

func (h *Handler) ServePhoto(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := vars["filename"]

	if containsDotDot(filename) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	photoPath := filepath.Join(h.cfg.UploadDir, filepath.Clean(filename))

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, photoPath)
}

func containsDotDot(v string) bool {
	if !filepath.IsAbs(v) {
		v = filepath.Clean(filepath.Join("/", v))
	}
	return filepath.Clean(v) != v
}

func (h *Handler) sendWelcomeEmail(email, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", h.cfg.SMTPUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to pawStory")
	m.SetBody("text/plain", fmt.Sprintf("Hi %s, your pawStory account is ready. Add your pet's info to get started!", name))

	d := gomail.NewDialer(h.cfg.SMTPHost, h.cfg.SMTPPort, h.cfg.SMTPUser, h.cfg.SMTPPass)
	return d.DialAndSend(m)
}
