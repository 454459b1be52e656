package diary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/config"
	"github.com/pawstory/pawstory-server/cmd/models"
	"github.com/pawstory/pawstory-server/cmd/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	db.AutoMigrate(
		&models.Member{}, &models.Diary{}, &models.DiaryLike{},
		&models.DiaryComment{}, &models.Follow{},
	)
	return db
}

func setupTestRouter(t *testing.T, db *gorm.DB) (*mux.Router, *utils.Auth) {
	cfg := &config.Config{SecretKey: "test-secret", UploadDir: t.TempDir()}
	auth := utils.NewAuth(cfg.SecretKey)
	handler := NewHandler(db, auth, cfg)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router, auth
}

func createTestMember(t *testing.T, db *gorm.DB, handle string) *models.Member {
	member := &models.Member{
		Handle:       handle,
		Email:        handle + "@example.com",
		Name:         "Test " + handle,
		PasswordHash: "hashed",
		IsActive:     true,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}
	return member
}

func createTestDiary(t *testing.T, db *gorm.DB, memberID uint, visibility string) *models.Diary {
	diary := &models.Diary{
		MemberID:   memberID,
		Content:    "a day at the park",
		Visibility: visibility,
	}
	if err := db.Create(diary).Error; err != nil {
		t.Fatalf("failed to create test diary: %v", err)
	}
	return diary
}

func bearerToken(t *testing.T, auth *utils.Auth, memberID uint) string {
	token, err := auth.GenerateAccessToken(memberID, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return "Bearer " + token
}

func doRequest(router *mux.Router, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateDiary(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("content", "first walk with Mongshil")
	form.WriteField("visibility", models.VisibilityFollowers)
	form.Close()

	req := httptest.NewRequest("POST", "/diary", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", bearerToken(t, auth, alice.ID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var diary models.Diary
	assert.NoError(t, db.Where("member_id = ?", alice.ID).First(&diary).Error)
	assert.Equal(t, "first walk with Mongshil", diary.Content)
	assert.Equal(t, models.VisibilityFollowers, diary.Visibility)
}

func TestCreateDiary_InvalidVisibility(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("content", "hello")
	form.WriteField("visibility", "friends")
	form.Close()

	req := httptest.NewRequest("POST", "/diary", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", bearerToken(t, auth, alice.ID))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDiary_PrivateHiddenFromOthers(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPrivate)

	// owner can read it
	w := doRequest(router, "GET", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, alice.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// anyone else gets a 404, not a 403, so existence stays hidden
	w = doRequest(router, "GET", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, bob.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDiary_FollowersOnly(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	carol := createTestMember(t, db, "carol")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityFollowers)

	db.Create(&models.Follow{FollowerID: bob.ID, FollowingID: alice.ID})

	w := doRequest(router, "GET", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, bob.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "GET", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, carol.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDiaries_VisibilityFilter(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	createTestDiary(t, db, alice.ID, models.VisibilityPublic)
	createTestDiary(t, db, alice.ID, models.VisibilityFollowers)
	createTestDiary(t, db, alice.ID, models.VisibilityPrivate)

	// bob is a stranger: public only
	w := doRequest(router, "GET", "/diary", bearerToken(t, auth, bob.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["total"])

	// as a follower bob additionally sees followers-only entries
	db.Create(&models.Follow{FollowerID: bob.ID, FollowingID: alice.ID})
	w = doRequest(router, "GET", "/diary", bearerToken(t, auth, bob.ID), nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(2), resp["total"])

	// the owner sees all three
	w = doRequest(router, "GET", "/diary", bearerToken(t, auth, alice.ID), nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(3), resp["total"])
}

func TestLikeDiary_DuplicateConflicts(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPublic)
	token := bearerToken(t, auth, bob.ID)

	w := doRequest(router, "POST", fmt.Sprintf("/diary/%d/like", diary.ID), token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, "POST", fmt.Sprintf("/diary/%d/like", diary.ID), token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var likeCount int64
	db.Model(&models.DiaryLike{}).Where("diary_id = ?", diary.ID).Count(&likeCount)
	assert.Equal(t, int64(1), likeCount)
}

func TestUnlikeDiary(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPublic)
	token := bearerToken(t, auth, bob.ID)

	doRequest(router, "POST", fmt.Sprintf("/diary/%d/like", diary.ID), token, nil)

	w := doRequest(router, "DELETE", fmt.Sprintf("/diary/%d/unlike", diary.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// not liked anymore
	w = doRequest(router, "DELETE", fmt.Sprintf("/diary/%d/unlike", diary.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// re-like works after unlike
	w = doRequest(router, "POST", fmt.Sprintf("/diary/%d/like", diary.ID), token, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAddAndListComments(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPublic)

	w := doRequest(router, "POST", fmt.Sprintf("/diary/%d/comments", diary.ID),
		bearerToken(t, auth, bob.ID), map[string]string{"content": "so cute!"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, "GET", fmt.Sprintf("/diary/%d/comments", diary.ID),
		bearerToken(t, auth, alice.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["total"])
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPublic)

	comment := models.DiaryComment{MemberID: bob.ID, DiaryID: diary.ID, Content: "so cute!"}
	db.Create(&comment)

	path := fmt.Sprintf("/diary/%d/comments/%d", diary.ID, comment.ID)

	w := doRequest(router, "DELETE", path, bearerToken(t, auth, alice.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, "DELETE", path, bearerToken(t, auth, bob.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUpdateDiary_OwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPublic)

	update := map[string]string{"visibility": models.VisibilityPrivate}

	w := doRequest(router, "PUT", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, bob.ID), update)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, "PUT", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, alice.ID), update)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Diary
	db.First(&updated, diary.ID)
	assert.Equal(t, models.VisibilityPrivate, updated.Visibility)
}

func TestDeleteDiary_CascadesLikesAndComments(t *testing.T) {
	db := setupTestDB(t)
	router, auth := setupTestRouter(t, db)
	alice := createTestMember(t, db, "alice")
	bob := createTestMember(t, db, "bob")
	carol := createTestMember(t, db, "carol")
	diary := createTestDiary(t, db, alice.ID, models.VisibilityPublic)

	db.Create(&models.DiaryLike{MemberID: bob.ID, DiaryID: diary.ID})
	db.Create(&models.DiaryLike{MemberID: carol.ID, DiaryID: diary.ID})
	db.Create(&models.DiaryComment{MemberID: bob.ID, DiaryID: diary.ID, Content: "nice"})

	w := doRequest(router, "DELETE", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, bob.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, "DELETE", fmt.Sprintf("/diary/%d", diary.ID), bearerToken(t, auth, alice.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var likeCount, commentCount int64
	db.Model(&models.DiaryLike{}).Where("diary_id = ?", diary.ID).Count(&likeCount)
	db.Model(&models.DiaryComment{}).Where("diary_id = ?", diary.ID).Count(&commentCount)
	assert.Equal(t, int64(0), likeCount)
	assert.Equal(t, int64(0), commentCount)
}

func TestDiaryRoutes_RequireAuth(t *testing.T) {
	db := setupTestDB(t)
	router, _ := setupTestRouter(t, db)

	w := doRequest(router, "GET", "/diary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, "GET", "/diary/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
