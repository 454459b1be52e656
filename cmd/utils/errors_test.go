package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(gorm.ErrRecordNotFound))

	// postgres wording
	assert.True(t, IsUniqueViolation(errors.New(
		`ERROR: duplicate key value violates unique constraint "idx_follow_pair" (SQLSTATE 23505)`)))
	// sqlite wording
	assert.True(t, IsUniqueViolation(errors.New(
		"UNIQUE constraint failed: diary_likes.member_id, diary_likes.diary_id")))
}

func TestIsUniqueViolation_RealConstraintError(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	type pair struct {
		ID  uint   `gorm:"primarykey"`
		Key string `gorm:"uniqueIndex"`
	}
	if err := db.AutoMigrate(&pair{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	assert.NoError(t, db.Create(&pair{Key: "a"}).Error)
	dup := db.Create(&pair{Key: "a"}).Error
	assert.Error(t, dup)
	assert.True(t, IsUniqueViolation(dup))
}
