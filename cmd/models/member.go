package models

import (
	"time"

	"gorm.io/gorm"
)

// Pet types a member can register. Anything else is rejected at signup.
const (
	PetTypeDog  = "DOG"
	PetTypeCat  = "CAT"
	PetTypeBird = "BIRD"
	PetTypeFish = "FISH"
)

func ValidPetType(petType string) bool {
	switch petType {
	case PetTypeDog, PetTypeCat, PetTypeBird, PetTypeFish:
		return true
	}
	return false
}

type Member struct {
	gorm.Model
	Handle       string `gorm:"column:handle;size:20;not null;uniqueIndex" json:"handle"`
	Email        string `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Name         string `gorm:"column:name;size:50;not null" json:"name"`
	PasswordHash string `gorm:"column:password_hash;size:255;not null" json:"-"`
	BirthDate    string `gorm:"column:birth_date;size:10" json:"birth_date"`
	PetName      string `gorm:"column:pet_name;size:50" json:"pet_name"`
	PetType      string `gorm:"column:pet_type;size:4;default:DOG" json:"pet_type"`
	PetPhotoPath string `gorm:"column:pet_photo_path;size:255" json:"pet_photo_path"`
	IsActive     bool   `gorm:"column:is_active;default:true" json:"is_active"`
	IsStaff      bool   `gorm:"column:is_staff;default:false" json:"is_staff"`

	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	Diaries []Diary `gorm:"foreignKey:MemberID" json:"diaries,omitempty"`
	Posts   []Post  `gorm:"foreignKey:MemberID" json:"posts,omitempty"`
}

func (Member) TableName() string {
	return "members"
}
