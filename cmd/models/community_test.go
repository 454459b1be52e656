package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagPartForName(t *testing.T) {
	assert.Equal(t, TagPartTogether, TagPartForName("같이해요"))
	assert.Equal(t, TagPartQuestion, TagPartForName("궁금해요"))
	assert.Equal(t, TagPartInfoShare, TagPartForName("정보공유"))
	assert.Equal(t, TagPartDaily, TagPartForName("일상공유"))
}

func TestTagPartForName_EnglishAliases(t *testing.T) {
	assert.Equal(t, TagPartTogether, TagPartForName("together"))
	assert.Equal(t, TagPartQuestion, TagPartForName("question"))
	assert.Equal(t, TagPartInfoShare, TagPartForName("info-share"))
	assert.Equal(t, TagPartDaily, TagPartForName("daily-share"))
}

func TestTagPartForName_UnknownFallsBackToOther(t *testing.T) {
	assert.Equal(t, TagPartOther, TagPartForName("random-tag"))
	assert.Equal(t, TagPartOther, TagPartForName(""))
}

func TestDefaultTagNameIsDaily(t *testing.T) {
	assert.Equal(t, TagPartDaily, TagPartForName(DefaultTagName))
}

func TestValidTagPart(t *testing.T) {
	assert.True(t, ValidTagPart(TagPartQuestion))
	assert.True(t, ValidTagPart(TagPartOther))
	assert.False(t, ValidTagPart("XYZ"))
}

func TestValidVisibility(t *testing.T) {
	assert.True(t, ValidVisibility(VisibilityPublic))
	assert.True(t, ValidVisibility(VisibilityFollowers))
	assert.True(t, ValidVisibility(VisibilityPrivate))
	assert.False(t, ValidVisibility("friends"))
}

func TestValidPetType(t *testing.T) {
	assert.True(t, ValidPetType(PetTypeDog))
	assert.True(t, ValidPetType(PetTypeFish))
	assert.False(t, ValidPetType("HAMSTER"))
}
