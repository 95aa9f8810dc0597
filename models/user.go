package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

// User is read-only here: session issuance lives in the auth service. The
// engine only needs username -> business_id resolution for scoping requests.
type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	Username   string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	BusinessId string    `gorm:"size:64;not null;index" json:"business_id"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetBusinessIdByUsername resolves the tenant for a session username,
// preferring the Redis cache ("User:<username>") and falling back to the DB.
func GetBusinessIdByUsername(ctx context.Context, username string) (string, error) {
	if username == "" {
		return "", errors.New("username is required")
	}

	var cached User
	exists, err := config.GetRedisObject("User:"+username, &cached)
	if err == nil && exists && cached.BusinessId != "" {
		return cached.BusinessId, nil
	}

	db := config.GetDB()
	var user User
	err = db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return "", utils.ErrorRecordNotFound
	}

	_ = config.SetRedisObject("User:"+username, user, 30*time.Minute)
	return user.BusinessId, nil
}
