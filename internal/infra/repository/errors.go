package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ドライバ差を吸収して一意制約違反か判定
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
