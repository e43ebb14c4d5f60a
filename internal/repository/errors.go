package repository

import "errors"

var (
	// 対象なし
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
	// 条件付き更新で0件（残高不足）
	ErrInsufficientBalance = errors.New("insufficient balance")
	// 条件付き更新で0件（状態が想定と違う）
	ErrStateConflict = errors.New("state conflict")
)
