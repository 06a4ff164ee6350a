package models

import "errors"

var (
	// ErrPresentationNotFound 文稿不存在错误
	ErrPresentationNotFound = errors.New("presentation not found")

	// ErrVersionConflict 文稿已被更新的版本覆盖
	ErrVersionConflict = errors.New("presentation was modified by a newer save")
)
