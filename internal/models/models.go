package models

import (
	"errors"
	"time"
)

// Record is a single journal entry together with the supportive reply
// produced by the completion provider.
type Record struct {
	ID          string    `json:"recordId" bson:"recordId"`
	UserID      string    `json:"userId" bson:"userId"`
	CreatedDate time.Time `json:"createdDate" bson:"createdDate"`
	Emotion     string    `json:"emotion" bson:"emotion"`
	Content     string    `json:"content" bson:"content"`
	Response    string    `json:"response" bson:"response"`
}

type Records []Record

// Session is the server-held snapshot of a user taken at sign-in time.
// It is not synchronized with later changes to the user.
type Session struct {
	UserID    string    `json:"userId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SubmitRecordRequest struct {
	Emotion string `json:"emotion"`
	Content string `json:"content"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeMongo
	StorageTypeFile
	StorageTypeMemory
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionDestroy     = errors.New("unable to destroy session")
	ErrCompletionFailed   = errors.New("completion request failed")
)
