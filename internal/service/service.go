// Package service implements the journaling flow: a signed-in user submits an
// emotion and an entry, receives a supportive reply and lists past entries.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/moodjournal/internal/config"
	"github.com/patric-chuzhbe/moodjournal/internal/logger"
	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

type recordKeeper interface {
	InsertRecord(ctx context.Context, record *models.Record) error
	GetUserRecords(ctx context.Context, userID string) (models.Records, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	recordKeeper
	pinger
}

type completer interface {
	Complete(ctx context.Context, emotion, content string) (string, error)
}

type recordPublisher interface {
	PublishRecordCreated(ctx context.Context, record *models.Record) error
}

// UnavailableMarker is stored as the response under the persist-marker policy.
const UnavailableMarker = "Your therapist is unavailable right now. Please come back to this entry later."

const publishTimeout = 5 * time.Second

type Service struct {
	db            storage
	completion    completer
	publisher     recordPublisher
	failurePolicy string
	now           func() time.Time
}

type InitOption func(*Service)

// WithPublisher enables record.created events.
func WithPublisher(publisher recordPublisher) InitOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func New(
	db storage,
	completion completer,
	failurePolicy string,
	optionsProto ...InitOption,
) *Service {
	s := &Service{
		db:            db,
		completion:    completion,
		failurePolicy: failurePolicy,
		now:           time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(s)
	}

	return s
}

// Submit creates a record for the session's user. Without a session it fails
// with models.ErrUnauthenticated before touching the store or the completion API.
func (s *Service) Submit(ctx context.Context, sess *models.Session, emotion, content string) (*models.Record, error) {
	if sess == nil || sess.UserID == "" {
		return nil, models.ErrUnauthenticated
	}

	response, err := s.completion.Complete(ctx, emotion, content)
	if err != nil {
		logger.Log.Errorw("Error calling the `s.completion.Complete()`",
			"userID", sess.UserID,
			"policy", s.failurePolicy,
			zap.Error(err),
		)

		switch s.failurePolicy {
		case config.FailurePolicyAbort:
			if !errors.Is(err, models.ErrCompletionFailed) {
				err = fmt.Errorf("%w: %w", models.ErrCompletionFailed, err)
			}
			return nil, err
		case config.FailurePolicyPersistMarker:
			response = UnavailableMarker
		default:
			response = ""
		}
	}

	record := &models.Record{
		ID:          uuid.New().String(),
		UserID:      sess.UserID,
		CreatedDate: s.now().UTC(),
		Emotion:     emotion,
		Content:     content,
		Response:    response,
	}

	if err := s.db.InsertRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/Submit(): error while `s.db.InsertRecord()` calling: %w", err)
	}

	s.publishRecordCreated(ctx, record)

	return record, nil
}

func (s *Service) publishRecordCreated(ctx context.Context, record *models.Record) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishRecordCreated(ctx, record); err != nil {
		logger.Log.Warnw("Error calling the `s.publisher.PublishRecordCreated()`",
			"recordID", record.ID,
			zap.Error(err),
		)
	}
}

// ListByUser returns the session user's records, newest first.
func (s *Service) ListByUser(ctx context.Context, sess *models.Session) (models.Records, error) {
	if sess == nil || sess.UserID == "" {
		return nil, models.ErrUnauthenticated
	}

	records, err := s.db.GetUserRecords(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/ListByUser(): error while `s.db.GetUserRecords()` calling: %w", err)
	}

	return records, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
