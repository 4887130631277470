package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/students-api/internal/dto"
	"github.com/noah-isme/students-api/internal/middleware"
	"github.com/noah-isme/students-api/internal/models"
	"github.com/noah-isme/students-api/internal/observability"
	"github.com/noah-isme/students-api/internal/repository"
	"github.com/noah-isme/students-api/internal/validation"
)

// ErrStudentNotFound indicates the requested student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ValidationError carries the field messages of a rejected record.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid student: " + strings.Join(e.Errors, " ")
}

// StudentService orchestrates student record use cases.
type StudentService interface {
	Create(ctx context.Context, req dto.StudentRequest, actor ActivityActor) (dto.StudentResponse, error)
	List(ctx context.Context, search string) ([]dto.StudentResponse, error)
	Get(ctx context.Context, id uint) (dto.StudentResponse, error)
	Update(ctx context.Context, id uint, req dto.StudentRequest, actor ActivityActor) (dto.StudentResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
	History(ctx context.Context, id uint) ([]dto.ActivityResponse, error)
}

type studentService struct {
	repo      repository.StudentRepository
	validator *validation.StudentValidator
	activity  ActivityService
	cache     StudentListCache
	events    StudentEventPublisher
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service. activity, cache and events may be nil.
func NewStudentService(repo repository.StudentRepository, validator *validation.StudentValidator, activity ActivityService, cache StudentListCache, events StudentEventPublisher, logger zerolog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		validator: validator,
		activity:  activity,
		cache:     cache,
		events:    events,
		tracer:    otel.Tracer("github.com/noah-isme/students-api/internal/service/student"),
		logger:    logger.With().Str("component", "student_service").Logger(),
		now:       time.Now,
	}
}

func (s *studentService) Create(ctx context.Context, req dto.StudentRequest, actor ActivityActor) (dto.StudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "students.create")
	defer span.End()

	student, err := s.prepare(span, req)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	if err := s.repo.Create(ctx, &student); err != nil {
		s.fail(span, "create", err, "persistence failed")
		return dto.StudentResponse{}, err
	}

	span.SetAttributes(attribute.Int64("student.id", int64(student.ID)))
	response := dto.NewStudentResponse(student)
	s.afterWrite(ctx, "create", StudentEventCreated, models.ActionStudentCreated, student.ID, &response, actor)
	span.SetStatus(codes.Ok, "created")

	return response, nil
}

func (s *studentService) List(ctx context.Context, search string) ([]dto.StudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "students.list")
	defer span.End()

	span.SetAttributes(attribute.Bool("students.search", search != ""))

	// The key is fixed before the query so a write landing mid-query orphans this result.
	var cacheKey string
	if s.cache != nil {
		cached, key, ok := s.cache.Get(ctx, search)
		if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		cacheKey = key
	}

	students, err := s.repo.List(ctx, repository.StudentFilter{Search: search})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	responses := dto.NewStudentResponseSlice(students)
	if s.cache != nil && cacheKey != "" {
		s.cache.Set(ctx, cacheKey, responses)
	}

	return responses, nil
}

func (s *studentService) Get(ctx context.Context, id uint) (dto.StudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "students.get", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return dto.StudentResponse{}, err
	}

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, id uint, req dto.StudentRequest, actor ActivityActor) (dto.StudentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "students.update", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	student, err := s.prepare(span, req)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	updated, err := s.repo.Update(ctx, id, student)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.StudentWrites().WithLabelValues("update", "not_found").Inc()
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		s.fail(span, "update", err, "persistence failed")
		return dto.StudentResponse{}, err
	}

	response := dto.NewStudentResponse(updated)
	s.afterWrite(ctx, "update", StudentEventUpdated, models.ActionStudentUpdated, id, &response, actor)
	span.SetStatus(codes.Ok, "updated")

	return response, nil
}

func (s *studentService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	ctx, span := s.tracer.Start(ctx, "students.delete", trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.StudentWrites().WithLabelValues("delete", "not_found").Inc()
			return ErrStudentNotFound
		}
		s.fail(span, "delete", err, "persistence failed")
		return err
	}

	s.afterWrite(ctx, "delete", StudentEventDeleted, models.ActionStudentDeleted, id, nil, actor)
	span.SetStatus(codes.Ok, "deleted")

	return nil
}

func (s *studentService) History(ctx context.Context, id uint) ([]dto.ActivityResponse, error) {
	if s.activity == nil {
		return []dto.ActivityResponse{}, nil
	}

	entries, err := s.activity.History(ctx, models.EntityStudent, id)
	if err != nil {
		return nil, err
	}

	// A deleted student keeps its history; only ids that never existed are unknown.
	if len(entries) == 0 {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStudentNotFound
			}
			return nil, err
		}
	}

	return entries, nil
}

func (s *studentService) prepare(span trace.Span, req dto.StudentRequest) (models.Student, error) {
	if messages := s.validator.Validate(req.Input()); len(messages) > 0 {
		span.SetStatus(codes.Error, "validation failed")
		span.SetAttributes(attribute.Int("validation.errors", len(messages)))
		return models.Student{}, &ValidationError{Errors: messages}
	}

	student, err := req.Model()
	if err != nil {
		span.RecordError(err)
		return models.Student{}, &ValidationError{Errors: []string{err.Error()}}
	}

	return student, nil
}

func (s *studentService) fail(span trace.Span, operation string, err error, status string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	observability.StudentWrites().WithLabelValues(operation, "error").Inc()
}

func (s *studentService) afterWrite(ctx context.Context, operation, eventType, action string, id uint, student *dto.StudentResponse, actor ActivityActor) {
	observability.StudentWrites().WithLabelValues(operation, "ok").Inc()

	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	if s.activity != nil {
		metadata := map[string]interface{}{"student_id": id}
		if student != nil {
			metadata["course"] = student.Course
			metadata["is_erasmus"] = student.IsErasmus
		}
		if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
			metadata["correlation_id"] = correlationID
		}
		_ = s.activity.Record(ctx, ActivityEntry{
			Actor:      actor,
			Action:     action,
			EntityType: models.EntityStudent,
			EntityID:   id,
			Metadata:   metadata,
		})
	}

	if s.events != nil {
		event := newStudentEvent(eventType, id, student, middleware.CorrelationIDFromContext(ctx), s.now())
		if err := s.events.Publish(ctx, event); err != nil {
			observability.EventsPublished().WithLabelValues(eventType, "error").Inc()
			s.logger.Warn().Err(err).Str("event", eventType).Uint("student_id", id).Msg("failed to publish student event")
			return
		}
		observability.EventsPublished().WithLabelValues(eventType, "ok").Inc()
	}
}
