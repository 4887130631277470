package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/students-api/internal/models"
)

func TestStudentRepositoryCreateAndGetRoundTrip(t *testing.T) {
	repo := NewStudentRepository(setupTestDB(t))
	ctx := context.Background()

	student := newStudent("Jo", "Doe")
	require.NoError(t, repo.Create(ctx, &student))
	require.NotZero(t, student.ID)

	stored, err := repo.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, student.ID, stored.ID)
	require.Equal(t, "Jo", stored.FirstName)
	require.Equal(t, "Doe", stored.LastName)
	require.True(t, student.BirthDate.Equal(stored.BirthDate))
	require.Equal(t, 2, stored.Course)
	require.True(t, stored.IsErasmus)
}

func TestStudentRepositoryListSearchesCaseInsensitively(t *testing.T) {
	repo := NewStudentRepository(setupTestDB(t))
	ctx := context.Background()

	for _, s := range []models.Student{
		newStudent("Anna", "Smith"),
		newStudent("Carl", "Jones"),
		newStudent("bob", "ANNAliese"),
	} {
		s := s
		require.NoError(t, repo.Create(ctx, &s))
	}

	all, err := repo.List(ctx, StudentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].ID, all[i].ID, "expected ascending ids")
	}

	matches, err := repo.List(ctx, StudentFilter{Search: "anna"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Anna", matches[0].FirstName)
	require.Equal(t, "ANNAliese", matches[1].LastName)

	none, err := repo.List(ctx, StudentFilter{Search: "zed"})
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestStudentRepositoryUpdateReplacesAllFields(t *testing.T) {
	repo := NewStudentRepository(setupTestDB(t))
	ctx := context.Background()

	student := newStudent("Jo", "Doe")
	require.NoError(t, repo.Create(ctx, &student))

	replacement := models.Student{
		FirstName: "Joanna",
		LastName:  "Dee",
		BirthDate: time.Date(1990, time.May, 5, 0, 0, 0, 0, time.UTC),
		Course:    7,
		IsErasmus: false,
	}
	updated, err := repo.Update(ctx, student.ID, replacement)
	require.NoError(t, err)
	require.Equal(t, student.ID, updated.ID)
	require.Equal(t, "Joanna", updated.FirstName)
	require.Equal(t, "Dee", updated.LastName)
	require.Equal(t, 7, updated.Course)
	require.False(t, updated.IsErasmus)
	require.True(t, replacement.BirthDate.Equal(updated.BirthDate))

	_, err = repo.Update(ctx, student.ID+100, replacement)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStudentRepositoryDeleteTwiceReportsNotFound(t *testing.T) {
	repo := NewStudentRepository(setupTestDB(t))
	ctx := context.Background()

	student := newStudent("Jo", "Doe")
	require.NoError(t, repo.Create(ctx, &student))

	require.NoError(t, repo.Delete(ctx, student.ID))
	require.ErrorIs(t, repo.Delete(ctx, student.ID), gorm.ErrRecordNotFound)

	_, err := repo.GetByID(ctx, student.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestActivityLogRepositoryListsNewestFirstForEntity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	entries := []models.ActivityLog{
		{ActorRole: "system", Action: models.ActionStudentCreated, EntityType: models.EntityStudent, EntityID: 1, CreatedAt: base},
		{ActorRole: "system", Action: models.ActionStudentUpdated, EntityType: models.EntityStudent, EntityID: 1, CreatedAt: base.Add(time.Minute)},
		{ActorRole: "system", Action: models.ActionStudentCreated, EntityType: models.EntityStudent, EntityID: 2, CreatedAt: base},
	}
	for i := range entries {
		require.NoError(t, repo.Create(ctx, &entries[i]))
	}

	history, err := repo.ListByEntity(ctx, models.EntityStudent, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, models.ActionStudentUpdated, history[0].Action)

	limited, err := repo.ListByEntity(ctx, models.EntityStudent, 1, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func newStudent(first, last string) models.Student {
	return models.Student{
		FirstName: first,
		LastName:  last,
		BirthDate: time.Date(2001, time.February, 3, 0, 0, 0, 0, time.UTC),
		Course:    2,
		IsErasmus: true,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.ActivityLog{}))
	return db
}
