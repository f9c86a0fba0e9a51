package seed

import (
	"context"
	"testing"

	"postboard/internal/models"
	"postboard/internal/testutil"
	"postboard/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s, err := NewSeeder(db, bcrypt.MinCost, 42)
	require.NoError(t, err)
	ctx := context.Background()

	summary, err := s.Run(ctx, Options{NumUsers: 5, NumPosts: 8, MaxComments: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Users)
	assert.Equal(t, 8, summary.Posts)

	assert.Equal(t, int64(summary.Users), testutil.Count(t, db, &models.User{}, ""))
	assert.Equal(t, int64(summary.Posts), testutil.Count(t, db, &models.Post{}, ""))
	assert.Equal(t, int64(summary.Comments), testutil.Count(t, db, &models.Comment{}, ""))
	assert.Equal(t, int64(summary.Likes), testutil.Count(t, db, &models.Like{}, ""))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.NoError(t, validation.ValidateHandle(u.Handle), u.Handle)
	}

	summary, err = s.Run(ctx, Options{NumUsers: 2, NumPosts: 1, ShouldClean: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), testutil.Count(t, db, &models.User{}, ""))
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Post{}, ""))
	assert.Zero(t, testutil.Count(t, db, &models.Comment{}, ""))
}

func TestSeeder_RejectsEmptyRun(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	s, err := NewSeeder(db, bcrypt.MinCost, 1)
	require.NoError(t, err)

	_, err = s.Run(context.Background(), Options{})
	assert.Error(t, err)
}
