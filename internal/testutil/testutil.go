// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"

	"postboard/internal/cache"
	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory SQLite database with the schema applied.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:          "test",
		DBDriver:     "sqlite",
		DBSQLitePath: ":memory:",
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// NewCacheStore returns a cache.Store backed by miniredis.
func NewCacheStore(t testing.TB) (*cache.Store, *miniredis.Miniredis) {
	t.Helper()
	client, mr := NewRedis(t)
	return cache.NewStore(client), mr
}

// CreateUser inserts a user with a placeholder hash.
func CreateUser(t testing.TB, db *gorm.DB, handle string) *models.User {
	t.Helper()
	user := &models.User{Handle: handle, PasswordHash: "not-a-real-hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post authored by authorID.
func CreatePost(t testing.TB, db *gorm.DB, authorID uint, body string) *models.Post {
	t.Helper()
	post := &models.Post{AuthorID: authorID, Body: body}
	require.NoError(t, db.Create(post).Error)
	return post
}

// Count returns the number of rows of model matching the optional condition.
func Count(t testing.TB, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
