// Package seed creates demo data for development databases. All writes go
// through the credential store and services, so seeded data obeys the same
// rules as API traffic.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postboard/internal/auth"
	"postboard/internal/models"
	"postboard/internal/repository"
	"postboard/internal/service"
	"postboard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "postboard-demo"

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	MaxComments int
	ShouldClean bool
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
}

// Seeder writes fake users, posts, comments and likes.
type Seeder struct {
	db          *gorm.DB
	faker       *gofakeit.Faker
	credentials *auth.CredentialStore
	posts       *service.PostService
	comments    *service.CommentService
	likes       *service.LikeService
}

// NewSeeder binds a seeder to db. A fixed randomSeed makes runs repeatable;
// 0 picks a random one.
func NewSeeder(db *gorm.DB, bcryptCost int, randomSeed int64) (*Seeder, error) {
	credentials, err := auth.NewCredentialStore(repository.NewUserRepository(db), bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Seeder{
		db:          db,
		faker:       gofakeit.New(randomSeed),
		credentials: credentials,
		posts:       service.NewPostService(repository.NewPostRepository(db, nil), nil),
		comments:    service.NewCommentService(repository.NewCommentRepository(db, nil), nil),
		likes:       service.NewLikeService(repository.NewLikeRepository(db, nil), nil),
	}, nil
}

// ClearAll removes every seeded table's rows, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		return nil
	})
}

// Run seeds according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.NumUsers <= 0 {
		return nil, errors.New("NumUsers must be positive")
	}
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	var summary Summary
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.credentials.Register(ctx, s.handle(i), DefaultPassword)
		if err != nil {
			return nil, fmt.Errorf("register user %d: %w", i, err)
		}
		users = append(users, user)
	}
	summary.Users = len(users)

	for i := 0; i < opts.NumPosts; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		post, err := s.posts.CreatePost(ctx, service.CreatePostInput{
			AuthorID: author.ID,
			Body:     s.faker.Paragraph(1, 3, 8, "\n"),
		})
		if err != nil {
			return nil, fmt.Errorf("create post %d: %w", i, err)
		}
		summary.Posts++

		if opts.MaxComments > 0 {
			for c := s.faker.Number(0, opts.MaxComments); c > 0; c-- {
				commenter := users[s.faker.Number(0, len(users)-1)]
				if _, err := s.comments.CreateComment(ctx, service.CreateCommentInput{
					AuthorID: commenter.ID,
					PostID:   post.ID,
					Body:     s.faker.Sentence(s.faker.Number(3, 12)),
				}); err != nil {
					return nil, fmt.Errorf("comment on post %d: %w", post.ID, err)
				}
				summary.Comments++
			}
		}

		// Each user likes a post at most once.
		for _, u := range users {
			if !s.faker.Bool() {
				continue
			}
			if _, err := s.likes.CreateLike(ctx, service.CreateLikeInput{UserID: u.ID, PostID: post.ID}); err != nil {
				return nil, fmt.Errorf("like post %d: %w", post.ID, err)
			}
			summary.Likes++
		}
	}

	return &summary, nil
}

// handle derives a valid, unique handle from a fake username.
func (s *Seeder) handle(i int) string {
	var b strings.Builder
	for _, r := range s.faker.Username() {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	base := b.String()
	suffix := fmt.Sprintf("_%d", i)
	if limit := validation.MaxHandleLength - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	if len(base) < validation.MinHandleLength {
		base = "user" + base
	}
	return base + suffix
}
