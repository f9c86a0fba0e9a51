package policy

import (
	"testing"

	"postboard/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanModify(t *testing.T) {
	tests := []struct {
		name      string
		principal uint
		entity    Owned
		want      bool
	}{
		{"author of post", 1, &models.Post{AuthorID: 1}, true},
		{"other user on post", 2, &models.Post{AuthorID: 1}, false},
		{"author of comment", 5, &models.Comment{AuthorID: 5}, true},
		{"other user on comment", 1, &models.Comment{AuthorID: 5}, false},
		{"liker of like", 3, &models.Like{UserID: 3}, true},
		{"zero principal", 0, &models.Post{AuthorID: 0}, false},
		{"nil interface", 1, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModify(tt.principal, tt.entity))
		})
	}
}
