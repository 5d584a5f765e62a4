package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/repository"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
)

func TestFormatServiceCreate(t *testing.T) {
	svc := NewFormatService(&memFormatRepo{}, nil, nil)
	format, err := svc.Create(context.Background(), CreateFormatRequest{
		Name:      " Final A ",
		Category:  "final",
		Questions: []QuestionRequest{{Label: " 1a ", MaxMark: 4}, {Label: "1b", MaxMark: 6}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Final A", format.Name)
	assert.Equal(t, []string{"1a", "1b"}, format.Labels())
	require.NotNil(t, format.Category)
	assert.Equal(t, "final", string(*format.Category))
}

func TestFormatServiceCreateRejects(t *testing.T) {
	svc := NewFormatService(midtermFormatRepo(), nil, nil)
	cases := []CreateFormatRequest{
		{Name: "X", Questions: nil},
		{Name: "X", Questions: []QuestionRequest{{Label: "1", MaxMark: 0}}},
		{Name: "X", Questions: []QuestionRequest{{Label: "Q1", MaxMark: 2}, {Label: "q1", MaxMark: 2}}},
		{Name: "X", Category: "essay", Questions: []QuestionRequest{{Label: "1", MaxMark: 2}}},
		{Name: "X", Questions: []QuestionRequest{{Label: "1", MaxMark: 2}, {Label: " 0 ", MaxMark: 2}}},
		{Name: "X", Questions: []QuestionRequest{{Label: "student id", MaxMark: 2}}},
		{Name: "X", Questions: []QuestionRequest{{Label: "Total", MaxMark: 2}}},
	}
	for i, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.True(t, appErrors.Is(err, appErrors.ErrValidation), "case %d", i)
	}

	_, err := svc.Create(context.Background(), CreateFormatRequest{Name: "Midterm A", Questions: []QuestionRequest{{Label: "1", MaxMark: 2}}})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestFormatServiceGetNotFound(t *testing.T) {
	svc := NewFormatService(&memFormatRepo{}, nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestFormatServiceCreateConflictFromStore(t *testing.T) {
	repo := &memFormatRepo{createErr: fmt.Errorf("create format %q: %w", "Final A", repository.ErrDuplicate)}
	svc := NewFormatService(repo, nil, nil)
	_, err := svc.Create(context.Background(), CreateFormatRequest{Name: "Final A", Questions: []QuestionRequest{{Label: "1", MaxMark: 2}}})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}
