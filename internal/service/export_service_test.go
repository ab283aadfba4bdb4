package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/models"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
)

func newExportFixture() (*ExportService, *threadRepoStub, *postRepoStub) {
	categories, threads, courses := newPolicyFixture()
	threads.threads["thread-1"].Content = "Opening question"
	threads.threads["thread-1"].CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	posts := &postRepoStub{}
	policy := NewPolicyService(categories, threads, courses, zap.NewNop())
	svc := NewExportService(threads, posts, policy, zap.NewNop(), nil, nil)
	return svc, threads, posts
}

func TestTranscriptRequiresModerator(t *testing.T) {
	svc, _, _ := newExportFixture()

	_, err := svc.Transcript(context.Background(), "thread-1", "student@school.edu", TranscriptFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientPermissions.Code, appErrors.FromError(err).Code)
}

func TestTranscriptCSVIncludesThreadAndPosts(t *testing.T) {
	svc, _, posts := newExportFixture()
	posts.visible = []models.Post{
		{ID: "post-1", ThreadID: "thread-1", AuthorEmail: "peer@school.edu", Content: "First\nreply", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	doc, err := svc.Transcript(context.Background(), "thread-1", "teacher@school.edu", TranscriptFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.Equal(t, "thread-thread-1-transcript.csv", doc.FileName)

	body := string(doc.Content)
	assert.Contains(t, body, "student@school.edu", "the opening post belongs in the transcript")
	assert.Contains(t, body, "peer@school.edu")
	assert.Contains(t, body, "First reply", "cell content must be flattened to one line")
	assert.Equal(t, 3, strings.Count(body, "\n"), "header, thread row, one post row")
}

func TestTranscriptPDF(t *testing.T) {
	svc, _, _ := newExportFixture()

	doc, err := svc.Transcript(context.Background(), "thread-1", "owner@school.edu", TranscriptFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, strings.HasPrefix(string(doc.Content), "%PDF"))
}

func TestTranscriptRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newExportFixture()

	_, err := svc.Transcript(context.Background(), "thread-1", "teacher@school.edu", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTranscriptUnknownThread(t *testing.T) {
	svc, _, _ := newExportFixture()

	_, err := svc.Transcript(context.Background(), "thread-missing", "teacher@school.edu", TranscriptFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
