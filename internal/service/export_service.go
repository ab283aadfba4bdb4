package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-forum-api/internal/models"
	appErrors "github.com/noah-isme/lms-forum-api/pkg/errors"
	"github.com/noah-isme/lms-forum-api/pkg/export"
)

type moderatorPolicy interface {
	ModeratorForThread(ctx context.Context, thread *models.Thread, actorEmail string) (bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TranscriptFormat enumerates supported transcript encodings.
const (
	TranscriptFormatCSV = "csv"
	TranscriptFormatPDF = "pdf"
)

// TranscriptDocument is a rendered thread transcript ready for download.
type TranscriptDocument struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders thread transcripts. Transcripts are a moderation
// tool, so access follows the same ladder as pin/lock.
type ExportService struct {
	threads policyThreadRepository
	posts   postReader
	policy  moderatorPolicy
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(threads policyThreadRepository, posts postReader, policy moderatorPolicy, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		threads: threads,
		posts:   posts,
		policy:  policy,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
	}
}

// Transcript renders the visible posts of a thread into the requested
// format.
func (s *ExportService) Transcript(ctx context.Context, threadID, actorEmail, format string) (*TranscriptDocument, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != TranscriptFormatCSV && format != TranscriptFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported transcript format %q", format))
	}

	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thread not found")
		}
		s.logger.Error("failed to load thread for transcript", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load thread")
	}

	allowed, err := s.policy.ModeratorForThread(ctx, thread, actorEmail)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrInsufficientPermissions, "transcripts require moderator rights")
	}

	posts, err := s.posts.ListVisibleByThread(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to load posts for transcript", zap.String("thread_id", threadID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load posts")
	}

	dataset := buildTranscriptDataset(thread, posts)

	var payload []byte
	var contentType string
	switch format {
	case TranscriptFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case TranscriptFormatPDF:
		payload, err = s.pdf.Render(dataset, thread.Title)
		contentType = "application/pdf"
	}
	if err != nil {
		s.logger.Error("failed to render transcript", zap.String("thread_id", threadID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}

	return &TranscriptDocument{
		FileName:    fmt.Sprintf("thread-%s-transcript.%s", threadID, format),
		ContentType: contentType,
		Content:     payload,
	}, nil
}

func buildTranscriptDataset(thread *models.Thread, posts []models.Post) export.Dataset {
	headers := []string{"#", "Author", "Posted At", "Edited", "Content"}
	rows := make([]map[string]string, 0, len(posts)+1)
	rows = append(rows, map[string]string{
		"#":         "0",
		"Author":    thread.AuthorEmail,
		"Posted At": thread.CreatedAt.Format(time.RFC3339),
		"Edited":    "",
		"Content":   flattenContent(thread.Content),
	})
	for i, post := range posts {
		edited := ""
		if post.EditedAt != nil {
			edited = post.EditedAt.Format(time.RFC3339)
		}
		rows = append(rows, map[string]string{
			"#":         strconv.Itoa(i + 1),
			"Author":    post.AuthorEmail,
			"Posted At": post.CreatedAt.Format(time.RFC3339),
			"Edited":    edited,
			"Content":   flattenContent(post.Content),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// flattenContent collapses multi-line content into a single table cell.
func flattenContent(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
