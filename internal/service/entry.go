package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

// MaxTextLength bounds a text entry. Long enough for any sincere goodbye.
const MaxTextLength = 10000

// CreateEntryInput is the author-supplied part of a new entry. Text entries
// carry TextContent; image and audio entries carry the stored file's
// metadata instead.
type CreateEntryInput struct {
	Kind         model.EntryKind
	TextContent  string
	FilePath     string
	OriginalName string
	MimeType     string
}

// PageView is everything needed to render one member's page: the owner, the
// entries written on it, and the owner's best game score.
type PageView struct {
	User      *model.User             `json:"user"`
	Entries   []model.EntryWithAuthor `json:"entries"`
	BestScore int64                   `json:"bestScore"`
}

// EntryService manages scrapbook entries and assembles page views. Pages are
// addressed by the owner's share code, never by internal id.
type EntryService struct {
	entries repository.EntryRepository
	users   repository.UserRepository
	scores  *ScoreService
	logger  *slog.Logger
}

// NewEntryService creates an EntryService.
func NewEntryService(entries repository.EntryRepository, users repository.UserRepository, scores *ScoreService, logger *slog.Logger) *EntryService {
	return &EntryService{
		entries: entries,
		users:   users,
		scores:  scores,
		logger:  logger,
	}
}

// Create posts an entry by authorUserID on the page identified by shareCode.
// Writing on one's own page is allowed.
func (s *EntryService) Create(ctx context.Context, authorUserID, shareCode string, in CreateEntryInput) (*model.Entry, error) {
	if err := validateEntryInput(&in); err != nil {
		return nil, err
	}

	target, err := s.users.GetByShareCode(ctx, shareCode)
	if err != nil {
		return nil, err
	}

	entry := &model.Entry{
		TargetUserID: target.ID,
		AuthorUserID: authorUserID,
		Kind:         in.Kind,
		TextContent:  in.TextContent,
		FilePath:     in.FilePath,
		OriginalName: in.OriginalName,
		MimeType:     in.MimeType,
	}
	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("creating %s entry on page %s: %w", in.Kind, target.ID, err)
	}

	s.logger.Info("entry created",
		"entry_id", entry.ID, "kind", entry.Kind,
		"target_user_id", target.ID, "author_user_id", authorUserID)
	return entry, nil
}

// Page assembles the view of the page behind shareCode.
func (s *EntryService) Page(ctx context.Context, shareCode string) (*PageView, error) {
	user, err := s.users.GetByShareCode(ctx, shareCode)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListEntriesByTarget(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	best, err := s.scores.Best(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &PageView{User: user, Entries: entries, BestScore: best}, nil
}

// Delete removes an entry by id. Moderation only; authors cannot delete
// their own posts.
func (s *EntryService) Delete(ctx context.Context, entryID string) error {
	if err := s.entries.DeleteEntry(ctx, entryID); err != nil {
		return err
	}
	s.logger.Info("entry deleted", "entry_id", entryID)
	return nil
}

func validateEntryInput(in *CreateEntryInput) error {
	if !in.Kind.Valid() {
		return apperror.ValidationFailed("kind", "kind must be text, image, or audio")
	}

	if in.Kind == model.EntryText {
		in.TextContent = strings.TrimSpace(in.TextContent)
		if in.TextContent == "" {
			return apperror.ValidationFailed("textContent", "text entries need text")
		}
		if len(in.TextContent) > MaxTextLength {
			return apperror.ValidationFailed("textContent", fmt.Sprintf("text exceeds %d characters", MaxTextLength))
		}
		if in.FilePath != "" || in.MimeType != "" {
			return apperror.ValidationFailed("filePath", "text entries cannot carry a file")
		}
		return nil
	}

	// image / audio
	if in.TextContent != "" {
		return apperror.ValidationFailed("textContent", "media entries cannot carry text")
	}
	if in.FilePath == "" {
		return apperror.ValidationFailed("filePath", "media entries need a file path")
	}
	prefix := string(in.Kind) + "/"
	if !strings.HasPrefix(in.MimeType, prefix) {
		return apperror.ValidationFailed("mimeType", fmt.Sprintf("mime type must start with %s", prefix))
	}
	return nil
}
