package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
)

// In-memory fakes for the repository interfaces. They store copies, never
// the caller's pointers, so tests cannot observe shared state by accident.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users  map[string]*model.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.nextID++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	if user.ShareCode == "" {
		user.ShareCode = fmt.Sprintf("code-%d", f.nextID)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	for _, u := range f.users {
		if u.ExternalID != "" && u.ExternalID == externalID {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", externalID)
}

func (f *fakeUserRepo) GetByShareCode(_ context.Context, shareCode string) (*model.User, error) {
	for _, u := range f.users {
		if u.ShareCode == shareCode {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", shareCode)
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Search(_ context.Context, q, excludeID string, limit int) ([]model.User, error) {
	return f.filter(q, excludeID, limit), nil
}

func (f *fakeUserRepo) List(_ context.Context, q string, limit int) ([]model.User, error) {
	return f.filter(q, "", limit), nil
}

func (f *fakeUserRepo) filter(q, excludeID string, limit int) []model.User {
	q = strings.ToLower(q)
	var result []model.User
	for _, u := range f.users {
		if u.ID == excludeID {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(u.DisplayName), q) &&
			!strings.Contains(strings.ToLower(u.Alias), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

type fakeEntryRepo struct {
	entries []model.Entry
	users   *fakeUserRepo
	nextID  int
}

func newFakeEntryRepo(users *fakeUserRepo) *fakeEntryRepo {
	return &fakeEntryRepo{users: users}
}

func (f *fakeEntryRepo) CreateEntry(_ context.Context, entry *model.Entry) error {
	f.nextID++
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("entry-%d", f.nextID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeEntryRepo) GetEntryByID(_ context.Context, id string) (*model.Entry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			result := e
			return &result, nil
		}
	}
	return nil, apperror.NotFound("entry", id)
}

func (f *fakeEntryRepo) ListEntriesByTarget(_ context.Context, targetUserID string) ([]model.EntryWithAuthor, error) {
	var result []model.EntryWithAuthor
	// newest-first
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.TargetUserID != targetUserID {
			continue
		}
		row := model.EntryWithAuthor{Entry: e}
		if author, ok := f.users.users[e.AuthorUserID]; ok {
			row.AuthorName = author.PreferredName()
			row.AuthorShareCode = author.ShareCode
		}
		result = append(result, row)
	}
	return result, nil
}

func (f *fakeEntryRepo) HasTextEntry(_ context.Context, targetUserID, authorUserID, text string) (bool, error) {
	for _, e := range f.entries {
		if e.TargetUserID == targetUserID && e.AuthorUserID == authorUserID &&
			e.Kind == model.EntryText && e.TextContent == text {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEntryRepo) DeleteEntry(_ context.Context, id string) error {
	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("entry", id)
}

type fakeScoreRepo struct {
	records map[string]*model.ScoreRecord
	users   *fakeUserRepo
	nextID  int
}

func newFakeScoreRepo(users *fakeUserRepo) *fakeScoreRepo {
	return &fakeScoreRepo{records: make(map[string]*model.ScoreRecord), users: users}
}

func (f *fakeScoreRepo) GetScore(_ context.Context, userID string) (*model.ScoreRecord, error) {
	record, ok := f.records[userID]
	if !ok {
		return nil, apperror.NotFound("score", userID)
	}
	result := *record
	return &result, nil
}

func (f *fakeScoreRepo) UpsertScore(_ context.Context, userID string, score int64, at time.Time) (int64, error) {
	record, ok := f.records[userID]
	if !ok {
		f.nextID++
		f.records[userID] = &model.ScoreRecord{
			ID:        fmt.Sprintf("score-%d", f.nextID),
			UserID:    userID,
			BestScore: score,
			UpdatedAt: at,
		}
		return score, nil
	}
	if score > record.BestScore {
		record.BestScore = score
		record.UpdatedAt = at
	}
	return record.BestScore, nil
}

func (f *fakeScoreRepo) Leaderboard(_ context.Context, limit int) ([]model.LeaderboardRow, error) {
	var rows []model.LeaderboardRow
	for userID, record := range f.records {
		row := model.LeaderboardRow{BestScore: record.BestScore, UpdatedAt: record.UpdatedAt}
		if u, ok := f.users.users[userID]; ok {
			row.DisplayName = u.DisplayName
			row.Alias = u.Alias
			row.AvatarURL = u.AvatarURL
			row.CustomAvatarPath = u.CustomAvatarPath
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BestScore != rows[j].BestScore {
			return rows[i].BestScore > rows[j].BestScore
		}
		return rows[i].UpdatedAt.Before(rows[j].UpdatedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeAllowlistRepo struct {
	emails map[string]*model.AllowedEmail
	nextID int
}

func newFakeAllowlistRepo() *fakeAllowlistRepo {
	return &fakeAllowlistRepo{emails: make(map[string]*model.AllowedEmail)}
}

func (f *fakeAllowlistRepo) AddAllowedEmail(_ context.Context, email string) (*model.AllowedEmail, error) {
	if existing, ok := f.emails[email]; ok {
		result := *existing
		return &result, nil
	}
	f.nextID++
	row := &model.AllowedEmail{
		ID:        fmt.Sprintf("allow-%d", f.nextID),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	f.emails[email] = row
	result := *row
	return &result, nil
}

func (f *fakeAllowlistRepo) RemoveAllowedEmail(_ context.Context, id string) error {
	for email, row := range f.emails {
		if row.ID == id {
			delete(f.emails, email)
			return nil
		}
	}
	return apperror.NotFound("allowed email", id)
}

func (f *fakeAllowlistRepo) ListAllowedEmails(_ context.Context) ([]model.AllowedEmail, error) {
	var result []model.AllowedEmail
	for _, row := range f.emails {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}

func (f *fakeAllowlistRepo) IsEmailAllowed(_ context.Context, email string) (bool, error) {
	_, ok := f.emails[email]
	return ok, nil
}

type fakeRequestRepo struct {
	requests []*model.AccessRequest
	nextID   int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{}
}

func (f *fakeRequestRepo) CreateAccessRequest(_ context.Context, req *model.AccessRequest) error {
	f.nextID++
	if req.ID == "" {
		req.ID = fmt.Sprintf("req-%d", f.nextID)
	}
	if req.Status == "" {
		req.Status = model.StatusPending
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	stored := *req
	f.requests = append(f.requests, &stored)
	return nil
}

func (f *fakeRequestRepo) GetAccessRequestByID(_ context.Context, id string) (*model.AccessRequest, error) {
	for _, r := range f.requests {
		if r.ID == id {
			result := *r
			return &result, nil
		}
	}
	return nil, apperror.NotFound("access request", id)
}

func (f *fakeRequestRepo) LatestPendingByEmail(_ context.Context, email string) (*model.AccessRequest, error) {
	for i := len(f.requests) - 1; i >= 0; i-- {
		r := f.requests[i]
		if r.Email == email && r.Status == model.StatusPending {
			result := *r
			return &result, nil
		}
	}
	return nil, apperror.NotFound("access request", email)
}

func (f *fakeRequestRepo) ListAccessRequests(_ context.Context, status model.RequestStatus, limit int) ([]model.AccessRequest, error) {
	var result []model.AccessRequest
	for i := len(f.requests) - 1; i >= 0; i-- {
		r := f.requests[i]
		if status != "" && r.Status != status {
			continue
		}
		result = append(result, *r)
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeRequestRepo) SetAccessRequestStatus(_ context.Context, id string, status model.RequestStatus, reviewedAt time.Time) error {
	for _, r := range f.requests {
		if r.ID == id {
			r.Status = status
			at := reviewedAt
			r.ReviewedAt = &at
			return nil
		}
	}
	return apperror.NotFound("access request", id)
}
