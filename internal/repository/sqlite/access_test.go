package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
)

func TestAllowlistRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	row, err := db.AddAllowedEmail(ctx, "a@iima.ac.in")
	if err != nil {
		t.Fatalf("AddAllowedEmail: %v", err)
	}
	if row.ID == "" || row.CreatedAt.IsZero() {
		t.Errorf("row not filled: %+v", row)
	}

	// Duplicate insert returns the original row.
	again, err := db.AddAllowedEmail(ctx, "a@iima.ac.in")
	if err != nil {
		t.Fatalf("duplicate AddAllowedEmail: %v", err)
	}
	if again.ID != row.ID {
		t.Errorf("duplicate created a new row: %s vs %s", again.ID, row.ID)
	}

	allowed, err := db.IsEmailAllowed(ctx, "a@iima.ac.in")
	if err != nil || !allowed {
		t.Fatalf("IsEmailAllowed = %v, %v; want true", allowed, err)
	}
	allowed, err = db.IsEmailAllowed(ctx, "b@iima.ac.in")
	if err != nil || allowed {
		t.Fatalf("IsEmailAllowed(other) = %v, %v; want false", allowed, err)
	}

	if _, err := db.AddAllowedEmail(ctx, "b@iima.ac.in"); err != nil {
		t.Fatalf("AddAllowedEmail(b): %v", err)
	}
	list, err := db.ListAllowedEmails(ctx)
	if err != nil {
		t.Fatalf("ListAllowedEmails: %v", err)
	}
	if len(list) != 2 || list[0].Email != "a@iima.ac.in" || list[1].Email != "b@iima.ac.in" {
		t.Errorf("unexpected listing: %+v", list)
	}

	if err := db.RemoveAllowedEmail(ctx, row.ID); err != nil {
		t.Fatalf("RemoveAllowedEmail: %v", err)
	}
	if err := db.RemoveAllowedEmail(ctx, row.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestCreateAccessRequestDefaults(t *testing.T) {
	db := newTestDB(t)

	req := &model.AccessRequest{Email: "new@iima.ac.in", DisplayName: "New"}
	if err := db.CreateAccessRequest(context.Background(), req); err != nil {
		t.Fatalf("CreateAccessRequest: %v", err)
	}
	if req.ID == "" || req.Status != model.StatusPending || req.RequestedAt.IsZero() {
		t.Errorf("defaults not filled: %+v", req)
	}

	got, err := db.GetAccessRequestByID(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetAccessRequestByID: %v", err)
	}
	if got.Email != "new@iima.ac.in" || got.ReviewedAt != nil {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestLatestPendingByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	older := &model.AccessRequest{Email: "p@iima.ac.in", DisplayName: "P", RequestedAt: base}
	newer := &model.AccessRequest{Email: "p@iima.ac.in", DisplayName: "P", RequestedAt: base.Add(time.Hour)}
	for _, r := range []*model.AccessRequest{older, newer} {
		if err := db.CreateAccessRequest(ctx, r); err != nil {
			t.Fatalf("CreateAccessRequest: %v", err)
		}
	}

	got, err := db.LatestPendingByEmail(ctx, "p@iima.ac.in")
	if err != nil {
		t.Fatalf("LatestPendingByEmail: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("got %s, want newest %s", got.ID, newer.ID)
	}

	// A reviewed request no longer counts as pending.
	if err := db.SetAccessRequestStatus(ctx, newer.ID, model.StatusRejected, time.Now()); err != nil {
		t.Fatalf("SetAccessRequestStatus: %v", err)
	}
	got, err = db.LatestPendingByEmail(ctx, "p@iima.ac.in")
	if err != nil {
		t.Fatalf("LatestPendingByEmail after reject: %v", err)
	}
	if got.ID != older.ID {
		t.Errorf("got %s, want remaining pending %s", got.ID, older.ID)
	}

	if _, err := db.LatestPendingByEmail(ctx, "none@iima.ac.in"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListAccessRequestsByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]string, 0, 3)
	for i, email := range []string{"r1@iima.ac.in", "r2@iima.ac.in", "r3@iima.ac.in"} {
		req := &model.AccessRequest{Email: email, DisplayName: email, RequestedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.CreateAccessRequest(ctx, req); err != nil {
			t.Fatalf("CreateAccessRequest: %v", err)
		}
		ids = append(ids, req.ID)
	}
	reviewedAt := base.Add(time.Hour)
	if err := db.SetAccessRequestStatus(ctx, ids[0], model.StatusApproved, reviewedAt); err != nil {
		t.Fatalf("SetAccessRequestStatus: %v", err)
	}

	pending, err := db.ListAccessRequests(ctx, model.StatusPending, 10)
	if err != nil {
		t.Fatalf("ListAccessRequests(pending): %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending count = %d, want 2", len(pending))
	}
	// Most recent first.
	if pending[0].ID != ids[2] {
		t.Errorf("pending[0] = %s, want %s", pending[0].ID, ids[2])
	}

	all, err := db.ListAccessRequests(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListAccessRequests(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all count = %d, want 3", len(all))
	}

	approved, err := db.ListAccessRequests(ctx, model.StatusApproved, 10)
	if err != nil {
		t.Fatalf("ListAccessRequests(approved): %v", err)
	}
	if len(approved) != 1 || approved[0].ReviewedAt == nil || !approved[0].ReviewedAt.Equal(reviewedAt) {
		t.Errorf("unexpected approved listing: %+v", approved)
	}

	limited, err := db.ListAccessRequests(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListAccessRequests(limit 1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited count = %d, want 1", len(limited))
	}
}

func TestSetAccessRequestStatusNotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.SetAccessRequestStatus(context.Background(), "ghost", model.StatusApproved, time.Now())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
