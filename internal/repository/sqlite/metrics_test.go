package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/d25/scrapbook/internal/model"
)

func TestSiteStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := createTestUser(t, db, "a@iima.ac.in", "A")
	b := createTestUser(t, db, "b@iima.ac.in", "B")

	seed := []model.Entry{
		{TargetUserID: a.ID, AuthorUserID: b.ID, Kind: model.EntryText, TextContent: "hi"},
		{TargetUserID: a.ID, AuthorUserID: b.ID, Kind: model.EntryText, TextContent: "again"},
		{TargetUserID: b.ID, AuthorUserID: a.ID, Kind: model.EntryImage, FilePath: "p.png", MimeType: "image/png"},
		{TargetUserID: b.ID, AuthorUserID: a.ID, Kind: model.EntryAudio, FilePath: "v.ogg", MimeType: "audio/ogg"},
	}
	for i := range seed {
		if err := db.CreateEntry(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}

	stats, err := db.SiteStats(ctx)
	if err != nil {
		t.Fatalf("SiteStats: %v", err)
	}
	if stats.TotalUsers != 2 || stats.TotalEntries != 4 {
		t.Errorf("totals = %d users, %d entries", stats.TotalUsers, stats.TotalEntries)
	}
	if stats.TextEntries != 2 || stats.ImageEntries != 1 || stats.AudioEntries != 1 {
		t.Errorf("kind split = %d/%d/%d", stats.TextEntries, stats.ImageEntries, stats.AudioEntries)
	}
}

func TestAdminMetrics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "active@iima.ac.in", "Active")

	if _, err := db.AddAllowedEmail(ctx, "ok@iima.ac.in"); err != nil {
		t.Fatalf("AddAllowedEmail: %v", err)
	}
	reqs := []*model.AccessRequest{
		{Email: "p1@iima.ac.in", DisplayName: "P1"},
		{Email: "p2@iima.ac.in", DisplayName: "P2"},
		{Email: "p3@iima.ac.in", DisplayName: "P3"},
	}
	for _, r := range reqs {
		if err := db.CreateAccessRequest(ctx, r); err != nil {
			t.Fatalf("CreateAccessRequest: %v", err)
		}
	}
	now := time.Now()
	if err := db.SetAccessRequestStatus(ctx, reqs[0].ID, model.StatusApproved, now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := db.SetAccessRequestStatus(ctx, reqs[1].ID, model.StatusRejected, now); err != nil {
		t.Fatalf("reject: %v", err)
	}

	metrics, err := db.AdminMetrics(ctx)
	if err != nil {
		t.Fatalf("AdminMetrics: %v", err)
	}
	if metrics.TotalUsers != 1 || metrics.TotalAllowedEmails != 1 {
		t.Errorf("users/allowlist = %d/%d", metrics.TotalUsers, metrics.TotalAllowedEmails)
	}
	if metrics.PendingRequests != 1 || metrics.ApprovedRequests != 1 || metrics.RejectedRequests != 1 {
		t.Errorf("request split = %d/%d/%d",
			metrics.PendingRequests, metrics.ApprovedRequests, metrics.RejectedRequests)
	}
	// Freshly created user signed in just now.
	if metrics.ActiveUsers7d != 1 {
		t.Errorf("active users = %d, want 1", metrics.ActiveUsers7d)
	}
}
