package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/repository"
)

// maxRequestListing caps how many access requests an admin listing returns.
const maxRequestListing = 300

// PendingReason explains why a sign-in produced no session.
type PendingReason string

const (
	// ReasonSubmitted: a new access request was queued for review.
	ReasonSubmitted PendingReason = "request_submitted"
	// ReasonAlreadyPending: a request for this email is already in the queue.
	ReasonAlreadyPending PendingReason = "request_pending"
)

// SignInDecision is the outcome of ResolveOrQueue: either User is set and a
// session may be issued, or Reason says why the caller must wait.
type SignInDecision struct {
	User   *model.User
	Reason PendingReason
}

// DomainPolicy decides whether an email address is eligible to sign in at
// all. It sees normalized (lowercased) emails.
type DomainPolicy func(email string) bool

// SuffixDomainPolicy restricts sign-in to one email domain. An empty domain
// yields a policy that admits everyone.
func SuffixDomainPolicy(domain string) DomainPolicy {
	if domain == "" {
		return func(string) bool { return true }
	}
	suffix := "@" + strings.ToLower(domain)
	return func(email string) bool {
		return strings.HasSuffix(email, suffix)
	}
}

// AccessService gates account creation: it decides, for each verified
// assertion, whether to sign the person in, provision them on the spot, or
// queue an access request for an administrator. It also owns the review
// workflow and the allowlist.
type AccessService struct {
	identity  *IdentityService
	allowlist repository.AllowlistRepository
	requests  repository.AccessRequestRepository
	policy    DomainPolicy
	logger    *slog.Logger
}

// NewAccessService creates an AccessService.
func NewAccessService(identity *IdentityService, allowlist repository.AllowlistRepository, requests repository.AccessRequestRepository, policy DomainPolicy, logger *slog.Logger) *AccessService {
	return &AccessService{
		identity:  identity,
		allowlist: allowlist,
		requests:  requests,
		policy:    policy,
		logger:    logger,
	}
}

// ResolveOrQueue is the sign-in entry point. In order:
//
//  1. The domain policy rejects out-of-domain emails outright.
//  2. An assertion resolving to an existing user signs in, even if the email
//     has since left the allowlist. Accounts are only removed explicitly.
//  3. An allowlisted email self-provisions immediately.
//  4. Otherwise the assertion is queued as an access request, unless one is
//     already pending for the email.
func (s *AccessService) ResolveOrQueue(ctx context.Context, a Assertion) (*SignInDecision, error) {
	email, err := NormalizeEmail(a.Email)
	if err != nil {
		return nil, err
	}
	if !s.policy(email) {
		return nil, apperror.Forbidden("this email domain is not permitted")
	}
	a.Email = email

	user, err := s.identity.Resolve(ctx, a)
	if err == nil {
		return &SignInDecision{User: user}, nil
	}
	if !errors.Is(err, ErrUnresolved) {
		return nil, err
	}

	allowed, err := s.allowlist.IsEmailAllowed(ctx, email)
	if err != nil {
		return nil, err
	}
	if allowed {
		user, err := s.identity.Provision(ctx, a)
		if err != nil {
			return nil, err
		}
		return &SignInDecision{User: user}, nil
	}

	_, err = s.requests.LatestPendingByEmail(ctx, email)
	if err == nil {
		return &SignInDecision{Reason: ReasonAlreadyPending}, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	displayName := strings.TrimSpace(a.DisplayName)
	if displayName == "" {
		displayName = email
	}
	req := &model.AccessRequest{
		Email:       email,
		ExternalID:  a.ExternalID,
		DisplayName: displayName,
		AvatarURL:   a.AvatarURL,
	}
	if err := s.requests.CreateAccessRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("queueing access request for %s: %w", email, err)
	}

	s.logger.Info("access request queued", "request_id", req.ID, "email", email)
	return &SignInDecision{Reason: ReasonSubmitted}, nil
}

// Approve grants a queued request: the account is created (or linked, if a
// user with that email or external id appeared in the meantime) and the
// request is stamped approved. Approving an already-approved request is a
// no-op that returns the existing user; a rejected request cannot be
// approved.
func (s *AccessService) Approve(ctx context.Context, requestID string) (*model.User, error) {
	req, err := s.requests.GetAccessRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == model.StatusRejected {
		return nil, apperror.Conflict("access request was already rejected")
	}

	a := Assertion{
		ExternalID:  req.ExternalID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}
	user, err := s.identity.Resolve(ctx, a)
	if errors.Is(err, ErrUnresolved) {
		user, err = s.identity.Provision(ctx, a)
	}
	if err != nil {
		return nil, err
	}

	if req.Status != model.StatusApproved {
		if err := s.requests.SetAccessRequestStatus(ctx, req.ID, model.StatusApproved, time.Now().UTC()); err != nil {
			return nil, err
		}
		s.logger.Info("access request approved", "request_id", req.ID, "email", req.Email, "user_id", user.ID)
	}
	return user, nil
}

// Reject denies a pending request. The email may request again later; only
// pending requests block re-submission. An approved request cannot be
// rejected.
func (s *AccessService) Reject(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	req, err := s.requests.GetAccessRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == model.StatusApproved {
		return nil, apperror.Conflict("access request was already approved")
	}

	if req.Status != model.StatusRejected {
		now := time.Now().UTC()
		if err := s.requests.SetAccessRequestStatus(ctx, req.ID, model.StatusRejected, now); err != nil {
			return nil, err
		}
		req.Status = model.StatusRejected
		req.ReviewedAt = &now
		s.logger.Info("access request rejected", "request_id", req.ID, "email", req.Email)
	}
	return req, nil
}

// Request returns a single access request by id.
func (s *AccessService) Request(ctx context.Context, requestID string) (*model.AccessRequest, error) {
	return s.requests.GetAccessRequestByID(ctx, requestID)
}

// ListRequests returns requests most-recent-first, optionally filtered by
// status ("pending", "approved", "rejected"; empty means all).
func (s *AccessService) ListRequests(ctx context.Context, status string) ([]model.AccessRequest, error) {
	st := model.RequestStatus(status)
	if status != "" && !st.Valid() {
		return nil, apperror.ValidationFailed("status", "unknown status")
	}
	return s.requests.ListAccessRequests(ctx, st, maxRequestListing)
}

// AddAllowedEmail puts an email on the self-provisioning allowlist. The
// domain policy applies: an email that could never sign in cannot be
// allowlisted either. Adding a duplicate returns the existing row.
func (s *AccessService) AddAllowedEmail(ctx context.Context, rawEmail string) (*model.AllowedEmail, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if !s.policy(email) {
		return nil, apperror.ValidationFailed("email", "email domain is not permitted")
	}
	return s.allowlist.AddAllowedEmail(ctx, email)
}

// RemoveAllowedEmail deletes an allowlist row by id. Existing accounts are
// untouched; removal only stops future self-provisioning.
func (s *AccessService) RemoveAllowedEmail(ctx context.Context, id string) error {
	return s.allowlist.RemoveAllowedEmail(ctx, id)
}

// ListAllowedEmails returns the allowlist ordered by email.
func (s *AccessService) ListAllowedEmails(ctx context.Context) ([]model.AllowedEmail, error) {
	return s.allowlist.ListAllowedEmails(ctx)
}

// DevSignIn resolves or provisions a user from a bare email, skipping both
// the allowlist and the request queue. Only reachable when dev login is
// enabled in config.
func (s *AccessService) DevSignIn(ctx context.Context, rawEmail, displayName string) (*model.User, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if !s.policy(email) {
		return nil, apperror.Forbidden("this email domain is not permitted")
	}

	a := Assertion{Email: email, DisplayName: strings.TrimSpace(displayName)}
	user, err := s.identity.Resolve(ctx, a)
	if errors.Is(err, ErrUnresolved) {
		user, err = s.identity.Provision(ctx, a)
	}
	return user, err
}
