package review

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carefinder/carefinder/internal/apperr"
	"github.com/carefinder/carefinder/internal/domain/facility"
	"github.com/carefinder/carefinder/internal/platform/auth"
	"github.com/carefinder/carefinder/internal/platform/db"
)

// Service implements review CRUD, helpful votes and the facility rating
// aggregate. Every write that changes the set of approved ratings recomputes
// the aggregate from scratch in the same transaction; nothing is adjusted
// incrementally.
type Service struct {
	pool       *pgxpool.Pool
	repo       Repository
	facilities facility.Repository
}

func NewService(pool *pgxpool.Pool, repo Repository, facilities facility.Repository) *Service {
	return &Service{pool: pool, repo: repo, facilities: facilities}
}

// CreateInput is the payload for posting a review.
type CreateInput struct {
	FacilityID uuid.UUID `json:"facility_id"`
	Rating     int       `json:"rating"`
	Title      string    `json:"title"`
	Comment    string    `json:"comment"`
}

// UpdateInput carries the editable review fields.
type UpdateInput struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// Content length limits, counted in runes.
const (
	maxTitleLen   = 100
	minCommentLen = 10
	maxCommentLen = 500
)

// validateContent checks the author-supplied text fields and returns them
// trimmed. The title is optional, the comment is not.
func validateContent(title, comment string) (string, string, error) {
	title = strings.TrimSpace(title)
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", "", apperr.Validation("title cannot exceed %d characters", maxTitleLen)
	}
	if n := utf8.RuneCountInString(comment); n < minCommentLen || n > maxCommentLen {
		return "", "", apperr.Validation("comment must be between %d and %d characters", minCommentLen, maxCommentLen)
	}
	return title, comment, nil
}

// Create posts a review. The unique index on (user, kind, facility) rejects
// a second review by the same user; that violation is surfaced as a
// duplicate-review error, never masked by a prior read.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Review, error) {
	if in.FacilityID == uuid.Nil {
		return nil, apperr.Validation("facility_id is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	title, comment, err := validateContent(in.Title, in.Comment)
	if err != nil {
		return nil, err
	}

	f, err := s.facilities.GetByID(ctx, in.FacilityID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("facility")
		}
		return nil, apperr.Internal(err)
	}
	if !f.IsPublic() {
		return nil, apperr.NotFound("facility")
	}

	rev := &Review{
		UserID:       userID,
		FacilityKind: f.Kind,
		FacilityID:   f.ID,
		Rating:       in.Rating,
		Title:        title,
		Comment:      comment,
		IsApproved:   true,
	}
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rev); err != nil {
			if db.IsUniqueViolation(err, "uq_reviews_user_facility") {
				return apperr.DuplicateReview()
			}
			return apperr.Internal(err)
		}
		return s.recompute(ctx, f.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, rev.ID)
}

// Update edits a review's rating or comment. Author or admin only.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	title, comment, err := validateContent(in.Title, in.Comment)
	if err != nil {
		return nil, err
	}

	var updated *Review
	err = db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		rev, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("review")
			}
			return apperr.Internal(err)
		}
		if !s.canEdit(ctx, rev) {
			return apperr.Forbidden("not allowed to edit this review")
		}

		rev.Rating = in.Rating
		rev.Title = title
		rev.Comment = comment
		if err := s.repo.Update(ctx, rev); err != nil {
			return apperr.Internal(err)
		}
		updated = rev
		return s.recompute(ctx, rev.FacilityID)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a review. Author or admin only.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		rev, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("review")
			}
			return apperr.Internal(err)
		}
		if !s.canEdit(ctx, rev) {
			return apperr.Forbidden("not allowed to delete this review")
		}
		if err := s.repo.Delete(ctx, rev.ID); err != nil {
			return apperr.Internal(err)
		}
		return s.recompute(ctx, rev.FacilityID)
	})
}

// SetApproved moderates a review in or out of the public set.
func (s *Service) SetApproved(ctx context.Context, id uuid.UUID, approved bool) (*Review, error) {
	var moderated *Review
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		rev, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("review")
			}
			return apperr.Internal(err)
		}
		rev.IsApproved = approved
		if err := s.repo.Update(ctx, rev); err != nil {
			return apperr.Internal(err)
		}
		moderated = rev
		return s.recompute(ctx, rev.FacilityID)
	})
	if err != nil {
		return nil, err
	}
	return moderated, nil
}

// Respond attaches or replaces the facility-side response shown under a
// review. An empty response clears it.
func (s *Service) Respond(ctx context.Context, id uuid.UUID, response string) (*Review, error) {
	response = strings.TrimSpace(response)
	if utf8.RuneCountInString(response) > maxCommentLen {
		return nil, apperr.Validation("response cannot exceed %d characters", maxCommentLen)
	}

	var responded *Review
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		rev, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("review")
			}
			return apperr.Internal(err)
		}
		rev.AdminResponse = response
		if err := s.repo.Update(ctx, rev); err != nil {
			return apperr.Internal(err)
		}
		responded = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return responded, nil
}

// ToggleHelpful flips the caller's helpful vote on a review. The review row
// is locked for the duration, and the stored count is rewritten from the
// vote table, so the count always equals the number of voters.
func (s *Service) ToggleHelpful(ctx context.Context, reviewID, userID uuid.UUID) (*VoteResult, error) {
	var result *VoteResult
	err := db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		rev, err := s.repo.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("review")
			}
			return apperr.Internal(err)
		}

		voted, err := s.repo.HasVote(ctx, rev.ID, userID)
		if err != nil {
			return apperr.Internal(err)
		}
		if voted {
			err = s.repo.RemoveVote(ctx, rev.ID, userID)
		} else {
			err = s.repo.AddVote(ctx, rev.ID, userID)
		}
		if err != nil {
			return apperr.Internal(err)
		}

		count, err := s.repo.CountVotes(ctx, rev.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if err := s.repo.SetHelpfulCount(ctx, rev.ID, count); err != nil {
			return apperr.Internal(err)
		}
		result = &VoteResult{ReviewID: rev.ID, Voted: !voted, HelpfulCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListForFacility returns a facility's approved reviews, newest first.
// Admins also see unapproved ones.
func (s *Service) ListForFacility(ctx context.Context, facilityID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	approvedOnly := !auth.IsAdmin(ctx)
	reviews, total, err := s.repo.ListByFacility(ctx, facilityID, approvedOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return reviews, total, nil
}

// ListMine returns the caller's reviews.
func (s *Service) ListMine(ctx context.Context, limit, offset int) ([]*Review, int, error) {
	userID := auth.UserIDFromContext(ctx)
	reviews, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return reviews, total, nil
}

// recompute rewrites the facility's rating aggregate from its approved
// reviews. The mean is kept to one decimal.
func (s *Service) recompute(ctx context.Context, facilityID uuid.UUID) error {
	avg, count, err := s.repo.AggregateApproved(ctx, facilityID)
	if err != nil {
		return apperr.Internal(err)
	}
	rating := math.Round(avg*10) / 10
	if err := s.facilities.UpdateRating(ctx, facilityID, rating, count); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) canEdit(ctx context.Context, rev *Review) bool {
	return auth.IsAdmin(ctx) || auth.UserIDFromContext(ctx) == rev.UserID
}
