// Package api maps repository operations onto HTTP calls.
//
// Every method is a thin wrapper over client.Client: it builds the path for
// the configured university, enforces the "auth required" rule locally, and
// decodes the loosely typed payloads into memoire types. Reference data
// (stats, years, domains) degrades to defaults on failure; the error is still
// returned so callers can log it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/michaekong/memocloud/pkg/client"
	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/pagination"
)

var (
	// ErrAuthRequired is returned, without any request being sent, when an
	// operation needs a token and the session has none.
	ErrAuthRequired = errors.New("authentication required")

	// ErrEmptyComment rejects blank comments before they reach the API.
	ErrEmptyComment = errors.New("comment is empty")

	// ErrInvalidRating rejects notes outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// FallbackYears is how many calendar years are offered when the years endpoint fails.
const FallbackYears = 10

// Requester is the subset of client.Client the service needs.
type Requester interface {
	GetBytes(ctx context.Context, path string, query url.Values) ([]byte, error)
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
}

// Service exposes the repository operations for one university.
type Service struct {
	http       Requester
	university string
	tokens     client.TokenSource
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService creates a service. tokens may be nil for anonymous use.
func NewService(http Requester, university string, tokens client.TokenSource) *Service {
	return &Service{
		http:       http,
		university: university,
		tokens:     tokens,
		logger:     log.With().Str("component", "api").Logger(),
		now:        time.Now,
	}
}

// University returns the slug the service is bound to.
func (s *Service) University() string {
	return s.university
}

func (s *Service) universityPath(format string, args ...any) string {
	return fmt.Sprintf("/memoires/universites/%s", url.PathEscape(s.university)) + fmt.Sprintf(format, args...)
}

func (s *Service) requireAuth() error {
	if s.tokens == nil || s.tokens.Token() == "" {
		return ErrAuthRequired
	}
	return nil
}

// ListingPage fetches one page of the record listing.
func (s *Service) ListingPage(ctx context.Context, page int, ordering string) (memoire.Page, error) {
	query := url.Values{"page": {strconv.Itoa(page)}}
	if ordering != "" {
		query.Set("ordering", ordering)
	}

	body, err := s.http.GetBytes(ctx, s.universityPath("/memoires/"), query)
	if err != nil {
		return memoire.Page{}, fmt.Errorf("listing page %d: %w", page, err)
	}

	p, err := memoire.DecodePage(body)
	if err != nil {
		return memoire.Page{}, fmt.Errorf("listing page %d: %w", page, err)
	}
	if p.Skipped > 0 {
		s.logger.Warn().
			Int("page", page).
			Int("skipped", p.Skipped).
			Msg("Dropped undecodable records from listing page")
	}
	return p, nil
}

// Listing adapts ListingPage to the pagination contract for a fixed ordering.
func (s *Service) Listing(ordering string) pagination.PageFetcher[memoire.Memoire] {
	return pagination.PageFetcherFunc[memoire.Memoire](func(ctx context.Context, page int) ([]memoire.Memoire, bool, error) {
		p, err := s.ListingPage(ctx, page, ordering)
		if err != nil {
			return nil, false, err
		}
		return p.Results, p.HasNext(), nil
	})
}

// Stats returns the aggregate counters. On failure it returns zero stats and the error.
func (s *Service) Stats(ctx context.Context) (memoire.Stats, error) {
	var stats memoire.Stats
	if err := s.http.GetJSON(ctx, s.universityPath("/stats/"), nil, &stats); err != nil {
		s.logger.Warn().Err(err).Msg("Stats unavailable, showing zeros")
		return memoire.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// Years returns the publication years offered by the year filter. On failure
// it returns the last FallbackYears calendar years, newest first, and the error.
func (s *Service) Years(ctx context.Context) ([]string, error) {
	body, err := s.http.GetBytes(ctx, s.universityPath("/memoires/annees/"), nil)
	if err == nil {
		var years []string
		years, err = decodeYears(body)
		if err == nil {
			return years, nil
		}
	}

	s.logger.Warn().Err(err).Msg("Years unavailable, using recent years")
	return s.recentYears(), fmt.Errorf("years: %w", err)
}

func (s *Service) recentYears() []string {
	current := s.now().Year()
	years := make([]string, 0, FallbackYears)
	for i := 0; i < FallbackYears; i++ {
		years = append(years, strconv.Itoa(current-i))
	}
	return years
}

// decodeYears accepts {"annees": [...]} or a bare array of numbers or strings.
func decodeYears(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)

	var raw []memoire.FlexString
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decode years: %w", err)
		}
	} else {
		var envelope struct {
			Years []memoire.FlexString `json:"annees"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode years: %w", err)
		}
		raw = envelope.Years
	}

	years := make([]string, 0, len(raw))
	for _, y := range raw {
		if y != "" {
			years = append(years, y.String())
		}
	}
	return years, nil
}

// Domains returns the domains linked to the university, or every domain when
// none is linked. On failure it returns an empty list and the error.
func (s *Service) Domains(ctx context.Context) ([]memoire.Domain, error) {
	var all []memoire.Domain
	if err := s.http.GetJSON(ctx, "/universites/domaines/", nil, &all); err != nil {
		s.logger.Warn().Err(err).Msg("Domains unavailable")
		return []memoire.Domain{}, fmt.Errorf("domains: %w", err)
	}

	linked := make([]memoire.Domain, 0, len(all))
	for _, d := range all {
		if d.LinkedTo(s.university) {
			linked = append(linked, d)
		}
	}
	if len(linked) == 0 {
		return all, nil
	}
	return linked, nil
}

// Comments returns the discussion of one record.
func (s *Service) Comments(ctx context.Context, id int) ([]memoire.Comment, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}
	var comments []memoire.Comment
	if err := s.http.GetJSON(ctx, s.universityPath("/memoires/%d/commentaires/", id), nil, &comments); err != nil {
		return nil, fmt.Errorf("comments for %d: %w", id, err)
	}
	return comments, nil
}

// PostComment adds a comment to a record. Blank text is rejected locally.
func (s *Service) PostComment(ctx context.Context, id int, text string) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyComment
	}
	body := map[string]any{"memoire": id, "contenu": text}
	if err := s.http.PostJSON(ctx, "/interactions/commentaires/", body, nil); err != nil {
		return fmt.Errorf("post comment on %d: %w", id, err)
	}
	return nil
}

// RegisterDownload records a download of a record.
func (s *Service) RegisterDownload(ctx context.Context, id int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	if err := s.http.PostJSON(ctx, "/interactions/telechargements/telecharger/", map[string]int{"memoire": id}, nil); err != nil {
		return fmt.Errorf("register download of %d: %w", id, err)
	}
	return nil
}

// ToggleLike flips the like state of a record for the current user.
func (s *Service) ToggleLike(ctx context.Context, id int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	if err := s.http.PostJSON(ctx, "/interactions/likes/toggle/", map[string]int{"memoire_id": id}, nil); err != nil {
		return fmt.Errorf("toggle like on %d: %w", id, err)
	}
	return nil
}

// Rate sets the current user's note (1..5) for a record.
func (s *Service) Rate(ctx context.Context, id, note int) error {
	if err := s.requireAuth(); err != nil {
		return err
	}
	if note < 1 || note > 5 {
		return ErrInvalidRating
	}
	if err := s.http.PostJSON(ctx, "/interactions/notations/", map[string]int{"memoire_id": id, "note": note}, nil); err != nil {
		return fmt.Errorf("rate %d: %w", id, err)
	}
	return nil
}

// Me returns the authenticated user's profile.
func (s *Service) Me(ctx context.Context) (memoire.Profile, error) {
	if err := s.requireAuth(); err != nil {
		return memoire.Profile{}, err
	}
	var p memoire.Profile
	if err := s.http.GetJSON(ctx, "/auth/me/", nil, &p); err != nil {
		return memoire.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return p, nil
}

// MyStats returns the current user's publication counters.
func (s *Service) MyStats(ctx context.Context) (memoire.Stats, error) {
	if err := s.requireAuth(); err != nil {
		return memoire.Stats{}, err
	}
	var stats memoire.Stats
	if err := s.http.GetJSON(ctx, s.universityPath("/memoires/mes-stats/"), nil, &stats); err != nil {
		return memoire.Stats{}, fmt.Errorf("my stats: %w", err)
	}
	return stats, nil
}

// MyDownloads lists the records the current user downloaded.
func (s *Service) MyDownloads(ctx context.Context) ([]memoire.Interaction, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}
	var out []memoire.Interaction
	if err := s.http.GetJSON(ctx, "/interactions/telechargements/mes-telechargements/", nil, &out); err != nil {
		return nil, fmt.Errorf("my downloads: %w", err)
	}
	return out, nil
}

// MyLikes lists the records the current user liked.
func (s *Service) MyLikes(ctx context.Context) ([]memoire.Interaction, error) {
	if err := s.requireAuth(); err != nil {
		return nil, err
	}
	var out []memoire.Interaction
	path := fmt.Sprintf("/interactions/universites/%s/interactions/likes/", url.PathEscape(s.university))
	if err := s.http.GetJSON(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("my likes: %w", err)
	}
	return out, nil
}
