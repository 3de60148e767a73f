package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
	"github.com/lecap-inc/kaiten-billing/pkg/repositories"
)

// RateBook is an in-memory snapshot of the rates that apply to one board.
// Resolution against a book never fails.
type RateBook struct {
	explicit  map[string]*models.ProjectRate
	defaults  map[string]*models.DefaultRoleRate
	zeroLabel string
	chain     []resolveFunc
}

// resolveFunc is one tier of the fallback chain. It reports false to pass
// the role on to the next tier.
type resolveFunc func(roleID string) (models.Resolution, bool)

// NewRateBook builds a book from the explicit rates of one board and the
// company-wide defaults. Either slice may be empty.
func NewRateBook(explicit []*models.ProjectRate, defaults []*models.DefaultRoleRate, zeroLabel string) *RateBook {
	b := &RateBook{
		explicit:  make(map[string]*models.ProjectRate, len(explicit)),
		defaults:  make(map[string]*models.DefaultRoleRate, len(defaults)),
		zeroLabel: zeroLabel,
	}
	for _, r := range explicit {
		b.explicit[r.RoleID] = r
	}
	for _, d := range defaults {
		b.defaults[d.RoleID] = d
	}
	b.chain = []resolveFunc{b.explicitRate, b.defaultRate}
	return b
}

// Resolve walks the chain explicit → default → zero for roleID.
func (b *RateBook) Resolve(roleID string) models.Resolution {
	for _, tier := range b.chain {
		if res, ok := tier(roleID); ok {
			return res
		}
	}
	return models.Resolution{
		RoleID:     roleID,
		Rate:       0,
		Label:      b.zeroLabel,
		Provenance: models.ProvenanceNone,
	}
}

func (b *RateBook) explicitRate(roleID string) (models.Resolution, bool) {
	r, ok := b.explicit[roleID]
	if !ok || r.Rate == nil {
		return models.Resolution{}, false
	}
	return models.Resolution{
		RoleID:     roleID,
		Rate:       *r.Rate,
		Label:      b.label(roleID, r.RoleName),
		Provenance: models.ProvenanceExplicit,
	}, true
}

func (b *RateBook) defaultRate(roleID string) (models.Resolution, bool) {
	d, ok := b.defaults[roleID]
	if !ok || d.DefaultRate == nil {
		return models.Resolution{}, false
	}
	return models.Resolution{
		RoleID:     roleID,
		Rate:       *d.DefaultRate,
		Label:      b.label(roleID, d.RoleName),
		Provenance: models.ProvenanceDefault,
	}, true
}

// label prefers the given name, then any name known for the role.
func (b *RateBook) label(roleID, name string) string {
	if name != "" {
		return name
	}
	if r, ok := b.explicit[roleID]; ok && r.RoleName != "" {
		return r.RoleName
	}
	if d, ok := b.defaults[roleID]; ok && d.RoleName != "" {
		return d.RoleName
	}
	return roleID
}

// Validity evaluates a board against the roles currently visible on it.
// Every role must resolve explicitly or by default for the board to be valid;
// a default resolution also sets AutoRates.
func (b *RateBook) Validity(projectID string, board kaiten.Board, roles []kaiten.Role) models.BoardValidity {
	v := models.BoardValidity{
		ProjectID: projectID,
		BoardID:   string(board.ID),
		Title:     board.Title,
		Valid:     true,
		Roles:     make([]models.RoleResolution, 0, len(roles)),
	}
	for _, role := range roles {
		res := b.Resolve(string(role.ID))
		v.Roles = append(v.Roles, models.RoleResolution{
			RoleID:     string(role.ID),
			RoleName:   role.Name,
			Rate:       res.Rate,
			Provenance: res.Provenance,
		})
		switch res.Provenance {
		case models.ProvenanceNone:
			v.Valid = false
			v.MissingRoles = append(v.MissingRoles, string(role.ID))
		case models.ProvenanceDefault:
			v.AutoRates = true
		}
	}
	return v
}

// RateResolver loads rate books and evaluates board and project validity.
type RateResolver interface {
	// BookForBoard snapshots the rates that apply to one board.
	BookForBoard(ctx context.Context, projectID, boardID string) (*RateBook, error)
	// DefaultBook snapshots only the company-wide defaults.
	DefaultBook(ctx context.Context) (*RateBook, error)
	// BoardValidity fetches the board's roles and checks that all are priced.
	BoardValidity(ctx context.Context, projectID string, board kaiten.Board) (models.BoardValidity, FetchStatus, error)
	// ProjectValidity checks every board of a project.
	ProjectValidity(ctx context.Context, project kaiten.Project) (models.ProjectValidity, FetchStatus, error)
}

type rateResolver struct {
	kaiten    KaitenAPI
	defaults  repositories.DefaultRateRepository
	rates     repositories.ProjectRateRepository
	zeroLabel string
	logger    *zap.Logger
}

// NewRateResolver creates a new RateResolver.
func NewRateResolver(
	kaitenAPI KaitenAPI,
	defaults repositories.DefaultRateRepository,
	rates repositories.ProjectRateRepository,
	zeroLabel string,
	logger *zap.Logger,
) RateResolver {
	return &rateResolver{
		kaiten:    kaitenAPI,
		defaults:  defaults,
		rates:     rates,
		zeroLabel: zeroLabel,
		logger:    logger.Named("rate-resolver"),
	}
}

var _ RateResolver = (*rateResolver)(nil)

func (s *rateResolver) BookForBoard(ctx context.Context, projectID, boardID string) (*RateBook, error) {
	defaults, err := s.defaults.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load default rates: %w", err)
	}
	explicit, err := s.rates.ListByBoard(ctx, projectID, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load board rates: %w", err)
	}
	return NewRateBook(explicit, defaults, s.zeroLabel), nil
}

func (s *rateResolver) DefaultBook(ctx context.Context) (*RateBook, error) {
	defaults, err := s.defaults.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load default rates: %w", err)
	}
	return NewRateBook(nil, defaults, s.zeroLabel), nil
}

func (s *rateResolver) BoardValidity(ctx context.Context, projectID string, board kaiten.Board) (models.BoardValidity, FetchStatus, error) {
	book, err := s.BookForBoard(ctx, projectID, string(board.ID))
	if err != nil {
		return models.BoardValidity{}, FetchStatus{}, err
	}
	v, status, err := s.boardValidity(ctx, book, projectID, board)
	return v, status, err
}

func (s *rateResolver) boardValidity(ctx context.Context, book *RateBook, projectID string, board kaiten.Board) (models.BoardValidity, FetchStatus, error) {
	var status FetchStatus
	roles, err := s.kaiten.BoardRoles(ctx, projectID, string(board.ID))
	if canceled(ctx, err) {
		return models.BoardValidity{}, status, err
	}
	if status.absorb(err, s.logger, "board roles",
		zap.String("project_id", projectID), zap.String("board_id", string(board.ID))) {
		// an unknown role set cannot be proven complete
		return models.BoardValidity{
			ProjectID: projectID,
			BoardID:   string(board.ID),
			Title:     board.Title,
			Roles:     []models.RoleResolution{},
		}, status, nil
	}
	return book.Validity(projectID, board, roles), status, nil
}

func (s *rateResolver) ProjectValidity(ctx context.Context, project kaiten.Project) (models.ProjectValidity, FetchStatus, error) {
	projectID := string(project.ID)
	pv := models.ProjectValidity{
		ProjectID: projectID,
		Title:     project.Title,
		Boards:    []models.BoardValidity{},
	}

	var status FetchStatus
	boards, err := s.kaiten.Boards(ctx, projectID)
	if canceled(ctx, err) {
		return pv, status, err
	}
	if status.absorb(err, s.logger, "boards", zap.String("project_id", projectID)) {
		return pv, status, nil
	}

	defaults, err := s.defaults.List(ctx)
	if err != nil {
		return pv, status, fmt.Errorf("failed to load default rates: %w", err)
	}
	all, err := s.rates.ListByProject(ctx, projectID)
	if err != nil {
		return pv, status, fmt.Errorf("failed to load project rates: %w", err)
	}
	byBoard := make(map[string][]*models.ProjectRate)
	for _, r := range all {
		byBoard[r.BoardID] = append(byBoard[r.BoardID], r)
	}

	for _, board := range boards {
		book := NewRateBook(byBoard[string(board.ID)], defaults, s.zeroLabel)
		v, boardStatus, err := s.boardValidity(ctx, book, projectID, board)
		if err != nil {
			return pv, status, err
		}
		status.Merge(boardStatus)
		pv.Boards = append(pv.Boards, v)
		if v.Valid {
			pv.HasRates = true
		}
	}
	return pv, status, nil
}
