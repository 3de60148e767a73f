package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/apperrors"
	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

// ReportConfig holds the settings of the report engine.
type ReportConfig struct {
	// BillingFieldID and BillingFieldValue select billable cards. Both empty disables filtering.
	BillingFieldID    string
	BillingFieldValue string
	UnknownSpecialist string
	Currency          string
	HoursUnit         string
	// Location determines "today" in the suggested filename.
	Location *time.Location
}

// ReportService builds billing datasets.
type ReportService interface {
	// Generate aggregates the time-logs of one board over an inclusive date range.
	Generate(ctx context.Context, req models.ReportRequest) (*models.Dataset, error)
}

type reportService struct {
	kaiten    KaitenAPI
	resolver  RateResolver
	overrides RoleOverrideService
	speller   AmountSpeller
	pool      *WorkerPool
	config    ReportConfig
	format    Formatter
	now       func() time.Time
	logger    *zap.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	kaitenAPI KaitenAPI,
	resolver RateResolver,
	overrides RoleOverrideService,
	speller AmountSpeller,
	pool *WorkerPool,
	config ReportConfig,
	logger *zap.Logger,
) ReportService {
	return newReportService(kaitenAPI, resolver, overrides, speller, pool, config, time.Now, logger)
}

func newReportService(
	kaitenAPI KaitenAPI,
	resolver RateResolver,
	overrides RoleOverrideService,
	speller AmountSpeller,
	pool *WorkerPool,
	config ReportConfig,
	now func() time.Time,
	logger *zap.Logger,
) *reportService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &reportService{
		kaiten:    kaitenAPI,
		resolver:  resolver,
		overrides: overrides,
		speller:   speller,
		pool:      pool,
		config:    config,
		format:    Formatter{Currency: config.Currency, HoursUnit: config.HoursUnit},
		now:       now,
		logger:    logger.Named("report"),
	}
}

var _ ReportService = (*reportService)(nil)

// entry is one in-range time-log with its resolved rate, before formatting.
type entry struct {
	iso        string
	specialist string
	position   string
	rate       int
	work       string
	hours      float64
	amount     float64
}

func (s *reportService) Generate(ctx context.Context, req models.ReportRequest) (*models.Dataset, error) {
	if req.ProjectID == "" || req.BoardID == "" {
		return nil, fmt.Errorf("%w: project_id and board_id are required", apperrors.ErrInvalidInput)
	}
	if err := validateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	logger := s.logger.With(
		zap.String("project_id", req.ProjectID),
		zap.String("board_id", req.BoardID),
		zap.String("start", req.StartDate),
		zap.String("end", req.EndDate))

	var status FetchStatus
	validity, st, err := s.resolver.BoardValidity(ctx, req.ProjectID, kaiten.Board{ID: kaiten.ID(req.BoardID)})
	if err != nil {
		return nil, err
	}
	status.Merge(st)
	if !st.Degraded && !validity.Valid {
		return nil, fmt.Errorf("%w: missing roles %s", apperrors.ErrProjectNotReady, strings.Join(validity.MissingRoles, ", "))
	}

	book, err := s.resolver.BookForBoard(ctx, req.ProjectID, req.BoardID)
	if err != nil {
		return nil, err
	}
	overrides, err := s.overrides.Lookup(ctx)
	if err != nil {
		return nil, err
	}

	cards, err := s.fetchCards(ctx, req, &status, logger)
	if err != nil {
		return nil, err
	}
	logs, err := s.fetchTimeLogs(ctx, cards, &status, logger)
	if err != nil {
		return nil, err
	}

	autoRates := validity.AutoRates
	var entries []entry
	for i, card := range cards {
		for _, log := range logs[i] {
			iso := isoDate(log.Created)
			if iso < req.StartDate || iso > req.EndDate {
				continue
			}
			roleID := string(log.RoleID)
			if override, ok := overrides[log.AuthorID()]; ok {
				roleID = override
			}
			res := book.Resolve(roleID)
			if res.Provenance == models.ProvenanceDefault {
				autoRates = true
			}
			hours := log.TimeSpent.Hours()
			entries = append(entries, entry{
				iso:        iso,
				specialist: fallback(log.AuthorName(), s.config.UnknownSpecialist),
				position:   res.Label,
				rate:       res.Rate,
				work:       fallback(log.Comment, card.Title),
				hours:      hours,
				amount:     float64(res.Rate) * hours,
			})
		}
	}

	if len(entries) == 0 {
		if status.Refused {
			return nil, apperrors.ErrRemoteUnavailable
		}
		return nil, apperrors.ErrNoEntriesInRange
	}

	// entries are already in card/log order, so a stable sort keeps that as the tiebreak
	slices.SortStableFunc(entries, func(a, b entry) int {
		return strings.Compare(a.iso, b.iso)
	})

	ds := &models.Dataset{
		ProjectID: req.ProjectID,
		BoardID:   req.BoardID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Rows:      make([]models.ReportRow, 0, len(entries)),
		Filename:  s.filename(req.ProjectID),
		Degraded:  status.Degraded,
		Refused:   status.Refused,
		AutoRates: autoRates,
	}
	var totalHours, totalAmount float64
	for _, e := range entries {
		totalHours += e.hours
		totalAmount += e.amount
		ds.Rows = append(ds.Rows, models.ReportRow{
			Date:       s.format.Date(e.iso),
			Specialist: e.specialist,
			Position:   e.position,
			Rate:       s.format.Rate(e.rate),
			Work:       e.work,
			Hours:      s.format.Hours(e.hours),
			Cost:       s.format.Money(e.amount),
		})
	}
	ds.TotalHours = s.format.TotalHours(totalHours)
	ds.TotalAmount = s.format.Money(totalAmount)
	ds.AmountInWords = s.speller.Spell(totalAmount)

	logger.Info("Report generated",
		zap.Int("rows", len(ds.Rows)),
		zap.Float64("total_hours", totalHours),
		zap.Bool("degraded", ds.Degraded))
	return ds, nil
}

func (s *reportService) fetchCards(ctx context.Context, req models.ReportRequest, status *FetchStatus, logger *zap.Logger) ([]kaiten.Card, error) {
	var filter string
	if s.config.BillingFieldID != "" || s.config.BillingFieldValue != "" {
		f, err := kaiten.BillingFilter(s.config.BillingFieldID, s.config.BillingFieldValue)
		if err != nil {
			return nil, fmt.Errorf("invalid billing filter configuration: %w", err)
		}
		filter = f
	}

	cards, err := s.kaiten.Cards(ctx, kaiten.CardQuery{
		ProjectID: req.ProjectID,
		BoardID:   req.BoardID,
		Filter:    filter,
	})
	if canceled(ctx, err) {
		return nil, err
	}
	if status.absorb(err, logger, "cards") {
		return nil, nil
	}
	return cards, nil
}

// fetchTimeLogs returns the logs of each card, indexed like cards.
func (s *reportService) fetchTimeLogs(ctx context.Context, cards []kaiten.Card, status *FetchStatus, logger *zap.Logger) ([][]kaiten.TimeLog, error) {
	items := make([]WorkItem[[]kaiten.TimeLog], 0, len(cards))
	for i, card := range cards {
		items = append(items, WorkItem[[]kaiten.TimeLog]{
			Index: i,
			ID:    string(card.ID),
			Execute: func(ctx context.Context) ([]kaiten.TimeLog, error) {
				return s.kaiten.TimeLogs(ctx, string(card.ID))
			},
		})
	}

	logs := make([][]kaiten.TimeLog, len(cards))
	for _, res := range Process(ctx, s.pool, items) {
		if canceled(ctx, res.Err) {
			return nil, res.Err
		}
		if status.absorb(res.Err, logger, "time-logs", zap.String("card_id", res.ID)) {
			continue
		}
		logs[res.Index] = res.Result
	}
	return logs, nil
}

func (s *reportService) filename(projectID string) string {
	return fmt.Sprintf("report_%s_%s", projectID, s.now().In(s.config.Location).Format(time.DateOnly))
}

func validateRange(start, end string) error {
	from, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return fmt.Errorf("%w: start %q", apperrors.ErrInvalidDateRange, start)
	}
	to, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return fmt.Errorf("%w: end %q", apperrors.ErrInvalidDateRange, end)
	}
	if from.After(to) {
		return apperrors.ErrInvalidDateRange
	}
	return nil
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
