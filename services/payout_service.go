package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/superfunded/payout_portal/metrics"
	"github.com/superfunded/payout_portal/models"
	"github.com/superfunded/payout_portal/notifications"
	"github.com/superfunded/payout_portal/repository"
	"github.com/superfunded/payout_portal/session"
	"github.com/superfunded/payout_portal/storage"
	"github.com/superfunded/payout_portal/websocket"
)

const (
	DefaultMaxProofBytes = 10 * 1024 * 1024
	defaultCurrency      = "USD"
	dateLayout           = "2006-01-02"
	maxNameLength        = 100
	maxCurrencyLength    = 10
	backgroundTimeout    = time.Minute
)

type PayoutStore interface {
	CreatePayout(ctx context.Context, payout *models.Payout) error
	GetPayout(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	ListApproved(ctx context.Context) ([]models.Payout, error)
	ListPending(ctx context.Context) ([]models.Payout, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payout, error)
	Decide(ctx context.Context, id uuid.UUID, d repository.Decision) (*models.Payout, error)
	ListEvents(ctx context.Context, payoutID uuid.UUID) ([]models.PayoutEvent, error)
}

type Publisher interface {
	Publish(e websocket.Event)
}

type Notifier interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, htmlContent string) error
}

type CertificateIssuer interface {
	Issue(ctx context.Context, payout models.Payout) error
}

// ProofUpload is the image attached to a submission. Open is only called
// once the declared size has passed the ceiling check.
type ProofUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

type SubmitPayoutInput struct {
	TraderName    string
	TwitterHandle string
	Amount        string
	Currency      string
	Date          string
	Proof         *ProofUpload
}

type Submitter struct {
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name"`
}

type PayoutView struct {
	ID                   uuid.UUID           `json:"id"`
	UserID               *uuid.UUID          `json:"user_id,omitempty"`
	TraderName           string              `json:"trader_name"`
	TwitterHandle        *string             `json:"twitter_handle"`
	Amount               decimal.Decimal     `json:"amount"`
	Currency             string              `json:"currency"`
	Date                 string              `json:"date"`
	Status               models.PayoutStatus `json:"status"`
	ProofURL             string              `json:"proof_url,omitempty"`
	ProofPublicURL       string              `json:"proof_public_url"`
	CertificatePublicURL string              `json:"certificate_public_url,omitempty"`
	AdminID              *uuid.UUID          `json:"admin_id,omitempty"`
	AdminNotes           *string             `json:"admin_notes,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	VerifiedAt           *time.Time          `json:"verified_at"`
	Submitter            *Submitter          `json:"submitter,omitempty"`
}

type PayoutServiceConfig struct {
	Store         PayoutStore
	Objects       storage.ObjectStorage
	Events        Publisher
	Mailer        Notifier
	Certificates  CertificateIssuer
	MaxProofBytes int64
	Now           func() time.Time
}

type PayoutService struct {
	store         PayoutStore
	objects       storage.ObjectStorage
	events        Publisher
	mailer        Notifier
	certificates  CertificateIssuer
	maxProofBytes int64
	now           func() time.Time

	wg sync.WaitGroup
}

func NewPayoutService(cfg PayoutServiceConfig) *PayoutService {
	s := &PayoutService{
		store:         cfg.Store,
		objects:       cfg.Objects,
		events:        cfg.Events,
		mailer:        cfg.Mailer,
		certificates:  cfg.Certificates,
		maxProofBytes: cfg.MaxProofBytes,
		now:           cfg.Now,
	}
	if s.maxProofBytes <= 0 {
		s.maxProofBytes = DefaultMaxProofBytes
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Wait blocks until background emails and certificate work have finished.
func (s *PayoutService) Wait() {
	s.wg.Wait()
}

// Submit validates the form and proof, stores the image, then records a
// pending payout owned by the caller.
func (s *PayoutService) Submit(ctx context.Context, caller *session.Session, in SubmitPayoutInput) (*PayoutView, error) {
	if caller == nil {
		return nil, ErrForbidden
	}
	if !caller.IsVerified() {
		return nil, ErrNotVerified
	}

	payout, err := parseSubmission(in)
	if err != nil {
		return nil, err
	}

	data, ext, err := s.readProof(in.Proof)
	if err != nil {
		return nil, err
	}

	userID := caller.UserID()
	now := s.now()
	objectPath := storage.ProofPath(userID, now, ext)

	if err := s.objects.Upload(ctx, objectPath, data, mimetype.Detect(data).String()); err != nil {
		metrics.ProofUploadsFailed.Inc()
		log.Error().Err(err).Str("user_id", userID.String()).Str("path", objectPath).Msg("proof upload failed")
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	payout.UserID = userID
	payout.ProofURL = objectPath
	payout.Status = models.PayoutStatusPending
	payout.CreatedAt = now

	if err := s.store.CreatePayout(ctx, payout); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Str("path", objectPath).Msg("payout insert failed, proof object orphaned")
		return nil, fmt.Errorf("create payout: %w", err)
	}

	metrics.PayoutsSubmitted.Inc()
	log.Info().Str("payout_id", payout.ID.String()).Str("user_id", userID.String()).Msg("payout submitted")

	profile := caller.Profile()
	view := s.view(payout, false)
	view.Submitter = &Submitter{Email: profile.Email, DisplayName: optional(profile.DisplayName)}
	s.publish(websocket.EventPayoutSubmitted, payout, view)

	return view, nil
}

// ListApproved is the public feed, newest approval first. search keeps
// records whose trader name contains it, ignoring case.
func (s *PayoutService) ListApproved(ctx context.Context, search string) ([]PayoutView, error) {
	payouts, err := s.store.ListApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved payouts: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	views := make([]PayoutView, 0, len(payouts))
	for i := range payouts {
		if needle != "" && !strings.Contains(strings.ToLower(payouts[i].TraderName), needle) {
			continue
		}
		views = append(views, *s.view(&payouts[i], true))
	}
	return views, nil
}

func (s *PayoutService) ListPending(ctx context.Context, caller *session.Session) ([]PayoutView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	payouts, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending payouts: %w", err)
	}

	views := make([]PayoutView, 0, len(payouts))
	for i := range payouts {
		view := s.view(&payouts[i], false)
		view.Submitter = &Submitter{Email: payouts[i].User.Email, DisplayName: payouts[i].User.DisplayName}
		views = append(views, *view)
	}
	return views, nil
}

func (s *PayoutService) ListMine(ctx context.Context, caller *session.Session) ([]PayoutView, error) {
	if caller == nil {
		return nil, ErrForbidden
	}

	payouts, err := s.store.ListByUser(ctx, caller.UserID())
	if err != nil {
		return nil, fmt.Errorf("list own payouts: %w", err)
	}

	views := make([]PayoutView, 0, len(payouts))
	for i := range payouts {
		views = append(views, *s.view(&payouts[i], false))
	}
	return views, nil
}

func (s *PayoutService) Approve(ctx context.Context, caller *session.Session, id uuid.UUID, notes string) (*PayoutView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	now := s.now()
	payout, err := s.decide(ctx, id, repository.Decision{
		Status:     models.PayoutStatusApproved,
		AdminID:    caller.UserID(),
		Notes:      optional(strings.TrimSpace(notes)),
		VerifiedAt: &now,
		DecidedAt:  now,
	})
	if err != nil {
		return nil, err
	}

	s.publish(websocket.EventPayoutApproved, payout, s.view(payout, true))

	subject, body := notifications.PayoutApprovedEmail(payout.TraderName, payout.Amount.StringFixed(2), payout.Currency)
	s.notify(payout.User, subject, body)

	if s.certificates != nil {
		issued := *payout
		s.background(func(ctx context.Context) {
			if err := s.certificates.Issue(ctx, issued); err != nil {
				log.Error().Err(err).Str("payout_id", issued.ID.String()).Msg("certificate generation failed")
			}
		})
	}

	return s.view(payout, false), nil
}

// Reject refuses blank notes before touching the store.
func (s *PayoutService) Reject(ctx context.Context, caller *session.Session, id uuid.UUID, notes string) (*PayoutView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(notes)
	if reason == "" {
		return nil, invalid("admin_notes", "a reason is required to reject a payout")
	}

	now := s.now()
	payout, err := s.decide(ctx, id, repository.Decision{
		Status:    models.PayoutStatusRejected,
		AdminID:   caller.UserID(),
		Notes:     &reason,
		DecidedAt: now,
	})
	if err != nil {
		return nil, err
	}

	view := s.view(payout, false)
	s.publish(websocket.EventPayoutRejected, payout, view)

	subject, body := notifications.PayoutRejectedEmail(payout.TraderName, reason)
	s.notify(payout.User, subject, body)

	return view, nil
}

func (s *PayoutService) Events(ctx context.Context, caller *session.Session, id uuid.UUID) ([]models.PayoutEvent, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	if _, err := s.store.GetPayout(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}

	events, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list payout events: %w", err)
	}
	return events, nil
}

func (s *PayoutService) decide(ctx context.Context, id uuid.UUID, d repository.Decision) (*models.Payout, error) {
	current, err := s.store.GetPayout(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}
	if current.Status.Terminal() {
		return nil, ErrPayoutNotPending
	}

	payout, err := s.store.Decide(ctx, id, d)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("record decision: %w", err)
	}

	metrics.PayoutsDecided.WithLabelValues(string(d.Status)).Inc()
	log.Info().
		Str("payout_id", id.String()).
		Str("admin_id", d.AdminID.String()).
		Str("status", string(d.Status)).
		Msg("payout reviewed")

	return payout, nil
}

func (s *PayoutService) readProof(proof *ProofUpload) ([]byte, string, error) {
	if proof == nil || proof.Size == 0 || proof.Open == nil {
		return nil, "", invalid("proof", "an image file is required")
	}
	tooLarge := invalid("proof", fmt.Sprintf("image must be %d MB or smaller", s.maxProofBytes/(1024*1024)))
	if proof.Size > s.maxProofBytes {
		return nil, "", tooLarge
	}

	rc, err := proof.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open proof: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxProofBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read proof: %w", err)
	}
	if len(data) == 0 {
		return nil, "", invalid("proof", "an image file is required")
	}
	if int64(len(data)) > s.maxProofBytes {
		return nil, "", tooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", invalid("proof", "file must be an image")
	}

	ext := mt.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(proof.Filename))
	}
	return data, ext, nil
}

func parseSubmission(in SubmitPayoutInput) (*models.Payout, error) {
	traderName := strings.TrimSpace(in.TraderName)
	if traderName == "" {
		return nil, invalid("trader_name", "trader name is required")
	}
	if utf8.RuneCountInString(traderName) > maxNameLength {
		return nil, invalid("trader_name", "trader name must be 100 characters or fewer")
	}

	handle := strings.TrimSpace(in.TwitterHandle)
	if utf8.RuneCountInString(handle) > maxNameLength {
		return nil, invalid("twitter_handle", "twitter handle must be 100 characters or fewer")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return nil, invalid("amount", "amount must be a number")
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, invalid("amount", "amount must be greater than zero")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) > maxCurrencyLength {
		return nil, invalid("currency", "currency must be 10 characters or fewer")
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return nil, invalid("date", "date must be formatted as YYYY-MM-DD")
	}

	return &models.Payout{
		TraderName:    traderName,
		TwitterHandle: optional(handle),
		Amount:        amount,
		Currency:      currency,
		Date:          datatypes.Date(date),
	}, nil
}

// view renders a payout for API consumers. Public views drop ownership and
// review columns.
func (s *PayoutService) view(p *models.Payout, public bool) *PayoutView {
	v := &PayoutView{
		ID:             p.ID,
		TraderName:     p.TraderName,
		TwitterHandle:  p.TwitterHandle,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Date:           time.Time(p.Date).Format(dateLayout),
		Status:         p.Status,
		ProofPublicURL: s.objects.PublicURL(p.ProofURL),
		CreatedAt:      p.CreatedAt,
		VerifiedAt:     p.VerifiedAt,
	}
	if p.CertificateURL != nil {
		v.CertificatePublicURL = s.objects.PublicURL(*p.CertificateURL)
	}
	if public {
		return v
	}

	userID := p.UserID
	v.UserID = &userID
	v.ProofURL = p.ProofURL
	v.AdminID = p.AdminID
	v.AdminNotes = p.AdminNotes
	return v
}

func (s *PayoutService) publish(eventType string, p *models.Payout, view *PayoutView) {
	if s.events == nil {
		return
	}
	s.events.Publish(websocket.Event{Type: eventType, Payout: view, OwnerID: p.UserID})
}

func (s *PayoutService) notify(to models.User, subject, body string) {
	if s.mailer == nil || to.Email == "" {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.mailer.SendEmail(ctx, to.Name(), to.Email, subject, body); err != nil {
			log.Warn().Err(err).Str("user_id", to.ID.String()).Msg("payout email failed")
		}
	})
}

func (s *PayoutService) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func requireAdmin(caller *session.Session) error {
	if caller == nil || !caller.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
