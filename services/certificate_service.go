package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/superfunded/payout_portal/models"
	"github.com/superfunded/payout_portal/storage"
)

//go:embed templates/payout_certificate.html
var certificateFS embed.FS

var certificateTemplate = template.Must(template.ParseFS(certificateFS, "templates/payout_certificate.html"))

type CertificateStore interface {
	SetCertificate(ctx context.Context, id uuid.UUID, objectPath string) error
}

// PDFRenderer prints an HTML document to PDF bytes.
type PDFRenderer func(ctx context.Context, html string) ([]byte, error)

type CertificateService struct {
	store   CertificateStore
	objects storage.ObjectStorage
	render  PDFRenderer
}

func NewCertificateService(store CertificateStore, objects storage.ObjectStorage, render PDFRenderer) *CertificateService {
	if render == nil {
		render = RenderPDF
	}
	return &CertificateService{store: store, objects: objects, render: render}
}

// Issue renders the payout's certificate, uploads it and records its path.
func (s *CertificateService) Issue(ctx context.Context, payout models.Payout) error {
	htmlData, err := renderCertificateHTML(payout)
	if err != nil {
		return fmt.Errorf("render certificate html: %w", err)
	}

	pdf, err := s.render(ctx, htmlData)
	if err != nil {
		return fmt.Errorf("render certificate pdf: %w", err)
	}

	objectPath := storage.CertificatePath(payout.ID)
	if err := s.objects.Upload(ctx, objectPath, pdf, "application/pdf"); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if err := s.store.SetCertificate(ctx, payout.ID, objectPath); err != nil {
		return fmt.Errorf("save certificate path: %w", err)
	}

	log.Info().Str("payout_id", payout.ID.String()).Str("path", objectPath).Msg("payout certificate issued")
	return nil
}

func renderCertificateHTML(payout models.Payout) (string, error) {
	verifiedOn := time.Now().UTC()
	if payout.VerifiedAt != nil {
		verifiedOn = *payout.VerifiedAt
	}

	data := struct {
		ID         string
		TraderName string
		Amount     string
		Currency   string
		PayoutDate string
		VerifiedOn string
	}{
		ID:         payout.ID.String(),
		TraderName: payout.TraderName,
		Amount:     payout.Amount.StringFixed(2),
		Currency:   payout.Currency,
		PayoutDate: time.Time(payout.Date).Format("January 2, 2006"),
		VerifiedOn: verifiedOn.Format("January 2, 2006"),
	}

	var rendered bytes.Buffer
	if err := certificateTemplate.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

// RenderPDF prints htmlContent with a headless Chrome instance.
func RenderPDF(ctx context.Context, htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).WithLandscape(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}
