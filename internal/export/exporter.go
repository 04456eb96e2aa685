// Package export renders registrations into an xlsx workbook.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"consultbot/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

var ErrNothingToExport = errors.New("nothing to export")

var columns = []string{
	"№", "Ism-Familiya", "Telefon", "Manzil", "Korxona", "Uchrashuv sanasi", "Ro'yxatdan o'tgan vaqt",
}

var widths = []float64{8, 25, 18, 30, 25, 20, 20}

// Config for the exporter.
type Config struct {
	Dir   string
	Title string
}

// Exporter writes workbook files into Dir. Callers own the returned file
// and must Remove it after delivery.
type Exporter struct {
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger
}

func NewExporter(cfg Config, logger *zerolog.Logger) *Exporter {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if cfg.Title == "" {
		cfg.Title = "Uchrashuv ro'yxatlari"
	}
	return &Exporter{
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

// Export writes regs in the given order and returns the file path.
func (e *Exporter) Export(ctx context.Context, regs []model.Registration) (string, error) {
	if len(regs) == 0 {
		return "", ErrNothingToExport
	}
	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	now := e.now()
	w := newSheetWriter("Ro'yxatlar", len(columns))
	defer w.Close()

	if err := w.WriteBanner(e.cfg.Title, &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "4472C4"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return "", err
	}
	if err := w.WriteBanner("Export qilingan sana: "+now.Format("02.01.2006 15:04"), &excelize.Style{
		Font:      &excelize.Font{Italic: true, Size: 10, Color: "666666"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return "", err
	}
	w.SkipRow()
	if err := w.WriteHeader(columns); err != nil {
		return "", err
	}

	for i, r := range regs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Local().Format("02.01.2006 15:04")
		}
		if err := w.WriteRow([]any{
			i + 1, r.FullName, r.Phone, r.Address, r.Company, r.MeetingDate, created,
		}); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	w.SkipRow()
	if err := w.WriteBanner(fmt.Sprintf("Jami ro'yxatlar soni: %d", len(regs)), &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "4472C4"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return "", err
	}
	if err := w.SetWidths(widths); err != nil {
		return "", err
	}

	path := filepath.Join(e.cfg.Dir, fmt.Sprintf("registrations_%s_%s.xlsx", now.Format("20060102_150405"), uuid.NewString()[:8]))
	if err := w.SaveToFile(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	e.logger.Info().Str("path", path).Int("rows", len(regs)).Msg("Workbook created")
	return path, nil
}

// Remove deletes an exported file. Missing files are not an error.
func (e *Exporter) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
