package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/tunnelops-console/internal/audit"
)

// WriteEpisodes — пакетная вставка записей журнала эпизодов.
// Запрос строится динамически: одна INSERT-команда на всю пачку.
func (r *TelemetryRepo) WriteEpisodes(ctx context.Context, recs []audit.EpisodeRecord) error {
	if len(recs) == 0 {
		return nil
	}

	// Количество колонок таблицы agent_episodes
	const numFields = 12
	var sb strings.Builder
	vals := make([]any, 0, len(recs)*numFields)

	for i, e := range recs {
		p := i * numFields
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10, p+11, p+12)

		vals = append(vals,
			e.ID, e.RiskType, e.Location, e.Trigger, e.Status,
			e.RiskLevel, e.Analysis, e.Report, e.PlanSteps,
			e.DurationMs, e.Error, e.Timestamp,
		)
	}

	query := `INSERT INTO agent_episodes
		(id, risk_type, location, trigger, status, risk_level, analysis, report,
		 plan_steps, duration_ms, error, ts) VALUES ` + sb.String()

	_, err := r.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("postgres: write episodes: %w", err)
	}
	return nil
}
