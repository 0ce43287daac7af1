package workers

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lifeQuestAPI/internal/clock"
)

// StartExpirySweeper starts a background routine that expires quest
// instances left ACTIVE in periods no user clock can still be inside.
// Day close handles the common path; the sweeper catches users who
// simply stopped opening the app.
func StartExpirySweeper(db *pgxpool.Pool) {
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		for range ticker.C {
			sweepExpiredInstances(db)
		}
	}()
}

func sweepExpiredInstances(db *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Two days of slack covers every timezone offset plus the close-of-day
	// grace period. Period keys sort lexicographically in both formats.
	dayCutoff := time.Now().UTC().AddDate(0, 0, -2).Format(clock.DateLayout)
	weekCutoff, err := clock.WeekKey(time.Now().UTC().AddDate(0, 0, -14).Format(clock.DateLayout))
	if err != nil {
		log.Printf("Expiry sweep failed to compute week cutoff: %v", err)
		return
	}

	tag, err := db.Exec(ctx, `
	UPDATE quest_instances qi
	SET status = 'EXPIRED', updated_at = NOW()
	FROM quest_templates qt
	WHERE qt.id = qi.template_id AND qi.status = 'ACTIVE'
	  AND qt.cadence IN ('DAILY', 'BONUS') AND qi.period_key < $1
	`, dayCutoff)
	if err != nil {
		log.Printf("Expiry sweep failed for daily instances: %v", err)
		return
	}
	expired := tag.RowsAffected()

	tag, err = db.Exec(ctx, `
	UPDATE quest_instances qi
	SET status = 'EXPIRED', updated_at = NOW()
	FROM quest_templates qt
	WHERE qt.id = qi.template_id AND qi.status = 'ACTIVE'
	  AND qt.cadence = 'WEEKLY' AND qi.period_key < $1
	`, weekCutoff)
	if err != nil {
		log.Printf("Expiry sweep failed for weekly instances: %v", err)
		return
	}
	expired += tag.RowsAffected()

	if expired > 0 {
		log.Printf("Expiry sweep closed out %d stale quest instances", expired)
	}
}
