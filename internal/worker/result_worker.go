package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gargallo/neolingus-backend/internal/config"
	"github.com/gargallo/neolingus-backend/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes the results queue and persists finalized
// session results to PostgreSQL in batches. After a successful batch
// the Redis answer buffers of the affected sessions are cleared.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*service.ResultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.ResultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch update wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*service.ResultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkPersistResults(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result update failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// After successful persistence → drop the Redis answer buffers.
	w.bulkClearAnswerBuffers(ctx, batch)
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultWorker) bulkPersistResults(ctx context.Context, batch []*service.ResultPayload) error {
	n := len(batch)

	sessionIDs := make([]uuid.UUID, 0, n)
	scores := make([]int, 0, n)
	resultDocs := make([]string, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		sID, err := uuid.Parse(p.SessionID)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(p.Result)
		if err != nil {
			return err
		}
		sessionIDs = append(sessionIDs, sID)
		scores = append(scores, p.Score)
		resultDocs = append(resultDocs, string(raw))
		finishedAts = append(finishedAts, p.Result.CompletedAt)
	}

	query := `
		UPDATE exam_sessions AS s
		SET status = 'COMPLETED',
		    final_score = t.score,
		    result = t.result::jsonb,
		    finished_at = t.finished_at
		FROM (
			SELECT
				u.session_id,
				u.score,
				u.result,
				u.finished_at
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::text[],
				$4::timestamptz[]
			) AS u (session_id, score, result, finished_at)
		) AS t
		WHERE s.id = t.session_id
	`

	_, err := w.pool.Exec(ctx, query, sessionIDs, scores, resultDocs, finishedAts)
	return err
}

// ----------------------------------------------------------------
// BULK Redis DEL for clearing answer buffers
// ----------------------------------------------------------------

func (w *ResultWorker) bulkClearAnswerBuffers(ctx context.Context, batch []*service.ResultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.SessionAnswersKey(p.SessionID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single update
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, p *service.ResultPayload) error {
	sID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(p.Result)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'COMPLETED',
		     final_score = $1,
		     result = $2,
		     finished_at = $3
		 WHERE id = $4`,
		p.Score, raw, p.Result.CompletedAt, sID,
	)
	return err
}
