package charactersheet

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"character-sheet-server/modules/progress"
	"character-sheet-server/modules/session"
)

// Redis 작업 큐 키
const jobQueueKey = "sheet:jobs"

// Queue - Redis 기반 생성 작업 큐
type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// EnqueueGeneration - 세션의 생성 작업을 큐에 등록
func (q *Queue) EnqueueGeneration(ctx context.Context, sessionID string) error {
	return q.rdb.LPush(ctx, jobQueueKey, sessionID).Err()
}

// Worker - 큐에서 작업을 꺼내 시트 생성을 수행
// 작업은 순차 처리됨 - 동시에 하나의 워크플로우만 실행
type Worker struct {
	rdb     *redis.Client
	store   *session.Store
	hub     *progress.Hub
	service *Service

	processed atomic.Int64
}

func NewWorker(rdb *redis.Client, store *session.Store, hub *progress.Hub, service *Service) *Worker {
	return &Worker{
		rdb:     rdb,
		store:   store,
		hub:     hub,
		service: service,
	}
}

// Start - 작업 처리 루프 시작 (블로킹)
func (w *Worker) Start(ctx context.Context) {
	log.Println("🚀 [CharacterSheet] Worker started")

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 [CharacterSheet] Worker stopped")
			return
		default:
		}

		result, err := w.rdb.BRPop(ctx, 5*time.Second, jobQueueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("❌ [CharacterSheet] Queue read error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		// 순차 처리 - 고루틴으로 띄우지 않음
		w.processJob(ctx, result[1])
		w.processed.Add(1)
	}
}

// Processed - 지금까지 처리한 작업 수
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// processJob - 세션 하나의 시트 생성 수행
func (w *Worker) processJob(ctx context.Context, sessionID string) {
	log.Printf("🚀 [CharacterSheet] Processing job: session=%s", sessionID)
	started := time.Now()

	snap, ok := w.store.Get(sessionID)
	if !ok {
		log.Printf("⚠️ [CharacterSheet] Session disappeared before processing: %s", sessionID)
		return
	}
	if snap.Screen != session.ScreenLoading || snap.Upload == nil {
		log.Printf("⚠️ [CharacterSheet] Session not in loading state, skipping: %s", sessionID)
		return
	}

	input := GenerateInput{
		ImageData: snap.Upload.Data,
		ImageMime: snap.Upload.MimeType,
		Style:     snap.Style,
		Ratio:     snap.Ratio,
		Chroma:    snap.Chroma,
	}

	notify := func(caption string) {
		w.store.SetProgress(sessionID, caption)
		w.hub.Publish(progress.Update{
			SessionID: sessionID,
			Caption:   caption,
			Screen:    string(session.ScreenLoading),
		})
	}

	results, err := w.service.GenerateSheet(ctx, input, notify)
	if err != nil {
		message := "Unexpected error: " + err.Error()
		var coded *CodedError
		if errors.As(err, &coded) {
			message = coded.Message
		}

		log.Printf("❌ [CharacterSheet] Generation failed: session=%s, %v", sessionID, err)
		if failErr := w.store.FailGeneration(sessionID, message); failErr != nil {
			log.Printf("⚠️ [CharacterSheet] Failed to record failure: %v", failErr)
			return
		}
		w.hub.Publish(progress.Update{
			SessionID: sessionID,
			Screen:    string(session.ScreenUpload),
			Error:     message,
		})
		return
	}

	if err := w.store.CompleteGeneration(sessionID, results); err != nil {
		log.Printf("⚠️ [CharacterSheet] Failed to record results: %v", err)
		return
	}

	w.hub.Publish(progress.Update{
		SessionID: sessionID,
		Screen:    string(session.ScreenResults),
	})

	log.Printf("✅ [CharacterSheet] Sheet complete: session=%s, %d images, took %v",
		sessionID, len(results), time.Since(started))
}
