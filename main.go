package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"character-sheet-server/modules/charactersheet"
	"character-sheet-server/modules/common/config"
	redisClient "character-sheet-server/modules/common/redis"
	"character-sheet-server/modules/progress"
	"character-sheet-server/modules/session"
)

var serverStartTime = time.Now()

func main() {
	// 환경 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// 세션 저장소
	store := session.NewStore()
	store.StartCleanupRoutine()

	// 진행 상황 허브
	hub := progress.NewHub()

	// Redis 연결 및 워커 시작
	rdb := redisClient.Connect(cfg)
	if rdb == nil {
		log.Fatal("❌ Redis connection is required for the job queue")
	}

	service := charactersheet.NewService()
	if service == nil {
		log.Fatal("❌ Failed to initialize generation service")
	}

	worker := charactersheet.NewWorker(rdb, store, hub, service)
	go worker.Start(context.Background())

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/metrics", metricsHandler(store, worker)).Methods("GET")
	r.HandleFunc("/ws/progress", hub.HandleWebSocket).Methods("GET")

	handler := charactersheet.NewHandler(store, charactersheet.NewQueue(rdb))
	handler.RegisterRoutes(r)

	log.Printf("🚀 Character sheet server starting on port %s", cfg.Port)
	log.Printf("📝 Text model: %s", cfg.GeminiTextModel)
	log.Printf("🎨 Image model: %s", cfg.GeminiImageModel)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

// enableCORS - CORS 미들웨어
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck - 헬스 체크
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "healthy",
		"uptime": time.Since(serverStartTime).String(),
	})
}

// metricsHandler - 세션/작업 메트릭
func metricsHandler(store *session.Store, worker *charactersheet.Worker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := store.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"totalSessions":  m.TotalSessions,
			"activeSessions": m.ActiveSessions,
			"jobsProcessed":  worker.Processed(),
			"uptime":         time.Since(serverStartTime).String(),
		})
	}
}
