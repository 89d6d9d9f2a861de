// Package httpapi: 운영용 HTTP 표면. 헬스 체크와 읽기 전용 관리 조회만 제공하고,
// 게임 명령은 전부 스트림 경로로만 받는다.
package httpapi

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	commonhttputil "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/httputil"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

const (
	adminErrorUnauthorized   = "UNAUTHORIZED"
	adminErrorInvalidRequest = "INVALID_REQUEST"
	adminErrorPlayerNotFound = "PLAYER_NOT_FOUND"
	adminErrorInternalError  = "INTERNAL_ERROR"
)

// Deps: 라우트 핸들러 의존성.
type Deps struct {
	Repo   *repository.Repository
	APIKey string
	Logger *slog.Logger
}

// Register 는 동작을 수행한다.
func Register(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_ = commonhttputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"goroutines": runtime.NumGoroutine(),
		})
	})

	mux.HandleFunc("GET /admin/stats", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleAdminStats(w, r, deps)
	}))
	mux.HandleFunc("GET /admin/players/{userId}", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleAdminPlayerGet(w, r, deps)
	}))
	mux.HandleFunc("GET /admin/shop/{pavilionId}", requireAPIKey(deps, func(w http.ResponseWriter, r *http.Request) {
		handleAdminShopStock(w, r, deps)
	}))

	deps.Logger.Info("admin_api_registered", "routes", 3)
}

// requireAPIKey: X-API-Key 헤더 검사. 키가 설정되지 않았으면 관리 API 를 전부 막는다.
func requireAPIKey(deps Deps, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.APIKey == "" {
			_ = commonhttputil.WriteErrorJSON(w, http.StatusForbidden, adminErrorUnauthorized, "admin api disabled")
			return
		}
		key := r.Header.Get(commonhttputil.HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(key), []byte(deps.APIKey)) != 1 {
			_ = commonhttputil.WriteErrorJSON(w, http.StatusUnauthorized, adminErrorUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

// AdminStatsResponse: 통합 상태 응답 DTO
type AdminStatsResponse struct {
	PlayerCount   int64 `json:"playerCount"`
	SchemaVersion int   `json:"schemaVersion"`
}

func handleAdminStats(w http.ResponseWriter, r *http.Request, deps Deps) {
	ctx := r.Context()

	count, err := deps.Repo.CountPlayers(ctx)
	if err != nil {
		deps.Logger.Error("admin_stats_count_failed", "err", err)
		_ = commonhttputil.WriteErrorJSON(w, http.StatusInternalServerError, adminErrorInternalError, "failed to count players")
		return
	}
	version, err := deps.Repo.SchemaVersion(ctx)
	if err != nil {
		deps.Logger.Error("admin_stats_version_failed", "err", err)
		_ = commonhttputil.WriteErrorJSON(w, http.StatusInternalServerError, adminErrorInternalError, "failed to read schema version")
		return
	}

	_ = commonhttputil.WriteJSON(w, http.StatusOK, AdminStatsResponse{
		PlayerCount:   count,
		SchemaVersion: version,
	})
}

// AdminPlayerResponse: 플레이어 조회 응답 DTO
type AdminPlayerResponse struct {
	UserID          string `json:"userId"`
	Nickname        string `json:"nickname"`
	RealmIndex      int    `json:"realmIndex"`
	Experience      int64  `json:"experience"`
	SpiritStones    int64  `json:"spiritStones"`
	Spirit          int64  `json:"spirit"`
	MaxSpirit       int64  `json:"maxSpirit"`
	MagicAttack     int64  `json:"magicAttack"`
	PhysicalAttack  int64  `json:"physicalAttack"`
	MagicDefense    int64  `json:"magicDefense"`
	PhysicalDefense int64  `json:"physicalDefense"`
	MentalPower     int64  `json:"mentalPower"`
	Weapon          string `json:"weapon"`
	Armor           string `json:"armor"`
	MainTechnique   string `json:"mainTechnique"`
	InRetreat       bool   `json:"inRetreat"`
}

func handleAdminPlayerGet(w http.ResponseWriter, r *http.Request, deps Deps) {
	userID := strings.TrimSpace(r.PathValue("userId"))
	if userID == "" {
		_ = commonhttputil.WriteErrorJSON(w, http.StatusBadRequest, adminErrorInvalidRequest, "user id is required")
		return
	}

	player, err := deps.Repo.GetPlayer(r.Context(), userID)
	if err != nil {
		var notFound *gameerrors.NotFoundError
		if errors.As(err, &notFound) {
			_ = commonhttputil.WriteErrorJSON(w, http.StatusNotFound, adminErrorPlayerNotFound, "player not found")
			return
		}
		deps.Logger.Error("admin_player_get_failed", "user_id", userID, "err", err)
		_ = commonhttputil.WriteErrorJSON(w, http.StatusInternalServerError, adminErrorInternalError, "failed to get player")
		return
	}

	_ = commonhttputil.WriteJSON(w, http.StatusOK, AdminPlayerResponse{
		UserID:          player.UserID,
		Nickname:        player.Nickname,
		RealmIndex:      player.RealmIndex,
		Experience:      player.Experience,
		SpiritStones:    player.SpiritStones,
		Spirit:          player.Spirit,
		MaxSpirit:       player.MaxSpirit,
		MagicAttack:     player.MagicAttack,
		PhysicalAttack:  player.PhysicalAttack,
		MagicDefense:    player.MagicDefense,
		PhysicalDefense: player.PhysicalDefense,
		MentalPower:     player.MentalPower,
		Weapon:          player.Weapon,
		Armor:           player.Armor,
		MainTechnique:   player.MainTechnique,
		InRetreat:       player.RetreatStartedAt != nil,
	})
}

func handleAdminShopStock(w http.ResponseWriter, r *http.Request, deps Deps) {
	pavilionID := strings.TrimSpace(r.PathValue("pavilionId"))
	if pavilionID == "" {
		_ = commonhttputil.WriteErrorJSON(w, http.StatusBadRequest, adminErrorInvalidRequest, "pavilion id is required")
		return
	}

	stock, err := deps.Repo.GetStock(r.Context(), pavilionID)
	if err != nil {
		var notFound *gameerrors.NotFoundError
		if errors.As(err, &notFound) {
			_ = commonhttputil.WriteErrorJSON(w, http.StatusNotFound, adminErrorInvalidRequest, "pavilion not found")
			return
		}
		deps.Logger.Error("admin_shop_stock_failed", "pavilion_id", pavilionID, "err", err)
		_ = commonhttputil.WriteErrorJSON(w, http.StatusInternalServerError, adminErrorInternalError, "failed to get stock")
		return
	}

	listings, err := stock.Listings()
	if err != nil {
		deps.Logger.Error("admin_shop_stock_decode_failed", "pavilion_id", pavilionID, "err", err)
		_ = commonhttputil.WriteErrorJSON(w, http.StatusInternalServerError, adminErrorInternalError, "failed to decode listings")
		return
	}

	_ = commonhttputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pavilionId":    stock.PavilionID,
		"lastRefreshAt": stock.LastRefreshAt,
		"listings":      listings,
	})
}
