package handlers

import (
	"context"
	"net/http"
	"time"

	"lifeQuestAPI/middleware"
	"lifeQuestAPI/services"
)

type DayHandler struct {
	dayService *services.DayService
}

func NewDayHandler(dayService *services.DayService) *DayHandler {
	return &DayHandler{
		dayService: dayService,
	}
}

func (h *DayHandler) GetDayStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	status, err := h.dayService.GetDayStatus(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

func (h *DayHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	summary, err := h.dayService.CloseDay(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
