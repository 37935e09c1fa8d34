package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
)

type PitchHandler struct {
	service PitchServiceInterface
}

func NewPitchHandler(s PitchServiceInterface) *PitchHandler {
	return &PitchHandler{service: s}
}

type PitchResponse struct {
	PitchID     int      `json:"pitch_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SurfaceType string   `json:"surface_type"`
	Features    []string `json:"features"`
	ImageURL    string   `json:"image_url,omitempty"`
}

type PitchListResponse struct {
	Pitches []PitchResponse `json:"pitches"`
	Count   int             `json:"count"`
}

func toPitchResponse(p *pitch.Pitch) PitchResponse {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return PitchResponse{
		PitchID:     p.PitchID,
		Name:        p.Name,
		Description: p.Description,
		SurfaceType: p.Surface,
		Features:    features,
		ImageURL:    p.ImageURL,
	}
}

// List godoc
// @Summary ピッチ一覧を取得
// @Tags pitches
// @Produce json
// @Success 200 {object} DataResponse
// @Router /pitches [get]
func (h *PitchHandler) List(c echo.Context) error {
	pitches, err := h.service.ListPitches(c.Request().Context())
	if err != nil {
		return err
	}
	resp := PitchListResponse{Pitches: make([]PitchResponse, len(pitches)), Count: len(pitches)}
	for i, p := range pitches {
		resp.Pitches[i] = toPitchResponse(p)
	}
	return c.JSON(http.StatusOK, DataResponse{Data: resp})
}
