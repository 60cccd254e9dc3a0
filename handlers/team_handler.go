package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/Sovan7777/spardha-26/services"
)

// Поля multipart-формы регистрации.
const (
	formPayload               = "payload"
	formPlayerIDCard          = "playerIdCard" // playerIdCard[0], playerIdCard[1], ...
	formTransactionScreenshot = "transactionScreenshot"
	formIDCardPic             = "idCardPic"

	multipartMemory = 8 << 20
)

type TeamHandler struct {
	registrationService services.RegistrationService
	teamService         services.TeamService
	maxRequestBytes     int64
}

// NewTeamHandler; maxUploadBytes is the per-file limit, the request limit is derived from it.
func NewTeamHandler(rs services.RegistrationService, ts services.TeamService, maxUploadBytes int64) *TeamHandler {
	return &TeamHandler{
		registrationService: rs,
		teamService:         ts,
		maxRequestBytes:     maxUploadBytes*16 + maxJSONBytes,
	}
}

func (h *TeamHandler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			errorResponse(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("request must not be larger than %d bytes", maxBytesError.Limit))
			return
		}
		badRequestResponse(w, r, fmt.Errorf("expected multipart/form-data: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var input services.RegisterTeamInput
	if err := decodeJSON(strings.NewReader(r.FormValue(formPayload)), &input); err != nil {
		badRequestResponse(w, r, fmt.Errorf("%s: %w", formPayload, err))
		return
	}

	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	attach := func(field string) (*services.FileUpload, error) {
		headers := r.MultipartForm.File[field]
		if len(headers) == 0 {
			return nil, nil
		}
		fh := headers[0]
		file, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		opened = append(opened, file)
		return &services.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      file,
		}, nil
	}

	var err error
	for i := range input.Players {
		if input.Players[i].IDCard, err = attach(fmt.Sprintf("%s[%d]", formPlayerIDCard, i)); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	if input.TransactionScreenshot, err = attach(formTransactionScreenshot); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.IDCardPic, err = attach(formIDCardPic); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.registrationService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var input services.CheckStatusInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.teamService.CheckStatus(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": view}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TeamFilter{Event: q.Get("event")}
	if s := q.Get("status"); s != "" {
		status := models.TeamStatus(s)
		filter.Status = &status
	}

	var err error
	if filter.Page, err = queryInt(r, "page", 1); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	list, err := h.teamService.ListTeams(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, list, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type updateStatusRequest struct {
	Status models.TeamStatus `json:"status"`
}

func (h *TeamHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Status == "" {
		failedValidationResponse(w, r, map[string]string{"status": "status is required"})
		return
	}

	team, err := h.teamService.UpdateStatus(r.Context(), teamID, req.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
