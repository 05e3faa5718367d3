// internal/handlers/onboarding.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/agency-onboarding/internal/config"
	"github.com/javajoker/agency-onboarding/internal/i18n"
	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/services"
	"github.com/javajoker/agency-onboarding/internal/utils"
)

type OnboardingHandler struct {
	onboardingService *services.OnboardingService
	maxRequestBytes   int64
}

type stepResponse struct {
	*services.StepResult
	Message string `json:"message,omitempty"`
}

func NewOnboardingHandler(onboardingService *services.OnboardingService, cfg *config.Config) *OnboardingHandler {
	return &OnboardingHandler{
		onboardingService: onboardingService,
		maxRequestBytes:   cfg.Storage.MaxRequestBytes,
	}
}

// POST /api/agency-onboarding/:request_uuid
func (h *OnboardingHandler) SubmitStep(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	sub := services.StepSubmission{RequestUUID: c.Param("request_uuid")}
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		if h.maxRequestBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxRequestBytes)
		}
		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, string(services.CodeFileRejected), i18n.T(lang, i18n.KeyFileRejected), err.Error())
				return
			}
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "multipart body"), err.Error())
			return
		}
		defer removeTempFiles(form)

		sub.Envelope = services.StepEnvelope{
			StepNumber: rawField(form.Value, "step_number"),
			Action:     firstValue(form.Value, "action"),
			FormData:   rawField(form.Value, "form_data"),
			AgentType:  firstValue(form.Value, "agent_type"),
		}
		sub.Files = form.File
	} else if err := c.ShouldBindJSON(&sub.Envelope); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "JSON body"), err.Error())
		return
	}

	result, err := h.onboardingService.ApplyStep(c.Request.Context(), &sub)
	if err != nil {
		respondStepError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyStepSaved, result.StepNumber)
	if result.Status == models.ApplicationStatusCompleted {
		message = i18n.T(lang, i18n.KeyApplicationSubmitted)
	}
	utils.SuccessResponse(c, stepResponse{StepResult: result, Message: message})
}

// GET /api/agency-onboarding/:request_uuid?step=N
func (h *OnboardingHandler) GetApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var step *int
	if raw, ok := c.GetQuery("step"); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "step"), err.Error())
			return
		}
		step = &n
	}

	view, err := h.onboardingService.GetApplication(c.Request.Context(), c.Param("request_uuid"), step)
	if err != nil {
		respondStepError(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// respondStepError maps engine errors to HTTP responses.
func respondStepError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	stepErr, ok := services.AsStepError(err)
	if !ok {
		logrus.WithError(err).Error("Unclassified onboarding error")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyPersistenceFailed))
		return
	}

	switch stepErr.Code {
	case services.CodeValidationFailed:
		utils.ValidationErrorResponse(c, stepErr.Violations)
	case services.CodeUnknownApplication:
		utils.ErrorResponse(c, http.StatusBadRequest, string(stepErr.Code), i18n.T(lang, i18n.KeyUnknownApplication), stepErr.Message)
	case services.CodeInvalidStep:
		utils.ErrorResponse(c, http.StatusBadRequest, string(stepErr.Code), i18n.T(lang, i18n.KeyInvalidStep), stepErr.Message)
	case services.CodeFileRejected:
		utils.ErrorResponse(c, http.StatusBadRequest, string(stepErr.Code), i18n.T(lang, i18n.KeyFileRejected), stepErr.Message)
	case services.CodeApplicationCompleted:
		utils.ErrorResponse(c, http.StatusConflict, string(stepErr.Code), i18n.T(lang, i18n.KeyApplicationCompleted), nil)
	case services.CodeNotFound:
		utils.ErrorResponse(c, http.StatusNotFound, string(stepErr.Code), i18n.T(lang, i18n.KeyApplicationNotFound), stepErr.Message)
	case services.CodeUnavailable:
		c.Header("Retry-After", "5")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, string(stepErr.Code), i18n.T(lang, i18n.KeyServiceUnavailable), nil)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, string(services.CodePersistenceFailed), i18n.T(lang, i18n.KeyPersistenceFailed), stepErr.Message)
	}
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// rawField re-encodes a multipart text field as a JSON string so it
// decodes the same way as a JSON body field.
func rawField(values map[string][]string, key string) json.RawMessage {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	encoded, err := json.Marshal(v[0])
	if err != nil {
		return nil
	}
	return encoded
}

// removeTempFiles drops the temp files a parsed multipart form spilled to disk.
func removeTempFiles(form interface{ RemoveAll() error }) {
	if err := form.RemoveAll(); err != nil {
		logrus.WithError(err).Warn("Failed to remove multipart temp files")
	}
}
