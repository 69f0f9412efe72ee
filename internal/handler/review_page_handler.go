package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/models"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
	"github.com/noah-isme/feedback-review-api/pkg/response"
)

type reviewService interface {
	ListPending(ctx context.Context, email string) ([]models.PendingItem, error)
	NextPending(ctx context.Context, email string, afterID *int64) (*models.PendingItem, error)
	ReviewItem(ctx context.Context, email string, id int64, rawSlot string) (*models.PendingItem, error)
	Submit(ctx context.Context, req dto.SubmitRequest) (*models.PendingItem, error)
	ProblemTags() []string
}

// Messages shown on the error page, keyed by error code.
var pageMessages = map[string]string{
	appErrors.ErrInvalidSlot.Code:        "Papel de avaliador inválido.",
	appErrors.ErrInvalidAnswer.Code:      "Resposta inválida.",
	appErrors.ErrRecordNotFound.Code:     "Registro não encontrado.",
	appErrors.ErrForbidden.Code:          "Você não está autorizado a avaliar este feedback.",
	appErrors.ErrAlreadyAnswered.Code:    "Este feedback já foi avaliado.",
	appErrors.ErrStorageUnavailable.Code: "Banco de dados indisponível. Tente novamente em instantes.",
	appErrors.ErrValidation.Code:         "Dados do formulário incompletos.",
}

type tagOption struct {
	Label   string
	Checked bool
}

// ReviewPageHandler serves the reviewer-facing HTML flow.
type ReviewPageHandler struct {
	service reviewService
}

// NewReviewPageHandler builds the page handler.
func NewReviewPageHandler(service reviewService) *ReviewPageHandler {
	return &ReviewPageHandler{service: service}
}

// Index shows the email form, or sends the reviewer straight to their first pending item.
func (h *ReviewPageHandler) Index(c *gin.Context) {
	email := models.NormalizeEmail(c.Query("email"))
	if email == "" {
		response.HTML(c, http.StatusOK, "index.html", gin.H{})
		return
	}

	next, err := h.service.NextPending(c.Request.Context(), email, nil)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if next != nil {
		response.SeeOther(c, ReviewLocation(email, *next))
		return
	}
	response.HTML(c, http.StatusOK, "lista.html", gin.H{"email": email})
}

// Review renders one feedback text with the answer form.
func (h *ReviewPageHandler) Review(c *gin.Context) {
	email := models.NormalizeEmail(c.Query("email"))
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		h.renderError(c, appErrors.Clone(appErrors.ErrValidation, "invalid id"))
		return
	}

	item, err := h.service.ReviewItem(c.Request.Context(), email, id, c.Query("papel"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	stored := item.Record.SlotProblems(item.Slot)
	tags := h.service.ProblemTags()
	options := make([]tagOption, 0, len(tags))
	for _, tag := range tags {
		options = append(options, tagOption{Label: tag, Checked: models.HasTag(stored, tag)})
	}
	answer := ""
	if current := item.Record.SlotAnswer(item.Slot); current != nil {
		answer = *current
	}

	response.HTML(c, http.StatusOK, "avaliar.html", gin.H{
		"email":    email,
		"papel":    item.Slot.String(),
		"item":     item.Record,
		"opcoes":   options,
		"resposta": answer,
	})
}

// Submit stores a posted answer and redirects to the next pending item or the
// completion page.
func (h *ReviewPageHandler) Submit(c *gin.Context) {
	id, _ := strconv.ParseInt(c.PostForm("id"), 10, 64)
	_, submitted := c.GetPostForm("problemas_submitted")
	req := dto.SubmitRequest{
		Email:             c.PostForm("email"),
		ID:                id,
		Slot:              c.PostForm("papel"),
		Answer:            c.PostForm("resposta"),
		Problems:          c.PostFormArray("problemas"),
		ProblemsSubmitted: submitted,
	}

	next, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	email := models.NormalizeEmail(req.Email)
	if next == nil {
		response.SeeOther(c, DoneLocation(email))
		return
	}
	response.SeeOther(c, ReviewLocation(email, *next))
}

// Done renders the completion page.
func (h *ReviewPageHandler) Done(c *gin.Context) {
	response.HTML(c, http.StatusOK, "fim.html", gin.H{"email": models.NormalizeEmail(c.Query("email"))})
}

func (h *ReviewPageHandler) renderError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if msg, ok := pageMessages[appErr.Code]; ok {
		appErr = appErrors.Clone(appErr, msg)
	}
	response.HTMLError(c, appErr)
}

// ReviewLocation is the review page URL for a pending item.
func ReviewLocation(email string, item models.PendingItem) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("id", strconv.FormatInt(item.Record.ID, 10))
	q.Set("papel", item.Slot.String())
	return "/avaliar?" + q.Encode()
}

// DoneLocation is the completion page URL.
func DoneLocation(email string) string {
	return "/fim?" + url.Values{"email": {email}}.Encode()
}
