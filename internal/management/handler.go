package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"streamrouter/internal/constants"
	"streamrouter/internal/logger"
	"streamrouter/pkg/errors"
)

type Handler struct {
	Service Service
	Logger  logger.Logger
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  log,
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.WarnwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		streams := v1.Group("/streams")
		{
			streams.GET("", h.ListStreams)
			streams.POST("", h.CreateStream)
			streams.GET("/rule-types", h.ListRuleTypes)
			streams.GET("/:id", h.GetStream)
			streams.PUT("/:id", h.UpdateStream)
			streams.DELETE("/:id", h.DeleteStream)
			streams.POST("/:id/pause", h.PauseStream)
			streams.POST("/:id/resume", h.ResumeStream)
			streams.POST("/:id/test", h.TestStream)
			streams.GET("/:id/audit", h.GetStreamAuditLogs)

			streams.POST("/:id/rules", h.CreateRule)
			streams.PUT("/:id/rules/:ruleId", h.UpdateRule)
			streams.DELETE("/:id/rules/:ruleId", h.DeleteRule)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

// ListStreams godoc
// @Summary      List all streams
// @Description  Get every stream with its rules, enabled or paused
// @Tags         streams
// @Produce      json
// @Success      200  {array}   routing.Stream
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /streams [get]
func (h *Handler) ListStreams(c *gin.Context) {
	streams, err := h.Service.ListStreams(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, streams)
}

// CreateStream godoc
// @Summary      Create a new stream
// @Description  Create a stream together with its initial rules. Every rule is validated before anything is stored.
// @Tags         streams
// @Accept       json
// @Produce      json
// @Param        X-User  header    string               false  "Actor recorded in the audit log"
// @Param        stream  body      CreateStreamRequest  true   "Stream definition"
// @Success      201     {object}  routing.Stream
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      422     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /streams [post]
func (h *Handler) CreateStream(c *gin.Context) {
	var req CreateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("message", err.Error()))
		return
	}

	stream, err := h.Service.CreateStream(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stream)
}

// GetStream godoc
// @Summary      Get a stream by ID
// @Tags         streams
// @Produce      json
// @Param        id   path      string  true  "Stream ID"
// @Success      200  {object}  routing.Stream
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /streams/{id} [get]
func (h *Handler) GetStream(c *gin.Context) {
	stream, err := h.Service.GetStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stream)
}

// UpdateStream godoc
// @Summary      Update a stream
// @Description  Change the title or description. Rules are edited through the rules endpoints.
// @Tags         streams
// @Accept       json
// @Produce      json
// @Param        id      path      string               true  "Stream ID"
// @Param        stream  body      UpdateStreamRequest  true  "Fields to change"
// @Success      200     {object}  routing.Stream
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      500     {object}  errors.ErrorResponse
// @Router       /streams/{id} [put]
func (h *Handler) UpdateStream(c *gin.Context) {
	var req UpdateStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("message", err.Error()))
		return
	}

	stream, err := h.Service.UpdateStream(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stream)
}

// DeleteStream godoc
// @Summary      Delete a stream
// @Tags         streams
// @Param        id   path  string  true  "Stream ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /streams/{id} [delete]
func (h *Handler) DeleteStream(c *gin.Context) {
	if err := h.Service.DeleteStream(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PauseStream godoc
// @Summary      Pause a stream
// @Description  A paused stream is left out of routing until it is resumed
// @Tags         streams
// @Produce      json
// @Param        id   path      string  true  "Stream ID"
// @Success      200  {object}  routing.Stream
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /streams/{id}/pause [post]
func (h *Handler) PauseStream(c *gin.Context) {
	stream, err := h.Service.PauseStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stream)
}

// ResumeStream godoc
// @Summary      Resume a paused stream
// @Tags         streams
// @Produce      json
// @Param        id   path      string  true  "Stream ID"
// @Success      200  {object}  routing.Stream
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /streams/{id}/resume [post]
func (h *Handler) ResumeStream(c *gin.Context) {
	stream, err := h.Service.ResumeStream(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stream)
}

// TestStream godoc
// @Summary      Test a message against a stream
// @Description  Report how a sample GELF message fares against every rule of one stream
// @Tags         streams
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Stream ID"
// @Param        request  body      TestStreamRequest  true  "Sample message"
// @Success      200      {object}  routing.Explanation
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /streams/{id}/test [post]
func (h *Handler) TestStream(c *gin.Context) {
	var req TestStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("message", err.Error()))
		return
	}

	result, err := h.Service.TestStream(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListRuleTypes godoc
// @Summary      List supported rule types
// @Tags         streams
// @Produce      json
// @Success      200  {object}  RuleTypesResponse
// @Router       /streams/rule-types [get]
func (h *Handler) ListRuleTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.RuleTypes())
}

// CreateRule godoc
// @Summary      Add a rule to a stream
// @Tags         stream-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Stream ID"
// @Param        rule  body      CreateRuleRequest  true  "Rule definition"
// @Success      201   {object}  routing.StreamRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      422   {object}  errors.ErrorResponse
// @Router       /streams/{id}/rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("message", err.Error()))
		return
	}

	rule, err := h.Service.CreateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule godoc
// @Summary      Update a stream rule
// @Tags         stream-rules
// @Accept       json
// @Produce      json
// @Param        id      path      string             true  "Stream ID"
// @Param        ruleId  path      string             true  "Rule ID"
// @Param        rule    body      UpdateRuleRequest  true  "Fields to change"
// @Success      200     {object}  routing.StreamRule
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      404     {object}  errors.ErrorResponse
// @Failure      422     {object}  errors.ErrorResponse
// @Router       /streams/{id}/rules/{ruleId} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleError(c, errors.ErrValidation.WithCause(err).WithDetail("message", err.Error()))
		return
	}

	rule, err := h.Service.UpdateRule(c.Request.Context(), c.Param("id"), c.Param("ruleId"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a stream rule
// @Tags         stream-rules
// @Param        id      path  string  true  "Stream ID"
// @Param        ruleId  path  string  true  "Rule ID"
// @Success      204
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /streams/{id}/rules/{ruleId} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.Service.DeleteRule(c.Request.Context(), c.Param("id"), c.Param("ruleId")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStreamAuditLogs godoc
// @Summary      Get audit logs for a stream
// @Tags         audit
// @Produce      json
// @Param        id     path      string  true   "Stream ID"
// @Param        limit  query     int     false  "Maximum number of entries"  default(100)
// @Success      200    {array}   models.AuditEntry
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /streams/{id}/audit [get]
func (h *Handler) GetStreamAuditLogs(c *gin.Context) {
	entries, err := h.Service.GetAuditLogs(c.Request.Context(), c.Param("id"), parseLimit(c.Query("limit")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Newest first, optionally limited to one stream
// @Tags         audit
// @Produce      json
// @Param        stream_id  query     string  false  "Stream ID"
// @Param        limit      query     int     false  "Maximum number of entries"  default(100)
// @Success      200        {array}   models.AuditEntry
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	entries, err := h.Service.GetAuditLogs(c.Request.Context(), c.Query("stream_id"), parseLimit(c.Query("limit")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
